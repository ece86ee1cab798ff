package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 60*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.True(t, cfg.Enabled())
}

func TestDisabled(t *testing.T) {
	cfg := Disabled()
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.False(t, cfg.Enabled())
}

func TestNewCountsRetriesNotAttempts(t *testing.T) {
	cfg := New(3, time.Second, 10*time.Second, 0)

	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Multiplier)

	assert.Equal(t, 1, New(-1, time.Second, time.Second, 2).MaxAttempts)
}

func TestConfigDelay(t *testing.T) {
	cfg := Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(0))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 800*time.Millisecond, cfg.Delay(3))
}

func TestConfigDelayMaxCap(t *testing.T) {
	cfg := Config{
		InitialDelay: time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, 4*time.Second, cfg.Delay(2))
	assert.Equal(t, 5*time.Second, cfg.Delay(3))
	assert.Equal(t, 5*time.Second, cfg.Delay(10))
}

func TestConfigDelayWithJitter(t *testing.T) {
	cfg := Config{
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		Jitter:       0.1,
	}

	for i := 0; i < 20; i++ {
		d := cfg.Delay(0)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}
