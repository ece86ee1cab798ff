// Package budget estimates the token size of a conversation and decides
// when it has outgrown its limit.
package budget

import (
	"encoding/json"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	ai "github.com/spetersoncode/miniagent"
)

func init() {
	// Encodings are loaded from data embedded in the binary, never fetched.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// PerMessageOverhead is added for every message to account for role and
// framing tokens.
const PerMessageOverhead = 4

// DefaultEncoding is the tiktoken encoding used for estimates.
const DefaultEncoding = "cl100k_base"

// charsPerToken is the fallback ratio when no encoder is available.
const charsPerToken = 2.5

// Estimator approximates the token count of a message history.
// It is safe for concurrent use.
type Estimator struct {
	encoding string
	disabled bool
}

// encodings caches loaded encoders by name so every Estimator shares them.
var encodings sync.Map // map[string]*lazyEncoding

type lazyEncoding struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func loadEncoding(name string) *tiktoken.Tiktoken {
	v, _ := encodings.LoadOrStore(name, &lazyEncoding{})
	l := v.(*lazyEncoding)
	l.once.Do(func() {
		enc, err := tiktoken.GetEncoding(name)
		if err != nil {
			return
		}
		l.enc = enc
	})
	return l.enc
}

var defaultEstimator = NewEstimator()

// Default returns the process-wide cl100k_base estimator.
func Default() *Estimator {
	return defaultEstimator
}

// NewEstimator returns an estimator using the cl100k_base encoding. If the
// encoding cannot be loaded it falls back to the character heuristic.
func NewEstimator() *Estimator {
	return &Estimator{encoding: DefaultEncoding}
}

// NewFallbackEstimator returns an estimator that never loads an encoder and
// always uses floor(chars / 2.5). The result is approximate.
func NewFallbackEstimator() *Estimator {
	return &Estimator{disabled: true}
}

func (e *Estimator) encoder() *tiktoken.Tiktoken {
	if e.disabled {
		return nil
	}
	return loadEncoding(e.encoding)
}

// Exact reports whether estimates come from a real tokenizer.
func (e *Estimator) Exact() bool {
	return e.encoder() != nil
}

// Estimate returns the approximate token count of messages. It counts each
// message's content, thinking and JSON-encoded tool calls, plus
// PerMessageOverhead per message.
func (e *Estimator) Estimate(messages []ai.Message) int {
	enc := e.encoder()
	if enc == nil {
		return fallbackEstimate(messages)
	}

	total := 0
	for _, m := range messages {
		for _, text := range messageTexts(m) {
			total += len(enc.Encode(text, nil, nil))
		}
		total += PerMessageOverhead
	}
	return total
}

func fallbackEstimate(messages []ai.Message) int {
	chars := 0
	for _, m := range messages {
		for _, text := range messageTexts(m) {
			chars += len([]rune(text))
		}
	}
	return int(float64(chars)/charsPerToken) + PerMessageOverhead*len(messages)
}

func messageTexts(m ai.Message) []string {
	texts := make([]string, 0, 3)
	if m.Content != "" {
		texts = append(texts, m.Content)
	}
	if m.Thinking != "" {
		texts = append(texts, m.Thinking)
	}
	if len(m.ToolCalls) > 0 {
		if data, err := json.Marshal(m.ToolCalls); err == nil {
			texts = append(texts, string(data))
		}
	}
	return texts
}

// Budget is the token accounting evaluated before each step.
type Budget struct {
	// Limit is the configured token limit.
	Limit int
	// LocalEstimate is the Estimator's count of the current history.
	LocalEstimate int
	// APIReported is the total_tokens of the most recent model response.
	APIReported int
}

// Exceeded reports whether either count is over the limit.
func (b Budget) Exceeded() bool {
	return b.LocalEstimate > b.Limit || b.APIReported > b.Limit
}
