package chat

import "errors"

// ErrStreamClosed is returned when a chunk stream ends without a done chunk.
var ErrStreamClosed = errors.New("chat: stream closed before done")
