// Package tokens estimates token counts for prompts and responses.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens with a tiktoken codec. A nil codec falls back to the
// four-characters-per-token estimate.
type Counter struct {
	codec tokenizer.Codec
}

//nolint:gochecknoglobals // shared codec, loading it is expensive
var (
	defaultCounter *Counter
	defaultOnce    sync.Once
)

// NewCounter returns a counter using the GPT-4 encoding. Every supported
// backend is approximated with it.
func NewCounter() *Counter {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return &Counter{}
	}
	return &Counter{codec: codec}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if c.codec == nil {
		return len(text) / 4
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// Count counts with the shared default counter.
func Count(text string) int {
	defaultOnce.Do(func() { defaultCounter = NewCounter() })
	return defaultCounter.Count(text)
}
