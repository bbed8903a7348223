// Package llm is the single completion contract used by enrichment and
// campaign generation, with Anthropic and Gemini backends.
package llm

import (
	"context"
)

// Options tunes one completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	// System is an optional system prompt. Backends that support prompt
	// caching cache it.
	System string
	// Stage names the pipeline step for logs and metrics.
	Stage string
}

// Completer turns a prompt into text. The text is expected, not guaranteed,
// to be JSON matching the schema the prompt asks for.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}
