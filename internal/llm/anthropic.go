package llm

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/resilience"
	"github.com/sells-group/leadflow/pkg/anthropic"
)

// ErrEmptyCompletion is returned when a provider answers with no text.
var ErrEmptyCompletion = eris.New("llm: empty completion")

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// AnthropicCompleter completes prompts with the Claude Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicCompleter wraps client for the given model.
func NewAnthropicCompleter(client anthropic.Client, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, model: model}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	temp := opts.Temperature
	req := anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(opts.MaxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}
	if opts.System != "" {
		req.System = anthropic.CachedSystem(opts.System)
	}

	resp, err := c.client.CreateMessage(ctx, req)
	if err != nil {
		return "", classifyAnthropic(err)
	}
	resp.Usage.LogCost(c.model, opts.Stage)

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func classifyAnthropic(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == statusOverloaded || resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return resilience.NewTransientError(err, apiErr.StatusCode)
		}
	}
	return err
}
