package llm

import (
	"context"
	"time"

	"github.com/sells-group/leadflow/internal/resilience"
)

// Guard wraps a Completer with a per-call deadline, transient retries and a
// circuit breaker. The deadline covers all retry attempts of one call.
type Guard struct {
	next    Completer
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewGuard builds a Guard. A zero timeout disables the per-call deadline and
// a nil breaker disables circuit breaking.
func NewGuard(next Completer, timeout time.Duration, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *Guard {
	return &Guard{next: next, timeout: timeout, retry: retry, breaker: breaker}
}

// Complete implements Completer.
func (g *Guard) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	call := func(ctx context.Context) (string, error) {
		return g.next.Complete(ctx, prompt, opts)
	}
	if g.breaker != nil {
		inner := call
		call = func(ctx context.Context) (string, error) {
			return resilience.ExecuteVal(ctx, g.breaker, inner)
		}
	}
	return resilience.DoVal(ctx, g.retry, call)
}
