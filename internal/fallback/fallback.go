// Package fallback runs ordered attempt strategies until one succeeds.
//
// Both the speech output chain (direct provider → backend proxy → native)
// and the answer chain (understanding → backend → apology) are expressed as
// a list of Attempts sharing one capability interface, so adding or removing
// a tier is a one-line change at the call site.
package fallback

import (
	"context"
	"log/slog"

	"github.com/rotisserie/eris"
)

// Attempt is one ranked strategy in a fallback chain.
type Attempt[I, O any] interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// Attempt tries to produce an output. Any error moves the chain to the
	// next tier; no attempt is retried in place.
	Attempt(ctx context.Context, in I) (O, error)
}

// Func adapts a plain function into an Attempt.
type Func[I, O any] struct {
	Label string
	Fn    func(ctx context.Context, in I) (O, error)
}

// Name returns the label.
func (f Func[I, O]) Name() string { return f.Label }

// Attempt calls the wrapped function.
func (f Func[I, O]) Attempt(ctx context.Context, in I) (O, error) { return f.Fn(ctx, in) }

// Observer is notified after every attempt. It may be nil.
type Observer func(name string, err error)

// Run tries each attempt in order, exactly once, and returns the first
// success together with the name of the tier that produced it. When every
// attempt fails the last error is returned wrapped.
func Run[I, O any](ctx context.Context, in I, observe Observer, attempts ...Attempt[I, O]) (O, string, error) {
	var zero O
	var lastErr error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return zero, "", eris.Wrap(err, "fallback: cancelled")
		}
		out, err := a.Attempt(ctx, in)
		if observe != nil {
			observe(a.Name(), err)
		}
		if err == nil {
			return out, a.Name(), nil
		}
		level := slog.LevelWarn
		if IsSkippable(err) {
			level = slog.LevelDebug
		}
		slog.Log(ctx, level, "fallback: tier failed, trying next", "tier", a.Name(), "error", err)
		lastErr = err
	}
	if lastErr == nil {
		return zero, "", eris.New("fallback: no tiers configured")
	}
	return zero, "", eris.Wrap(lastErr, "fallback: all tiers failed")
}
