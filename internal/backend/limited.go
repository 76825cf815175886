package backend

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/smartgenesis/api/internal/metrics"
)

// Limited caps the number of concurrent calls into a Generator. Callers wait
// for a slot until their context ends.
type Limited struct {
	next Generator
	sem  *semaphore.Weighted
}

// NewLimited wraps next with a budget of n concurrent calls. A non-positive
// n returns next unchanged.
func NewLimited(next Generator, n int64) Generator {
	if n <= 0 {
		return next
	}
	return &Limited{next: next, sem: semaphore.NewWeighted(n)}
}

func (l *Limited) Name() string {
	return l.next.Name()
}

func (l *Limited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", &Error{
			Kind:    KindBackendError,
			Detail:  "concurrency budget exhausted",
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}
	}
	defer l.sem.Release(1)

	metrics.BackendInFlight.Inc()
	defer metrics.BackendInFlight.Dec()

	return l.next.Generate(ctx, prompt)
}

// Instrumented records request counts, error kinds and latency per provider
type Instrumented struct {
	next Generator
}

func Instrument(next Generator) *Instrumented {
	return &Instrumented{next: next}
}

func (i *Instrumented) Name() string {
	return i.next.Name()
}

func (i *Instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	provider := i.next.Name()
	start := time.Now()
	metrics.IncBackendRequest(provider)

	out, err := i.next.Generate(ctx, prompt)
	metrics.ObserveBackendDuration(provider, time.Since(start))
	if err != nil {
		kind := KindBackendError.String()
		if berr, ok := AsError(err); ok {
			kind = berr.Reason()
		}
		metrics.IncBackendError(provider, kind)
	}
	return out, err
}
