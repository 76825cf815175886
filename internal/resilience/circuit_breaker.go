// Package resilience guards calls into the remote generation backend.
package resilience

import (
	"sync"
	"time"

	"github.com/smartgenesis/api/internal/metrics"
)

// State of a Breaker
type State int

const (
	StateClosed   State = iota // remote calls allowed
	StateOpen                  // remote calls skipped
	StateHalfOpen              // probing for recovery
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Settings configures a Breaker
type Settings struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	OpenTimeout      time.Duration // time spent open before probing
}

// DefaultSettings trips after five failures and probes after thirty seconds
var DefaultSettings = Settings{
	FailureThreshold: 5,
	SuccessThreshold: 2,
	OpenTimeout:      30 * time.Second,
}

// Breaker stops remote generation after repeated backend failures so requests
// go straight to the local generator until the backend recovers.
type Breaker struct {
	mu          sync.Mutex
	name        string
	settings    Settings
	state       State
	failures    int
	successes   int
	openedAt    time.Time
	probing     bool
	now         func() time.Time
	transitions []func(from, to State)
}

// NewBreaker creates a closed breaker. Zero fields in s take their defaults.
func NewBreaker(name string, s Settings) *Breaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = DefaultSettings.FailureThreshold
	}
	if s.SuccessThreshold <= 0 {
		s.SuccessThreshold = DefaultSettings.SuccessThreshold
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = DefaultSettings.OpenTimeout
	}
	b := &Breaker{name: name, settings: s, now: time.Now}
	metrics.SetBreakerState(name, int(StateClosed))
	return b
}

// OnStateChange registers fn to run, under the breaker's lock, on every
// transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, fn)
}

func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RetryAfter is how long until an open breaker admits a probe
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return 0
	}
	if d := b.settings.OpenTimeout - b.now().Sub(b.openedAt); d > 0 {
		return d
	}
	return 0
}

// Allow reports whether a remote call may proceed. While half-open only one
// probe is admitted at a time.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.settings.OpenTimeout {
			return false
		}
		b.setState(StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// RecordSuccess reports a completed remote call
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probing = false
		b.successes++
		if b.successes >= b.settings.SuccessThreshold {
			b.setState(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure reports a failed remote call
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	}
}

// Release returns an admitted call that ended without a verdict, such as one
// abandoned by its caller.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.probing = false
	}
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.probing = false
	b.setState(StateOpen)
}

func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	metrics.SetBreakerState(b.name, int(to))
	for _, fn := range b.transitions {
		fn(from, to)
	}
}
