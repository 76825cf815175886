package backend

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingGenerator struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func (g *blockingGenerator) Name() string { return "blocking" }

func (g *blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-g.release:
		return "ok:" + prompt, nil
	case <-ctx.Done():
		return "", FromTransport("blocking", ctx.Err())
	}
}

func TestLimitedCapsConcurrency(t *testing.T) {
	inner := &blockingGenerator{release: make(chan struct{})}
	g := NewLimited(inner, 2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := g.Generate(context.Background(), "p")
			assert.NoError(t, err)
			assert.Equal(t, "ok:p", out)
		}()
	}

	require.Eventually(t, func() bool { return inner.active.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, int32(2), inner.peak.Load())
}

func TestLimitedAcquireTimeout(t *testing.T) {
	inner := &blockingGenerator{release: make(chan struct{})}
	g := NewLimited(inner, 1)

	held, cancelHeld := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Generate(held, "first")
	}()
	require.Eventually(t, func() bool { return inner.active.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Generate(ctx, "second")

	berr, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, berr.Timeout)
	assert.Equal(t, "concurrency budget exhausted", berr.Detail)

	cancelHeld()
	<-done
}

func TestNewLimitedWithoutBudget(t *testing.T) {
	inner := &blockingGenerator{}
	assert.Same(t, Generator(inner), NewLimited(inner, 0))
}

func TestInstrumentPassesThrough(t *testing.T) {
	inner := &blockingGenerator{release: make(chan struct{})}
	close(inner.release)

	g := Instrument(inner)
	assert.Equal(t, "blocking", g.Name())
	out, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok:x", out)
}

func TestProbe(t *testing.T) {
	inner := &blockingGenerator{release: make(chan struct{})}
	close(inner.release)

	res, err := Probe(context.Background(), inner)
	require.NoError(t, err)
	assert.Equal(t, "blocking", res.Provider)
	assert.Equal(t, "ok:"+probePrompt, res.Reply)
}

func TestNewWithoutCredential(t *testing.T) {
	g, err := New(context.Background(), Config{Provider: ProviderOpenAI})
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = New(context.Background(), Config{Provider: "claude", APIKey: "k"})
	assert.Error(t, err)
}
