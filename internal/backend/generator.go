// Package backend calls remote text-generation services and maps their
// failures onto a provider-independent taxonomy.
package backend

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const probePrompt = "Say hello in one word"

// Generator produces raw code text for a composed prompt. Implementations
// make exactly one remote call per Generate and never retry; failures are
// returned as *Error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Config selects and parameterizes a provider
type Config struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float64
	MaxTokens         int
	SystemInstruction string
	Timeout           time.Duration
	MaxConcurrent     int
}

// New builds the generator described by cfg, wrapped with the concurrency
// budget and metrics. It returns nil when no credential is configured.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	var (
		g   Generator
		err error
	)
	switch cfg.Provider {
	case ProviderOpenAI, "":
		g = NewOpenAIGenerator(cfg, nil)
	case ProviderGemini:
		g, err = NewGeminiGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}

	return Instrument(NewLimited(g, int64(cfg.MaxConcurrent))), nil
}

// ProbeResult describes a credential check
type ProbeResult struct {
	Provider string
	Latency  time.Duration
	Reply    string
}

// Probe sends a trivial prompt to verify that g is reachable and accepts its
// credentials.
func Probe(ctx context.Context, g Generator) (*ProbeResult, error) {
	start := time.Now()
	reply, err := g.Generate(ctx, probePrompt)
	if err != nil {
		return nil, err
	}
	return &ProbeResult{
		Provider: g.Name(),
		Latency:  time.Since(start),
		Reply:    reply,
	}, nil
}
