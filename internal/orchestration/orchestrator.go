// Package orchestration runs the generation pipeline and decides when the
// local generator stands in for the remote backend.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/smartgenesis/api/internal/backend"
	"github.com/smartgenesis/api/internal/eventbus"
	"github.com/smartgenesis/api/internal/fallback"
	"github.com/smartgenesis/api/internal/metrics"
	"github.com/smartgenesis/api/internal/models"
	"github.com/smartgenesis/api/internal/prompt"
	"github.com/smartgenesis/api/internal/resilience"
	"github.com/smartgenesis/api/internal/sanitizer"
	"github.com/smartgenesis/api/internal/validation"
)

var tracer = otel.Tracer("github.com/smartgenesis/api/internal/orchestration")

// Mode selects how a single call is served
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// ParseMode maps a query or flag value to a Mode. Anything but "local" is
// remote.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeLocal)) {
		return ModeLocal
	}
	return ModeRemote
}

// Options are per-call preferences. They never outlive the call.
type Options struct {
	Mode      Mode
	RequestID string
}

// FallbackPolicy decides which remote failures the local generator absorbs
type FallbackPolicy string

const (
	// PolicyAlways absorbs every backend and sanitizer failure
	PolicyAlways FallbackPolicy = "always"
	// PolicyTransient absorbs load, reachability, credential and sanitizer
	// failures; empty generations and other backend errors are returned.
	PolicyTransient FallbackPolicy = "transient"
)

// ParsePolicy validates a configured policy name
func ParsePolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyAlways, "":
		return PolicyAlways, nil
	case PolicyTransient:
		return PolicyTransient, nil
	}
	return "", fmt.Errorf("unknown fallback policy %q", s)
}

func (p FallbackPolicy) absorbs(err error) bool {
	if p != PolicyTransient {
		return true
	}
	if sanitizer.IsSanitizationError(err) {
		return true
	}
	berr, ok := backend.AsError(err)
	if !ok {
		return false
	}
	return berr.Credential() || berr.Transient()
}

// Fallback reasons that do not come from a backend error
const (
	ReasonNoBackend    = "no_backend"
	ReasonCircuitOpen  = "circuit_open"
	ReasonSanitization = "sanitization_failed"
)

var reasonText = map[string]string{
	ReasonNoBackend:                           "no backend configured",
	ReasonCircuitOpen:                         "backend temporarily disabled after repeated failures",
	ReasonSanitization:                        "generated code was unusable",
	backend.ReasonTimeout:                     "request timed out",
	backend.ReasonQuota:                       "quota exhausted",
	backend.KindRateLimited.String():          "rate limit exceeded",
	backend.KindAuthenticationFailed.String(): "authentication failed",
	backend.KindAccessDenied.String():         "access denied",
	backend.KindEmptyGeneration.String():      "no code generated",
	backend.KindBackendError.String():         "backend error",
}

// Notice is the disclosure attached to every degraded result
func Notice(reason string) string {
	text, ok := reasonText[reason]
	if !ok {
		text = strings.ReplaceAll(reason, "_", " ")
	}
	return fmt.Sprintf("AI backend unavailable (%s). Showing a locally generated preview instead.", text)
}

// ErrCanceled is returned when the caller abandons a generation
var ErrCanceled = errors.New("generation canceled")

// Config holds service-level pipeline settings
type Config struct {
	// LocalMode bypasses the remote backend for every call
	LocalMode bool
	Policy    FallbackPolicy
	// Timeout bounds each backend call
	Timeout time.Duration
}

// DefaultTimeout bounds backend calls when Config.Timeout is unset
const DefaultTimeout = 30 * time.Second

// Orchestrator sequences validation, prompt composition, the backend call and
// sanitization. It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	generator backend.Generator
	breaker   *resilience.Breaker
	publisher eventbus.Publisher
	cfg       Config
	logger    *zap.Logger
}

// New creates an Orchestrator. generator may be nil, in which case every call
// is served locally and marked degraded. breaker and publisher are optional.
func New(generator backend.Generator, breaker *resilience.Breaker, publisher eventbus.Publisher, cfg Config, logger *zap.Logger) *Orchestrator {
	if publisher == nil {
		publisher = eventbus.NopPublisher{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyAlways
	}
	return &Orchestrator{
		generator: generator,
		breaker:   breaker,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// RemoteEnabled reports whether calls can reach a backend at all
func (o *Orchestrator) RemoteEnabled() bool {
	return o.generator != nil && !o.cfg.LocalMode
}

// Generate validates candidate and produces code for it. The only errors
// returned are *validation.Error, ErrCanceled, and, under PolicyTransient,
// backend failures the policy does not absorb.
func (o *Orchestrator) Generate(ctx context.Context, candidate any, opts Options) (*models.GenerationResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "orchestration.Generate")
	defer span.End()

	req, err := o.validate(ctx, candidate)
	if err != nil {
		metrics.IncGeneration("none", "invalid")
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	result, err := o.run(ctx, req, opts)
	if err != nil {
		metrics.IncGeneration(string(models.SourceRemote), "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	elapsed := time.Since(start)
	outcome := "ok"
	if result.Degraded {
		outcome = "degraded"
	}
	metrics.IncGeneration(string(result.Source), outcome)
	metrics.ObserveGenerationDuration(string(result.Source), elapsed)
	span.SetAttributes(
		attribute.String("generation.source", string(result.Source)),
		attribute.Bool("generation.degraded", result.Degraded),
		attribute.String("generation.reason", result.Reason),
	)

	o.publish(ctx, req, result, opts, elapsed)
	return result, nil
}

func (o *Orchestrator) validate(ctx context.Context, candidate any) (models.GenerationRequest, error) {
	_, span := tracer.Start(ctx, "validate")
	defer span.End()

	req, err := validation.Validate(candidate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
	}
	return req, err
}

func (o *Orchestrator) run(ctx context.Context, req models.GenerationRequest, opts Options) (*models.GenerationResult, error) {
	if opts.Mode == ModeLocal || o.cfg.LocalMode {
		return o.local(ctx, req, "")
	}
	if o.generator == nil {
		return o.local(ctx, req, ReasonNoBackend)
	}
	if o.breaker != nil && !o.breaker.Allow() {
		o.logger.Warn("backend unavailable, serving fallback",
			zap.String("reason", ReasonCircuitOpen),
			zap.Duration("retry_after", o.breaker.RetryAfter()),
			zap.String("request_id", opts.RequestID),
		)
		return o.local(ctx, req, ReasonCircuitOpen)
	}

	text, err := prompt.Compose(req)
	if err != nil {
		o.release()
		return nil, err
	}

	raw, err := o.callBackend(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			o.release()
			return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		o.recordFailure()
		return o.fallBack(ctx, req, err, opts)
	}
	o.recordSuccess()

	code, err := o.sanitize(ctx, raw)
	if err != nil {
		o.logger.Warn("generated code rejected by sanitizer",
			zap.Error(err),
			zap.Int("raw_length", len(raw)),
			zap.String("request_id", opts.RequestID),
		)
		return o.fallBack(ctx, req, err, opts)
	}

	return &models.GenerationResult{Code: code, Source: models.SourceRemote}, nil
}

func (o *Orchestrator) callBackend(ctx context.Context, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	callCtx, span := tracer.Start(callCtx, "backend.Generate",
		trace.WithAttributes(attribute.String("backend.provider", o.generator.Name())))
	defer span.End()

	raw, err := o.generator.Generate(callCtx, text)
	if err != nil {
		if _, ok := backend.AsError(err); !ok {
			timedOut := errors.Is(err, context.DeadlineExceeded)
			err = &backend.Error{Kind: backend.KindBackendError, Timeout: timedOut, Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("backend.response_length", len(raw)))
	return raw, nil
}

func (o *Orchestrator) sanitize(ctx context.Context, raw string) (string, error) {
	_, span := tracer.Start(ctx, "sanitize")
	defer span.End()

	code, report, err := sanitizer.SanitizeWithReport(raw)
	metrics.AddSanitizerRemovals(report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sanitization failed")
		return "", err
	}
	return code, nil
}

// fallBack applies the fallback policy to a remote failure
func (o *Orchestrator) fallBack(ctx context.Context, req models.GenerationRequest, cause error, opts Options) (*models.GenerationResult, error) {
	reason := ReasonSanitization
	berr, isBackend := backend.AsError(cause)
	if isBackend {
		reason = berr.Reason()
	}

	if !o.cfg.Policy.absorbs(cause) {
		metrics.IncError("backend", reason)
		return nil, fmt.Errorf("generate: %w", cause)
	}

	switch {
	case isBackend && berr.Credential():
		o.logger.Error("backend credentials rejected",
			zap.String("provider", o.generator.Name()),
			zap.String("reason", reason),
			zap.Error(cause),
			zap.String("request_id", opts.RequestID),
		)
	case isBackend:
		o.logger.Warn("backend unavailable, serving fallback",
			zap.String("provider", o.generator.Name()),
			zap.String("reason", reason),
			zap.Error(cause),
			zap.String("request_id", opts.RequestID),
		)
	}
	return o.local(ctx, req, reason)
}

// local serves req from the template generator. A non-empty reason marks the
// result degraded.
func (o *Orchestrator) local(ctx context.Context, req models.GenerationRequest, reason string) (*models.GenerationResult, error) {
	_, span := tracer.Start(ctx, "fallback.Generate")
	defer span.End()

	code, err := fallback.Generate(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &models.GenerationResult{Code: code, Source: models.SourceLocal}
	if reason != "" {
		result.Degraded = true
		result.Reason = reason
		result.Notice = Notice(reason)
		metrics.IncFallback(reason)
	}
	return result, nil
}

func (o *Orchestrator) publish(ctx context.Context, req models.GenerationRequest, result *models.GenerationResult, opts Options, elapsed time.Duration) {
	event := models.GenerationEvent{
		ID:           uuid.New(),
		RequestID:    opts.RequestID,
		Source:       result.Source,
		Degraded:     result.Degraded,
		Reason:       result.Reason,
		SectionCount: len(req.Sections),
		CodeLength:   len(result.Code),
		DurationMs:   elapsed.Milliseconds(),
		Timestamp:    time.Now().UTC(),
	}
	if err := o.publisher.PublishGeneration(context.WithoutCancel(ctx), event); err != nil {
		metrics.IncError("eventbus", "publish")
		o.logger.Warn("failed to publish generation event", zap.Error(err))
	}
}

func (o *Orchestrator) recordSuccess() {
	if o.breaker != nil {
		o.breaker.RecordSuccess()
	}
}

func (o *Orchestrator) recordFailure() {
	if o.breaker != nil {
		o.breaker.RecordFailure()
	}
}

func (o *Orchestrator) release() {
	if o.breaker != nil {
		o.breaker.Release()
	}
}
