package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/smartgenesis/api/internal/models"
)

const (
	// SubjectGenerationCompleted carries one event per finished generation
	SubjectGenerationCompleted = "generation.completed"
	// StreamGenerations retains generation events when JetStream is available
	StreamGenerations = "GENERATIONS"
)

// Publisher emits generation events. Publishing is best effort: a failure is
// never allowed to fail the generation it describes.
type Publisher interface {
	PublishGeneration(ctx context.Context, event models.GenerationEvent) error
	Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishGeneration(context.Context, models.GenerationEvent) error { return nil }

func (NopPublisher) Close() {}

// NATSPublisher publishes JSON-encoded events to NATS, through JetStream when
// the server supports it.
type NATSPublisher struct {
	nc      *nats.Conn
	publish func(subject string, data []byte) error
	logger  *zap.Logger
}

// NewNATSPublisher connects to natsURL and provisions the generation stream.
// JetStream is optional; without it events go out on core NATS.
func NewNATSPublisher(natsURL string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("smartgenesis-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	p := &NATSPublisher{nc: nc, publish: nc.Publish, logger: logger}

	js, err := nc.JetStream()
	if err != nil {
		logger.Warn("JetStream unavailable, publishing on core NATS", zap.Error(err))
		return p, nil
	}
	if err := ensureStream(js); err != nil {
		logger.Warn("generation stream unavailable, publishing on core NATS", zap.Error(err))
		return p, nil
	}

	p.publish = func(subject string, data []byte) error {
		_, err := js.Publish(subject, data)
		return err
	}
	logger.Info("publishing generation events to JetStream", zap.String("stream", StreamGenerations))
	return p, nil
}

func ensureStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(StreamGenerations); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamGenerations,
		Subjects: []string{"generation.*"},
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// PublishGeneration encodes event and publishes it on SubjectGenerationCompleted
func (p *NATSPublisher) PublishGeneration(ctx context.Context, event models.GenerationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode generation event: %w", err)
	}
	if err := p.publish(SubjectGenerationCompleted, payload); err != nil {
		return fmt.Errorf("publish generation event: %w", err)
	}
	return nil
}

// Connected reports whether the underlying connection is up
func (p *NATSPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("failed to drain nats connection", zap.Error(err))
		p.nc.Close()
	}
}
