package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smartgenesis/api/internal/models"
)

type capture struct {
	subject string
	data    []byte
	err     error
}

func (c *capture) publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func sampleEvent() models.GenerationEvent {
	return models.GenerationEvent{
		ID:           uuid.MustParse("6f1d9c7e-2b8a-4c4e-9a51-0c6a3e2b7d10"),
		RequestID:    "req-1",
		Source:       models.SourceLocal,
		Degraded:     true,
		Reason:       "timeout",
		SectionCount: 2,
		CodeLength:   4096,
		DurationMs:   31,
		Timestamp:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishGenerationEncodesEvent(t *testing.T) {
	c := &capture{}
	p := &NATSPublisher{publish: c.publish, logger: zap.NewNop()}

	require.NoError(t, p.PublishGeneration(context.Background(), sampleEvent()))
	assert.Equal(t, SubjectGenerationCompleted, c.subject)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(c.data, &decoded))
	assert.Equal(t, "6f1d9c7e-2b8a-4c4e-9a51-0c6a3e2b7d10", decoded["id"])
	assert.Equal(t, "local", decoded["source"])
	assert.Equal(t, true, decoded["degraded"])
	assert.Equal(t, "timeout", decoded["reason"])
	assert.Equal(t, float64(31), decoded["duration_ms"])
	assert.NotContains(t, decoded, "code")
}

func TestPublishGenerationWrapsFailure(t *testing.T) {
	cause := errors.New("nats: connection closed")
	p := &NATSPublisher{publish: (&capture{err: cause}).publish, logger: zap.NewNop()}

	err := p.PublishGeneration(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, cause)
}

func TestPublishGenerationHonorsCanceledContext(t *testing.T) {
	c := &capture{}
	p := &NATSPublisher{publish: c.publish, logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PublishGeneration(ctx, sampleEvent()), context.Canceled)
	assert.Empty(t, c.subject)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishGeneration(context.Background(), sampleEvent()))
	p.Close()
}

func TestCloseWithoutConnection(t *testing.T) {
	p := &NATSPublisher{logger: zap.NewNop()}
	assert.False(t, p.Connected())
	p.Close()
}
