package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smartgenesis/api/internal/resilience"
)

// ServiceName is reported by the health endpoints
const ServiceName = "Smart Genesis Backend"

// Pinger is a dependency that can report its reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	redis         Pinger
	remoteEnabled bool
	breaker       *resilience.Breaker
	version       string
	now           func() time.Time
}

// NewHealthHandler creates a new health handler. redis and breaker may be nil.
func NewHealthHandler(redis Pinger, remoteEnabled bool, breaker *resilience.Breaker, version string) *HealthHandler {
	return &HealthHandler{
		redis:         redis,
		remoteEnabled: remoteEnabled,
		breaker:       breaker,
		version:       version,
		now:           time.Now,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Service      string            `json:"service"`
	Version      string            `json:"version,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health returns basic health status
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Service:   ServiceName,
		Version:   h.version,
	})
}

// DeepHealth returns health status with dependency checks. An unconfigured
// backend or an open breaker degrades the report but still answers 200,
// because generation keeps working through the local fallback.
// @Summary Dependency health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			deps["redis"] = "unhealthy: " + err.Error()
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		} else {
			deps["redis"] = "healthy"
		}
	} else {
		deps["redis"] = "not configured"
	}

	if h.remoteEnabled {
		deps["ai_backend"] = "configured"
	} else {
		deps["ai_backend"] = "not configured"
		if status == "healthy" {
			status = "degraded"
		}
	}

	if h.breaker != nil {
		state := h.breaker.State()
		deps["circuit_breaker"] = state.String()
		if state != resilience.StateClosed && status == "healthy" {
			status = "degraded"
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:       status,
		Timestamp:    h.now().UTC().Format(time.RFC3339),
		Service:      ServiceName,
		Version:      h.version,
		Dependencies: deps,
	})
}
