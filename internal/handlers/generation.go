package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartgenesis/api/internal/backend"
	"github.com/smartgenesis/api/internal/middleware"
	"github.com/smartgenesis/api/internal/models"
	"github.com/smartgenesis/api/internal/orchestration"
	"github.com/smartgenesis/api/internal/validation"
)

// Generator is the pipeline the handler drives
type Generator interface {
	Generate(ctx context.Context, candidate any, opts orchestration.Options) (*models.GenerationResult, error)
}

// GenerationHandler handles website generation requests
type GenerationHandler struct {
	generator Generator
	bodyLimit int64
	logger    *zap.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(generator Generator, bodyLimit int64, logger *zap.Logger) *GenerationHandler {
	return &GenerationHandler{generator: generator, bodyLimit: bodyLimit, logger: logger}
}

// GenerateRequest documents the accepted body
type GenerateRequest struct {
	Name     string   `json:"name" example:"Acme Bakery"`
	Industry string   `json:"industry" example:"Food & Beverage"`
	Audience string   `json:"audience" example:"Local families"`
	Color    string   `json:"color,omitempty" example:"warm green"`
	Sections []string `json:"sections" example:"About,Products,Contact"`
}

// GenerateResponse is returned for every successful generation, degraded or not
type GenerateResponse struct {
	Code     string `json:"code"`
	Degraded bool   `json:"degraded"`
	Notice   string `json:"notice,omitempty"`
	Source   string `json:"source"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message"`
}

// Generate produces website code for the posted business description
// @Summary Generate a website component
// @Description Validates the request and returns a React component named App. When the AI backend is unavailable a locally generated preview is returned with degraded=true.
// @Tags generation
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Business description"
// @Param mode query string false "remote (default) or local"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} middleware.APIError
// @Failure 413 {object} middleware.APIError
// @Failure 429 {object} middleware.APIError
// @Failure 503 {object} middleware.APIError
// @Router /generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			middleware.PayloadTooLarge(c, h.bodyLimit)
			return
		}
		middleware.BadRequest(c, "could not read request body")
		return
	}

	candidate, err := validation.Decode(body)
	if err != nil {
		middleware.BadRequest(c, err.Error())
		return
	}

	opts := orchestration.Options{
		Mode:      orchestration.ParseMode(c.Query("mode")),
		RequestID: middleware.GetRequestID(c),
	}

	result, err := h.generator.Generate(c.Request.Context(), candidate, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		Code:     result.Code,
		Degraded: result.Degraded,
		Notice:   result.Notice,
		Source:   string(result.Source),
		Reason:   result.Reason,
		Message:  "Website generated successfully",
	})
}

func (h *GenerationHandler) respondError(c *gin.Context, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		middleware.BadRequest(c, verr.Error())
		return
	}

	if errors.Is(err, orchestration.ErrCanceled) {
		h.logger.Info("generation canceled by client",
			zap.String("request_id", middleware.GetRequestID(c)))
		middleware.RequestCanceled(c)
		return
	}

	if berr, ok := backend.AsError(err); ok {
		h.logger.Warn("generation failed at backend",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("kind", berr.Kind.String()),
			zap.Error(err),
		)
		middleware.AIServiceUnavailable(c, "AI service is unavailable, please try again later")
		return
	}

	h.logger.Error("generation failed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)
	middleware.InternalError(c, "Failed to generate website code")
}
