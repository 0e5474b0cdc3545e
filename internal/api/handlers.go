package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edustack/ai-service/internal/config"
	"github.com/edustack/ai-service/internal/engine"
	"github.com/edustack/ai-service/internal/models"
	"github.com/edustack/ai-service/internal/registry"
)

const (
	// ServiceName identifies the service in health and info responses.
	ServiceName = "ai-service"
	// ServiceVersion tracks the service release, independent of model versions.
	ServiceVersion = "v1.0.0"

	gradesModelName  = "grades"
	dropoutModelName = "dropout"
)

// Handlers exposes the prediction service over HTTP.
type Handlers struct {
	logger    *slog.Logger
	predictor *engine.Predictor
	store     *registry.Store
	models    config.ModelsConfig
}

// NewHandlers wires the HTTP layer to the predictor and artifact store.
func NewHandlers(logger *slog.Logger, predictor *engine.Predictor, store *registry.Store, modelsCfg config.ModelsConfig) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		logger:    logger,
		predictor: predictor,
		store:     store,
		models:    modelsCfg,
	}
}

// RegisterRoutes attaches all service routes to the router.
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	router.POST("/predict/grades", h.PredictGrades)
	router.POST("/predict/dropout", h.PredictDropout)
	router.GET("/health", h.Health)
	router.GET("/info", h.Info)
	router.GET("/", h.Root)
}

// predictRequest carries a batch of open-schema items. A model name or
// version override is optional; defaults come from configuration.
type predictRequest struct {
	Items   []models.RawItem `json:"items" binding:"required"`
	Model   string           `json:"model"`
	Version string           `json:"version"`
}

// PredictGrades handles POST /predict/grades.
func (h *Handlers) PredictGrades(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	name := req.Model
	if name == "" {
		name = gradesModelName
	}
	version := req.Version
	if version == "" {
		version = h.models.DefaultVersion
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.predictor.PredictGrades(ctx, name, version, req.Items)
	if err != nil {
		h.writeError(c, name, version, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PredictDropout handles POST /predict/dropout.
func (h *Handlers) PredictDropout(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	name := req.Model
	if name == "" {
		name = dropoutModelName
	}
	version := req.Version
	if version == "" {
		version = h.models.DefaultVersion
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.predictor.PredictDropout(ctx, name, version, req.Items)
	if err != nil {
		h.writeError(c, name, version, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   ServiceName,
		"version":   ServiceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Info handles GET /info: a directory scan of available model versions.
func (h *Handlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   ServiceName,
		"version":   ServiceVersion,
		"models":    h.store.ListAvailableModels(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Root handles GET /.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s is running", ServiceName),
		"version": ServiceVersion,
	})
}

func (h *Handlers) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.models.PredictionTimeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.models.PredictionTimeout)
}

// writeError maps predictor failures onto HTTP status codes: a missing
// artifact is a service-availability problem, bad input is the caller's
// fault, everything else is internal.
func (h *Handlers) writeError(c *gin.Context, name, version string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrArtifactNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrEmptyBatch), errors.Is(err, engine.ErrInvalidFeatures):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	h.logger.Error("prediction request failed",
		slog.String("model", name),
		slog.String("version", version),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	c.JSON(status, gin.H{"error": err.Error()})
}
