package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edustack/ai-service/internal/features"
	"github.com/edustack/ai-service/internal/metrics"
	"github.com/edustack/ai-service/internal/models"
	"github.com/edustack/ai-service/internal/registry"
	"github.com/edustack/ai-service/internal/utils"
)

var (
	// ErrEmptyBatch is returned for requests carrying zero items. Checked
	// before any artifact loading so a bad request never surfaces as a
	// model-availability failure.
	ErrEmptyBatch = errors.New("empty prediction batch")

	// ErrInvalidFeatures is returned when the submitted items cannot be
	// turned into a usable feature matrix.
	ErrInvalidFeatures = errors.New("invalid features")
)

// Thresholds bound predictor outputs.
type Thresholds struct {
	MinGrade float64
	MaxGrade float64
	Dropout  float64
}

// Predictor orchestrates the serving flow: artifact lookup, feature building,
// inference, output clamping, and audit metadata assembly.
type Predictor struct {
	logger     *slog.Logger
	cache      *registry.BundleCache
	thresholds Thresholds
	latency    *utils.LatencyTracker
}

// NewPredictor constructs a Predictor on top of a bundle cache.
func NewPredictor(logger *slog.Logger, cache *registry.BundleCache, thresholds Thresholds) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	if thresholds.MaxGrade <= thresholds.MinGrade {
		thresholds = Thresholds{MinGrade: 1.0, MaxGrade: 10.0, Dropout: thresholds.Dropout}
	}
	return &Predictor{
		logger:     logger,
		cache:      cache,
		thresholds: thresholds,
		latency:    utils.NewLatencyTracker(512),
	}
}

// PredictGrades runs the grade model over a batch of raw student records and
// returns clamped predictions in input order.
func (p *Predictor) PredictGrades(ctx context.Context, name, version string, items []models.RawItem) (models.GradesResult, error) {
	started := time.Now()

	predictions, bundle, err := p.run(ctx, name, version, items)
	if err != nil {
		metrics.ObservePrediction(time.Since(started), metrics.OutcomeError)
		return models.GradesResult{}, err
	}

	for i, v := range predictions {
		predictions[i] = clampGrade(v, p.thresholds.MinGrade, p.thresholds.MaxGrade)
	}

	meta := p.buildMeta(name, version, bundle, items, started)
	p.finish(started, len(items))

	return models.GradesResult{Predictions: predictions, Meta: meta}, nil
}

// PredictDropout runs the dropout model and derives binary labels from the
// configured probability threshold.
func (p *Predictor) PredictDropout(ctx context.Context, name, version string, items []models.RawItem) (models.DropoutResult, error) {
	started := time.Now()

	proba, bundle, err := p.run(ctx, name, version, items)
	if err != nil {
		metrics.ObservePrediction(time.Since(started), metrics.OutcomeError)
		return models.DropoutResult{}, err
	}

	labels := make([]int, len(proba))
	for i, v := range proba {
		proba[i] = clampGrade(v, 0, 1)
		if proba[i] >= p.thresholds.Dropout {
			labels[i] = 1
		}
	}

	meta := p.buildMeta(name, version, bundle, items, started)
	p.finish(started, len(items))

	return models.DropoutResult{Proba: proba, Labels: labels, Threshold: p.thresholds.Dropout, Meta: meta}, nil
}

// run executes the shared load-build-infer sequence.
func (p *Predictor) run(ctx context.Context, name, version string, items []models.RawItem) ([]float64, *registry.Bundle, error) {
	if len(items) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	bundle, err := p.cache.GetOrLoad(name, version)
	if err != nil {
		return nil, nil, err
	}

	matrix, err := features.Build(items, bundle.Encoders, bundle.FeatureOrder, bundle.Scaler)
	if err != nil {
		if errors.Is(err, features.ErrNoUsableFeatures) {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFeatures, err)
		}
		return nil, nil, utils.NewAppError("engine.run", "build feature matrix", err)
	}

	predictions, err := bundle.Model.Predict(matrix)
	if err != nil {
		return nil, nil, utils.NewAppError("engine.run", "model inference", err)
	}
	return predictions, bundle, nil
}

func (p *Predictor) buildMeta(name, version string, bundle *registry.Bundle, items []models.RawItem, started time.Time) models.PredictionMeta {
	meta := models.PredictionMeta{
		RequestID:    uuid.NewString(),
		Model:        name,
		Version:      version,
		FeaturesHash: features.StableHash(items),
		LatencyMS:    float64(time.Since(started).Microseconds()) / 1000.0,
		NItems:       len(items),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
	if m := bundle.Meta.Metrics; m != nil {
		r2, mae := m.R2, m.MAE
		meta.R2 = &r2
		meta.MAE = &mae
	}
	return meta
}

func (p *Predictor) finish(started time.Time, nItems int) {
	elapsed := time.Since(started)
	p.latency.Observe(elapsed)
	metrics.ObservePrediction(elapsed, metrics.OutcomeSuccess)
	p.logger.Debug("prediction served",
		slog.Int("items", nItems),
		slog.Duration("elapsed", elapsed),
		slog.Duration("p95", p.latency.Percentile(95)),
	)
}

func clampGrade(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
