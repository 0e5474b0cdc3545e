package training

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/edustack/ai-service/internal/features"
	"github.com/edustack/ai-service/internal/ml"
	"github.com/edustack/ai-service/internal/models"
	"github.com/edustack/ai-service/internal/registry"
)

// baseNumericFeatures and baseCategoricalFeatures define the serving feature
// policy. Columns absent from the dataset are skipped, never invented.
var baseNumericFeatures = []string{
	"edad", "AsistenciaAM1", "VecesRecursadaAM1",
	"Parcial1AM1", "Parcial2AM1", "Recuperatorio1AM1", "Recuperatorio2AM1",
	"PromedioNotasColegio", "AniosUniversidad",
}

var baseCategoricalFeatures = []string{
	"Genero", "ProfesorAM1", "ColegioTecnico", "AyudaFinanciera",
}

// Options configure one offline training run.
type Options struct {
	CSVPath      string
	Separator    rune
	OutDir       string
	MetricsDir   string
	ModelName    string
	Version      string
	ModelType    string
	NEstimators  int
	MaxDepth     int
	TestFraction float64
	Seed         int64
}

func (o *Options) applyDefaults() {
	if o.Separator == 0 {
		o.Separator = ';'
	}
	if o.ModelName == "" {
		o.ModelName = "grades"
	}
	if o.ModelType == "" {
		o.ModelType = "random_forest"
	}
	if o.NEstimators <= 0 {
		o.NEstimators = 100
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 3
	}
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = 0.3
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// Result reports what a training run produced.
type Result struct {
	Metrics      models.ModelMetrics
	Meta         models.ModelMeta
	FeatureOrder models.FeatureOrder
	NTrain       int
	NTest        int
}

// Run executes the offline training pipeline: load the dataset, prepare the
// regression target, preprocess through the same code path serving uses, fit
// encoders/scaler/model on the train partition, evaluate on the held-out
// test partition, and persist the full artifact bundle.
func Run(logger *slog.Logger, opts Options) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()

	records, err := LoadCSV(opts.CSVPath, opts.Separator)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", slog.Int("rows", len(records)), slog.String("path", opts.CSVPath))

	target := prepareTarget(records)

	items := make([]models.RawItem, 0, len(records))
	y := make([]float64, 0, len(records))
	for i, t := range target {
		if math.IsNaN(t) {
			continue
		}
		items = append(items, records[i])
		y = append(y, t)
	}
	if dropped := len(records) - len(items); dropped > 0 {
		logger.Warn("rows without final grades removed", slog.Int("dropped", dropped))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no rows with a usable target in %s", opts.CSVPath)
	}

	preprocessed := features.Preprocess(items)
	order := selectFeatureOrder(preprocessed)
	if len(order.AllFeatures) == 0 {
		return nil, fmt.Errorf("dataset carries none of the expected feature columns")
	}
	logger.Info("feature columns selected",
		slog.Int("numeric", len(order.NumericFeatures)),
		slog.Int("categorical", len(order.CategoricalFeatures)),
	)

	trainIdx, testIdx := splitIndices(len(items), opts.TestFraction, opts.Seed)
	trainItems, trainY := subset(items, y, trainIdx)
	testItems, testY := subset(items, y, testIdx)
	logger.Info("dataset split", slog.Int("train", len(trainItems)), slog.Int("test", len(testItems)))

	trainRecords := features.Preprocess(trainItems)
	encoders := features.FitEncoders(trainRecords, order.CategoricalFeatures)

	scaler, err := fitScaler(trainItems, encoders, order)
	if err != nil {
		return nil, err
	}

	trainX, err := features.Build(trainItems, encoders, order, scaler)
	if err != nil {
		return nil, fmt.Errorf("build training matrix: %w", err)
	}
	testX, err := features.Build(testItems, encoders, order, scaler)
	if err != nil {
		return nil, fmt.Errorf("build test matrix: %w", err)
	}

	forest := ml.NewRandomForest(ml.ForestOptions{
		NEstimators: opts.NEstimators,
		MaxDepth:    opts.MaxDepth,
		Seed:        opts.Seed,
	})
	logger.Info("training model",
		slog.String("type", opts.ModelType),
		slog.Int("n_estimators", opts.NEstimators),
		slog.Int("max_depth", opts.MaxDepth),
	)
	if err := forest.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	preds, err := forest.Predict(testX)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}
	metrics := models.ModelMetrics{
		R2:  ml.RSquared(testY, preds),
		MAE: ml.MeanAbsoluteError(testY, preds),
	}
	logger.Info("evaluation complete", slog.Float64("r2", metrics.R2), slog.Float64("mae", metrics.MAE))

	meta := buildMeta(opts, metrics, order, len(trainItems), len(testItems), y)
	bundle := &registry.Bundle{
		Model:        forest,
		Scaler:       scaler,
		Encoders:     encoders,
		FeatureOrder: order,
		Meta:         meta,
	}

	store := registry.NewStore(opts.OutDir, logger)
	if err := store.SaveBundle(opts.ModelName, opts.Version, bundle); err != nil {
		return nil, err
	}
	if err := writeMetricsFile(opts, metrics); err != nil {
		return nil, err
	}
	logger.Info("artifacts saved",
		slog.String("model", opts.ModelName),
		slog.String("version", opts.Version),
		slog.String("dir", opts.OutDir),
	)

	return &Result{
		Metrics:      metrics,
		Meta:         meta,
		FeatureOrder: order,
		NTrain:       len(trainItems),
		NTest:        len(testItems),
	}, nil
}

// prepareTarget derives the regression target per row. NotaFinalAM1 wins
// when present; otherwise the mean of the available final exams. Partial
// exam scores are never a target because they are features. Rows without any
// final grade get NaN and are filtered out by the caller.
func prepareTarget(records []models.RawItem) []float64 {
	target := make([]float64, len(records))

	finalCount := 0
	for i, record := range records {
		normalized := features.Normalize(record)
		if v, ok := features.ToNumber(normalized["NotaFinalAM1"]); ok {
			target[i] = v
			finalCount++
			continue
		}
		target[i] = math.NaN()
	}
	if finalCount > 0 {
		return target
	}

	finalColumns := []string{"Final1AM1", "Final2AM1", "Final3AM1"}
	for i, record := range records {
		normalized := features.Normalize(record)
		sum, n := 0.0, 0
		for _, col := range finalColumns {
			if v, ok := features.ToNumber(normalized[col]); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			target[i] = sum / float64(n)
		} else {
			target[i] = math.NaN()
		}
	}
	return target
}

// selectFeatureOrder keeps the feature-policy columns actually present in
// the preprocessed dataset, in canonical order.
func selectFeatureOrder(records []map[string]any) models.FeatureOrder {
	present := make(map[string]bool)
	for _, record := range records {
		for col := range record {
			present[col] = true
		}
	}

	var order models.FeatureOrder
	for _, col := range baseNumericFeatures {
		if present[col] {
			order.NumericFeatures = append(order.NumericFeatures, col)
		}
	}
	for _, col := range baseCategoricalFeatures {
		if present[col] {
			order.CategoricalFeatures = append(order.CategoricalFeatures, col)
		}
	}
	order.AllFeatures = append(append([]string{}, order.NumericFeatures...), order.CategoricalFeatures...)
	return order
}

// splitIndices shuffles row indices with a fixed seed and carves off the
// test fraction, so repeated runs produce the same partition.
func splitIndices(n int, testFraction float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Round(float64(n) * testFraction))
	if nTest < 1 && n > 1 {
		nTest = 1
	}
	return perm[nTest:], perm[:nTest]
}

func subset(items []models.RawItem, y []float64, indices []int) ([]models.RawItem, []float64) {
	outItems := make([]models.RawItem, len(indices))
	outY := make([]float64, len(indices))
	for i, idx := range indices {
		outItems[i] = items[idx]
		outY[i] = y[idx]
	}
	return outItems, outY
}

// fitScaler fits the standard scaler on the unscaled numeric block of the
// train partition only. Test rows and serving requests see frozen statistics.
func fitScaler(trainItems []models.RawItem, encoders ml.EncoderSet, order models.FeatureOrder) (*ml.StandardScaler, error) {
	if len(order.NumericFeatures) == 0 {
		return nil, nil
	}
	raw, err := features.Build(trainItems, encoders, order, nil)
	if err != nil {
		return nil, fmt.Errorf("build unscaled matrix: %w", err)
	}
	numeric := make([][]float64, len(raw))
	for i, row := range raw {
		numeric[i] = row[:len(order.NumericFeatures)]
	}
	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(numeric); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	return scaler, nil
}

func buildMeta(opts Options, metrics models.ModelMetrics, order models.FeatureOrder, nTrain, nTest int, y []float64) models.ModelMeta {
	m := metrics
	stats := targetStats(y)
	return models.ModelMeta{
		ModelName: opts.ModelName,
		Version:   opts.Version,
		ModelType: opts.ModelType,
		ModelParams: map[string]any{
			"n_estimators": opts.NEstimators,
			"max_depth":    opts.MaxDepth,
		},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		GitCommit: gitCommit(),
		Metrics:   &m,
		DatasetInfo: &models.DatasetInfo{
			NSamplesTrain: nTrain,
			NSamplesTest:  nTest,
			NFeatures:     len(order.AllFeatures),
		},
		FeatureOrder: order.AllFeatures,
		TargetStats:  &stats,
	}
}

func targetStats(y []float64) models.TargetStats {
	stats := models.TargetStats{Min: math.Inf(1), Max: math.Inf(-1)}
	if len(y) == 0 {
		return models.TargetStats{}
	}
	sum := 0.0
	for _, v := range y {
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Mean = sum / float64(len(y))
	if len(y) > 1 {
		ss := 0.0
		for _, v := range y {
			d := v - stats.Mean
			ss += d * d
		}
		stats.Std = math.Sqrt(ss / float64(len(y)-1))
	}
	return stats
}

func writeMetricsFile(opts Options, metrics models.ModelMetrics) error {
	if opts.MetricsDir == "" {
		return nil
	}
	if err := os.MkdirAll(opts.MetricsDir, 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	payload := map[string]any{
		"model":     opts.ModelName,
		"version":   opts.Version,
		"r2":        metrics.R2,
		"mae":       metrics.MAE,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(opts.MetricsDir, fmt.Sprintf("%s-%s.json", opts.ModelName, opts.Version))
	return os.WriteFile(path, data, 0o644)
}

// gitCommit reads the short commit hash of the working tree, best effort.
func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	hash := strings.TrimSpace(string(out))
	if len(hash) > 7 {
		hash = hash[:7]
	}
	return hash
}
