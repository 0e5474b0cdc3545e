package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edustack/ai-service/internal/ml"
	"github.com/edustack/ai-service/internal/models"
)

func leafForest(value float64, nFeatures int) *ml.RandomForest {
	return &ml.RandomForest{
		Trees:     []*ml.TreeNode{{Leaf: true, Value: value}},
		NFeatures: nFeatures,
	}
}

func sampleBundle() *Bundle {
	genero := &ml.LabelEncoder{}
	genero.Fit([]string{"F", "M"})
	return &Bundle{
		Model:  leafForest(4.2, 2),
		Scaler: &ml.StandardScaler{Mean: []float64{5}, Std: []float64{2}},
		Encoders: ml.EncoderSet{
			"Genero": genero,
		},
		FeatureOrder: models.FeatureOrder{
			NumericFeatures:     []string{"edad"},
			CategoricalFeatures: []string{"Genero"},
			AllFeatures:         []string{"edad", "Genero"},
		},
		Meta: models.ModelMeta{
			ModelName: "grades",
			Version:   "v2.0.0",
			ModelType: "random_forest",
			Metrics:   &models.ModelMetrics{R2: 0.81, MAE: 0.6},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.SaveBundle("grades", "v2.0.0", sampleBundle()))

	loaded, err := store.LoadBundle("grades", "v2.0.0")
	require.NoError(t, err)

	preds, err := loaded.Model.Predict([][]float64{{1, 0}})
	require.NoError(t, err)
	require.Equal(t, []float64{4.2}, preds)

	require.Equal(t, []float64{5}, loaded.Scaler.Mean)
	require.Equal(t, []string{"F", "M"}, loaded.Encoders["Genero"].Classes)
	require.Equal(t, []string{"edad", "Genero"}, loaded.FeatureOrder.AllFeatures)
	require.Equal(t, "v2.0.0", loaded.Meta.Version)
	require.InDelta(t, 0.81, loaded.Meta.Metrics.R2, 1e-12)
}

func TestLoadBundleMissingVersion(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	_, err := store.LoadBundle("grades", "v9.9.9")
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLoadBundleMissingFeatureOrder(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	require.NoError(t, store.SaveBundle("grades", "v1.0.0", sampleBundle()))
	require.NoError(t, os.Remove(filepath.Join(dir, "grades", "v1.0.0", "feature_order.json")))

	_, err := store.LoadBundle("grades", "v1.0.0")
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLoadBundleLegacyScheme(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	base := filepath.Join(dir, "grades", "v0.1.0")
	require.NoError(t, os.MkdirAll(base, 0o755))

	bundle := sampleBundle()
	require.NoError(t, writeGob(filepath.Join(base, "grades_model.pkl"), &modelArtifact{Model: bundle.Model}))
	require.NoError(t, writeGob(filepath.Join(base, "grades_scaler.pkl"), bundle.Scaler))
	require.NoError(t, writeGob(filepath.Join(base, "grades_encoder.pkl"), bundle.Encoders))
	require.NoError(t, writeJSON(filepath.Join(base, "feature_order.json"), bundle.FeatureOrder))
	require.NoError(t, writeJSON(filepath.Join(base, "metadata.json"), bundle.Meta))

	loaded, err := store.LoadBundle("grades", "v0.1.0")
	require.NoError(t, err)
	require.NotNil(t, loaded.Scaler)
	require.Contains(t, loaded.Encoders, "Genero")
	require.Equal(t, "grades", loaded.Meta.ModelName)
}

func TestLoadBundleOptionalScalerAndEncoders(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)

	bundle := sampleBundle()
	bundle.Scaler = nil
	bundle.Encoders = nil
	require.NoError(t, store.SaveBundle("grades", "v1.1.0", bundle))

	loaded, err := store.LoadBundle("grades", "v1.1.0")
	require.NoError(t, err)
	require.Nil(t, loaded.Scaler)
	require.Nil(t, loaded.Encoders)
}

func TestListAvailableModels(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	require.NoError(t, store.SaveBundle("grades", "v2.0.0", sampleBundle()))
	require.NoError(t, store.SaveBundle("grades", "v1.0.0", sampleBundle()))
	require.NoError(t, store.SaveBundle("dropout", "v1.0.0", sampleBundle()))

	// A version directory without a model file is not listed.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "grades", "v3.0.0"), 0o755))

	available := store.ListAvailableModels()
	require.Equal(t, []string{"v1.0.0", "v2.0.0"}, available["grades"])
	require.Equal(t, []string{"v1.0.0"}, available["dropout"])
}

func TestResolvePathsPrefersExisting(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	base := filepath.Join(dir, "grades", "v0.1.0")
	require.NoError(t, os.MkdirAll(base, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "grades_model.pkl"), []byte("x"), 0o644))

	paths := store.ResolvePaths("grades", "v0.1.0")
	require.Equal(t, filepath.Join(base, "grades_model.pkl"), paths.Model)
	// No scaler on disk: the current scheme path is reported.
	require.Equal(t, filepath.Join(base, "grades_scaler.joblib"), paths.Scaler)
}
