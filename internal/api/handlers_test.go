package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/edustack/ai-service/internal/config"
	"github.com/edustack/ai-service/internal/engine"
	"github.com/edustack/ai-service/internal/ml"
	"github.com/edustack/ai-service/internal/models"
	"github.com/edustack/ai-service/internal/registry"
)

func newTestRouter(t *testing.T) (*gin.Engine, *registry.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := registry.NewStore(t.TempDir(), nil)
	cache := registry.NewBundleCache(store, nil)
	predictor := engine.NewPredictor(nil, cache, engine.Thresholds{MinGrade: 1, MaxGrade: 10, Dropout: 0.5})
	handlers := NewHandlers(nil, predictor, store, config.ModelsConfig{
		DefaultVersion:    "v2.0.0",
		PredictionTimeout: 5 * time.Second,
	})

	router := gin.New()
	handlers.RegisterRoutes(router)
	return router, store
}

func seedModel(t *testing.T, store *registry.Store, name, version string, leafValue float64) {
	t.Helper()
	bundle := &registry.Bundle{
		Model: &ml.RandomForest{
			Trees:     []*ml.TreeNode{{Leaf: true, Value: leafValue}},
			NFeatures: 1,
		},
		FeatureOrder: models.FeatureOrder{
			NumericFeatures: []string{"Parcial1AM1"},
			AllFeatures:     []string{"Parcial1AM1"},
		},
		Meta: models.ModelMeta{ModelName: name, Version: version},
	}
	require.NoError(t, store.SaveBundle(name, version, bundle))
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, ServiceName, body["service"])
}

func TestRootEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "is running")
}

func TestInfoListsAvailableModels(t *testing.T) {
	router, store := newTestRouter(t)
	seedModel(t, store, "grades", "v1.0.0", 6.0)
	seedModel(t, store, "grades", "v2.0.0", 6.0)

	rec := doJSON(t, router, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Service string              `json:"service"`
		Models  map[string][]string `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, ServiceName, body.Service)
	require.Equal(t, []string{"v1.0.0", "v2.0.0"}, body.Models["grades"])
}

func TestPredictGradesEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	seedModel(t, store, "grades", "v2.0.0", 7.5)

	rec := doJSON(t, router, http.MethodPost, "/predict/grades", map[string]any{
		"items": []map[string]any{{"Parcial1AM1": 8.0}, {"Parcial1AM1": 4.0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.GradesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []float64{7.5, 7.5}, body.Predictions)
	require.Equal(t, "grades", body.Meta.Model)
	require.Equal(t, "v2.0.0", body.Meta.Version)
	require.Equal(t, 2, body.Meta.NItems)
}

func TestPredictGradesVersionOverride(t *testing.T) {
	router, store := newTestRouter(t)
	seedModel(t, store, "grades", "v0.1.0", 3.0)

	rec := doJSON(t, router, http.MethodPost, "/predict/grades", map[string]any{
		"items":   []map[string]any{{"Parcial1AM1": 8.0}},
		"version": "v0.1.0",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.GradesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "v0.1.0", body.Meta.Version)
}

func TestPredictGradesMissingModelReturns503(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodPost, "/predict/grades", map[string]any{
		"items": []map[string]any{{"Parcial1AM1": 8.0}},
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "error")
}

func TestPredictGradesEmptyItemsReturns400(t *testing.T) {
	router, store := newTestRouter(t)
	seedModel(t, store, "grades", "v2.0.0", 7.5)

	rec := doJSON(t, router, http.MethodPost, "/predict/grades", map[string]any{
		"items": []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictGradesMalformedBodyReturns400(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/predict/grades", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictDropoutEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	seedModel(t, store, "dropout", "v2.0.0", 0.8)

	rec := doJSON(t, router, http.MethodPost, "/predict/dropout", map[string]any{
		"items": []map[string]any{{"Parcial1AM1": 2.0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.DropoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []float64{0.8}, body.Proba)
	require.Equal(t, []int{1}, body.Labels)
	require.Equal(t, 0.5, body.Threshold)
}
