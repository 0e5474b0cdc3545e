package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.Server.Address)
	require.Equal(t, "models", cfg.Models.Dir)
	require.Equal(t, "v2.0.0", cfg.Models.DefaultVersion)
	require.Equal(t, 1.0, cfg.Thresholds.MinGrade)
	require.Equal(t, 10.0, cfg.Thresholds.MaxGrade)
	require.Equal(t, 0.5, cfg.Thresholds.Dropout)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9000"
models:
  dir: /srv/models
  defaultVersion: v3.1.0
thresholds:
  minGrade: 0
  maxGrade: 20
logging:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Address)
	require.Equal(t, "/srv/models", cfg.Models.Dir)
	require.Equal(t, "v3.1.0", cfg.Models.DefaultVersion)
	require.Equal(t, 20.0, cfg.Thresholds.MaxGrade)
	require.True(t, cfg.Logging.JSON)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODEL_DIR", "/data/models")
	t.Setenv("MODEL_VERSION", "v9.0.0")
	t.Setenv("MIN_GRADE", "2.0")
	t.Setenv("MAX_GRADE", "12")
	t.Setenv("DROPOUT_THRESHOLD", "0.7")
	t.Setenv("PREDICTION_TIMEOUT", "2.5")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/data/models", cfg.Models.Dir)
	require.Equal(t, "v9.0.0", cfg.Models.DefaultVersion)
	require.Equal(t, 2.0, cfg.Thresholds.MinGrade)
	require.Equal(t, 12.0, cfg.Thresholds.MaxGrade)
	require.Equal(t, 0.7, cfg.Thresholds.Dropout)
	require.Equal(t, 2500*time.Millisecond, cfg.Models.PredictionTimeout)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestInvalidClampBounds(t *testing.T) {
	t.Setenv("MIN_GRADE", "10")
	t.Setenv("MAX_GRADE", "1")
	_, err := Load("")
	require.Error(t, err)
}
