package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the prediction service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Models     ModelsConfig     `yaml:"models"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// ModelsConfig locates model artifacts on disk and bounds their use.
type ModelsConfig struct {
	Dir               string        `yaml:"dir"`
	MetricsDir        string        `yaml:"metricsDir"`
	DefaultVersion    string        `yaml:"defaultVersion"`
	PredictionTimeout time.Duration `yaml:"predictionTimeout"`
}

// ThresholdsConfig bounds predictor outputs.
type ThresholdsConfig struct {
	MinGrade float64 `yaml:"minGrade"`
	MaxGrade float64 `yaml:"maxGrade"`
	Dropout  float64 `yaml:"dropout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AI_SERVICE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Thresholds.MaxGrade <= cfg.Thresholds.MinGrade {
		return nil, fmt.Errorf("thresholds: maxGrade (%.2f) must exceed minGrade (%.2f)",
			cfg.Thresholds.MaxGrade, cfg.Thresholds.MinGrade)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Models: ModelsConfig{
			Dir:               "models",
			MetricsDir:        "metrics",
			DefaultVersion:    "v2.0.0",
			PredictionTimeout: 10 * time.Second,
		},
		Thresholds: ThresholdsConfig{
			MinGrade: 1.0,
			MaxGrade: 10.0,
			Dropout:  0.5,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AI_SERVICE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("AI_SERVICE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("AI_SERVICE_CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("METRICS_DIR"); v != "" {
		cfg.Models.MetricsDir = v
	}
	if v := os.Getenv("MODEL_VERSION"); v != "" {
		cfg.Models.DefaultVersion = v
	}
	if v := os.Getenv("PREDICTION_TIMEOUT"); v != "" {
		// Accepts a Go duration ("5s") or a bare seconds value ("10.0").
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Models.PredictionTimeout = d
		} else if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			cfg.Models.PredictionTimeout = time.Duration(secs * float64(time.Second))
		}
	}
	if v := os.Getenv("MIN_GRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.MinGrade = f
		}
	}
	if v := os.Getenv("MAX_GRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.MaxGrade = f
		}
	}
	if v := os.Getenv("DROPOUT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.Dropout = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AI_SERVICE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
