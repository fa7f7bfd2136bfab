// Package config loads detection engine settings from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-detect/pkg/models"
)

// Config captures the settings required to build a detection engine.
type Config struct {
	Detection DetectionConfig     `yaml:"detection"`
	Fields    models.FieldMapping `yaml:"fields"`
	Forest    ForestConfig        `yaml:"forest"`
	Artifacts ArtifactsConfig     `yaml:"artifacts"`
	Logging   LoggingConfig       `yaml:"logging"`
	Audit     AuditConfig         `yaml:"audit"`
}

// DetectionConfig tunes the per-record checks.
type DetectionConfig struct {
	ZScoreThreshold    float64 `yaml:"zScoreThreshold"`
	UseIsolationForest bool    `yaml:"useIsolationForest"`
}

// ForestConfig tunes outlier-model training.
type ForestConfig struct {
	Trees         int     `yaml:"trees"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`
}

// ArtifactsConfig locates the persisted baseline and model.
type ArtifactsConfig struct {
	BaselinePath string `yaml:"baselinePath"`
	ModelPath    string `yaml:"modelPath"`
}

// LoggingConfig controls structured logging. A non-empty File routes logs
// to a size-rotated file instead of stdout.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AuditConfig controls the rotating anomaly trail.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Load initialises Config from a YAML file and optional environment
// overrides. An empty path falls back to MIRADOR_DETECT_CONFIG; with
// neither set, defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_DETECT_CONFIG")
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
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Detection: DetectionConfig{
			ZScoreThreshold:    models.DefaultZScoreThreshold,
			UseIsolationForest: true,
		},
		Fields: models.DefaultFieldMapping(),
		Forest: ForestConfig{
			Trees:         100,
			Contamination: 0.01,
			Seed:          42,
		},
		Artifacts: ArtifactsConfig{
			BaselinePath: "baseline_stats.json",
			ModelPath:    "isolation_forest_model.gob",
		},
		Logging: LoggingConfig{
			Level:      "info",
			JSON:       false,
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			Path:       "logs/anomalies.log",
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_DETECT_Z_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.ZScoreThreshold = f
		}
	}
	if v := os.Getenv("MIRADOR_DETECT_USE_ISOLATION"); v != "" {
		cfg.Detection.UseIsolationForest = isTrue(v)
	}
	if v := os.Getenv("MIRADOR_DETECT_FIELD_DURATION"); v != "" {
		cfg.Fields.Duration = v
	}
	if v := os.Getenv("MIRADOR_DETECT_FIELD_MESSAGE"); v != "" {
		cfg.Fields.Message = v
	}
	if v := os.Getenv("MIRADOR_DETECT_FIELD_SESSION"); v != "" {
		cfg.Fields.SessionID = v
	}
	if v := os.Getenv("MIRADOR_DETECT_FOREST_TREES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Forest.Trees = n
		}
	}
	if v := os.Getenv("MIRADOR_DETECT_FOREST_CONTAMINATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Forest.Contamination = f
		}
	}
	if v := os.Getenv("MIRADOR_DETECT_FOREST_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Forest.Seed = n
		}
	}
	if v := os.Getenv("MIRADOR_DETECT_BASELINE_PATH"); v != "" {
		cfg.Artifacts.BaselinePath = v
	}
	if v := os.Getenv("MIRADOR_DETECT_MODEL_PATH"); v != "" {
		cfg.Artifacts.ModelPath = v
	}
	if v := os.Getenv("MIRADOR_DETECT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_DETECT_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_DETECT_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("MIRADOR_DETECT_AUDIT_ENABLED"); v != "" {
		cfg.Audit.Enabled = isTrue(v)
	}
	if v := os.Getenv("MIRADOR_DETECT_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
