package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Detection.ZScoreThreshold != 3.0 {
		t.Errorf("zScoreThreshold = %v, want 3.0", cfg.Detection.ZScoreThreshold)
	}
	if !cfg.Detection.UseIsolationForest {
		t.Error("isolation forest should default on")
	}
	if cfg.Fields.Duration != "duration_ms" || cfg.Fields.Message != "message" || cfg.Fields.SessionID != "correlation_id" {
		t.Errorf("field defaults wrong: %+v", cfg.Fields)
	}
	if cfg.Forest.Trees != 100 || cfg.Forest.Contamination != 0.01 || cfg.Forest.Seed != 42 {
		t.Errorf("forest defaults wrong: %+v", cfg.Forest)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should default off")
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yaml")
	content := `
detection:
  zScoreThreshold: 2.5
  useIsolationForest: false
fields:
  duration: elapsed_ms
forest:
  contamination: 0.05
artifacts:
  baselinePath: /var/lib/mirador/baseline.json
audit:
  enabled: true
  path: /var/log/mirador/anomalies.log
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Detection.ZScoreThreshold != 2.5 {
		t.Errorf("zScoreThreshold = %v, want 2.5", cfg.Detection.ZScoreThreshold)
	}
	if cfg.Detection.UseIsolationForest {
		t.Error("useIsolationForest should be overridden to false")
	}
	if cfg.Fields.Duration != "elapsed_ms" {
		t.Errorf("fields.duration = %q, want elapsed_ms", cfg.Fields.Duration)
	}
	if cfg.Fields.Message != "message" {
		t.Errorf("unset field should keep default, got %q", cfg.Fields.Message)
	}
	if cfg.Forest.Contamination != 0.05 {
		t.Errorf("contamination = %v, want 0.05", cfg.Forest.Contamination)
	}
	if cfg.Forest.Trees != 100 {
		t.Errorf("unset trees should keep default, got %d", cfg.Forest.Trees)
	}
	if cfg.Artifacts.BaselinePath != "/var/lib/mirador/baseline.json" {
		t.Errorf("baselinePath = %q", cfg.Artifacts.BaselinePath)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/var/log/mirador/anomalies.log" {
		t.Errorf("audit overlay lost: %+v", cfg.Audit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MIRADOR_DETECT_Z_THRESHOLD", "4.0")
	t.Setenv("MIRADOR_DETECT_USE_ISOLATION", "false")
	t.Setenv("MIRADOR_DETECT_FIELD_DURATION", "took_ms")
	t.Setenv("MIRADOR_DETECT_FOREST_SEED", "7")
	t.Setenv("MIRADOR_DETECT_LOG_FORMAT", "json")
	t.Setenv("MIRADOR_DETECT_AUDIT_ENABLED", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Detection.ZScoreThreshold != 4.0 {
		t.Errorf("env threshold ignored: %v", cfg.Detection.ZScoreThreshold)
	}
	if cfg.Detection.UseIsolationForest {
		t.Error("env isolation toggle ignored")
	}
	if cfg.Fields.Duration != "took_ms" {
		t.Errorf("env field ignored: %q", cfg.Fields.Duration)
	}
	if cfg.Forest.Seed != 7 {
		t.Errorf("env seed ignored: %d", cfg.Forest.Seed)
	}
	if !cfg.Logging.JSON {
		t.Error("env log format ignored")
	}
	if !cfg.Audit.Enabled {
		t.Error("env audit toggle ignored")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicitly named missing config should error")
	}
}
