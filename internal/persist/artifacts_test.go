package persist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-detect/internal/iforest"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

func sampleBaseline() map[string]models.BaselineStats {
	return map[string]models.BaselineStats{
		"User {num} logged in": {Count: 42, Mean: 120.5, StdDev: 14.25, Min: 90, Max: 180, P50: 118, P95: 160, P99: 175},
		"cache warmup":         {Count: 7, Mean: 3077.1, StdDev: 0, Min: 3077.1, Max: 3077.1, P50: 3077.1, P95: 3077.1, P99: 3077.1},
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline_stats.json")
	stats := sampleBaseline()

	if err := SaveBaseline(stats, path); err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}
	loaded, err := LoadBaseline(path)
	if err != nil {
		t.Fatalf("LoadBaseline: %v", err)
	}
	if !reflect.DeepEqual(stats, loaded) {
		t.Fatalf("round trip changed stats:\nsaved  %+v\nloaded %+v", stats, loaded)
	}
}

func TestBaselineArtifactIsDiffable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline_stats.json")
	if err := SaveBaseline(sampleBaseline(), path); err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "\n  ") {
		t.Error("artifact should be indented for human diffing")
	}
	if !strings.Contains(text, `"std_dev"`) {
		t.Error("artifact should use the snake_case stat keys")
	}
}

func TestLoadBaselineMissingFile(t *testing.T) {
	stats, err := LoadBaseline(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing baseline must not error, got %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("missing baseline must load empty, got %d entries", len(stats))
	}
}

func TestLoadBaselineCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadBaseline(path); err == nil {
		t.Fatal("corrupt baseline should surface an error")
	}
}

func TestSaveBaselineCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "baseline.json")
	if err := SaveBaseline(sampleBaseline(), path); err != nil {
		t.Fatalf("SaveBaseline into nested dir: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
}

func trainedForest() *iforest.Forest {
	x := make([][]float64, 0, 20)
	for i := 0; i < 19; i++ {
		v := 10 + float64(i)*0.3
		x = append(x, []float64{v, v / 2, v * 1.5, float64(30 + i)})
	}
	x = append(x, []float64{500, 500, 500, 500})
	return iforest.Fit(x, iforest.DefaultConfig())
}

func TestModelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iso_forest.gob")
	model := trainedForest()

	if err := SaveModel(model, path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	if loaded.Trained != model.Trained || loaded.Offset != model.Offset {
		t.Fatalf("model state lost: %+v", loaded)
	}
	probes := [][]float64{
		{10, 5, 15, 30},
		{500, 500, 500, 500},
	}
	for _, p := range probes {
		if model.Predict(p) != loaded.Predict(p) {
			t.Errorf("prediction for %v changed after reload", p)
		}
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	model, err := LoadModel(filepath.Join(t.TempDir(), "absent.gob"))
	if err != nil {
		t.Fatalf("missing model must not error, got %v", err)
	}
	if model.Trained {
		t.Fatal("missing model must load untrained")
	}
}

func TestSaveModelUntrained(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untrained.gob")
	if err := SaveModel(&iforest.Forest{}, path); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if loaded.Trained {
		t.Fatal("untrained state must round-trip")
	}
}
