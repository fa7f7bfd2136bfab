package baseline

import (
	"fmt"
	"math"
	"testing"

	"github.com/miradorstack/mirador-detect/pkg/models"
)

func addN(b *Builder, message string, durations ...float64) {
	for _, d := range durations {
		b.Add(models.LogRecord{Message: message, Duration: d})
	}
}

func TestBuilderMinimumSampleFloor(t *testing.T) {
	b := NewBuilder()
	addN(b, "four times", 1, 2, 3, 4)
	addN(b, "five times", 1, 2, 3, 4, 5)

	stats := b.Stats()
	if _, ok := stats["four times"]; ok {
		t.Error("template with 4 samples must not enter the baseline")
	}
	if _, ok := stats["five times"]; !ok {
		t.Error("template with 5 samples must enter the baseline")
	}
}

func TestBuilderGroupsByTemplate(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 5; i++ {
		b.Add(models.LogRecord{Message: fmt.Sprintf("User %d logged in", i), Duration: 10})
	}

	stats := b.Stats()
	s, ok := stats["User {num} logged in"]
	if !ok {
		t.Fatalf("expected extracted template key, got %v", stats)
	}
	if s.Count != 5 {
		t.Errorf("count = %d, want 5", s.Count)
	}
}

func TestBuilderSkipsEmptyMessages(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 6; i++ {
		b.Add(models.LogRecord{Message: "", Duration: 99})
	}
	if b.Seen() != 0 {
		t.Fatalf("empty messages accumulated: %d templates", b.Seen())
	}
}

func TestBuilderStatistics(t *testing.T) {
	b := NewBuilder()
	addN(b, "query", 10, 20, 30, 40, 50)

	s := b.Stats()["query"]
	assertClose(t, "mean", s.Mean, 30)
	assertClose(t, "std_dev", s.StdDev, math.Sqrt(200))
	assertClose(t, "min", s.Min, 10)
	assertClose(t, "max", s.Max, 50)
	assertClose(t, "p50", s.P50, 30)
	assertClose(t, "p95", s.P95, 48)
	assertClose(t, "p99", s.P99, 49.6)
	if s.Count != 5 {
		t.Errorf("count = %d, want 5", s.Count)
	}
}

func TestBuilderConstantDurationsHaveZeroStdDev(t *testing.T) {
	b := NewBuilder()
	addN(b, "steady", 25, 25, 25, 25, 25)

	s := b.Stats()["steady"]
	if s.StdDev != 0 {
		t.Errorf("std_dev = %v, want 0 for constant samples", s.StdDev)
	}
	if s.P50 != 25 || s.P99 != 25 {
		t.Errorf("percentiles of constant samples should be the constant: %+v", s)
	}
}

func TestBuilderCountsZeroDurations(t *testing.T) {
	// Records with absent durations arrive coerced to 0 and still train
	// the template.
	b := NewBuilder()
	addN(b, "fire and forget", 0, 0, 0, 0, 0)

	s, ok := b.Stats()["fire and forget"]
	if !ok {
		t.Fatal("zero durations must still accumulate")
	}
	if s.Count != 5 || s.Mean != 0 {
		t.Errorf("stats = %+v, want count 5 mean 0", s)
	}
}

func assertClose(t *testing.T, field string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", field, got, want)
	}
}
