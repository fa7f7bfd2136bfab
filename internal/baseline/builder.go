// Package baseline accumulates per-template duration samples over a
// training pass and reduces them to summary statistics.
package baseline

import (
	"math"
	"sort"

	"github.com/miradorstack/mirador-detect/internal/templates"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

// minSamples is the observation floor: templates seen fewer times never
// enter the baseline, so detection never acts on statistically
// meaningless single observations.
const minSamples = 5

// Builder folds records into a per-template duration accumulator. Memory is
// proportional to distinct templates times their occurrences, not to raw
// input size. Feed it from a single goroutine per pass.
type Builder struct {
	durations map[string][]float64
}

// NewBuilder returns an empty accumulator.
func NewBuilder() *Builder {
	return &Builder{durations: make(map[string][]float64)}
}

// Add folds one record in. Records without a message carry no shape and are
// skipped; absent durations were already coerced to 0 upstream and count as
// observations.
func (b *Builder) Add(rec models.LogRecord) {
	if rec.Message == "" {
		return
	}
	tmpl := templates.Extract(rec.Message)
	b.durations[tmpl] = append(b.durations[tmpl], rec.Duration)
}

// Seen reports the distinct templates observed, including those still below
// the sample floor.
func (b *Builder) Seen() int {
	return len(b.durations)
}

// Stats reduces the accumulator to the baseline mapping. Templates below
// minSamples are dropped.
func (b *Builder) Stats() map[string]models.BaselineStats {
	stats := make(map[string]models.BaselineStats, len(b.durations))
	for tmpl, samples := range b.durations {
		if len(samples) < minSamples {
			continue
		}
		stats[tmpl] = summarize(samples)
	}
	return stats
}

func summarize(samples []float64) models.BaselineStats {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	m := mean(samples)
	return models.BaselineStats{
		Count:  len(samples),
		Mean:   m,
		StdDev: stdDev(samples, m),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P50:    percentile(sorted, 50),
		P95:    percentile(sorted, 95),
		P99:    percentile(sorted, 99),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation, not the sample one.
func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// percentile interpolates linearly between closest ranks. The input must be
// sorted ascending.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower < 0 {
		return sorted[0]
	}
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
