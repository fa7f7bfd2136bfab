package detectors

import (
	"math"

	"github.com/miradorstack/mirador-detect/internal/templates"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

// severeZ escalates severity when the deviation is extreme.
const severeZ = 5.0

// ZScoreDetector flags records whose duration deviates from their template's
// trained distribution, and surfaces templates the baseline has never seen.
type ZScoreDetector struct {
	Threshold float64
}

// NewZScoreDetector builds the statistical detector. Non-positive thresholds
// fall back to the default.
func NewZScoreDetector(threshold float64) *ZScoreDetector {
	if threshold <= 0 {
		threshold = models.DefaultZScoreThreshold
	}
	return &ZScoreDetector{Threshold: threshold}
}

// Detect applies the z-score test. Unseen templates are always surfaced as
// NEW_PATTERN regardless of duration; a degenerate distribution (zero
// stdDev) can never produce a spike or drop.
func (d *ZScoreDetector) Detect(rec *models.LogRecord, baseline map[string]models.BaselineStats) *models.Anomaly {
	if rec == nil || rec.Message == "" {
		return nil
	}

	tmpl := templates.Extract(rec.Message)
	stats, ok := baseline[tmpl]
	if !ok {
		return &models.Anomaly{
			LogRecord: *rec,
			Template:  tmpl,
			Type:      models.AnomalyNewPattern,
			Severity:  models.SeverityMedium,
		}
	}

	if stats.StdDev == 0 {
		return nil
	}

	z := (rec.Duration - stats.Mean) / stats.StdDev
	if math.Abs(z) <= d.Threshold {
		return nil
	}

	typ := models.AnomalyDurationSpike
	if z < 0 {
		typ = models.AnomalyDurationDrop
	}
	severity := models.SeverityMedium
	if math.Abs(z) > severeZ {
		severity = models.SeverityHigh
	}

	return &models.Anomaly{
		LogRecord:      *rec,
		Template:       tmpl,
		Type:           typ,
		Severity:       severity,
		ZScore:         f64(z),
		ExpectedMean:   f64(stats.Mean),
		ExpectedStdDev: f64(stats.StdDev),
	}
}
