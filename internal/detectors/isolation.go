package detectors

import (
	"sort"

	"github.com/miradorstack/mirador-detect/internal/iforest"
	"github.com/miradorstack/mirador-detect/internal/templates"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

// severeIsolationScore escalates severity for strongly isolated templates.
const severeIsolationScore = -0.5

// IsolationDetector consults the multivariate outlier model. It only speaks
// for templates the baseline knows; unseen templates are the z-score
// detector's business.
type IsolationDetector struct {
	Model *iforest.Forest
}

// NewIsolationDetector wraps a trained (or untrained) forest. A nil or
// untrained model silences the detector.
func NewIsolationDetector(model *iforest.Forest) *IsolationDetector {
	return &IsolationDetector{Model: model}
}

// Detect predicts on the record's template statistics. Lower scores mean
// stronger isolation from the rest of the feature space.
func (d *IsolationDetector) Detect(rec *models.LogRecord, baseline map[string]models.BaselineStats) *models.Anomaly {
	if d.Model == nil || !d.Model.Trained || rec == nil || rec.Message == "" {
		return nil
	}

	tmpl := templates.Extract(rec.Message)
	stats, ok := baseline[tmpl]
	if !ok {
		return nil
	}

	pred := d.Model.Predict(FeatureVector(stats))
	if !pred.IsOutlier {
		return nil
	}

	severity := models.SeverityMedium
	if pred.Score < severeIsolationScore {
		severity = models.SeverityHigh
	}

	return &models.Anomaly{
		LogRecord:      *rec,
		Template:       tmpl,
		Type:           models.AnomalyIsolationForest,
		Severity:       severity,
		IsolationScore: f64(pred.Score),
		ExpectedMean:   f64(stats.Mean),
	}
}

// FeatureVector projects template statistics into the model's feature
// space. The order is fixed and must match between training and prediction.
func FeatureVector(s models.BaselineStats) []float64 {
	return []float64{s.Mean, s.StdDev, s.P95, float64(s.Count)}
}

// TrainingMatrix builds one feature row per baseline template, ordered by
// template key so a fixed seed reproduces the same model.
func TrainingMatrix(baseline map[string]models.BaselineStats) [][]float64 {
	keys := make([]string, 0, len(baseline))
	for tmpl := range baseline {
		keys = append(keys, tmpl)
	}
	sort.Strings(keys)

	x := make([][]float64, 0, len(keys))
	for _, tmpl := range keys {
		x = append(x, FeatureVector(baseline[tmpl]))
	}
	return x
}
