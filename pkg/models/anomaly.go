package models

// AnomalyType enumerates the detection verdicts.
type AnomalyType string

const (
	AnomalyDurationSpike   AnomalyType = "DURATION_SPIKE"
	AnomalyDurationDrop    AnomalyType = "DURATION_DROP"
	AnomalyNewPattern      AnomalyType = "NEW_PATTERN"
	AnomalyIsolationForest AnomalyType = "ISOLATION_FOREST_ANOMALY"
)

// Severity captures flag impact levels.
type Severity string

const (
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Anomaly is a flagged record plus the evidence that flagged it.
//
// Evidence fields are pointers: a statistical anomaly carries z-score and
// the expected distribution, an outlier-model anomaly carries the isolation
// score, a new pattern carries neither. Position is the record's index in
// the analyzed stream and feeds context assembly.
type Anomaly struct {
	LogRecord

	Template       string      `json:"template"`
	Type           AnomalyType `json:"anomaly_type"`
	Severity       Severity    `json:"severity"`
	ZScore         *float64    `json:"z_score,omitempty"`
	ExpectedMean   *float64    `json:"expected_mean,omitempty"`
	ExpectedStdDev *float64    `json:"expected_std,omitempty"`
	IsolationScore *float64    `json:"isolation_score,omitempty"`
	Position       int         `json:"position"`
	Context        *Context    `json:"context,omitempty"`
}
