// Package detectors houses the per-record anomaly checks. Each detector is
// stateless per call given a read-only baseline, so a driver can fan records
// out across goroutines. The driver composes detectors in precedence order
// and keeps the first non-nil verdict per record.
package detectors

import "github.com/miradorstack/mirador-detect/pkg/models"

// Detector classifies one record against the baseline. A nil result means
// the record looks normal to this detector.
type Detector interface {
	Detect(rec *models.LogRecord, baseline map[string]models.BaselineStats) *models.Anomaly
}

func f64(v float64) *float64 {
	return &v
}
