package models

// BaselineStats summarises the duration distribution observed for one
// log template during training. JSON tags match the on-disk baseline
// artifact, which stays diffable across runs.
type BaselineStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}
