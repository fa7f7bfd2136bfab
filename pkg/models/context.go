package models

// ContextType discriminates the two context shapes.
type ContextType string

const (
	ContextFullSession ContextType = "FULL_SESSION"
	ContextWindowBased ContextType = "WINDOW_BASED"
)

// Context carries the records surrounding an anomaly. Exactly one field
// group is populated, selected by Type: session fields when the anomalous
// record belongs to a known session, window fields otherwise.
//
// Record slices share pointers with the analyzed stream; they are never
// deep-copied.
type Context struct {
	Type ContextType `json:"context_type"`

	// FULL_SESSION: every record sharing the anomaly's session ID, in
	// stream order.
	SessionID          string       `json:"session_id,omitempty"`
	SessionLogs        []*LogRecord `json:"session_logs,omitempty"`
	AnomalyPosition    int          `json:"anomaly_position,omitempty"`
	SessionStart       string       `json:"session_start,omitempty"`
	SessionEnd         string       `json:"session_end,omitempty"`
	TotalLogsInSession int          `json:"total_logs_in_session,omitempty"`

	// WINDOW_BASED: up to ten records either side of the anomaly.
	// PreviousLogs never contains the anomalous record itself.
	PreviousLogs []*LogRecord `json:"previous_logs,omitempty"`
	CurrentLog   *LogRecord   `json:"current_log,omitempty"`
	NextLogs     []*LogRecord `json:"next_logs,omitempty"`
	Position     int          `json:"position,omitempty"`
}
