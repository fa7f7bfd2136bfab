package models

// LogRecord is one decoded log event from the input stream.
//
// Timestamps are carried as opaque strings; ordering comes from stream
// position, not from parsing them.
type LogRecord struct {
	Timestamp string  `json:"timestamp,omitempty"`
	Level     string  `json:"level"`
	Message   string  `json:"message"`
	Duration  float64 `json:"duration"`
	SessionID string  `json:"session_id,omitempty"`
}

// FieldMapping names the JSON keys the stream reader pulls record fields from.
type FieldMapping struct {
	Duration  string `yaml:"duration"`
	Message   string `yaml:"message"`
	SessionID string `yaml:"sessionID"`
}

// DefaultFieldMapping returns the conventional mirador log schema keys.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		Duration:  "duration_ms",
		Message:   "message",
		SessionID: "correlation_id",
	}
}

// Normalized fills empty mapping entries with their defaults.
func (m FieldMapping) Normalized() FieldMapping {
	def := DefaultFieldMapping()
	if m.Duration == "" {
		m.Duration = def.Duration
	}
	if m.Message == "" {
		m.Message = def.Message
	}
	if m.SessionID == "" {
		m.SessionID = def.SessionID
	}
	return m
}
