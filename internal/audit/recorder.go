// Package audit appends detected anomalies to a rotating JSONL trail.
// The trail is an operator-facing detection artifact; alerting and
// narration stay upstream.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/miradorstack/mirador-detect/pkg/models"
)

// Config sizes the rotating trail file.
type Config struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// entry is one trail line.
type entry struct {
	RecordedAt string          `json:"recorded_at"`
	Anomaly    *models.Anomaly `json:"anomaly"`
}

// Recorder appends anomalies to the trail. Safe for concurrent use. A nil
// Recorder drops writes, so callers skip no checks when auditing is off.
type Recorder struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *json.Encoder
}

// NewRecorder opens a rotating trail at cfg.Path. The file is created
// lazily on first write.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit: trail path required")
	}

	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &Recorder{out: out, enc: json.NewEncoder(out)}, nil
}

// Record appends one anomaly line, context included.
func (r *Recorder) Record(anom *models.Anomaly) error {
	if r == nil || anom == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(entry{
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
		Anomaly:    anom,
	})
}

// Close flushes and closes the trail file.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.out.Close()
}
