// Package sessions attaches surrounding context to detected anomalies. A
// record whose session was observed in the stream gets its whole session;
// anything else gets a bounded positional window.
package sessions

import (
	"sort"

	"github.com/miradorstack/mirador-detect/pkg/models"
)

// windowSize bounds each side of a positional context window.
const windowSize = 10

// Assembler indexes one ordered record set for context attachment. Context
// slices hold pointers into that set, never copies.
type Assembler struct {
	records  []models.LogRecord
	sessions map[string][]*models.LogRecord
	indices  map[string][]int
}

// NewAssembler groups records carrying a session ID, in stream order.
func NewAssembler(records []models.LogRecord) *Assembler {
	a := &Assembler{
		records:  records,
		sessions: make(map[string][]*models.LogRecord),
		indices:  make(map[string][]int),
	}
	for i := range records {
		sid := records[i].SessionID
		if sid == "" {
			continue
		}
		a.sessions[sid] = append(a.sessions[sid], &records[i])
		a.indices[sid] = append(a.indices[sid], i)
	}
	return a
}

// Attach populates each anomaly's context in place and returns the slice.
func (a *Assembler) Attach(anomalies []models.Anomaly) []models.Anomaly {
	for i := range anomalies {
		anomalies[i].Context = a.contextFor(anomalies[i].Position)
	}
	return anomalies
}

// contextFor builds the context for the record at pos. Positions outside
// the indexed record set (an anomaly detected over a different set) get no
// context rather than a wrong one.
func (a *Assembler) contextFor(pos int) *models.Context {
	if pos < 0 || pos >= len(a.records) {
		return nil
	}

	if sid := a.records[pos].SessionID; sid != "" {
		if logs, ok := a.sessions[sid]; ok {
			return a.sessionContext(sid, logs, pos)
		}
	}
	return a.windowContext(pos)
}

func (a *Assembler) sessionContext(sid string, logs []*models.LogRecord, pos int) *models.Context {
	// Session index lists are ascending by construction.
	within := sort.SearchInts(a.indices[sid], pos)
	return &models.Context{
		Type:               models.ContextFullSession,
		SessionID:          sid,
		SessionLogs:        logs,
		AnomalyPosition:    within,
		SessionStart:       logs[0].Timestamp,
		SessionEnd:         logs[len(logs)-1].Timestamp,
		TotalLogsInSession: len(logs),
	}
}

// windowContext slices up to windowSize records either side of pos. The
// previous window never contains the record itself.
func (a *Assembler) windowContext(pos int) *models.Context {
	start := pos - windowSize
	if start < 0 {
		start = 0
	}
	end := pos + 1 + windowSize
	if end > len(a.records) {
		end = len(a.records)
	}

	prev := make([]*models.LogRecord, 0, pos-start)
	for i := start; i < pos; i++ {
		prev = append(prev, &a.records[i])
	}
	next := make([]*models.LogRecord, 0, end-pos-1)
	for i := pos + 1; i < end; i++ {
		next = append(next, &a.records[i])
	}

	return &models.Context{
		Type:         models.ContextWindowBased,
		PreviousLogs: prev,
		CurrentLog:   &a.records[pos],
		NextLogs:     next,
		Position:     pos,
	}
}
