// Package stream decodes log record sources. Input arrives either as one
// JSON array or as newline-delimited JSON objects; the format is detected
// from the first non-space byte rather than by catching parse failures.
// Malformed lines and elements are skipped and counted, never fatal.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/miradorstack/mirador-detect/internal/utils"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 1 << 20

// Stats counts the outcome of one pass over a record source.
type Stats struct {
	Records   int
	Malformed int
}

// ForEach streams records from r one at a time, holding only the current
// record in memory. Field names come from fields (normalized defaults:
// duration_ms, message, correlation_id).
func ForEach(r io.Reader, fields models.FieldMapping, fn func(models.LogRecord)) (Stats, error) {
	fields = fields.Normalized()
	br := bufio.NewReaderSize(r, 64*1024)

	first, err := peekNonSpace(br)
	if err != nil {
		// Empty stream decodes to zero records.
		if err == io.EOF {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("read stream: %w", err)
	}

	if first == '[' {
		return readArray(br, fields, fn)
	}
	return readLines(br, fields, fn)
}

// ReadAll collects the full ordered record slice. Detection needs random
// access for positional windows; training should prefer ForEach.
func ReadAll(r io.Reader, fields models.FieldMapping) ([]models.LogRecord, Stats, error) {
	var records []models.LogRecord
	stats, err := ForEach(r, fields, func(rec models.LogRecord) {
		records = append(records, rec)
	})
	return records, stats, err
}

// ForEachFile streams records from a file. A missing file surfaces as a
// wrapped fs.ErrNotExist; callers treat that as an empty source.
func ForEachFile(path string, fields models.FieldMapping, fn func(models.LogRecord)) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, utils.NewAppError("stream.open", fmt.Sprintf("open record source %s", path), err)
	}
	defer f.Close()
	return ForEach(f, fields, fn)
}

// ReadFile collects the full ordered record slice from a file.
func ReadFile(path string, fields models.FieldMapping) ([]models.LogRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, utils.NewAppError("stream.open", fmt.Sprintf("open record source %s", path), err)
	}
	defer f.Close()
	return ReadAll(f, fields)
}

// peekNonSpace returns the first byte outside JSON whitespace without
// consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func readArray(br *bufio.Reader, fields models.FieldMapping, fn func(models.LogRecord)) (Stats, error) {
	var stats Stats
	dec := json.NewDecoder(br)

	if _, err := dec.Token(); err != nil {
		return stats, fmt.Errorf("read array open: %w", err)
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			// A syntax error inside an array cannot be resynced; keep
			// whatever decoded so far.
			stats.Malformed++
			return stats, nil
		}
		rec, ok := decodeRecord(raw, fields)
		if !ok {
			stats.Malformed++
			continue
		}
		stats.Records++
		fn(rec)
	}
	return stats, nil
}

func readLines(br *bufio.Reader, fields models.FieldMapping, fn func(models.LogRecord)) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, ok := decodeRecord(line, fields)
		if !ok {
			stats.Malformed++
			continue
		}
		stats.Records++
		fn(rec)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan records: %w", err)
	}
	return stats, nil
}

// decodeRecord maps one JSON object onto a LogRecord. Absent level defaults
// to INFO; absent or non-numeric duration coerces to 0, so no well-formed
// object is rejected for missing fields.
func decodeRecord(data []byte, fields models.FieldMapping) (models.LogRecord, bool) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return models.LogRecord{}, false
	}

	rec := models.LogRecord{Level: "INFO"}
	if v, ok := obj["timestamp"].(string); ok {
		rec.Timestamp = v
	}
	if v, ok := obj["level"].(string); ok && v != "" {
		rec.Level = v
	}
	if v, ok := obj[fields.Message].(string); ok {
		rec.Message = v
	}
	rec.Duration = toFloat(obj[fields.Duration])
	if v, ok := obj[fields.SessionID].(string); ok {
		rec.SessionID = v
	}
	return rec, true
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return 0
}
