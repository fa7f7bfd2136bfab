// Package engine is the public face of mirador-detect. An Engine owns one
// trained baseline plus one outlier model and runs detection passes against
// them; the surrounding incident-response system consumes the returned
// anomalies for narration, alerting, or remediation.
package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-detect/internal/audit"
	"github.com/miradorstack/mirador-detect/internal/baseline"
	"github.com/miradorstack/mirador-detect/internal/detectors"
	"github.com/miradorstack/mirador-detect/internal/iforest"
	"github.com/miradorstack/mirador-detect/internal/metrics"
	"github.com/miradorstack/mirador-detect/internal/persist"
	"github.com/miradorstack/mirador-detect/internal/sessions"
	"github.com/miradorstack/mirador-detect/internal/stream"
	"github.com/miradorstack/mirador-detect/internal/utils"
	"github.com/miradorstack/mirador-detect/pkg/config"
	"github.com/miradorstack/mirador-detect/pkg/models"
)

// Engine owns the detection state. Detect calls may run concurrently; Train
// and LoadArtifacts swap the state under a write lock only after their pass
// completes, so a failed or partial pass never corrupts what detection sees.
type Engine struct {
	logger    *slog.Logger
	opts      models.Options
	forestCfg iforest.Config

	mu    sync.RWMutex
	stats map[string]models.BaselineStats
	model *iforest.Forest

	trail     *audit.Recorder
	latencies *utils.LatencyTracker
}

// New builds an engine with an empty baseline and an untrained model.
func New(logger *slog.Logger, opts models.Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:    logger,
		opts:      opts.Normalized(),
		forestCfg: iforest.DefaultConfig(),
		stats:     map[string]models.BaselineStats{},
		model:     &iforest.Forest{},
		latencies: utils.NewLatencyTracker(1024),
	}
}

// NewFromConfig wires an engine from loaded configuration: detection
// options, forest tuning, and the optional anomaly audit trail. A nil
// logger is built from the config's logging section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("engine: config required")
	}

	if logger == nil {
		if cfg.Logging.File != "" {
			logger = utils.NewRotatingLogger(cfg.Logging.Level, cfg.Logging.JSON, utils.RotationConfig{
				Filename:   cfg.Logging.File,
				MaxSizeMB:  cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAgeDays: cfg.Logging.MaxAgeDays,
				Compress:   cfg.Logging.Compress,
			})
		} else {
			logger = utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
		}
	}

	e := New(logger, models.Options{
		ZScoreThreshold:    cfg.Detection.ZScoreThreshold,
		UseIsolationForest: cfg.Detection.UseIsolationForest,
		Fields:             cfg.Fields,
	})
	e.forestCfg = iforest.Config{
		Trees:         cfg.Forest.Trees,
		Contamination: cfg.Forest.Contamination,
		Seed:          cfg.Forest.Seed,
	}

	if cfg.Audit.Enabled {
		trail, err := audit.NewRecorder(audit.Config{
			Path:       cfg.Audit.Path,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
			Compress:   cfg.Audit.Compress,
		})
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.trail = trail
	}

	return e, nil
}

// Close releases the audit trail if one is attached.
func (e *Engine) Close() error {
	return e.trail.Close()
}

// RegisterMetrics attaches the engine's Prometheus collectors to reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	return metrics.Register(reg)
}

// BuildBaseline computes per-template duration statistics over one
// streaming pass, holding only the accumulator in memory. Templates seen
// fewer than five times are dropped.
func BuildBaseline(r io.Reader, opts models.Options) (map[string]models.BaselineStats, error) {
	opts = opts.Normalized()
	b := baseline.NewBuilder()
	if _, err := stream.ForEach(r, opts.Fields, b.Add); err != nil {
		return nil, fmt.Errorf("build baseline: %w", err)
	}
	return b.Stats(), nil
}

// AttachContext populates anomaly contexts against an ordered record set.
// Detection already attaches context; use this to re-attach anomalies to a
// different or richer set.
func AttachContext(anomalies []models.Anomaly, records []models.LogRecord) []models.Anomaly {
	return sessions.NewAssembler(records).Attach(anomalies)
}

// Train builds a fresh baseline from the record stream and refits the
// outlier model on its per-template feature vectors. State swaps in only
// after the full pass; an interrupted pass leaves the engine unchanged.
func (e *Engine) Train(r io.Reader) error {
	start := time.Now()

	b := baseline.NewBuilder()
	streamStats, err := stream.ForEach(r, e.opts.Fields, b.Add)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	e.finishTraining(b, streamStats, start)
	return nil
}

// TrainFile trains from a record file. A missing file degrades to an empty
// baseline and an untrained model rather than an error.
func (e *Engine) TrainFile(path string) error {
	start := time.Now()

	b := baseline.NewBuilder()
	streamStats, err := stream.ForEachFile(path, e.opts.Fields, b.Add)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("training source missing, baseline left empty", slog.String("path", path))
			e.mu.Lock()
			e.stats = map[string]models.BaselineStats{}
			e.model = &iforest.Forest{}
			e.mu.Unlock()
			return nil
		}
		return err
	}
	e.finishTraining(b, streamStats, start)
	return nil
}

// finishTraining fits the outlier model and swaps the new state in.
func (e *Engine) finishTraining(b *baseline.Builder, streamStats stream.Stats, start time.Time) {
	stats := b.Stats()
	model := iforest.Fit(detectors.TrainingMatrix(stats), e.forestCfg)

	e.mu.Lock()
	e.stats = stats
	e.model = model
	e.mu.Unlock()

	took := time.Since(start)
	metrics.ObserveTraining(took, streamStats.Records, len(stats))
	if streamStats.Malformed > 0 {
		e.logger.Warn("skipped malformed records during training", slog.Int("malformed", streamStats.Malformed))
	}
	if !model.Trained {
		e.logger.Warn("outlier model left untrained",
			slog.Int("templates", len(stats)),
			slog.Int("required", iforest.MinTrainingSamples))
	}
	e.logger.Info("baseline trained",
		slog.Int("records", streamStats.Records),
		slog.Int("templates", len(stats)),
		slog.Duration("took", took))
}

// DetectRecords runs the detector chain over an ordered record set and
// attaches context to every anomaly. The z-score detector speaks first;
// the outlier model is consulted only for records it passed over.
func (e *Engine) DetectRecords(records []models.LogRecord) []models.Anomaly {
	start := time.Now()

	e.mu.RLock()
	stats := e.stats
	model := e.model
	e.mu.RUnlock()

	chain := []detectors.Detector{detectors.NewZScoreDetector(e.opts.ZScoreThreshold)}
	if e.opts.UseIsolationForest {
		chain = append(chain, detectors.NewIsolationDetector(model))
	}

	anomalies := make([]models.Anomaly, 0)
	for i := range records {
		for _, d := range chain {
			a := d.Detect(&records[i], stats)
			if a == nil {
				continue
			}
			a.Position = i
			anomalies = append(anomalies, *a)
			metrics.RecordAnomaly(string(a.Type))
			break
		}
	}

	sessions.NewAssembler(records).Attach(anomalies)

	took := time.Since(start)
	e.latencies.Observe(took)
	metrics.ObserveDetection(took, len(records))
	if count := e.latencies.Count(); count >= 20 && count%20 == 0 {
		e.logger.Info("detection latency", slog.Duration("p95", e.latencies.Percentile(95)), slog.Int("passes", count))
	}
	if len(anomalies) > 0 {
		e.logger.Info("anomalies detected", slog.Int("count", len(anomalies)), slog.Int("records", len(records)))
	}

	e.recordTrail(anomalies)
	return anomalies
}

// Detect reads an ordered record stream fully, then runs DetectRecords.
func (e *Engine) Detect(r io.Reader) ([]models.Anomaly, error) {
	records, streamStats, err := stream.ReadAll(r, e.opts.Fields)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	if streamStats.Malformed > 0 {
		e.logger.Warn("skipped malformed records during detection", slog.Int("malformed", streamStats.Malformed))
	}
	return e.DetectRecords(records), nil
}

// DetectFile detects over a record file. A missing file yields no
// anomalies and no error.
func (e *Engine) DetectFile(path string) ([]models.Anomaly, error) {
	records, streamStats, err := stream.ReadFile(path, e.opts.Fields)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("detection source missing", slog.String("path", path))
			return nil, nil
		}
		return nil, err
	}
	if streamStats.Malformed > 0 {
		e.logger.Warn("skipped malformed records during detection", slog.Int("malformed", streamStats.Malformed))
	}
	return e.DetectRecords(records), nil
}

// SaveArtifacts persists the baseline (diffable JSON) and the outlier
// model (opaque blob).
func (e *Engine) SaveArtifacts(baselinePath, modelPath string) error {
	e.mu.RLock()
	stats := e.stats
	model := e.model
	e.mu.RUnlock()

	if err := persist.SaveBaseline(stats, baselinePath); err != nil {
		return err
	}
	if err := persist.SaveModel(model, modelPath); err != nil {
		return err
	}
	e.logger.Info("artifacts saved", slog.String("baseline", baselinePath), slog.String("model", modelPath))
	return nil
}

// LoadArtifacts restores persisted state. Missing artifacts leave the
// engine cold (empty baseline, untrained model) without error, so a first
// run before any training is valid.
func (e *Engine) LoadArtifacts(baselinePath, modelPath string) error {
	stats, err := persist.LoadBaseline(baselinePath)
	if err != nil {
		return err
	}
	model, err := persist.LoadModel(modelPath)
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		e.logger.Warn("baseline artifact missing or empty", slog.String("path", baselinePath))
	}
	if !model.Trained {
		e.logger.Warn("outlier model artifact missing or untrained", slog.String("path", modelPath))
	}

	e.mu.Lock()
	e.stats = stats
	e.model = model
	e.mu.Unlock()

	metrics.SetBaselineTemplates(len(stats))
	e.logger.Info("artifacts loaded",
		slog.Int("templates", len(stats)),
		slog.Bool("model_trained", model.Trained))
	return nil
}

// Baseline returns a copy of the active baseline mapping.
func (e *Engine) Baseline() map[string]models.BaselineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]models.BaselineStats, len(e.stats))
	for tmpl, s := range e.stats {
		out[tmpl] = s
	}
	return out
}

// ModelTrained reports whether the outlier model can predict.
func (e *Engine) ModelTrained() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model != nil && e.model.Trained
}

// Options returns the engine's normalized detection options.
func (e *Engine) Options() models.Options {
	return e.opts
}

func (e *Engine) recordTrail(anomalies []models.Anomaly) {
	if e.trail == nil {
		return
	}
	for i := range anomalies {
		if err := e.trail.Record(&anomalies[i]); err != nil {
			e.logger.Warn("audit trail write failed", slog.Any("error", err))
			return
		}
	}
}
