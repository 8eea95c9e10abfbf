// Package diagnostics is the correlation engine behind the Oracle doctor: it
// turns already-fetched session, wait and historical-metric rows into ranked
// findings. The engine performs no database I/O itself and keeps no state
// between invocations; readers hand it one coherent snapshot or window per
// call.
package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/correlator"
	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
	"github.com/matz-e/oci-db-doctor/src/diagnostics/report"
	"github.com/matz-e/oci-db-doctor/src/diagnostics/waitgraph"
)

// SessionReader supplies point-in-time session and wait rows.
type SessionReader interface {
	SessionSnapshot(ctx context.Context) ([]models.SessionSnapshotRow, error)
}

// WindowReader supplies aggregated historical metrics and operation
// snapshots. Implementations own all retry and reconnect behavior; the
// engine only ever sees an already-fetched (possibly incomplete) dataset.
type WindowReader interface {
	MetricWindow(ctx context.Context, metricName string, t0, t1 time.Time) ([]models.MetricWindowPoint, error)
	LongOperations(ctx context.Context, t0, t1 time.Time) ([]models.LongOperationRecord, error)
	ParallelismSnapshot(ctx context.Context) ([]models.ParallelismRecord, error)
	FullScanCandidates(ctx context.Context) ([]models.FullScanRecord, error)
}

// Engine evaluates one diagnostic category per call, synchronously and
// deterministically for a given input dataset.
type Engine struct {
	sessions SessionReader
	windows  WindowReader
	opts     models.Options
}

// NewEngine validates the thresholds up front; a configuration error is the
// only condition that aborts instead of degrading.
func NewEngine(sessions SessionReader, windows WindowReader, opts models.Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{sessions: sessions, windows: windows, opts: opts}, nil
}

// Options returns the thresholds the engine classifies with.
func (e *Engine) Options() models.Options {
	return e.opts
}

// AnalyzeBlocking builds the wait graph from a fresh session snapshot and
// resolves every blocking chain and deadlock candidate in it.
func (e *Engine) AnalyzeBlocking(ctx context.Context) ([]models.BlockerReport, error) {
	rows, err := e.sessions.SessionSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching session snapshot: %w", err)
	}

	start := time.Now()
	graph := waitgraph.Build(rows)
	reports := waitgraph.Resolve(graph)
	log.WithFields(log.Fields{
		"rows":    len(rows),
		"edges":   graph.EdgeCount(),
		"chains":  len(reports),
		"dropped": graph.DroppedRows(),
		"took":    time.Since(start),
	}).Debug("blocking analysis complete")
	return reports, nil
}

// AnalyzeCPUSaturation classifies sustained CPU pressure inside [t0, t1].
func (e *Engine) AnalyzeCPUSaturation(ctx context.Context, t0, t1 time.Time) ([]models.DiagnosticFinding, error) {
	points, err := e.windows.MetricWindow(ctx, e.opts.CPUMetricName, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("fetching CPU metric window: %w", err)
	}
	return correlator.CPUSaturation(t0, t1, points, e.opts), nil
}

// AnalyzeLongOperations classifies long-running operations overlapping
// [t0, t1], including stalls across consecutive polls.
func (e *Engine) AnalyzeLongOperations(ctx context.Context, t0, t1 time.Time) ([]models.DiagnosticFinding, error) {
	records, err := e.windows.LongOperations(ctx, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("fetching long operations: %w", err)
	}
	return correlator.LongOperations(t0, t1, records, e.opts), nil
}

// AnalyzeParallelism flags DOP downgrades and PX starvation.
func (e *Engine) AnalyzeParallelism(ctx context.Context) ([]models.DiagnosticFinding, error) {
	records, err := e.windows.ParallelismSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching parallelism snapshot: %w", err)
	}
	return correlator.Parallelism(records, e.opts), nil
}

// AnalyzeFullScans flags serial full scans of large segments.
func (e *Engine) AnalyzeFullScans(ctx context.Context) ([]models.DiagnosticFinding, error) {
	records, err := e.windows.FullScanCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching full scan candidates: %w", err)
	}
	return correlator.FullScans(records, e.opts), nil
}

// AssembleReport runs every diagnostic category over one incident window and
// merges the results into a single ranked report. Each category's dataset is
// evaluated independently; they only meet in the assembler.
func (e *Engine) AssembleReport(ctx context.Context, t0, t1 time.Time) (models.DiagnosticReport, error) {
	rows, err := e.sessions.SessionSnapshot(ctx)
	if err != nil {
		return models.DiagnosticReport{}, fmt.Errorf("fetching session snapshot: %w", err)
	}
	graph := waitgraph.Build(rows)
	blocking := report.BlockingFindings(waitgraph.Resolve(graph), rows, graph.DroppedRows(), e.opts)

	cpu, err := e.AnalyzeCPUSaturation(ctx, t0, t1)
	if err != nil {
		return models.DiagnosticReport{}, err
	}
	longOps, err := e.AnalyzeLongOperations(ctx, t0, t1)
	if err != nil {
		return models.DiagnosticReport{}, err
	}
	parallelism, err := e.AnalyzeParallelism(ctx)
	if err != nil {
		return models.DiagnosticReport{}, err
	}
	fullScans, err := e.AnalyzeFullScans(ctx)
	if err != nil {
		return models.DiagnosticReport{}, err
	}

	return models.DiagnosticReport{
		ReportID:    uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		WindowStart: t0,
		WindowEnd:   t1,
		Findings:    report.Assemble(blocking, cpu, longOps, parallelism, fullScans),
	}, nil
}
