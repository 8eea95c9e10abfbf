package oracle

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
	"github.com/matz-e/oci-db-doctor/src/queries"
)

// WindowReader is the Metric Window Reader: AWR metric buckets plus the
// long-operation, parallelism and plan-step snapshots the correlator scopes
// to an incident window.
type WindowReader struct {
	db DataSource
}

func NewWindowReader(db DataSource) *WindowReader {
	return &WindowReader{db: db}
}

// MetricWindow fetches the AWR buckets for one metric overlapping [t0, t1].
func (r *WindowReader) MetricWindow(ctx context.Context, metricName string, t0, t1 time.Time) ([]models.MetricWindowPoint, error) {
	points, err := CollectRows[models.MetricWindowPoint](ctx, r.db, queries.MetricWindow, metricName, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("querying dba_hist_sysmetric_summary: %w", err)
	}
	return points, nil
}

// LongOperations fetches the in-flight V$SESSION_LONGOPS rows that started
// before the window closed. Each call is one poll; callers wanting stall
// detection fetch more than once and hand the engine the combined history.
func (r *WindowReader) LongOperations(ctx context.Context, t0, t1 time.Time) ([]models.LongOperationRecord, error) {
	records, err := CollectRows[models.LongOperationRecord](ctx, r.db, queries.LongOperations, t1)
	if err != nil {
		return nil, fmt.Errorf("querying v$session_longops: %w", err)
	}
	return records, nil
}

// ParallelismSnapshot fetches the current PX allocation per coordinator.
func (r *WindowReader) ParallelismSnapshot(ctx context.Context) ([]models.ParallelismRecord, error) {
	records, err := CollectRows[models.ParallelismRecord](ctx, r.db, queries.ParallelismSnapshot)
	if err != nil {
		return nil, fmt.Errorf("querying gv$px_session: %w", err)
	}
	return records, nil
}

type sqlIDRow struct {
	SQLID string `db:"sql_id"`
}

type reportRow struct {
	Report string `db:"report"`
}

// FullScanCandidates renders the SQL Monitor report for every monitored
// statement and extracts its full-table-scan plan steps. A statement whose
// report cannot be fetched or parsed is skipped with a warning; one bad
// report must not empty the whole diagnostic.
func (r *WindowReader) FullScanCandidates(ctx context.Context) ([]models.FullScanRecord, error) {
	ids, err := CollectRows[sqlIDRow](ctx, r.db, queries.MonitoredSQLIDs)
	if err != nil {
		return nil, fmt.Errorf("querying v$sql_monitor: %w", err)
	}

	records := make([]models.FullScanRecord, 0)
	for _, id := range ids {
		reports, err := CollectRows[reportRow](ctx, r.db, queries.SQLMonitorReport, id.SQLID)
		if err != nil {
			log.WithField("sql_id", id.SQLID).Warnf("skipping sql monitor report: %v", err)
			continue
		}
		for _, rep := range reports {
			scans, err := ExtractFullScans(id.SQLID, []byte(rep.Report))
			if err != nil {
				log.WithField("sql_id", id.SQLID).Warnf("skipping unparseable sql monitor report: %v", err)
				continue
			}
			records = append(records, scans...)
		}
	}
	return records, nil
}
