package oracle

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matz-e/oci-db-doctor/src/queries"
)

func TestMetricWindowBindsMetricAndRange(t *testing.T) {
	ds, mock := mockDataSource(t)

	t0 := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	rows := sqlmock.NewRows([]string{"begin_time", "end_time", "metric_name", "value"}).
		AddRow(t0, t0.Add(10*time.Minute), "Host CPU Utilization (%)", 93.5).
		AddRow(t0.Add(10*time.Minute), t0.Add(20*time.Minute), "Host CPU Utilization (%)", 97.2)
	mock.ExpectQuery(regexp.QuoteMeta(queries.MetricWindow)).
		WithArgs("Host CPU Utilization (%)", t0, t1).
		WillReturnRows(rows)

	reader := NewWindowReader(ds)
	points, err := reader.MetricWindow(context.Background(), "Host CPU Utilization (%)", t0, t1)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 93.5, points[0].Value, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLongOperationsStampsPollTime(t *testing.T) {
	ds, mock := mockDataSource(t)

	started := time.Date(2026, 8, 27, 9, 30, 0, 0, time.UTC)
	polled := started.Add(45 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"session_id", "opname", "target", "sql_id", "sofar", "totalwork",
		"elapsed_seconds", "time_remaining_seconds", "start_time",
		"estimated_completion", "polled_at",
	}).AddRow(42, "Table Scan", "APP.ORDERS", "abc123xyz", 500000, 1000000,
		2700, 2700, started, polled.Add(45*time.Minute), polled)
	mock.ExpectQuery(regexp.QuoteMeta(queries.LongOperations)).
		WillReturnRows(rows)

	reader := NewWindowReader(ds)
	records, err := reader.LongOperations(context.Background(), started, polled)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Table Scan", records[0].OpName)
	assert.Equal(t, polled, records[0].PolledAt)
	require.NotNil(t, records[0].EstimatedCompletion)
}

func TestParallelismSnapshotQueryFailure(t *testing.T) {
	ds, mock := mockDataSource(t)
	mock.ExpectQuery(regexp.QuoteMeta(queries.ParallelismSnapshot)).
		WillReturnError(errors.New("ORA-00942: table or view does not exist"))

	reader := NewWindowReader(ds)
	_, err := reader.ParallelismSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gv$px_session")
}

func TestFullScanCandidatesSkipsUnfetchableReports(t *testing.T) {
	ds, mock := mockDataSource(t)

	mock.ExpectQuery(regexp.QuoteMeta(queries.MonitoredSQLIDs)).
		WillReturnRows(sqlmock.NewRows([]string{"sql_id"}).
			AddRow("aaa111").
			AddRow("bbb222"))
	mock.ExpectQuery(regexp.QuoteMeta(queries.SQLMonitorReport)).
		WithArgs("aaa111").
		WillReturnError(errors.New("ORA-13716: Diagnostic Pack license required"))
	mock.ExpectQuery(regexp.QuoteMeta(queries.SQLMonitorReport)).
		WithArgs("bbb222").
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(`{
			"sql_monitor_report": {
				"plan_hash_value": 987654321,
				"plan": {
					"operation": [
						{"operation": "TABLE ACCESS", "options": "FULL",
						 "object": "ORDERS", "object_owner": "APP",
						 "bytes": 2147483648}
					]
				}
			}
		}`))

	reader := NewWindowReader(ds)
	records, err := reader.FullScanCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bbb222", records[0].SQLID)
	assert.Equal(t, "APP", records[0].ObjectOwner)
	assert.InDelta(t, 2048, records[0].SegmentMB, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
