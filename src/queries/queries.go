// Package queries holds the SQL text against the Oracle dynamic performance
// and AWR views. Running these requires SELECT on GV$SESSION,
// V$SESSION_LONGOPS, GV$PX_SESSION, V$SQL_MONITOR and
// DBA_HIST_SYSMETRIC_SUMMARY.
package queries

const (
	// SessionSnapshot captures every non-idle session that is waiting on, or
	// named as the final blocker of, another session. Blockers themselves
	// may be idle and absent from the result; the wait-graph builder adds
	// placeholders for them.
	SessionSnapshot = `
        SELECT
            s.inst_id AS instance_id,
            s.sid AS session_id,
            s.serial# AS serial_number,
            s.username AS username,
            s.status AS status,
            s.program AS program,
            s.machine AS machine,
            s.sql_id AS sql_id,
            s.event AS wait_event,
            s.wait_class AS wait_class,
            s.seconds_in_wait AS seconds_in_wait,
            s.last_call_et AS last_call_elapsed_seconds,
            s.blocking_session AS blocking_session_id,
            s.blocking_instance AS blocking_instance_id,
            s.final_blocking_session AS final_blocking_session_id
        FROM gv$session s
        WHERE s.wait_class != 'Idle'
            AND (s.blocking_session IS NOT NULL OR s.final_blocking_session IS NOT NULL)
        ORDER BY s.seconds_in_wait DESC`

	// LongOperations follows V$SESSION_LONGOPS the way the monitoring view
	// is meant to be read: operations with known total work that have not
	// finished, slowest first. polled_at stamps the sample so repeated
	// fetches form a poll history.
	LongOperations = `
        SELECT
            l.sid AS session_id,
            l.opname AS opname,
            l.target AS target,
            l.sql_id AS sql_id,
            l.sofar AS sofar,
            l.totalwork AS totalwork,
            l.elapsed_seconds AS elapsed_seconds,
            l.time_remaining AS time_remaining_seconds,
            l.start_time AS start_time,
            l.last_update_time + NUMTODSINTERVAL(l.time_remaining, 'SECOND') AS estimated_completion,
            SYSDATE AS polled_at
        FROM v$session_longops l
        WHERE l.totalwork > 0
            AND l.sofar < l.totalwork
            AND l.start_time <= :1
        ORDER BY l.elapsed_seconds DESC`

	// MetricWindow reads AWR metric buckets overlapping the requested range.
	MetricWindow = `
        SELECT
            m.begin_time AS begin_time,
            m.end_time AS end_time,
            m.metric_name AS metric_name,
            m.average AS value
        FROM dba_hist_sysmetric_summary m
        WHERE m.metric_name = :1
            AND m.end_time >= :2
            AND m.begin_time <= :3
        ORDER BY m.begin_time`

	// ParallelismSnapshot aggregates PX server allocation per query
	// coordinator. Sessions where sid = qcsid are the coordinators
	// themselves and do not count as servers.
	ParallelismSnapshot = `
        SELECT
            s.sql_id AS sql_id,
            NVL(MAX(px.req_degree), 0) AS requested_dop,
            NVL(MAX(px.degree), 0) AS actual_dop,
            px.qcsid AS qc_session_id,
            COUNT(CASE WHEN px.sid != px.qcsid THEN 1 END) AS px_server_count,
            SYSDATE AS polled_at
        FROM gv$px_session px
        JOIN gv$session s
            ON s.sid = px.qcsid
            AND s.inst_id = px.inst_id
        WHERE s.sql_id IS NOT NULL
        GROUP BY s.sql_id, px.qcsid`

	// MonitoredSQLIDs lists statements with a SQL Monitor entry; their plan
	// detail is fetched one report at a time via SQLMonitorReport.
	MonitoredSQLIDs = `
        SELECT DISTINCT m.sql_id AS sql_id
        FROM v$sql_monitor m
        WHERE m.sql_text IS NOT NULL
        ORDER BY m.sql_id`

	// SQLMonitorReport renders one monitored statement as a JSON report,
	// including its plan steps and segment sizes.
	SQLMonitorReport = `
        SELECT DBMS_SQL_MONITOR.REPORT_SQL_MONITOR(
            sql_id => :1,
            type => 'JSON',
            report_level => 'ALL') AS report
        FROM dual`

	// Ping is used by the health endpoint.
	Ping = `SELECT 1 FROM dual`
)
