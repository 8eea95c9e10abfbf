package models

import (
	"fmt"
	"time"
)

// Severity classifies how urgent a finding is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank maps a severity to an integer usable for ordering, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Category identifies which diagnostic produced a finding.
type Category string

const (
	CategoryBlocking    Category = "blocking"
	CategoryCPU         Category = "cpu"
	CategoryLongOp      Category = "long_op"
	CategoryParallelism Category = "parallelism"
	CategoryFullScan    Category = "full_scan"
)

// Priority orders categories for equal-severity findings, lower comes first.
func (c Category) Priority() int {
	switch c {
	case CategoryBlocking:
		return 0
	case CategoryCPU:
		return 1
	case CategoryLongOp:
		return 2
	case CategoryParallelism:
		return 3
	case CategoryFullScan:
		return 4
	}
	return 5
}

// SessionKey identifies a session across RAC instances. GV$SESSION SIDs are
// only unique per instance, so every session reference carries both parts.
type SessionKey struct {
	InstanceID int `json:"instance_id"`
	SessionID  int `json:"session_id"`
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d", k.InstanceID, k.SessionID)
}

// Less orders keys by instance then session id, for deterministic output.
func (k SessionKey) Less(other SessionKey) bool {
	if k.InstanceID != other.InstanceID {
		return k.InstanceID < other.InstanceID
	}
	return k.SessionID < other.SessionID
}

// SessionSnapshotRow is one GV$SESSION row at a snapshot moment. Nullable
// columns map to pointers so NULLs survive the scan without sentinel values.
type SessionSnapshotRow struct {
	InstanceID         int     `db:"instance_id" json:"instance_id"`
	SessionID          int     `db:"session_id" json:"session_id"`
	SerialNumber       int     `db:"serial_number" json:"serial_number"`
	Username           *string `db:"username" json:"username"`
	Status             string  `db:"status" json:"status"`
	Program            *string `db:"program" json:"program"`
	Machine            *string `db:"machine" json:"machine"`
	SQLID              *string `db:"sql_id" json:"sql_id"`
	WaitEvent          string  `db:"wait_event" json:"wait_event"`
	WaitClass          *string `db:"wait_class" json:"wait_class"`
	SecondsInWait      int64   `db:"seconds_in_wait" json:"seconds_in_wait"`
	LastCallElapsedSec int64   `db:"last_call_elapsed_seconds" json:"last_call_elapsed_seconds"`
	BlockingSessionID  *int64  `db:"blocking_session_id" json:"blocking_session_id"`
	BlockingInstanceID *int64  `db:"blocking_instance_id" json:"blocking_instance_id"`
	FinalBlockingID    *int64  `db:"final_blocking_session_id" json:"final_blocking_session_id"`
}

// Key returns the qualified identity of the session described by the row.
func (r SessionSnapshotRow) Key() SessionKey {
	return SessionKey{InstanceID: r.InstanceID, SessionID: r.SessionID}
}

// BlockerReport describes one blocking chain from a blocked leaf session up
// to its root blocker. For cycles there is no root in the classic sense; the
// chain lists the mutually blocking members and RootSession is the smallest
// member key.
type BlockerReport struct {
	RootSession SessionKey   `json:"root_session"`
	Chain       []SessionKey `json:"chain"`
	Depth       int          `json:"depth"`
	IsCycle     bool         `json:"is_cycle"`
	// RootUnknown is set when the root is a placeholder node whose own
	// session row was not part of the snapshot.
	RootUnknown bool `json:"root_unknown,omitempty"`
	// Truncated is set when the chain could not be followed to a real root,
	// either because a blocker's instance is unknown or because the chain
	// feeds into a cycle that is reported separately.
	Truncated bool `json:"truncated,omitempty"`
}

// LongOperationRecord is one V$SESSION_LONGOPS observation. PolledAt is the
// time the reader sampled the view; repeated observations of the same
// session/opname within one dataset form the poll history used for stall
// detection.
type LongOperationRecord struct {
	SessionID           int        `db:"session_id" json:"session_id"`
	OpName              string     `db:"opname" json:"opname"`
	Target              *string    `db:"target" json:"target"`
	SQLID               *string    `db:"sql_id" json:"sql_id"`
	SoFar               int64      `db:"sofar" json:"sofar"`
	TotalWork           int64      `db:"totalwork" json:"totalwork"`
	ElapsedSeconds      int64      `db:"elapsed_seconds" json:"elapsed_seconds"`
	TimeRemainingSec    int64      `db:"time_remaining_seconds" json:"time_remaining_seconds"`
	StartTime           time.Time  `db:"start_time" json:"start_time"`
	EstimatedCompletion *time.Time `db:"estimated_completion" json:"estimated_completion"`
	PolledAt            time.Time  `db:"polled_at" json:"polled_at"`
}

// ProgressRatio reports sofar/totalwork. The second return is false when
// totalwork is zero and the ratio is undefined.
func (r LongOperationRecord) ProgressRatio() (float64, bool) {
	if r.TotalWork <= 0 {
		return 0, false
	}
	return float64(r.SoFar) / float64(r.TotalWork), true
}

// ParallelismRecord is one observation of a parallel query coordinator and
// its PX server allocation.
type ParallelismRecord struct {
	SQLID         string    `db:"sql_id" json:"sql_id"`
	RequestedDOP  int       `db:"requested_dop" json:"requested_dop"`
	ActualDOP     int       `db:"actual_dop" json:"actual_dop"`
	QCSessionID   int       `db:"qc_session_id" json:"qc_session_id"`
	PXServerCount int       `db:"px_server_count" json:"px_server_count"`
	PolledAt      time.Time `db:"polled_at" json:"polled_at"`
}

// MetricWindowPoint is one AWR metric bucket. Buckets for a given metric are
// non-overlapping and contiguous over the observed window.
type MetricWindowPoint struct {
	BeginTime  time.Time `db:"begin_time" json:"begin_time"`
	EndTime    time.Time `db:"end_time" json:"end_time"`
	MetricName string    `db:"metric_name" json:"metric_name"`
	Value      float64   `db:"value" json:"value"`
}

// Overlaps reports whether the bucket intersects the closed window [t0, t1].
func (p MetricWindowPoint) Overlaps(t0, t1 time.Time) bool {
	return !p.EndTime.Before(t0) && !p.BeginTime.After(t1)
}

// FullScanRecord is one full-table-scan plan step observed for a monitored
// SQL statement.
type FullScanRecord struct {
	SQLID          string  `db:"sql_id" json:"sql_id"`
	PlanHashValue  int64   `db:"plan_hash_value" json:"plan_hash_value"`
	ObjectOwner    string  `db:"object_owner" json:"object_owner"`
	ObjectName     string  `db:"object_name" json:"object_name"`
	Operation      string  `db:"operation" json:"operation"`
	SegmentMB      float64 `db:"segment_mb" json:"segment_mb"`
	ParallelDegree int     `db:"parallel_degree" json:"parallel_degree"`
}

// FindingMetadata carries data-quality markers so degraded input is surfaced
// instead of silently shortening the report.
type FindingMetadata struct {
	Incomplete  bool     `json:"incomplete,omitempty"`
	DroppedRows int      `json:"dropped_rows,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// DiagnosticFinding is one classified result. Findings are immutable once
// assembled; Evidence holds the raw records that support the classification.
type DiagnosticFinding struct {
	Category Category         `json:"category"`
	Severity Severity         `json:"severity"`
	Summary  string           `json:"summary"`
	Evidence []any            `json:"evidence"`
	Metadata *FindingMetadata `json:"metadata,omitempty"`
}

// DiagnosticReport is the assembled output of a full diagnostic invocation.
type DiagnosticReport struct {
	ReportID    string              `json:"report_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	WindowStart time.Time           `json:"window_start"`
	WindowEnd   time.Time           `json:"window_end"`
	Findings    []DiagnosticFinding `json:"findings"`
}
