package models

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks threshold values that are out of range. This is the
// only error class that aborts a diagnostic call instead of being absorbed
// into finding metadata.
var ErrConfiguration = errors.New("invalid diagnostics configuration")

// Options holds every classification threshold the correlators and the
// blocker resolver consume. All fields are plain data so a boundary layer can
// load them from YAML or flags without the engine knowing about either.
type Options struct {
	// CPUMetricName is the AWR metric evaluated for saturation windows.
	CPUMetricName string `yaml:"cpu_metric_name"`
	// CPUThresholdPct is the CPU% above which a bucket counts as saturated.
	CPUThresholdPct float64 `yaml:"cpu_threshold_pct"`
	// CPUCriticalPct escalates a saturation run to critical when any bucket
	// in the run reaches this value.
	CPUCriticalPct float64 `yaml:"cpu_critical_pct"`
	// CPUMinBuckets is the minimum number of saturated buckets a run needs
	// before it is reported at all.
	CPUMinBuckets int `yaml:"cpu_min_buckets"`
	// CPUGapToleranceBuckets merges two saturation runs when the number of
	// non-saturated buckets between them is at or below this value.
	CPUGapToleranceBuckets int `yaml:"cpu_gap_tolerance_buckets"`

	// LongOpStallPolls is the number of consecutive polls showing identical
	// sofar before a long operation is reported critical as stalled.
	LongOpStallPolls int `yaml:"long_op_stall_polls"`
	// LongOpWarnMultiple raises a long operation to warning once elapsed
	// time exceeds this multiple of the estimated remaining time.
	LongOpWarnMultiple float64 `yaml:"long_op_warn_multiple"`
	// LongOpCriticalMultiple raises a long operation to critical once
	// elapsed time exceeds this multiple of the estimated remaining time.
	LongOpCriticalMultiple float64 `yaml:"long_op_critical_multiple"`

	// DOPTolerance is how far actual DOP may fall below requested DOP before
	// the downgrade is flagged.
	DOPTolerance int `yaml:"dop_tolerance"`
	// ParallelismPersistPolls escalates a DOP downgrade to critical when the
	// same sql_id shows the mismatch on this many consecutive polls.
	ParallelismPersistPolls int `yaml:"parallelism_persist_polls"`

	// FullScanMinTableMB is the segment size below which an unparallelized
	// full scan is considered harmless and not reported.
	FullScanMinTableMB float64 `yaml:"full_scan_min_table_mb"`

	// BlockingCriticalDepth escalates a blocking chain to critical when its
	// depth reaches this value. Cycles are always critical.
	BlockingCriticalDepth int `yaml:"blocking_critical_depth"`
}

// DefaultOptions returns the shipped thresholds. Every value can be
// overridden per invocation.
func DefaultOptions() Options {
	return Options{
		CPUMetricName:           "Host CPU Utilization (%)",
		CPUThresholdPct:         90,
		CPUCriticalPct:          98,
		CPUMinBuckets:           2,
		CPUGapToleranceBuckets:  1,
		LongOpStallPolls:        2,
		LongOpWarnMultiple:      2.0,
		LongOpCriticalMultiple:  4.0,
		DOPTolerance:            0,
		ParallelismPersistPolls: 3,
		FullScanMinTableMB:      1024,
		BlockingCriticalDepth:   3,
	}
}

// Validate fails fast on out-of-range thresholds with a message naming the
// offending field.
func (o Options) Validate() error {
	if o.CPUMetricName == "" {
		return fmt.Errorf("%w: cpu_metric_name must not be empty", ErrConfiguration)
	}
	if o.CPUThresholdPct <= 0 || o.CPUThresholdPct > 100 {
		return fmt.Errorf("%w: cpu_threshold_pct %.1f outside (0, 100]", ErrConfiguration, o.CPUThresholdPct)
	}
	if o.CPUCriticalPct < o.CPUThresholdPct || o.CPUCriticalPct > 100 {
		return fmt.Errorf("%w: cpu_critical_pct %.1f outside [cpu_threshold_pct, 100]", ErrConfiguration, o.CPUCriticalPct)
	}
	if o.CPUMinBuckets < 1 {
		return fmt.Errorf("%w: cpu_min_buckets %d must be at least 1", ErrConfiguration, o.CPUMinBuckets)
	}
	if o.CPUGapToleranceBuckets < 0 {
		return fmt.Errorf("%w: cpu_gap_tolerance_buckets %d must not be negative", ErrConfiguration, o.CPUGapToleranceBuckets)
	}
	if o.LongOpStallPolls < 2 {
		return fmt.Errorf("%w: long_op_stall_polls %d must be at least 2", ErrConfiguration, o.LongOpStallPolls)
	}
	if o.LongOpWarnMultiple <= 0 {
		return fmt.Errorf("%w: long_op_warn_multiple %.2f must be positive", ErrConfiguration, o.LongOpWarnMultiple)
	}
	if o.LongOpCriticalMultiple < o.LongOpWarnMultiple {
		return fmt.Errorf("%w: long_op_critical_multiple %.2f below long_op_warn_multiple", ErrConfiguration, o.LongOpCriticalMultiple)
	}
	if o.DOPTolerance < 0 {
		return fmt.Errorf("%w: dop_tolerance %d must not be negative", ErrConfiguration, o.DOPTolerance)
	}
	if o.ParallelismPersistPolls < 2 {
		return fmt.Errorf("%w: parallelism_persist_polls %d must be at least 2", ErrConfiguration, o.ParallelismPersistPolls)
	}
	if o.FullScanMinTableMB < 0 {
		return fmt.Errorf("%w: full_scan_min_table_mb %.1f must not be negative", ErrConfiguration, o.FullScanMinTableMB)
	}
	if o.BlockingCriticalDepth < 1 {
		return fmt.Errorf("%w: blocking_critical_depth %d must be at least 1", ErrConfiguration, o.BlockingCriticalDepth)
	}
	return nil
}
