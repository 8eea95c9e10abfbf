package correlator

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// CPUSaturation classifies sustained CPU pressure inside [t0, t1]. One
// finding is emitted per contiguous run of saturated buckets, not per bucket;
// runs separated by at most CPUGapToleranceBuckets cool buckets are merged.
func CPUSaturation(t0, t1 time.Time, points []models.MetricWindowPoint, opts models.Options) []models.DiagnosticFinding {
	buckets := make([]models.MetricWindowPoint, 0, len(points))
	for _, p := range points {
		if p.MetricName == opts.CPUMetricName && p.Overlaps(t0, t1) {
			buckets = append(buckets, p)
		}
	}
	if len(buckets) == 0 {
		return []models.DiagnosticFinding{noDataFinding(models.CategoryCPU, "CPU metric", t0, t1)}
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].BeginTime.Before(buckets[j].BeginTime) })

	findings := make([]models.DiagnosticFinding, 0)
	for _, run := range saturationRuns(buckets, opts) {
		if run.hotCount < opts.CPUMinBuckets {
			continue
		}
		severity := models.SeverityWarning
		if run.peak >= opts.CPUCriticalPct {
			severity = models.SeverityCritical
		}

		evidence := make([]any, 0, len(run.buckets))
		for _, b := range run.buckets {
			evidence = append(evidence, b)
		}
		findings = append(findings, models.DiagnosticFinding{
			Category: models.CategoryCPU,
			Severity: severity,
			Summary: fmt.Sprintf("CPU above %.0f%% in %d of %d buckets between %s and %s (peak %.1f%%)",
				opts.CPUThresholdPct, run.hotCount, len(run.buckets),
				run.buckets[0].BeginTime.Format(time.RFC3339),
				run.buckets[len(run.buckets)-1].EndTime.Format(time.RFC3339),
				run.peak),
			Evidence: evidence,
		})
	}

	log.WithFields(log.Fields{
		"buckets": len(buckets),
		"runs":    len(findings),
	}).Debug("cpu saturation correlation complete")
	return findings
}

type saturationRun struct {
	buckets  []models.MetricWindowPoint
	hotCount int
	peak     float64
}

// saturationRuns groups saturated buckets into contiguous runs, absorbing
// cool gaps up to the configured tolerance when another saturated bucket
// follows.
func saturationRuns(buckets []models.MetricWindowPoint, opts models.Options) []saturationRun {
	runs := make([]saturationRun, 0)
	var current *saturationRun
	gap := 0

	flush := func() {
		if current != nil {
			runs = append(runs, *current)
			current = nil
		}
		gap = 0
	}

	for _, b := range buckets {
		hot := b.Value >= opts.CPUThresholdPct
		switch {
		case hot && current == nil:
			current = &saturationRun{buckets: []models.MetricWindowPoint{b}, hotCount: 1, peak: b.Value}
		case hot:
			// Cool buckets sitting inside the tolerance become part of the
			// run once saturation resumes.
			current.hotCount++
			if b.Value > current.peak {
				current.peak = b.Value
			}
			current.buckets = append(current.buckets, b)
			gap = 0
		case current != nil:
			gap++
			if gap > opts.CPUGapToleranceBuckets {
				// The gap buckets were provisionally appended; trim them
				// before closing the run.
				current.buckets = current.buckets[:len(current.buckets)-gap+1]
				flush()
				continue
			}
			current.buckets = append(current.buckets, b)
		}
	}
	if current != nil {
		// Trim any trailing cool buckets.
		current.buckets = current.buckets[:len(current.buckets)-gap]
		flush()
	}
	return runs
}
