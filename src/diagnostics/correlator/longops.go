package correlator

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// longOpGroup is the poll history of one operation within a single dataset.
type longOpGroup struct {
	sessionID int
	opName    string
	polls     []models.LongOperationRecord
}

// LongOperations classifies long-running operations whose lifetime overlaps
// [t0, t1]. Severity escalates with elapsed time versus estimated remaining
// time; a stall (no forward progress across consecutive polls) is a critical
// signal regardless of how fast the operation looked before.
func LongOperations(t0, t1 time.Time, records []models.LongOperationRecord, opts models.Options) []models.DiagnosticFinding {
	if len(records) == 0 {
		return []models.DiagnosticFinding{noDataFinding(models.CategoryLongOp, "long operation", t0, t1)}
	}

	dropped := 0
	groups := make(map[string]*longOpGroup)
	order := make([]string, 0)

	for _, rec := range records {
		if rec.SoFar < 0 || rec.TotalWork < rec.SoFar {
			log.WithFields(log.Fields{
				"session": rec.SessionID,
				"opname":  rec.OpName,
				"sofar":   rec.SoFar,
				"total":   rec.TotalWork,
			}).Warn("dropping malformed long operation record")
			dropped++
			continue
		}
		if !overlapsWindow(rec, t0, t1) {
			continue
		}

		key := fmt.Sprintf("%d/%s", rec.SessionID, rec.OpName)
		g, ok := groups[key]
		if !ok {
			g = &longOpGroup{sessionID: rec.SessionID, opName: rec.OpName}
			groups[key] = g
			order = append(order, key)
		}
		g.polls = append(g.polls, rec)
	}
	sort.Strings(order)

	findings := make([]models.DiagnosticFinding, 0, len(order))
	for _, key := range order {
		g := groups[key]
		sort.Slice(g.polls, func(i, j int) bool { return g.polls[i].PolledAt.Before(g.polls[j].PolledAt) })
		findings = append(findings, classifyLongOp(g, dropped, opts))
	}

	if len(findings) == 0 {
		f := noDataFinding(models.CategoryLongOp, "long operation", t0, t1)
		if dropped > 0 {
			f.Metadata.DroppedRows = dropped
		}
		return []models.DiagnosticFinding{f}
	}
	return findings
}

func overlapsWindow(rec models.LongOperationRecord, t0, t1 time.Time) bool {
	if rec.StartTime.After(t1) {
		return false
	}
	// An operation without a completion estimate counts as still running.
	if rec.EstimatedCompletion == nil {
		return true
	}
	return !rec.EstimatedCompletion.Before(t0)
}

func classifyLongOp(g *longOpGroup, dropped int, opts models.Options) models.DiagnosticFinding {
	latest := g.polls[len(g.polls)-1]
	severity := models.SeverityInfo
	reason := "progressing"

	ratio, known := latest.ProgressRatio()
	progress := "unknown"
	if known {
		progress = fmt.Sprintf("%.1f%%", ratio*100)
	}

	// Elapsed versus estimated remaining time.
	if latest.TimeRemainingSec > 0 {
		elapsed := float64(latest.ElapsedSeconds)
		remaining := float64(latest.TimeRemainingSec)
		if elapsed > opts.LongOpCriticalMultiple*remaining {
			severity = models.SeverityCritical
			reason = fmt.Sprintf("elapsed %ds exceeds %.1fx the estimated remaining %ds", latest.ElapsedSeconds, opts.LongOpCriticalMultiple, latest.TimeRemainingSec)
		} else if elapsed > opts.LongOpWarnMultiple*remaining {
			severity = models.SeverityWarning
			reason = fmt.Sprintf("elapsed %ds exceeds %.1fx the estimated remaining %ds", latest.ElapsedSeconds, opts.LongOpWarnMultiple, latest.TimeRemainingSec)
		}
	}

	// A stall across consecutive polls trumps slow-but-moving progress.
	if stalled := stallCount(g.polls); latest.SoFar < latest.TotalWork && stalled >= opts.LongOpStallPolls {
		severity = models.SeverityCritical
		reason = fmt.Sprintf("no forward progress across %d consecutive polls", stalled)
	}

	evidence := make([]any, 0, len(g.polls))
	for _, p := range g.polls {
		evidence = append(evidence, p)
	}
	finding := models.DiagnosticFinding{
		Category: models.CategoryLongOp,
		Severity: severity,
		Summary: fmt.Sprintf("session %d %q on %s at %s progress: %s",
			g.sessionID, g.opName, targetOf(latest), progress, reason),
		Evidence: evidence,
	}
	if dropped > 0 {
		finding.Metadata = &models.FindingMetadata{DroppedRows: dropped}
	}
	return finding
}

// stallCount returns the length of the trailing run of polls whose sofar is
// identical.
func stallCount(polls []models.LongOperationRecord) int {
	n := 1
	for i := len(polls) - 1; i > 0; i-- {
		if polls[i].SoFar != polls[i-1].SoFar {
			break
		}
		n++
	}
	return n
}

func targetOf(rec models.LongOperationRecord) string {
	if rec.Target != nil && *rec.Target != "" {
		return *rec.Target
	}
	return "unknown target"
}
