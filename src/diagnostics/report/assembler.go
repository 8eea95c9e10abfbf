// Package report turns resolver and correlator output into one ordered
// finding sequence.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// BlockingFindings converts blocker reports into findings. Cycles and deep
// chains are critical, every other chain is a warning; incomplete resolver
// output is surfaced as metadata, never dropped.
func BlockingFindings(reports []models.BlockerReport, rows []models.SessionSnapshotRow, droppedRows int, opts models.Options) []models.DiagnosticFinding {
	byKey := make(map[models.SessionKey]models.SessionSnapshotRow, len(rows))
	for _, row := range rows {
		byKey[row.Key()] = row
	}

	findings := make([]models.DiagnosticFinding, 0, len(reports))
	for _, r := range reports {
		severity := models.SeverityWarning
		var summary string
		switch {
		case r.IsCycle:
			severity = models.SeverityCritical
			summary = fmt.Sprintf("deadlock candidate: sessions %s are mutually blocking", joinChain(r.Chain))
		case r.Depth >= opts.BlockingCriticalDepth:
			severity = models.SeverityCritical
			summary = fmt.Sprintf("blocking chain of depth %d rooted at session %s", r.Depth, r.RootSession)
		default:
			summary = fmt.Sprintf("session %s blocked by root session %s (depth %d)", r.Chain[0], r.RootSession, r.Depth)
		}

		evidence := []any{r}
		for _, key := range r.Chain {
			if row, ok := byKey[key]; ok {
				evidence = append(evidence, row)
			}
		}

		finding := models.DiagnosticFinding{
			Category: models.CategoryBlocking,
			Severity: severity,
			Summary:  summary,
			Evidence: evidence,
		}
		if r.Truncated || r.RootUnknown || droppedRows > 0 {
			finding.Metadata = &models.FindingMetadata{
				Incomplete:  r.Truncated || r.RootUnknown,
				DroppedRows: droppedRows,
			}
			if r.RootUnknown {
				finding.Metadata.Notes = append(finding.Metadata.Notes, "root blocker detail unknown, session missing from snapshot")
			}
			if r.Truncated {
				finding.Metadata.Notes = append(finding.Metadata.Notes, "chain truncated before reaching a resolvable root")
			}
		}
		findings = append(findings, finding)
	}
	return findings
}

// Assemble merges finding groups into one sequence ordered by severity
// descending, then category priority, then evidence count descending. Pure
// aggregation: nothing is dropped and the result is never nil.
func Assemble(groups ...[]models.DiagnosticFinding) []models.DiagnosticFinding {
	merged := make([]models.DiagnosticFinding, 0)
	for _, group := range groups {
		merged = append(merged, group...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Severity.Rank() != merged[j].Severity.Rank() {
			return merged[i].Severity.Rank() > merged[j].Severity.Rank()
		}
		if merged[i].Category.Priority() != merged[j].Category.Priority() {
			return merged[i].Category.Priority() < merged[j].Category.Priority()
		}
		return len(merged[i].Evidence) > len(merged[j].Evidence)
	})
	return merged
}

func joinChain(chain []models.SessionKey) string {
	parts := make([]string, 0, len(chain))
	for _, k := range chain {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, " -> ")
}
