package correlator

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// Parallelism flags statements whose granted degree of parallelism fell short
// of what was requested, or that were expected to run parallel but got no PX
// servers at all. A downgrade observed on enough consecutive polls of the
// same sql_id escalates to critical.
func Parallelism(records []models.ParallelismRecord, opts models.Options) []models.DiagnosticFinding {
	dropped := 0
	groups := make(map[string][]models.ParallelismRecord)
	order := make([]string, 0)

	for _, rec := range records {
		if rec.RequestedDOP < 0 || rec.ActualDOP < 0 || rec.ActualDOP > rec.RequestedDOP {
			log.WithFields(log.Fields{
				"sql_id":    rec.SQLID,
				"requested": rec.RequestedDOP,
				"actual":    rec.ActualDOP,
			}).Warn("dropping malformed parallelism record")
			dropped++
			continue
		}
		if _, ok := groups[rec.SQLID]; !ok {
			order = append(order, rec.SQLID)
		}
		groups[rec.SQLID] = append(groups[rec.SQLID], rec)
	}
	sort.Strings(order)

	findings := make([]models.DiagnosticFinding, 0)
	for _, sqlID := range order {
		polls := groups[sqlID]
		sort.Slice(polls, func(i, j int) bool { return polls[i].PolledAt.Before(polls[j].PolledAt) })

		latest := polls[len(polls)-1]
		downgraded := isDowngraded(latest, opts)
		starved := latest.PXServerCount == 0 && latest.RequestedDOP > 1
		if !downgraded && !starved {
			continue
		}

		persist := persistCount(polls, opts)
		severity := models.SeverityWarning
		if persist >= opts.ParallelismPersistPolls {
			severity = models.SeverityCritical
		}

		summary := fmt.Sprintf("sql_id %s granted DOP %d of requested %d", sqlID, latest.ActualDOP, latest.RequestedDOP)
		if starved {
			summary = fmt.Sprintf("sql_id %s expected parallel (requested DOP %d) but has no PX servers", sqlID, latest.RequestedDOP)
		}
		if severity == models.SeverityCritical {
			summary += fmt.Sprintf(", persisting across %d polls", persist)
		}

		evidence := make([]any, 0, len(polls))
		for _, p := range polls {
			evidence = append(evidence, p)
		}
		finding := models.DiagnosticFinding{
			Category: models.CategoryParallelism,
			Severity: severity,
			Summary:  summary,
			Evidence: evidence,
		}
		if dropped > 0 {
			finding.Metadata = &models.FindingMetadata{DroppedRows: dropped}
		}
		findings = append(findings, finding)
	}

	return findings
}

func isDowngraded(rec models.ParallelismRecord, opts models.Options) bool {
	return rec.RequestedDOP-rec.ActualDOP > opts.DOPTolerance
}

// persistCount returns the length of the trailing run of polls that all show
// a downgrade or PX starvation.
func persistCount(polls []models.ParallelismRecord, opts models.Options) int {
	n := 0
	for i := len(polls) - 1; i >= 0; i-- {
		starved := polls[i].PXServerCount == 0 && polls[i].RequestedDOP > 1
		if !isDowngraded(polls[i], opts) && !starved {
			break
		}
		n++
	}
	return n
}
