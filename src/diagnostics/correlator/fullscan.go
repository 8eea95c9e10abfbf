package correlator

import (
	"fmt"
	"sort"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// FullScans flags full-table-scan plan steps that run serially against
// segments above the configured size threshold. Small tables scan fast and
// are ignored; parallel scans are presumed intentional.
func FullScans(records []models.FullScanRecord, opts models.Options) []models.DiagnosticFinding {
	flagged := make([]models.FullScanRecord, 0)
	for _, rec := range records {
		if rec.ParallelDegree > 1 {
			continue
		}
		if rec.SegmentMB < opts.FullScanMinTableMB {
			continue
		}
		flagged = append(flagged, rec)
	}

	sort.Slice(flagged, func(i, j int) bool {
		if flagged[i].SegmentMB != flagged[j].SegmentMB {
			return flagged[i].SegmentMB > flagged[j].SegmentMB
		}
		return flagged[i].SQLID < flagged[j].SQLID
	})

	findings := make([]models.DiagnosticFinding, 0, len(flagged))
	for _, rec := range flagged {
		findings = append(findings, models.DiagnosticFinding{
			Category: models.CategoryFullScan,
			Severity: models.SeverityWarning,
			Summary: fmt.Sprintf("sql_id %s scans %s.%s (%.0f MB) serially via %s",
				rec.SQLID, rec.ObjectOwner, rec.ObjectName, rec.SegmentMB, rec.Operation),
			Evidence: []any{rec},
		})
	}
	return findings
}
