// Package correlator aligns time-windowed signals (AWR metric buckets,
// long-operation progress, parallel-execution snapshots, plan steps) to a
// requested incident window and classifies them into findings.
package correlator

import (
	"fmt"
	"time"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
)

// noDataFinding reports an empty dataset for a requested window as an info
// finding instead of an error.
func noDataFinding(category models.Category, what string, t0, t1 time.Time) models.DiagnosticFinding {
	return models.DiagnosticFinding{
		Category: category,
		Severity: models.SeverityInfo,
		Summary:  fmt.Sprintf("no %s data available between %s and %s", what, t0.Format(time.RFC3339), t1.Format(time.RFC3339)),
		Evidence: []any{},
		Metadata: &models.FindingMetadata{Incomplete: true, Notes: []string{"reader returned no rows for the requested window"}},
	}
}
