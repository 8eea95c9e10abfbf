package oracle

import (
	"context"
	"fmt"

	"github.com/matz-e/oci-db-doctor/src/diagnostics/models"
	"github.com/matz-e/oci-db-doctor/src/queries"
)

// SessionReader is the Session Snapshot Reader: it returns the point-in-time
// GV$SESSION rows the wait-graph builder consumes.
type SessionReader struct {
	db DataSource
}

func NewSessionReader(db DataSource) *SessionReader {
	return &SessionReader{db: db}
}

// SessionSnapshot fetches the current blocked and blocking session rows.
// Rows are returned as fetched; validation of blocker references happens in
// the engine so dirty snapshots degrade instead of failing.
func (r *SessionReader) SessionSnapshot(ctx context.Context) ([]models.SessionSnapshotRow, error) {
	rows, err := CollectRows[models.SessionSnapshotRow](ctx, r.db, queries.SessionSnapshot)
	if err != nil {
		return nil, fmt.Errorf("querying gv$session: %w", err)
	}
	return rows, nil
}
