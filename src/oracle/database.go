// Package oracle implements the data-access collaborators of the diagnostic
// engine: a session snapshot reader and a metric window reader over the
// Oracle dynamic performance and AWR views.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2"
	log "github.com/sirupsen/logrus"
)

// QueryTimeout bounds every fetch against the performance views. Diagnostic
// queries that take longer than this are part of the problem, not the answer.
const QueryTimeout = 5 * time.Second

// DataSource is the narrow query surface the readers consume, so tests can
// substitute sqlmock for a live database.
type DataSource interface {
	Close()
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

type database struct {
	source *sqlx.DB
}

// OpenSQLXDB connects to Oracle through the pure-Go driver. The DSN carries
// all connection and credential state; nothing module-level is retained.
func OpenSQLXDB(dsn string) (DataSource, error) {
	source, err := sqlx.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening DSN: %w", err)
	}
	return &database{source: source}, nil
}

// WrapDB adapts an existing sqlx handle, used by tests and by callers that
// manage their own pool.
func WrapDB(db *sqlx.DB) DataSource {
	return &database{source: db}
}

func (db *database) Close() {
	db.source.Close()
}

func (db *database) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return db.source.QueryxContext(ctx, query, args...)
}

// CollectRows runs a query and scans every row into T by column name.
func CollectRows[T any](ctx context.Context, db DataSource, query string, args ...interface{}) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collected []T
	for rows.Next() {
		var row T
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"rows": len(collected),
		"took": time.Since(start),
	}).Debug("collected rows")
	return collected, nil
}
