// Package engine executes governed SQL statements against a SQLite dataset.
package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"querygate/internal/db"
	"querygate/internal/domain"
)

// SQLiteEngine is the dataset storage engine. It implements
// domain.DatasetEngine. Statements are serialized: the pool holds a single
// connection and a mutex guards Execute, so two sessions can never
// interleave writes and affected-row counts stay accurate.
type SQLiteEngine struct {
	pool   *sql.DB
	name   string
	logger *slog.Logger

	mu sync.Mutex
}

// Open opens the dataset file with the hardened SQLite settings.
func Open(path string, logger *slog.Logger) (*SQLiteEngine, error) {
	pool, err := db.OpenSQLite(path, "write", 0)
	if err != nil {
		return nil, err
	}
	return &SQLiteEngine{
		pool:   pool,
		name:   filepath.Base(path),
		logger: logger,
	}, nil
}

// Name identifies the dataset in audit records.
func (e *SQLiteEngine) Name() string { return e.name }

// Close releases the underlying connection pool.
func (e *SQLiteEngine) Close() error { return e.pool.Close() }

// Execute runs one statement. SELECT-class statements return a row set with
// AffectedRows = rows returned; everything else commits and returns the
// engine's reported affected-row count. Engine-level failures are returned
// as ExecutionError with the raw engine message; nothing is retried.
func (e *SQLiteEngine) Execute(ctx context.Context, sqlStatement string) (*domain.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if domain.LeadingCommand(sqlStatement) == domain.CommandSelect {
		rows, err := e.pool.QueryContext(ctx, sqlStatement)
		if err != nil {
			return nil, domain.ErrExecution("%v", err)
		}
		defer rows.Close() //nolint:errcheck

		result, err := scanRows(rows)
		if err != nil {
			return nil, domain.ErrExecution("%v", err)
		}
		e.logger.Debug("query executed", "dataset", e.name, "rows", result.AffectedRows)
		return result, nil
	}

	res, err := e.pool.ExecContext(ctx, sqlStatement)
	if err != nil {
		return nil, domain.ErrExecution("%v", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, domain.ErrExecution("%v", err)
	}
	e.logger.Debug("statement executed", "dataset", e.name, "affected", affected)
	return &domain.ExecResult{AffectedRows: affected}, nil
}

// Schema returns the dataset's table DDL from sqlite_master, used as the
// translator's schema context.
func (e *SQLiteEngine) Schema(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.pool.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND sql IS NOT NULL`)
	if err != nil {
		return "", domain.ErrExecution("read schema: %v", err)
	}
	defer rows.Close() //nolint:errcheck

	var ddls []string
	for rows.Next() {
		var ddl string
		if err := rows.Scan(&ddl); err != nil {
			return "", domain.ErrExecution("read schema: %v", err)
		}
		ddls = append(ddls, ddl)
	}
	if err := rows.Err(); err != nil {
		return "", domain.ErrExecution("read schema: %v", err)
	}
	return strings.Join(ddls, "\n\n"), nil
}

func scanRows(rows *sql.Rows) (*domain.ExecResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		// Convert byte slices to strings for JSON serialization.
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.ExecResult{
		Columns:      cols,
		Rows:         resultRows,
		AffectedRows: int64(len(resultRows)),
	}, nil
}
