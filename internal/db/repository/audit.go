// Package repository implements the domain repository interfaces over SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"querygate/internal/domain"
)

const defaultAuditPageSize = 50

// AuditRepo is the append-only audit ledger. Appends go through the
// single-connection write pool, which makes sequence assignment atomic
// across concurrent appenders; reads may use a separate read pool.
type AuditRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewAuditRepo creates an AuditRepo. readDB may equal writeDB.
func NewAuditRepo(writeDB, readDB *sql.DB) *AuditRepo {
	return &AuditRepo{writeDB: writeDB, readDB: readDB}
}

// Append inserts one audit record and returns its ledger-assigned sequence
// ID. The record is durably visible to List before Append returns.
func (r *AuditRepo) Append(ctx context.Context, e *domain.AuditEntry) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if e.ExecutedAt.IsZero() {
		// executed_at defaults to insertion time.
		res, err = r.writeDB.ExecContext(ctx, `
			INSERT INTO audit_log (
				principal_id, principal_role, action_type, dataset_name,
				instruction, generated_sql, outcome_status, affected_rows
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.PrincipalID, e.PrincipalRole, e.ActionType, e.DatasetName,
			e.Instruction, e.GeneratedSQL, e.OutcomeStatus, e.AffectedRows)
	} else {
		res, err = r.writeDB.ExecContext(ctx, `
			INSERT INTO audit_log (
				principal_id, principal_role, action_type, dataset_name,
				instruction, generated_sql, outcome_status, affected_rows, executed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.PrincipalID, e.PrincipalRole, e.ActionType, e.DatasetName,
			e.Instruction, e.GeneratedSQL, e.OutcomeStatus, e.AffectedRows, e.ExecutedAt)
	}
	if err != nil {
		return 0, fmt.Errorf("append audit record: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("audit sequence id: %w", err)
	}
	e.SequenceID = seq
	return seq, nil
}

// List returns a filtered page of audit records, newest first, plus the
// total count matching the filter.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	var conds []string
	var args []interface{}

	if filter.PrincipalID != nil {
		conds = append(conds, "principal_id = ?")
		args = append(args, *filter.PrincipalID)
	}
	if filter.ActionType != nil {
		conds = append(conds, "action_type = ?")
		args = append(args, *filter.ActionType)
	}
	if filter.Status != nil {
		conds = append(conds, "outcome_status = ?")
		args = append(args, *filter.Status)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.readDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit records: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, principal_id, principal_role, action_type, dataset_name,
		instruction, generated_sql, outcome_status, affected_rows, executed_at
		FROM audit_log` + where + ` ORDER BY executed_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.readDB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var dataset, instruction, generatedSQL sql.NullString
		if err := rows.Scan(&e.SequenceID, &e.PrincipalID, &e.PrincipalRole, &e.ActionType,
			&dataset, &instruction, &generatedSQL, &e.OutcomeStatus, &e.AffectedRows, &e.ExecutedAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit record: %w", err)
		}
		e.DatasetName = dataset.String
		e.Instruction = instruction.String
		e.GeneratedSQL = generatedSQL.String
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
