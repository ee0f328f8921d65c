package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"querygate/internal/domain"
)

// PrincipalRepo reads the seeded employee directory: principals, their
// roles, and each role's permitted command kinds.
type PrincipalRepo struct {
	pool *sql.DB
}

func NewPrincipalRepo(pool *sql.DB) *PrincipalRepo {
	return &PrincipalRepo{pool: pool}
}

// GetByID resolves an employee ID to a principal with its permission set.
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	var p domain.Principal
	var fastTrack int
	err := r.pool.QueryRowContext(ctx, `
		SELECT p.id, p.name, p.role_name, r.fast_track, p.created_at
		FROM principals p JOIN roles r ON r.name = p.role_name
		WHERE p.id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Role, &fastTrack, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("principal %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get principal %q: %w", id, err)
	}
	p.FastTrack = fastTrack != 0

	perms, err := r.permissionsForRole(ctx, p.Role)
	if err != nil {
		return nil, err
	}
	p.Permissions = perms
	return &p, nil
}

// List returns every principal in the directory with permissions resolved.
func (r *PrincipalRepo) List(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.pool.QueryContext(ctx, `
		SELECT p.id, p.name, p.role_name, r.fast_track, p.created_at
		FROM principals p JOIN roles r ON r.name = p.role_name
		ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	defer rows.Close()

	var principals []domain.Principal
	for rows.Next() {
		var p domain.Principal
		var fastTrack int
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &fastTrack, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		p.FastTrack = fastTrack != 0
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range principals {
		perms, err := r.permissionsForRole(ctx, principals[i].Role)
		if err != nil {
			return nil, err
		}
		principals[i].Permissions = perms
	}
	return principals, nil
}

func (r *PrincipalRepo) permissionsForRole(ctx context.Context, role string) (map[domain.CommandKind]bool, error) {
	rows, err := r.pool.QueryContext(ctx,
		`SELECT command FROM role_permissions WHERE role_name = ?`, role)
	if err != nil {
		return nil, fmt.Errorf("permissions for role %q: %w", role, err)
	}
	defer rows.Close()

	perms := make(map[domain.CommandKind]bool)
	for rows.Next() {
		var cmd string
		if err := rows.Scan(&cmd); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms[domain.CommandKind(cmd)] = true
	}
	return perms, rows.Err()
}
