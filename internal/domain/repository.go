package domain

import "context"

// PrincipalDirectory resolves employee IDs to principals with their role's
// permission set. Backed by the seeded directory tables.
type PrincipalDirectory interface {
	GetByID(ctx context.Context, id string) (*Principal, error)
	List(ctx context.Context) ([]Principal, error)
}

// AuditRepository is the append-only audit ledger. Append assigns and
// returns a monotonically increasing sequence ID; the record is durably
// visible to List before Append returns. No update or delete exists.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditEntry) (int64, error)
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}
