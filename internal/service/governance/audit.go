// Package governance implements audit-trail access services.
package governance

import (
	"context"

	"querygate/internal/domain"
)

// AuditService provides read access to the audit ledger. Which roles may
// read the trail is configuration, not code: the allowed set is supplied at
// construction.
type AuditService struct {
	repo         domain.AuditRepository
	allowedRoles map[string]bool
}

// NewAuditService creates an AuditService restricted to the given roles.
func NewAuditService(repo domain.AuditRepository, allowedRoles []string) *AuditService {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}
	return &AuditService{repo: repo, allowedRoles: allowed}
}

// List returns a filtered, paginated view of the ledger, newest first.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, 0, domain.ErrAccessDenied("no authenticated principal")
	}
	if !s.allowedRoles[p.Role] {
		return nil, 0, domain.ErrAccessDenied("role %s may not view the audit trail", p.Role)
	}
	return s.repo.List(ctx, filter)
}
