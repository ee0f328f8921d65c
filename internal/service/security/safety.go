package security

import (
	"strings"

	"querygate/internal/domain"
)

// Safety verdict reasons, reported to callers and recorded in the audit trail.
const (
	ReasonEmptyQuery         = "Empty query."
	ReasonMultipleStatements = "Multiple SQL statements detected."
	ReasonReadOnly           = "Read-only query."
	ReasonMissingWhere       = "UPDATE/DELETE without WHERE clause."
	ReasonNeedsConfirmation  = "Data modification query. Confirmation required."
	ReasonSchemaChange       = "Dangerous schema modification query."
	ReasonUnrecognized       = "Unrecognized query type."
)

// SafetyValidator classifies a single SQL statement as allowed or blocked
// with a risk level, independent of who issued it. It is a pure,
// syntax-level policy: no AST, first matching rule wins. A WHERE inside a
// string literal is indistinguishable from a real clause under this policy;
// that is an accepted limitation, traded for auditability.
type SafetyValidator struct{}

func NewSafetyValidator() *SafetyValidator {
	return &SafetyValidator{}
}

// Validate inspects one statement and returns a fresh verdict. Stateless:
// the same statement always yields the same verdict.
func (v *SafetyValidator) Validate(sqlStatement string) domain.SafetyVerdict {
	cleaned := strings.ToLower(strings.TrimSpace(sqlStatement))

	if cleaned == "" {
		return domain.SafetyVerdict{Allowed: false, Risk: domain.RiskHigh, Reason: ReasonEmptyQuery}
	}

	// A separator anywhere before the final character means a second
	// statement follows (basic injection protection).
	if strings.Contains(cleaned[:len(cleaned)-1], ";") {
		return domain.SafetyVerdict{Allowed: false, Risk: domain.RiskHigh, Reason: ReasonMultipleStatements}
	}

	if strings.HasPrefix(cleaned, "select") {
		return domain.SafetyVerdict{Allowed: true, Risk: domain.RiskLow, Reason: ReasonReadOnly}
	}

	if hasAnyPrefix(cleaned, "update", "delete", "insert") {
		if hasAnyPrefix(cleaned, "update", "delete") && !strings.Contains(cleaned, "where") {
			return domain.SafetyVerdict{Allowed: false, Risk: domain.RiskHigh, Reason: ReasonMissingWhere}
		}
		return domain.SafetyVerdict{
			Allowed:              true,
			Risk:                 domain.RiskMedium,
			Reason:               ReasonNeedsConfirmation,
			RequiresConfirmation: true,
		}
	}

	if hasAnyPrefix(cleaned, "drop", "truncate", "alter") {
		return domain.SafetyVerdict{Allowed: false, Risk: domain.RiskHigh, Reason: ReasonSchemaChange}
	}

	return domain.SafetyVerdict{Allowed: false, Risk: domain.RiskUnknown, Reason: ReasonUnrecognized}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
