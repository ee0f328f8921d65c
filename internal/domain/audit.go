package domain

import "time"

// Audit outcome statuses.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
	OutcomeDenied  = "DENIED"
)

// AuditEntry is one immutable record of a terminal pipeline outcome.
type AuditEntry struct {
	SequenceID    int64
	PrincipalID   string
	PrincipalRole string
	ActionType    string // command kind, "<KIND>_BLOCKED", or "FAILED"
	DatasetName   string
	Instruction   string // the original natural-language text
	GeneratedSQL  string
	OutcomeStatus string // SUCCESS, FAILED, or DENIED
	AffectedRows  int64
	ExecutedAt    time.Time
}

// AuditFilter holds filter parameters for querying the audit ledger.
type AuditFilter struct {
	PrincipalID *string
	ActionType  *string
	Status      *string
	Limit       int
	Offset      int
}
