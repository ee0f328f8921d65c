package domain

import "time"

// PendingAction is a validated, not-yet-executed statement awaiting explicit
// confirmation. At most one exists per session; a new instruction replaces it.
type PendingAction struct {
	Statement   string
	Instruction string
	Principal   Principal
	CreatedAt   time.Time
}
