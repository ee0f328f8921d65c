package domain

import "time"

// Principal represents an authenticated actor issuing instructions.
// Built at login from the employee directory; immutable for the session.
type Principal struct {
	ID          string // employee ID, e.g. "E003"
	Name        string
	Role        string // role label, e.g. "Admin", "Manager", "Staff"
	FastTrack   bool   // fast-track roles bypass keyword authorization
	Permissions map[CommandKind]bool
	CreatedAt   time.Time
}

// Can reports whether the principal's permission set includes the command kind.
func (p *Principal) Can(kind CommandKind) bool {
	return p.Permissions[kind]
}
