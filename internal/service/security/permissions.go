// Package security implements role-based authorization and statement-level
// safety validation.
package security

import (
	"context"
	"strings"
	"unicode"

	"querygate/internal/domain"
)

// PermissionService answers authorization queries against the principal
// directory. Authorization is conjunctive: every command keyword found in a
// statement must be in the principal's permitted set, so a compound
// statement cannot smuggle a second operation past the leading verb.
type PermissionService struct {
	directory domain.PrincipalDirectory
}

func NewPermissionService(directory domain.PrincipalDirectory) *PermissionService {
	return &PermissionService{directory: directory}
}

// PermissionsFor returns the set of command kinds the principal may execute.
func (s *PermissionService) PermissionsFor(ctx context.Context, principalID string) (map[domain.CommandKind]bool, error) {
	p, err := s.directory.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return p.Permissions, nil
}

// Authorize checks whether the principal may execute the statement.
// Returns nil when authorized, or an AccessDeniedError naming the first
// disallowed command kind.
//
// Comments are stripped before inspection so a verb cannot be hidden inside
// one or smuggled past the scan. Fast-track roles bypass keyword checks.
// Statements with no recognizable command keyword are denied.
func (s *PermissionService) Authorize(p *domain.Principal, sqlStatement string) error {
	if p.FastTrack {
		return nil
	}

	kinds := ExtractCommandKinds(sqlStatement)
	if len(kinds) == 0 {
		return domain.ErrAccessDenied("statement contains no recognizable SQL command")
	}

	for _, kind := range kinds {
		if !p.Can(kind) {
			return domain.ErrAccessDenied("role %s is not permitted to perform %s operations", p.Role, kind)
		}
	}
	return nil
}

// IsAuthorized reports whether Authorize would pass.
func (s *PermissionService) IsAuthorized(p *domain.Principal, sqlStatement string) bool {
	return s.Authorize(p, sqlStatement) == nil
}

// ExtractCommandKinds returns every distinct SQL command keyword present in
// the statement as a whole word, after comment stripping, in order of first
// appearance.
func ExtractCommandKinds(sqlStatement string) []domain.CommandKind {
	cleaned := StripSQLComments(sqlStatement)

	seen := make(map[domain.CommandKind]bool)
	var kinds []domain.CommandKind
	for _, word := range splitWords(cleaned) {
		kind := domain.CommandKind(strings.ToUpper(word))
		switch kind {
		case domain.CommandSelect, domain.CommandInsert, domain.CommandUpdate,
			domain.CommandDelete, domain.CommandDrop, domain.CommandAlter,
			domain.CommandTruncate, domain.CommandCreate:
			if !seen[kind] {
				seen[kind] = true
				kinds = append(kinds, kind)
			}
		}
	}
	return kinds
}

// StripSQLComments removes line (-- ...) and block (/* ... */) comments.
// Quoted string literals are left intact so a literal containing "--" does
// not truncate the statement.
func StripSQLComments(sqlStatement string) string {
	var b strings.Builder
	b.Grow(len(sqlStatement))

	const (
		code = iota
		lineComment
		blockComment
		singleQuote
		doubleQuote
	)
	state := code

	for i := 0; i < len(sqlStatement); i++ {
		c := sqlStatement[i]
		switch state {
		case code:
			switch {
			case c == '-' && i+1 < len(sqlStatement) && sqlStatement[i+1] == '-':
				state = lineComment
				i++
			case c == '/' && i+1 < len(sqlStatement) && sqlStatement[i+1] == '*':
				state = blockComment
				i++
				// Comments separate tokens even when no whitespace surrounds them.
				b.WriteByte(' ')
			case c == '\'':
				state = singleQuote
				b.WriteByte(c)
			case c == '"':
				state = doubleQuote
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}
		case lineComment:
			if c == '\n' {
				state = code
				b.WriteByte(c)
			}
		case blockComment:
			if c == '*' && i+1 < len(sqlStatement) && sqlStatement[i+1] == '/' {
				state = code
				i++
			}
		case singleQuote:
			b.WriteByte(c)
			if c == '\'' {
				state = code
			}
		case doubleQuote:
			b.WriteByte(c)
			if c == '"' {
				state = code
			}
		}
	}
	return b.String()
}

// splitWords splits on any non-letter so keywords adjacent to punctuation
// (e.g. "(SELECT") are still whole words.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
