package domain

import "strings"

// CommandKind is the SQL verb class of a statement.
type CommandKind string

const (
	CommandSelect   CommandKind = "SELECT"
	CommandInsert   CommandKind = "INSERT"
	CommandUpdate   CommandKind = "UPDATE"
	CommandDelete   CommandKind = "DELETE"
	CommandDrop     CommandKind = "DROP"
	CommandAlter    CommandKind = "ALTER"
	CommandTruncate CommandKind = "TRUNCATE"
	CommandCreate   CommandKind = "CREATE"
	CommandUnknown  CommandKind = "UNKNOWN"
)

// commandKinds lists every recognized SQL command keyword.
var commandKinds = []CommandKind{
	CommandSelect, CommandInsert, CommandUpdate, CommandDelete,
	CommandDrop, CommandAlter, CommandTruncate, CommandCreate,
}

// LeadingCommand returns the command kind of the statement's first word.
func LeadingCommand(sqlStatement string) CommandKind {
	fields := strings.Fields(sqlStatement)
	if len(fields) == 0 {
		return CommandUnknown
	}
	verb := strings.ToUpper(fields[0])
	for _, kind := range commandKinds {
		if verb == string(kind) {
			return kind
		}
	}
	return CommandUnknown
}
