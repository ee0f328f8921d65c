package domain

import "context"

// AmbiguityResult is the outcome of checking an instruction for ambiguity.
type AmbiguityResult struct {
	Ambiguous bool
	// Prompt lists the candidate interpretations when Ambiguous is true.
	Prompt string
}

// Translator maps natural language to SQL using the dataset schema as
// context. Implemented by translator.Client. Both calls are single-attempt;
// transport failures return an UnavailableError and callers fail closed.
type Translator interface {
	Translate(ctx context.Context, instruction, schema string) (string, error)
	CheckAmbiguity(ctx context.Context, instruction, schema string) (AmbiguityResult, error)
}

// ExecResult is the structured output of one executed statement.
// Columns and Rows are populated for SELECT-class statements only.
type ExecResult struct {
	Columns      []string
	Rows         [][]interface{}
	AffectedRows int64
}

// DatasetEngine executes SQL against the governed dataset.
// Implemented by engine.SQLiteEngine. Statements against a single dataset
// are serialized relative to each other.
type DatasetEngine interface {
	Execute(ctx context.Context, sqlStatement string) (*ExecResult, error)
	// Schema returns a textual DDL description of the dataset's tables,
	// used as the translator's context.
	Schema(ctx context.Context) (string, error)
	// Name identifies the dataset in audit records.
	Name() string
}
