package nlquery

import (
	"context"
	"sync"

	"querygate/internal/domain"
)

// === Translator mock ===

type mockTranslator struct {
	translateFn      func(ctx context.Context, instruction, schema string) (string, error)
	checkAmbiguityFn func(ctx context.Context, instruction, schema string) (domain.AmbiguityResult, error)
}

func (m *mockTranslator) Translate(ctx context.Context, instruction, schema string) (string, error) {
	if m.translateFn != nil {
		return m.translateFn(ctx, instruction, schema)
	}
	panic("unexpected call to mockTranslator.Translate")
}

func (m *mockTranslator) CheckAmbiguity(ctx context.Context, instruction, schema string) (domain.AmbiguityResult, error) {
	if m.checkAmbiguityFn != nil {
		return m.checkAmbiguityFn(ctx, instruction, schema)
	}
	// Most tests only care about the later gates.
	return domain.AmbiguityResult{}, nil
}

// === Dataset engine mock ===

type mockEngine struct {
	executeFn func(ctx context.Context, sqlStatement string) (*domain.ExecResult, error)
	schemaFn  func(ctx context.Context) (string, error)
}

func (m *mockEngine) Execute(ctx context.Context, sqlStatement string) (*domain.ExecResult, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, sqlStatement)
	}
	panic("unexpected call to mockEngine.Execute")
}

func (m *mockEngine) Schema(ctx context.Context) (string, error) {
	if m.schemaFn != nil {
		return m.schemaFn(ctx)
	}
	return "CREATE TABLE employees (id INTEGER, name TEXT, salary INTEGER)", nil
}

func (m *mockEngine) Name() string { return "employees.sqlite" }

// === In-memory audit ledger ===

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	failing bool
}

func (m *memAudit) Append(_ context.Context, e *domain.AuditEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, errDiskFull
	}
	e.SequenceID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, *e)
	return e.SequenceID, nil
}

func (m *memAudit) List(_ context.Context, _ domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, len(m.entries))
	copy(out, m.entries)
	return out, int64(len(out)), nil
}

var errDiskFull = domain.ErrExecution("disk I/O error")
