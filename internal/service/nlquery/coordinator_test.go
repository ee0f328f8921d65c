package nlquery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querygate/internal/domain"
	"querygate/internal/service/security"
)

func staffPrincipal() domain.Principal {
	return domain.Principal{
		ID:   "E003",
		Name: "Rahul Verma",
		Role: "Staff",
		Permissions: map[domain.CommandKind]bool{
			domain.CommandSelect: true,
		},
	}
}

func adminPrincipal() domain.Principal {
	return domain.Principal{ID: "E001", Name: "Aarav Sharma", Role: "Admin", FastTrack: true}
}

func newCoordinator(translator domain.Translator, eng domain.DatasetEngine, audit domain.AuditRepository) *Coordinator {
	return NewCoordinator(
		translator,
		security.NewPermissionService(nil),
		security.NewSafetyValidator(),
		eng,
		audit,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

// Staff with only SELECT asks to delete: denied at authorization with a
// DELETE_BLOCKED audit record and zero affected rows.
func TestSubmit_UnauthorizedDeleteIsBlockedAndAudited(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "DELETE FROM employees;", nil
		},
	}
	c := newCoordinator(translator, &mockEngine{}, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	_, err := c.Submit(context.Background(), sess, "delete all employees")
	require.Error(t, err)
	var denied *domain.AccessDeniedError
	assert.True(t, errors.As(err, &denied))

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "DELETE_BLOCKED", entry.ActionType)
	assert.Equal(t, domain.OutcomeDenied, entry.OutcomeStatus)
	assert.Equal(t, int64(0), entry.AffectedRows)
	assert.Equal(t, "E003", entry.PrincipalID)
	assert.Equal(t, "Staff", entry.PrincipalRole)
	assert.Equal(t, "delete all employees", entry.Instruction)
	assert.Equal(t, "DELETE FROM employees;", entry.GeneratedSQL)
}

// Admin submits an UPDATE with WHERE: fast-track authorization, medium risk,
// parked for confirmation, then executed on confirm with a SUCCESS record.
func TestSubmit_ConfirmationFlowExecutesAndAudits(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "UPDATE employees SET salary = salary + 1000 WHERE id = 1;", nil
		},
	}
	eng := &mockEngine{
		executeFn: func(_ context.Context, sqlStatement string) (*domain.ExecResult, error) {
			assert.Equal(t, "UPDATE employees SET salary = salary + 1000 WHERE id = 1;", sqlStatement)
			return &domain.ExecResult{AffectedRows: 1}, nil
		},
	}
	c := newCoordinator(translator, eng, audit)
	sess := NewSessionManager().Get(adminPrincipal())
	ctx := context.Background()

	result, err := c.Submit(ctx, sess, "raise salary for employee 1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePendingConfirmation, result.Kind)
	assert.NotEmpty(t, result.GeneratedSQL)
	assert.Empty(t, audit.entries, "no audit record before the action occurs")

	result, err = c.Confirm(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, result.Kind)
	assert.Equal(t, int64(1), result.Result.AffectedRows)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "UPDATE", entry.ActionType)
	assert.Equal(t, domain.OutcomeSuccess, entry.OutcomeStatus)
	assert.Equal(t, int64(1), entry.AffectedRows)
}

// A compound statement passes fast-track authorization but the safety
// validator detects the second statement.
func TestSubmit_MultipleStatementsDenied(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "SELECT * FROM employees; DROP TABLE employees;", nil
		},
	}
	c := newCoordinator(translator, &mockEngine{}, audit)
	sess := NewSessionManager().Get(adminPrincipal())

	_, err := c.Submit(context.Background(), sess, "show employees and drop the table")
	require.Error(t, err)
	var unsafe *domain.UnsafeStatementError
	require.True(t, errors.As(err, &unsafe))
	assert.Equal(t, security.ReasonMultipleStatements, unsafe.Message)
	assert.Equal(t, domain.RiskHigh, unsafe.Risk)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, domain.OutcomeDenied, audit.entries[0].OutcomeStatus)
	assert.Equal(t, "SELECT_BLOCKED", audit.entries[0].ActionType)
}

// An ambiguous instruction short-circuits before translation: no SQL, no
// audit record.
func TestSubmit_AmbiguousShortCircuit(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		checkAmbiguityFn: func(context.Context, string, string) (domain.AmbiguityResult, error) {
			return domain.AmbiguityResult{Ambiguous: true, Prompt: "Best by gpa or by rank?"}, nil
		},
	}
	c := newCoordinator(translator, &mockEngine{}, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	result, err := c.Submit(context.Background(), sess, "show me the best students")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAmbiguous, result.Kind)
	assert.Equal(t, "Best by gpa or by rank?", result.ClarificationPrompt)
	assert.Empty(t, result.GeneratedSQL)
	assert.Empty(t, audit.entries)
}

// Translator unreachable during the ambiguity check fails closed: the
// instruction does not pass through and nothing is audited.
func TestSubmit_AmbiguityGateFailsClosed(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		checkAmbiguityFn: func(context.Context, string, string) (domain.AmbiguityResult, error) {
			return domain.AmbiguityResult{}, domain.ErrUnavailable("translator unreachable")
		},
	}
	c := newCoordinator(translator, &mockEngine{}, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	_, err := c.Submit(context.Background(), sess, "show employees")
	var unavailable *domain.UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Empty(t, audit.entries)
}

func TestSubmit_TranslationFailureIsAuditedAsFailed(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "", domain.ErrUnavailable("model not loaded")
		},
	}
	c := newCoordinator(translator, &mockEngine{}, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	_, err := c.Submit(context.Background(), sess, "show employees")
	require.Error(t, err)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "FAILED", entry.ActionType)
	assert.Equal(t, domain.OutcomeFailed, entry.OutcomeStatus)
	assert.Empty(t, entry.GeneratedSQL)
}

func TestSubmit_EngineFailureIsAuditedAndSurfaced(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "SELECT * FROM no_such_table", nil
		},
	}
	eng := &mockEngine{
		executeFn: func(context.Context, string) (*domain.ExecResult, error) {
			return nil, domain.ErrExecution("no such table: no_such_table")
		},
	}
	c := newCoordinator(translator, eng, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	_, err := c.Submit(context.Background(), sess, "show the missing table")
	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, err.Error(), "no_such_table")

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "FAILED", entry.ActionType)
	assert.Equal(t, domain.OutcomeFailed, entry.OutcomeStatus)
	assert.Equal(t, int64(0), entry.AffectedRows)
}

func TestSubmit_LowRiskSelectExecutesDirectly(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "SELECT * FROM employees;", nil
		},
	}
	eng := &mockEngine{
		executeFn: func(context.Context, string) (*domain.ExecResult, error) {
			return &domain.ExecResult{
				Columns:      []string{"id", "name"},
				Rows:         [][]interface{}{{int64(1), "Aarav"}},
				AffectedRows: 1,
			}, nil
		},
	}
	c := newCoordinator(translator, eng, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	result, err := c.Submit(context.Background(), sess, "show all employees")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, result.Kind)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "SELECT", audit.entries[0].ActionType)
	assert.Equal(t, domain.OutcomeSuccess, audit.entries[0].OutcomeStatus)
	assert.Equal(t, "employees.sqlite", audit.entries[0].DatasetName)
}

func TestSubmit_NewInstructionSilentlySupersedesPending(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(_ context.Context, instruction, _ string) (string, error) {
			if instruction == "raise salaries" {
				return "UPDATE employees SET salary = salary + 1 WHERE id = 1", nil
			}
			return "SELECT * FROM employees", nil
		},
	}
	eng := &mockEngine{
		executeFn: func(context.Context, string) (*domain.ExecResult, error) {
			return &domain.ExecResult{AffectedRows: 0}, nil
		},
	}
	c := newCoordinator(translator, eng, audit)
	sess := NewSessionManager().Get(adminPrincipal())
	ctx := context.Background()

	result, err := c.Submit(ctx, sess, "raise salaries")
	require.NoError(t, err)
	require.Equal(t, OutcomePendingConfirmation, result.Kind)

	// A second instruction replaces the pending action without a trace.
	_, err = c.Submit(ctx, sess, "show employees")
	require.NoError(t, err)

	_, err = c.Confirm(ctx, sess)
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	// Only the executed SELECT was audited.
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "SELECT", audit.entries[0].ActionType)
}

func TestReject_DiscardsPendingWithoutAudit(t *testing.T) {
	audit := &memAudit{}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "DELETE FROM employees WHERE id = 9", nil
		},
	}
	c := newCoordinator(translator, &mockEngine{}, audit)
	sess := NewSessionManager().Get(adminPrincipal())
	ctx := context.Background()

	result, err := c.Submit(ctx, sess, "remove employee 9")
	require.NoError(t, err)
	require.Equal(t, OutcomePendingConfirmation, result.Kind)

	require.NoError(t, c.Reject(ctx, sess))
	assert.Empty(t, audit.entries)

	// Nothing left to reject or confirm.
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(c.Reject(ctx, sess), &notFound))
	_, err = c.Confirm(ctx, sess)
	assert.True(t, errors.As(err, &notFound))
}

func TestSubmit_BlankInstructionRejected(t *testing.T) {
	c := newCoordinator(&mockTranslator{}, &mockEngine{}, &memAudit{})
	sess := NewSessionManager().Get(staffPrincipal())

	_, err := c.Submit(context.Background(), sess, "   ")
	var validation *domain.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestExecute_AuditWriteFailureAfterSuccessIsSurfaced(t *testing.T) {
	audit := &memAudit{failing: true}
	translator := &mockTranslator{
		translateFn: func(context.Context, string, string) (string, error) {
			return "SELECT * FROM employees", nil
		},
	}
	eng := &mockEngine{
		executeFn: func(context.Context, string) (*domain.ExecResult, error) {
			return &domain.ExecResult{AffectedRows: 2}, nil
		},
	}
	c := newCoordinator(translator, eng, audit)
	sess := NewSessionManager().Get(staffPrincipal())

	_, err := c.Submit(context.Background(), sess, "show employees")
	var auditErr *domain.AuditWriteError
	require.True(t, errors.As(err, &auditErr))
	assert.True(t, auditErr.Executed, "caller must learn the statement ran unaudited")
	assert.Contains(t, auditErr.Message, "executed")
}

// Every terminal transition writes exactly one record; gates short of a
// terminal state write none.
func TestAudit_ExactlyOncePerTerminalTransition(t *testing.T) {
	audit := &memAudit{}
	sqlByInstruction := map[string]string{
		"show":   "SELECT * FROM employees",
		"update": "UPDATE employees SET salary = 1 WHERE id = 1",
		"drop":   "DROP TABLE employees",
	}
	translator := &mockTranslator{
		translateFn: func(_ context.Context, instruction, _ string) (string, error) {
			return sqlByInstruction[instruction], nil
		},
	}
	eng := &mockEngine{
		executeFn: func(context.Context, string) (*domain.ExecResult, error) {
			return &domain.ExecResult{AffectedRows: 1}, nil
		},
	}
	c := newCoordinator(translator, eng, audit)
	sess := NewSessionManager().Get(adminPrincipal())
	ctx := context.Background()

	_, err := c.Submit(ctx, sess, "show") // SUCCESS
	require.NoError(t, err)

	_, err = c.Submit(ctx, sess, "drop") // DENIED (safety)
	require.Error(t, err)

	result, err := c.Submit(ctx, sess, "update") // pending, then SUCCESS
	require.NoError(t, err)
	require.Equal(t, OutcomePendingConfirmation, result.Kind)
	_, err = c.Confirm(ctx, sess)
	require.NoError(t, err)

	require.Len(t, audit.entries, 3)
	statuses := []string{
		audit.entries[0].OutcomeStatus,
		audit.entries[1].OutcomeStatus,
		audit.entries[2].OutcomeStatus,
	}
	assert.Equal(t, []string{domain.OutcomeSuccess, domain.OutcomeDenied, domain.OutcomeSuccess}, statuses)
}
