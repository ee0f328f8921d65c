// Package nlquery coordinates the instruction pipeline: ambiguity check,
// translation, authorization, safety validation, confirmation gating,
// execution, and the audit write.
package nlquery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"querygate/internal/domain"
	"querygate/internal/service/security"
)

// OutcomeKind tells the caller how a submitted instruction resolved.
type OutcomeKind string

const (
	// OutcomeExecuted means the statement ran; Result carries the rows or
	// affected count.
	OutcomeExecuted OutcomeKind = "executed"
	// OutcomeAmbiguous means the instruction needs clarification before any
	// SQL is generated.
	OutcomeAmbiguous OutcomeKind = "ambiguous"
	// OutcomePendingConfirmation means the statement is parked in the
	// session's pending slot until the principal confirms or rejects.
	OutcomePendingConfirmation OutcomeKind = "pending_confirmation"
)

// SubmitResult is the structured outcome of Submit or Confirm.
type SubmitResult struct {
	Kind                OutcomeKind
	GeneratedSQL        string
	ClarificationPrompt string
	Result              *domain.ExecResult
}

// Coordinator drives one instruction through the gate chain. Every terminal
// transition (success, engine failure, authorization or safety denial)
// writes exactly one audit record, synchronously, before control returns.
// The ambiguous short-circuit and reject-before-execution are not terminal
// transitions and are not audited: no SQL executed and none will.
type Coordinator struct {
	translator  domain.Translator
	permissions *security.PermissionService
	validator   *security.SafetyValidator
	engine      domain.DatasetEngine
	audit       domain.AuditRepository
	logger      *slog.Logger
}

func NewCoordinator(
	translator domain.Translator,
	permissions *security.PermissionService,
	validator *security.SafetyValidator,
	engine domain.DatasetEngine,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		translator:  translator,
		permissions: permissions,
		validator:   validator,
		engine:      engine,
		audit:       audit,
		logger:      logger,
	}
}

// Submit processes one natural-language instruction for the session. A new
// instruction silently replaces any unconfirmed pending action.
func (c *Coordinator) Submit(ctx context.Context, sess *Session, instruction string) (*SubmitResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, domain.ErrValidation("instruction is required")
	}

	// Supersede: an unconfirmed pending action is discarded, not queued.
	sess.pending = nil

	principal := sess.principal

	schema, err := c.engine.Schema(ctx)
	if err != nil {
		return nil, err
	}

	// Ambiguity gate. Fails closed: if the translator cannot produce a
	// definitive verdict, the instruction does not pass through.
	ambiguity, err := c.translator.CheckAmbiguity(ctx, instruction, schema)
	if err != nil {
		return nil, err
	}
	if ambiguity.Ambiguous {
		c.logger.Info("instruction needs clarification", "principal", principal.ID)
		return &SubmitResult{Kind: OutcomeAmbiguous, ClarificationPrompt: ambiguity.Prompt}, nil
	}

	// Translation: one attempt per instruction. A failure here is terminal
	// and audited even though no statement exists yet.
	sqlStatement, err := c.translator.Translate(ctx, instruction, schema)
	if err != nil {
		if auditErr := c.writeAudit(ctx, principal, "FAILED", instruction, "", domain.OutcomeFailed, 0); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}

	// Authorization: conjunctive keyword check against the principal's
	// permission set. Denials are audited before control returns.
	if err := c.permissions.Authorize(&principal, sqlStatement); err != nil {
		kind := domain.LeadingCommand(sqlStatement)
		c.logger.Warn("statement blocked by authorization",
			"principal", principal.ID, "role", principal.Role, "kind", kind)
		if auditErr := c.writeAudit(ctx, principal, blockedAction(kind), instruction, sqlStatement, domain.OutcomeDenied, 0); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}

	// Safety validation: statement-level policy, independent of the issuer.
	verdict := c.validator.Validate(sqlStatement)
	if !verdict.Allowed {
		kind := domain.LeadingCommand(sqlStatement)
		c.logger.Warn("statement blocked by safety policy",
			"principal", principal.ID, "risk", verdict.Risk, "reason", verdict.Reason)
		if auditErr := c.writeAudit(ctx, principal, blockedAction(kind), instruction, sqlStatement, domain.OutcomeDenied, 0); auditErr != nil {
			return nil, auditErr
		}
		return nil, domain.ErrUnsafe(verdict.Reason, verdict.Risk)
	}

	// Medium-risk statements park in the pending slot until the principal
	// confirms. No audit record yet: the action has not occurred.
	if verdict.RequiresConfirmation {
		sess.pending = &domain.PendingAction{
			Statement:   sqlStatement,
			Instruction: instruction,
			Principal:   principal,
			CreatedAt:   time.Now(),
		}
		return &SubmitResult{Kind: OutcomePendingConfirmation, GeneratedSQL: sqlStatement}, nil
	}

	return c.execute(ctx, principal, instruction, sqlStatement)
}

// Confirm executes the session's pending action.
func (c *Coordinator) Confirm(ctx context.Context, sess *Session) (*SubmitResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	pending := sess.pending
	if pending == nil {
		return nil, domain.ErrNotFound("no pending action to confirm")
	}
	sess.pending = nil

	return c.execute(ctx, pending.Principal, pending.Instruction, pending.Statement)
}

// Reject discards the session's pending action. A rejected-before-execution
// action never left the caller, so no audit record is written.
func (c *Coordinator) Reject(_ context.Context, sess *Session) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.pending == nil {
		return domain.ErrNotFound("no pending action to reject")
	}
	sess.pending = nil
	return nil
}

// execute dispatches the statement to the dataset engine and writes the
// terminal audit record. Never retries: a failed DML statement must not be
// silently re-attempted.
func (c *Coordinator) execute(ctx context.Context, principal domain.Principal, instruction, sqlStatement string) (*SubmitResult, error) {
	result, err := c.engine.Execute(ctx, sqlStatement)
	if err != nil {
		if auditErr := c.writeAudit(ctx, principal, "FAILED", instruction, sqlStatement, domain.OutcomeFailed, 0); auditErr != nil {
			return nil, auditErr
		}
		return nil, err
	}

	action := string(domain.LeadingCommand(sqlStatement))
	if auditErr := c.writeAudit(ctx, principal, action, instruction, sqlStatement, domain.OutcomeSuccess, result.AffectedRows); auditErr != nil {
		// The statement ran but the ledger write failed. Reporting plain
		// success would break the exactly-once invariant, so the caller
		// sees the executed-but-unaudited condition instead.
		return nil, &domain.AuditWriteError{
			Message:  fmt.Sprintf("statement executed (%d rows affected) but audit write failed: %v", result.AffectedRows, auditErr),
			Executed: true,
		}
	}

	c.logger.Info("statement executed",
		"principal", principal.ID, "action", action, "affected", result.AffectedRows)
	return &SubmitResult{Kind: OutcomeExecuted, GeneratedSQL: sqlStatement, Result: result}, nil
}

func (c *Coordinator) writeAudit(ctx context.Context, principal domain.Principal, action, instruction, sqlStatement, outcome string, affected int64) error {
	_, err := c.audit.Append(ctx, &domain.AuditEntry{
		PrincipalID:   principal.ID,
		PrincipalRole: principal.Role,
		ActionType:    action,
		DatasetName:   c.engine.Name(),
		Instruction:   instruction,
		GeneratedSQL:  sqlStatement,
		OutcomeStatus: outcome,
		AffectedRows:  affected,
	})
	if err != nil {
		c.logger.Error("audit write failed", "principal", principal.ID, "action", action, "error", err)
		return &domain.AuditWriteError{Message: fmt.Sprintf("audit write failed: %v", err)}
	}
	return nil
}

func blockedAction(kind domain.CommandKind) string {
	return string(kind) + "_BLOCKED"
}
