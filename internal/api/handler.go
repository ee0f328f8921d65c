// Package api provides the HTTP handlers for the query gateway REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"querygate/internal/domain"
	"querygate/internal/middleware"
	"querygate/internal/service/governance"
	"querygate/internal/service/nlquery"
)

// Handler wires the HTTP surface to the instruction pipeline and the
// governance services.
type Handler struct {
	directory   domain.PrincipalDirectory
	coordinator *nlquery.Coordinator
	sessions    *nlquery.SessionManager
	audit       *governance.AuditService
	engine      domain.DatasetEngine
	issuer      *middleware.TokenIssuer
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	directory domain.PrincipalDirectory,
	coordinator *nlquery.Coordinator,
	sessions *nlquery.SessionManager,
	audit *governance.AuditService,
	engine domain.DatasetEngine,
	issuer *middleware.TokenIssuer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		directory:   directory,
		coordinator: coordinator,
		sessions:    sessions,
		audit:       audit,
		engine:      engine,
		issuer:      issuer,
		logger:      logger,
	}
}

// Routes registers the public and authenticated routes. The auth middleware
// is applied here so every route under /v1 except login carries a principal.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Post("/v1/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.issuer, h.directory))
		r.Post("/v1/instructions", h.SubmitInstruction)
		r.Post("/v1/instructions/confirm", h.ConfirmInstruction)
		r.Post("/v1/instructions/reject", h.RejectInstruction)
		r.Get("/v1/audit", h.ListAudit)
		r.Get("/v1/schema", h.GetSchema)
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	EmployeeID string `json:"employee_id"`
}

type loginResponse struct {
	Token       string `json:"token"`
	PrincipalID string `json:"principal_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

// Login exchanges a known employee ID for a session token. There is no
// password: the directory is the trust anchor, as in the original intranet
// deployment this fronts.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.EmployeeID == "" {
		writeError(w, domain.ErrValidation("employee_id is required"))
		return
	}

	principal, err := h.directory.GetByID(r.Context(), req.EmployeeID)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.issuer.Issue(principal.ID)
	if err != nil {
		h.logger.Error("token issue failed", "principal", principal.ID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:       token,
		PrincipalID: principal.ID,
		Name:        principal.Name,
		Role:        principal.Role,
	})
}

type instructionRequest struct {
	Instruction string `json:"instruction"`
}

type instructionResponse struct {
	Outcome             string          `json:"outcome"`
	GeneratedSQL        string          `json:"generated_sql,omitempty"`
	ClarificationPrompt string          `json:"clarification_prompt,omitempty"`
	Columns             []string        `json:"columns,omitempty"`
	Rows                [][]interface{} `json:"rows,omitempty"`
	AffectedRows        *int64          `json:"affected_rows,omitempty"`
}

// SubmitInstruction runs one natural-language instruction through the gate
// chain for the caller's session.
func (h *Handler) SubmitInstruction(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	var req instructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body"))
		return
	}

	sess := h.sessions.Get(principal)
	result, err := h.coordinator.Submit(r.Context(), sess, req.Instruction)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResultResponse(result))
}

// ConfirmInstruction executes the caller's pending action.
func (h *Handler) ConfirmInstruction(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	sess := h.sessions.Get(principal)
	result, err := h.coordinator.Confirm(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResultResponse(result))
}

// RejectInstruction discards the caller's pending action.
func (h *Handler) RejectInstruction(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrAccessDenied("no authenticated principal"))
		return
	}

	sess := h.sessions.Get(principal)
	if err := h.coordinator.Reject(r.Context(), sess); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type auditEntryResponse struct {
	SequenceID    int64  `json:"sequence_id"`
	PrincipalID   string `json:"principal_id"`
	PrincipalRole string `json:"principal_role"`
	ActionType    string `json:"action_type"`
	DatasetName   string `json:"dataset_name"`
	Instruction   string `json:"instruction"`
	GeneratedSQL  string `json:"generated_sql"`
	OutcomeStatus string `json:"outcome_status"`
	AffectedRows  int64  `json:"affected_rows"`
	ExecutedAt    string `json:"executed_at"`
}

type auditListResponse struct {
	Entries []auditEntryResponse `json:"entries"`
	Total   int64                `json:"total"`
}

// ListAudit returns a filtered page of the audit ledger, newest first.
// Role gating happens in the governance service, not here.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{}
	q := r.URL.Query()
	if v := q.Get("principal_id"); v != "" {
		filter.PrincipalID = &v
	}
	if v := q.Get("action_type"); v != "" {
		filter.ActionType = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, domain.ErrValidation("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, domain.ErrValidation("offset must be a non-negative integer"))
			return
		}
		filter.Offset = n
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]auditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = auditEntryResponse{
			SequenceID:    e.SequenceID,
			PrincipalID:   e.PrincipalID,
			PrincipalRole: e.PrincipalRole,
			ActionType:    e.ActionType,
			DatasetName:   e.DatasetName,
			Instruction:   e.Instruction,
			GeneratedSQL:  e.GeneratedSQL,
			OutcomeStatus: e.OutcomeStatus,
			AffectedRows:  e.AffectedRows,
			ExecutedAt:    e.ExecutedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, auditListResponse{Entries: out, Total: total})
}

type schemaResponse struct {
	Dataset string `json:"dataset"`
	Schema  string `json:"schema"`
}

// GetSchema returns the dataset's table definitions, the same text the
// translator sees.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.engine.Schema(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Dataset: h.engine.Name(), Schema: schema})
}

func submitResultResponse(result *nlquery.SubmitResult) instructionResponse {
	resp := instructionResponse{
		Outcome:             string(result.Kind),
		GeneratedSQL:        result.GeneratedSQL,
		ClarificationPrompt: result.ClarificationPrompt,
	}
	if result.Result != nil {
		resp.Columns = result.Result.Columns
		resp.Rows = result.Result.Rows
		affected := result.Result.AffectedRows
		resp.AffectedRows = &affected
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
