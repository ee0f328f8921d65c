package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError carries the HTTP status and the server's error body.
type APIError struct {
	HTTPStatus int    `json:"http_status"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Risk       string `json:"risk,omitempty"`
	Executed   *bool  `json:"executed,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.HTTPStatus)
}

// Client is a thin HTTP client for the query gateway API.
type Client struct {
	BaseURL string
	Token   string

	httpClient *http.Client
}

// NewClient creates a client for the given host.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// LoginResponse is the result of a successful login.
type LoginResponse struct {
	Token       string `json:"token"`
	PrincipalID string `json:"principal_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
}

// InstructionResponse is the pipeline outcome for a submitted instruction.
type InstructionResponse struct {
	Outcome             string          `json:"outcome"`
	GeneratedSQL        string          `json:"generated_sql,omitempty"`
	ClarificationPrompt string          `json:"clarification_prompt,omitempty"`
	Columns             []string        `json:"columns,omitempty"`
	Rows                [][]interface{} `json:"rows,omitempty"`
	AffectedRows        *int64          `json:"affected_rows,omitempty"`
}

// AuditEntry is one ledger record as returned by the API.
type AuditEntry struct {
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

// AuditListResponse is a page of the ledger.
type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
	Total   int64        `json:"total"`
}

// SchemaResponse is the dataset's table definitions.
type SchemaResponse struct {
	Dataset string `json:"dataset"`
	Schema  string `json:"schema"`
}

// AuditQuery holds optional filters for the audit listing.
type AuditQuery struct {
	PrincipalID string
	ActionType  string
	Status      string
	Limit       int
	Offset      int
}

// Login exchanges an employee ID for a session token.
func (c *Client) Login(employeeID string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(http.MethodPost, "/v1/login", map[string]string{"employee_id": employeeID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit sends a natural-language instruction.
func (c *Client) Submit(instruction string) (*InstructionResponse, error) {
	var out InstructionResponse
	err := c.do(http.MethodPost, "/v1/instructions", map[string]string{"instruction": instruction}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm executes the pending action.
func (c *Client) Confirm() (*InstructionResponse, error) {
	var out InstructionResponse
	err := c.do(http.MethodPost, "/v1/instructions/confirm", struct{}{}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject discards the pending action.
func (c *Client) Reject() error {
	return c.do(http.MethodPost, "/v1/instructions/reject", struct{}{}, nil)
}

// Audit fetches a filtered page of the ledger.
func (c *Client) Audit(q AuditQuery) (*AuditListResponse, error) {
	params := url.Values{}
	if q.PrincipalID != "" {
		params.Set("principal_id", q.PrincipalID)
	}
	if q.ActionType != "" {
		params.Set("action_type", q.ActionType)
	}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	path := "/v1/audit"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out AuditListResponse
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Schema fetches the dataset's table definitions.
func (c *Client) Schema() (*SchemaResponse, error) {
	var out SchemaResponse
	if err := c.do(http.MethodGet, "/v1/schema", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode, Message: resp.Status}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
