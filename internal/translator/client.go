// Package translator implements the NL→SQL translation boundary over an
// Ollama chat endpoint. The core treats it as opaque: one attempt per
// instruction, transport failures reported as UnavailableError so callers
// can fail closed.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"querygate/internal/config"
	"querygate/internal/domain"
)

const translateSystemPrompt = `You are a SQL expert. Use the provided database schema to write a valid SQLite query.
Output ONLY the SQL code. No explanation. No markdown backticks.

DATABASE SCHEMA:
%s`

const ambiguitySystemPrompt = `You check whether a natural-language database request is specific enough to translate into exactly one SQL query against the schema below. A request is ambiguous when it could reasonably map to more than one query, for example a vague superlative ("best", "top") when several numeric columns could rank the rows.

Return ONLY valid JSON in this form:
{"ambiguous": false, "clarification": ""}
or
{"ambiguous": true, "clarification": "question listing the candidate interpretations"}

DATABASE SCHEMA:
%s`

var fenceRe = regexp.MustCompile("```(?:sql|json)?")

// Client talks to an Ollama-compatible chat endpoint. Implements
// domain.Translator.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a translator client from config.
func New(cfg config.TranslatorConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	// Zero temperature for deterministic SQL.
	Options map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Translate maps (schema, instruction) to a candidate SQL string.
func (c *Client) Translate(ctx context.Context, instruction, schema string) (string, error) {
	content, err := c.chat(ctx, fmt.Sprintf(translateSystemPrompt, schema), instruction)
	if err != nil {
		return "", err
	}

	sqlOutput := strings.TrimSpace(fenceRe.ReplaceAllString(content, ""))
	if sqlOutput == "" {
		return "", domain.ErrUnavailable("translator returned an empty statement")
	}
	return sqlOutput, nil
}

// CheckAmbiguity asks whether the instruction is well-specified against the
// schema. Malformed verdicts are reported as UnavailableError; the caller
// fails closed rather than passing the instruction through unchecked.
func (c *Client) CheckAmbiguity(ctx context.Context, instruction, schema string) (domain.AmbiguityResult, error) {
	content, err := c.chat(ctx, fmt.Sprintf(ambiguitySystemPrompt, schema), instruction)
	if err != nil {
		return domain.AmbiguityResult{}, err
	}

	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(content, ""))
	var verdict struct {
		Ambiguous     bool   `json:"ambiguous"`
		Clarification string `json:"clarification"`
	}
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return domain.AmbiguityResult{}, domain.ErrUnavailable("translator returned a malformed ambiguity verdict: %v", err)
	}
	return domain.AmbiguityResult{Ambiguous: verdict.Ambiguous, Prompt: verdict.Clarification}, nil
}

func (c *Client) chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream:  false,
		Options: map[string]interface{}{"temperature": 0},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal translator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create translator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.ErrUnavailable("translator unreachable: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.ErrUnavailable("translator error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.ErrUnavailable("decode translator response: %v", err)
	}
	return parsed.Message.Content, nil
}
