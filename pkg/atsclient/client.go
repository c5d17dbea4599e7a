// Package atsclient talks to the recruiting backend's REST API. It
// implements the interview collaborator interfaces: job and candidate
// lookup, answer scoring, and interview persistence.
package atsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hirevox/hirevox/internal/httpc"
	"github.com/hirevox/hirevox/pkg/interview"
)

// APIError is a non-2xx response from the recruiting backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error body, truncated.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("atsclient: API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the request can be retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is an HTTP client for the recruiting backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the shared HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpc.Client,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "atsclient")
	return c
}

// Job fetches a job posting with its screening questions.
func (c *Client) Job(ctx context.Context, id string) (*interview.Job, error) {
	var job interview.Job
	if err := c.get(ctx, "/api/jobs/"+id, &job); err != nil {
		return nil, fmt.Errorf("fetch job: %w", err)
	}
	return &job, nil
}

// Candidate fetches a candidate profile.
func (c *Client) Candidate(ctx context.Context, id string) (*interview.Candidate, error) {
	var cand interview.Candidate
	if err := c.get(ctx, "/api/candidates/"+id, &cand); err != nil {
		return nil, fmt.Errorf("fetch candidate: %w", err)
	}
	return &cand, nil
}

// ScoreAnswer asks the backend to evaluate one answer.
func (c *Client) ScoreAnswer(ctx context.Context, req interview.ScoreRequest) (*interview.AnswerScore, error) {
	var score interview.AnswerScore
	if err := c.post(ctx, "/api/evaluate", req, &score); err != nil {
		return nil, fmt.Errorf("score answer: %w", err)
	}
	return &score, nil
}

// saveResponse is the backend's reply to interview persistence.
type saveResponse struct {
	ID string `json:"id"`
}

// SaveInterview persists a finished interview and returns its id.
func (c *Client) SaveInterview(ctx context.Context, rec interview.Record) (string, error) {
	var resp saveResponse
	if err := c.post(ctx, "/api/interviews", rec, &resp); err != nil {
		return "", fmt.Errorf("save interview: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("save interview: backend returned no id")
	}
	return resp.ID, nil
}

// Analyze requests the post-interview deep analysis.
func (c *Client) Analyze(ctx context.Context, req interview.AnalysisRequest) error {
	if err := c.post(ctx, "/api/interviews/analyze", req, nil); err != nil {
		return fmt.Errorf("analyze interview: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		c.logger.Warn("backend request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
		)
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Interface assertions.
var (
	_ interview.JobDirectory       = (*Client)(nil)
	_ interview.CandidateDirectory = (*Client)(nil)
	_ interview.AnswerScorer       = (*Client)(nil)
	_ interview.InterviewStore     = (*Client)(nil)
)
