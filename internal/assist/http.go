package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"datamerge/internal/dataset"
	"datamerge/internal/join"
	"datamerge/internal/profile"
)

// doer is the minimal HTTP seam. Production uses *http.Client; tests inject
// a fake to avoid real network traffic.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the HTTP implementation of Advisor.
//
// The client performs no retries and sets no timeout of its own beyond the
// underlying http.Client's; callers pass a context and own cancellation.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    doer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPDoer replaces the HTTP transport. Test seam.
func WithHTTPDoer(d doer) Option {
	return func(c *Client) { c.http = d }
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithModel selects the reasoning model advertised to the service.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// NewClient builds an advisor client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidatesRequest struct {
	Model     string            `json:"model,omitempty"`
	Summaries []profile.Summary `json:"summaries"`
}

type candidatesResponse struct {
	Candidates []dataset.Candidate `json:"candidates"`
}

type planRequest struct {
	Model     string            `json:"model,omitempty"`
	Summaries []profile.Summary `json:"summaries"`
	Candidate dataset.Candidate `json:"candidate"`
}

type planResponse struct {
	Plan string `json:"plan"`
}

type mergeRequest struct {
	Model     string            `json:"model,omitempty"`
	Datasets  []dataset.Dataset `json:"datasets"`
	Candidate dataset.Candidate `json:"candidate"`
}

type chatRequest struct {
	Model     string            `json:"model,omitempty"`
	Question  string            `json:"question"`
	Summaries []profile.Summary `json:"summaries"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// ProposeCandidates asks the service to rank join-key candidates.
func (c *Client) ProposeCandidates(ctx context.Context, summaries []profile.Summary) ([]dataset.Candidate, error) {
	var resp candidatesResponse
	if err := c.post(ctx, "/v1/candidates", candidatesRequest{Model: c.model, Summaries: summaries}, &resp); err != nil {
		return nil, fmt.Errorf("%w: propose candidates: %v", ErrAdvisor, err)
	}
	return resp.Candidates, nil
}

// DraftPlan asks for a human-readable merge plan. Failures degrade to
// PlanFallback rather than surfacing an error.
func (c *Client) DraftPlan(ctx context.Context, summaries []profile.Summary, cand dataset.Candidate) string {
	var resp planResponse
	if err := c.post(ctx, "/v1/plan", planRequest{Model: c.model, Summaries: summaries, Candidate: cand}, &resp); err != nil {
		return PlanFallback
	}
	if resp.Plan == "" {
		return PlanFallback
	}
	return resp.Plan
}

// ExecuteSemanticMerge runs the service-side merge and sanitizes whatever
// comes back. A response that is not a JSON array (or an array holding
// non-objects) is "no usable rows": the affected rows become empty records
// (per-element) or the whole result is empty (non-array), with a nil error.
func (c *Client) ExecuteSemanticMerge(ctx context.Context, datasets []dataset.Dataset, cand dataset.Candidate) ([]join.Record, error) {
	body, err := c.rawPost(ctx, "/v1/merge", mergeRequest{Model: c.model, Datasets: datasets, Candidate: cand})
	if err != nil {
		return nil, fmt.Errorf("%w: semantic merge: %v", ErrAdvisor, err)
	}

	var rows []any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, nil
	}
	return join.SanitizeExternalRows(rows), nil
}

// Chat answers a free-form question about the workspace, degrading to
// ChatFallback on any failure.
func (c *Client) Chat(ctx context.Context, question string, summaries []profile.Summary) string {
	var resp chatResponse
	if err := c.post(ctx, "/v1/chat", chatRequest{Model: c.model, Question: question, Summaries: summaries}, &resp); err != nil {
		return ChatFallback
	}
	if resp.Answer == "" {
		return ChatFallback
	}
	return resp.Answer
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := c.rawPost(ctx, path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) rawPost(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
