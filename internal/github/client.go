// Package github fetches workflow run history from the GitHub Actions REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// ErrUnauthorized is returned when the API rejects the token.
var ErrUnauthorized = errors.New("github: unauthorized")

// Client lists workflow runs for a repository.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// NewClient creates a GitHub Actions client. baseURL is used for testing and
// GitHub Enterprise; pass an empty string to use the public API. An empty
// token sends unauthenticated requests.
func NewClient(token, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// maxPerPage is the largest page size the runs endpoint honors.
const maxPerPage = 100

// ListRuns returns up to limit recent runs of repo ("owner/name"), following
// pages of at most 100 runs until limit is reached or the history ends. When
// workflowName is non-empty only runs of that workflow are kept; the filter
// is applied after the fetch, so fewer than limit runs may come back.
func (c *Client) ListRuns(ctx context.Context, repo, workflowName string, limit int) ([]workflow.Run, error) {
	if limit < 1 {
		limit = 1
	}
	perPage := min(limit, maxPerPage)

	var fetched []workflowRun
	for page := 1; len(fetched) < limit; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/actions/runs?per_page=%d&page=%d", c.baseURL, repo, perPage, page)
		var result struct {
			WorkflowRuns []workflowRun `json:"workflow_runs"`
		}
		if err := c.get(ctx, endpoint, &result); err != nil {
			return nil, fmt.Errorf("listing runs for %s: %w", repo, err)
		}
		fetched = append(fetched, result.WorkflowRuns...)
		if len(result.WorkflowRuns) < perPage {
			break
		}
	}
	if len(fetched) > limit {
		fetched = fetched[:limit]
	}

	runs := make([]workflow.Run, 0, len(fetched))
	for _, r := range fetched {
		if workflowName != "" && r.Name != workflowName {
			continue
		}
		runs = append(runs, r.toRun())
	}
	return runs, nil
}

// CheckAuth calls the rate-limit endpoint, which does not count against the
// quota, to verify connectivity and credentials.
func (c *Client) CheckAuth(ctx context.Context) error {
	var out struct{}
	return c.get(ctx, c.baseURL+"/rate_limit", &out)
}

func (c *Client) get(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		return fmt.Errorf("github API error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// workflowRun is the raw API response shape for a workflow run.
type workflowRun struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func (r workflowRun) toRun() workflow.Run {
	created, _ := time.Parse(time.RFC3339, r.CreatedAt)
	updated, _ := time.Parse(time.RFC3339, r.UpdatedAt)
	return workflow.NewRun(strconv.FormatInt(r.ID, 10), r.Name, r.Status, r.Conclusion, created, updated)
}
