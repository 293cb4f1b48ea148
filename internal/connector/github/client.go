// Package github is a lightweight GitHub REST v3 client for ingesting
// issues and pull requests with their comment threads.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// APIBase is the base URL for the GitHub REST API.
	APIBase = "https://api.github.com"

	// perPage is the page size for list endpoints (GitHub maximum).
	perPage = 100
)

// ErrRateLimited indicates the GitHub API quota is exhausted.
var ErrRateLimited = errors.New("github API rate limit exceeded")

// Client is a lightweight GitHub REST API client.
// An empty token is allowed: requests run anonymously at the much lower
// unauthenticated rate limit (60 req/hour).
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used for GitHub Enterprise and tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new GitHub API client.
func New(token string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		token:      token,
		baseURL:    APIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchIssues retrieves issues for a repository, excluding pull requests,
// including each issue's comments.
//
// Parameters:
//   - state: "open", "closed" or "all"
//   - maxItems: maximum issues to return (0 = unlimited)
//
// Pagination is handled automatically at 100 items per page.
func (c *Client) FetchIssues(ctx context.Context, owner, repo, state string, maxItems int) ([]Issue, error) {
	if state == "" {
		state = "all"
	}

	var issues []Issue
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/%s/issues?state=%s&per_page=%d&page=%d",
			c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.QueryEscape(state), perPage, page)

		var pageItems []Issue
		if err := c.get(ctx, endpoint, &pageItems); err != nil {
			return nil, fmt.Errorf("fetching issues page %d: %w", page, err)
		}
		if len(pageItems) == 0 {
			break
		}

		for _, issue := range pageItems {
			// The issues endpoint interleaves pull requests; skip them.
			if issue.PullRequest != nil {
				continue
			}
			issues = append(issues, issue)
			if maxItems > 0 && len(issues) >= maxItems {
				break
			}
		}

		if maxItems > 0 && len(issues) >= maxItems {
			issues = issues[:maxItems]
			break
		}
		if len(pageItems) < perPage {
			break
		}
	}

	// Fetch comment threads
	for i := range issues {
		if issues[i].CommentsCount == 0 {
			continue
		}
		comments, err := c.fetchIssueComments(ctx, owner, repo, issues[i].Number)
		if err != nil {
			c.logger.Warn("failed to fetch issue comments, continuing without them",
				"repo", owner+"/"+repo,
				"issue", issues[i].Number,
				"error", err)
			continue
		}
		issues[i].Comments = comments
	}

	c.logger.Info("fetched github issues",
		"repo", owner+"/"+repo,
		"state", state,
		"count", len(issues))

	return issues, nil
}

// FetchPullRequests retrieves pull requests for a repository, including
// conversation comments and inline review comments.
func (c *Client) FetchPullRequests(ctx context.Context, owner, repo, state string, maxItems int) ([]PullRequest, error) {
	if state == "" {
		state = "all"
	}

	var prs []PullRequest
	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/%s/pulls?state=%s&per_page=%d&page=%d",
			c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.QueryEscape(state), perPage, page)

		var pageItems []PullRequest
		if err := c.get(ctx, endpoint, &pageItems); err != nil {
			return nil, fmt.Errorf("fetching pull requests page %d: %w", page, err)
		}
		if len(pageItems) == 0 {
			break
		}

		prs = append(prs, pageItems...)
		if maxItems > 0 && len(prs) >= maxItems {
			prs = prs[:maxItems]
			break
		}
		if len(pageItems) < perPage {
			break
		}
	}

	for i := range prs {
		comments, err := c.fetchIssueComments(ctx, owner, repo, prs[i].Number)
		if err != nil {
			c.logger.Warn("failed to fetch PR comments, continuing without them",
				"repo", owner+"/"+repo,
				"pr", prs[i].Number,
				"error", err)
		} else {
			prs[i].Comments = comments
		}

		reviewComments, err := c.fetchReviewComments(ctx, owner, repo, prs[i].Number)
		if err != nil {
			c.logger.Warn("failed to fetch PR review comments, continuing without them",
				"repo", owner+"/"+repo,
				"pr", prs[i].Number,
				"error", err)
		} else {
			prs[i].ReviewComments = reviewComments
		}
	}

	c.logger.Info("fetched github pull requests",
		"repo", owner+"/"+repo,
		"state", state,
		"count", len(prs))

	return prs, nil
}

// RateLimit returns the remaining core API quota.
func (c *Client) RateLimit(ctx context.Context) (*RateLimit, error) {
	var resp struct {
		Resources struct {
			Core struct {
				Limit     int   `json:"limit"`
				Remaining int   `json:"remaining"`
				Reset     int64 `json:"reset"`
			} `json:"core"`
		} `json:"resources"`
	}

	if err := c.get(ctx, c.baseURL+"/rate_limit", &resp); err != nil {
		return nil, fmt.Errorf("fetching rate limit: %w", err)
	}

	return &RateLimit{
		Limit:     resp.Resources.Core.Limit,
		Remaining: resp.Resources.Core.Remaining,
		Reset:     time.Unix(resp.Resources.Core.Reset, 0),
	}, nil
}

// fetchIssueComments retrieves all conversation comments on an issue or PR.
func (c *Client) fetchIssueComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	return c.fetchComments(ctx, fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number))
}

// fetchReviewComments retrieves inline review comments on a PR.
func (c *Client) fetchReviewComments(ctx context.Context, owner, repo string, number int) ([]Comment, error) {
	return c.fetchComments(ctx, fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), number))
}

func (c *Client) fetchComments(ctx context.Context, endpoint string) ([]Comment, error) {
	var all []Comment
	for page := 1; ; page++ {
		var pageItems []Comment
		if err := c.get(ctx, fmt.Sprintf("%s?per_page=%d&page=%d", endpoint, perPage, page), &pageItems); err != nil {
			return nil, err
		}
		all = append(all, pageItems...)
		if len(pageItems) < perPage {
			break
		}
	}
	return all, nil
}

// get performs a GET request against the GitHub API.
func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			reset := resp.Header.Get("X-RateLimit-Reset")
			if ts, parseErr := strconv.ParseInt(reset, 10, 64); parseErr == nil {
				return fmt.Errorf("%w: resets at %s", ErrRateLimited, time.Unix(ts, 0).Format(time.RFC3339))
			}
			return ErrRateLimited
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("github API error (status %d): %s", resp.StatusCode, snippet(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// snippet truncates an error body for log-safe wrapping.
func snippet(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
