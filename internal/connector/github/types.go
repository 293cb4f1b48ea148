package github

import "time"

// User identifies a GitHub account on issues, pull requests and comments.
type User struct {
	Login string `json:"login"`
}

// Comment is an issue comment or a pull request review comment.
type Comment struct {
	User      User      `json:"user"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Issue is a GitHub issue with its comments.
// The REST issues endpoint also returns pull requests; the PullRequest
// field discriminates them and such entries are skipped by FetchIssues.
type Issue struct {
	Number        int       `json:"number"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	State         string    `json:"state"`
	User          User      `json:"user"`
	HTMLURL       string    `json:"html_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CommentsCount int       `json:"comments"`

	// Present only when the entry is actually a pull request.
	PullRequest *struct{} `json:"pull_request,omitempty"`

	// Comments is populated by a follow-up request, not by the list endpoint.
	Comments []Comment `json:"-"`
}

// PullRequest is a GitHub pull request with issue comments and review comments.
type PullRequest struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Merged    bool      `json:"merged"`
	User      User      `json:"user"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Populated by follow-up requests, not by the list endpoint.
	Comments       []Comment `json:"-"` // conversation comments
	ReviewComments []Comment `json:"-"` // inline review comments
}

// RateLimit reports the core API quota for the authenticated caller.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"-"`
}
