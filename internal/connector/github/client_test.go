package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/weaverai/weaver/internal/log"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("test-token", log.NewNop(), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestFetchIssues_SkipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"number": 1, "title": "real issue", "state": "open", "user": {"login": "alice"}, "comments": 0},
			{"number": 2, "title": "actually a PR", "state": "open", "user": {"login": "bob"}, "pull_request": {}}
		]`)
	})

	client := newTestClient(t, mux)

	issues, err := client.FetchIssues(context.Background(), "acme", "api", "open", 0)
	if err != nil {
		t.Fatalf("FetchIssues() error: %v", err)
	}

	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Number != 1 || issues[0].Title != "real issue" {
		t.Errorf("unexpected issue: %+v", issues[0])
	}
}

func TestFetchIssues_IncludesComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"number": 7, "title": "bug", "user": {"login": "alice"}, "comments": 2}]`)
	})
	mux.HandleFunc("/repos/acme/api/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"user": {"login": "bob"}, "body": "can reproduce"},
			{"user": {"login": "carol"}, "body": "fixed in main"}
		]`)
	})

	client := newTestClient(t, mux)

	issues, err := client.FetchIssues(context.Background(), "acme", "api", "all", 0)
	if err != nil {
		t.Fatalf("FetchIssues() error: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if len(issues[0].Comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(issues[0].Comments))
	}
	if issues[0].Comments[0].User.Login != "bob" {
		t.Errorf("first comment author = %q, want bob", issues[0].Comments[0].User.Login)
	}
}

func TestFetchIssues_MaxItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"number": 1, "title": "a", "comments": 0},
			{"number": 2, "title": "b", "comments": 0},
			{"number": 3, "title": "c", "comments": 0}
		]`)
	})

	client := newTestClient(t, mux)

	issues, err := client.FetchIssues(context.Background(), "acme", "api", "all", 2)
	if err != nil {
		t.Fatalf("FetchIssues() error: %v", err)
	}
	if len(issues) != 2 {
		t.Errorf("got %d issues, want 2", len(issues))
	}
}

func TestFetchPullRequests_IncludesReviewComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"number": 10, "title": "add retries", "state": "closed", "merged": true, "user": {"login": "alice"}}]`)
	})
	mux.HandleFunc("/repos/acme/api/issues/10/comments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"user": {"login": "bob"}, "body": "LGTM"}]`)
	})
	mux.HandleFunc("/repos/acme/api/pulls/10/comments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"user": {"login": "carol"}, "body": "rename this variable"}]`)
	})

	client := newTestClient(t, mux)

	prs, err := client.FetchPullRequests(context.Background(), "acme", "api", "all", 0)
	if err != nil {
		t.Fatalf("FetchPullRequests() error: %v", err)
	}
	if len(prs) != 1 {
		t.Fatalf("got %d PRs, want 1", len(prs))
	}
	if len(prs[0].Comments) != 1 || prs[0].Comments[0].Body != "LGTM" {
		t.Errorf("unexpected comments: %+v", prs[0].Comments)
	}
	if len(prs[0].ReviewComments) != 1 || prs[0].ReviewComments[0].Body != "rename this variable" {
		t.Errorf("unexpected review comments: %+v", prs[0].ReviewComments)
	}
}

func TestGet_RateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/api/issues", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1893456000")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	client := newTestClient(t, mux)

	_, err := client.FetchIssues(context.Background(), "acme", "api", "all", 0)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestRateLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"resources": {"core": {"limit": 5000, "remaining": 4999, "reset": 1893456000}}}`)
	})

	client := newTestClient(t, mux)

	rl, err := client.RateLimit(context.Background())
	if err != nil {
		t.Fatalf("RateLimit() error: %v", err)
	}
	if rl.Limit != 5000 || rl.Remaining != 4999 {
		t.Errorf("unexpected rate limit: %+v", rl)
	}
}

func TestGet_SendsAuthHeader(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"resources": {"core": {}}}`)
	})

	client := newTestClient(t, mux)

	if _, err := client.RateLimit(context.Background()); err != nil {
		t.Fatalf("RateLimit() error: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", gotAuth)
	}
}
