package slack

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
	return New("xoxb-test", log.NewNop(), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestAuthTest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("Authorization = %q, want Bearer xoxb-test", got)
		}
		fmt.Fprint(w, `{"ok": true, "team": "acme", "user": "weaver-bot", "url": "https://acme.slack.com/"}`)
	})

	client := newTestClient(t, mux)

	id, err := client.AuthTest(context.Background())
	if err != nil {
		t.Fatalf("AuthTest() error: %v", err)
	}
	if id.Team != "acme" || id.User != "weaver-bot" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestAuthTest_InvalidToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "invalid_auth"}`)
	})

	client := newTestClient(t, mux)

	_, err := client.AuthTest(context.Background())
	if !errors.Is(err, ErrSlackAPI) {
		t.Errorf("error = %v, want ErrSlackAPI", err)
	}
}

func TestListChannels_Pagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{"ok": true, "channels": [{"id": "C1", "name": "general"}], "response_metadata": {"next_cursor": "abc"}}`)
			return
		}
		fmt.Fprint(w, `{"ok": true, "channels": [{"id": "C2", "name": "random"}], "response_metadata": {"next_cursor": ""}}`)
	})

	client := newTestClient(t, mux)

	channels, err := client.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("ListChannels() error: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(channels))
	}
	if channels[0].ID != "C1" || channels[1].ID != "C2" {
		t.Errorf("unexpected channels: %+v", channels)
	}
}

func TestFetchMessages_ResolvesUsersAndReplies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": true, "has_more": false, "messages": [
			{"type": "message", "user": "U1", "text": "how do we deploy?", "ts": "1700000000.000100", "reply_count": 1},
			{"type": "message", "user": "U2", "text": "just a note", "ts": "1700000001.000100"},
			{"type": "message", "subtype": "channel_join", "user": "U3", "text": "joined", "ts": "1700000002.000100"}
		]}`)
	})
	mux.HandleFunc("/conversations.replies", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": true, "has_more": false, "messages": [
			{"type": "message", "user": "U1", "text": "how do we deploy?", "ts": "1700000000.000100"},
			{"type": "message", "user": "U2", "text": "use the release script", "ts": "1700000000.000200", "thread_ts": "1700000000.000100"}
		]}`)
	})
	var userCalls int
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		userCalls++
		switch r.URL.Query().Get("user") {
		case "U1":
			fmt.Fprint(w, `{"ok": true, "user": {"id": "U1", "name": "alice", "profile": {"display_name": "Alice"}}}`)
		default:
			fmt.Fprint(w, `{"ok": true, "user": {"id": "U2", "name": "bob", "profile": {"real_name": "Bob B"}}}`)
		}
	})

	client := newTestClient(t, mux)

	messages, err := client.FetchMessages(context.Background(), "C1", 0)
	if err != nil {
		t.Fatalf("FetchMessages() error: %v", err)
	}

	// channel_join is skipped
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].UserName != "Alice" {
		t.Errorf("UserName = %q, want Alice", messages[0].UserName)
	}
	if messages[1].UserName != "Bob B" {
		t.Errorf("UserName = %q, want Bob B", messages[1].UserName)
	}
	if len(messages[0].Replies) != 1 || messages[0].Replies[0].Text != "use the release script" {
		t.Errorf("unexpected replies: %+v", messages[0].Replies)
	}
	// U1 and U2 each resolved once, then served from cache.
	if userCalls != 2 {
		t.Errorf("users.info called %d times, want 2", userCalls)
	}
}

func TestResolveUser_TransportFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client := newTestClient(t, mux)

	// A failed lookup falls back to the raw user ID.
	if got := client.resolveUser(context.Background(), "U404"); got != "U404" {
		t.Errorf("resolveUser() = %q, want U404", got)
	}
}

func TestFetchMessages_NotInChannel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.history", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "not_in_channel"}`)
	})

	client := newTestClient(t, mux)

	_, err := client.FetchMessages(context.Background(), "C1", 0)
	if !errors.Is(err, ErrNotInChannel) {
		t.Errorf("error = %v, want ErrNotInChannel", err)
	}
}

func TestFetchReplies_ExcludesParent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.replies", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": true, "has_more": false, "messages": [
			{"type": "message", "user": "U1", "text": "parent", "ts": "1.0"},
			{"type": "message", "user": "U2", "text": "child", "ts": "1.1", "thread_ts": "1.0"}
		]}`)
	})
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": true, "user": {"id": "U2", "name": "bob"}}`)
	})

	client := newTestClient(t, mux)

	replies, err := client.FetchReplies(context.Background(), "C1", "1.0")
	if err != nil {
		t.Fatalf("FetchReplies() error: %v", err)
	}
	if len(replies) != 1 || replies[0].Text != "child" {
		t.Errorf("unexpected replies: %+v", replies)
	}
}

func TestChannelInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.info", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ok": true, "channel": {"id": "C1", "name": "general", "num_members": 42, "topic": {"value": "company wide"}}}`)
	})

	client := newTestClient(t, mux)

	ch, err := client.ChannelInfo(context.Background(), "C1")
	if err != nil {
		t.Fatalf("ChannelInfo() error: %v", err)
	}
	if ch.Name != "general" || ch.NumMembers != 42 || ch.Topic.Value != "company wide" {
		t.Errorf("unexpected channel: %+v", ch)
	}
}
