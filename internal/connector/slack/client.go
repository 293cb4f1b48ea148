// Package slack fetches channel history from the Slack Web API for
// ingestion. Only the conversations.* and users.info surface is used;
// the client resolves user IDs to display names and inlines thread
// replies so downstream processing sees complete conversations.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// APIBase is the Slack Web API root.
	APIBase = "https://slack.com/api"

	// historyBatch is the page size for conversations.history and
	// conversations.replies.
	historyBatch = 200
)

var (
	// ErrNotInChannel indicates the bot must be invited before it can
	// read the channel's history.
	ErrNotInChannel = errors.New("slack: bot is not a member of the channel")

	// ErrSlackAPI wraps any other ok:false response from the Web API.
	ErrSlackAPI = errors.New("slack: api error")
)

// Client talks to the Slack Web API with a bot token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	userNames map[string]string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client using the given bot token.
func New(token string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    APIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		userNames:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthTest verifies the token and returns the bot's identity.
func (c *Client) AuthTest(ctx context.Context) (*Identity, error) {
	var resp authTestResponse
	if err := c.call(ctx, "auth.test", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%w: auth.test: %s", ErrSlackAPI, resp.Error)
	}
	return &Identity{Team: resp.Team, User: resp.User, URL: resp.URL}, nil
}

// ListChannels returns all public channels visible to the bot,
// following cursor pagination.
func (c *Client) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	cursor := ""

	for {
		params := url.Values{
			"types": {"public_channel"},
			"limit": {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp channelsResponse
		if err := c.call(ctx, "conversations.list", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("%w: conversations.list: %s", ErrSlackAPI, resp.Error)
		}

		channels = append(channels, resp.Channels...)

		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return channels, nil
		}
	}
}

// ChannelInfo returns metadata for a single channel.
func (c *Client) ChannelInfo(ctx context.Context, channelID string) (*Channel, error) {
	params := url.Values{"channel": {channelID}}

	var resp channelInfoResponse
	if err := c.call(ctx, "conversations.info", params, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, c.apiError("conversations.info", resp.Error)
	}
	return &resp.Channel, nil
}

// FetchMessages returns up to maxItems messages from the channel, newest
// first as Slack delivers them. Thread parents get their replies
// attached, and user IDs are resolved to display names. maxItems <= 0
// means no limit.
func (c *Client) FetchMessages(ctx context.Context, channelID string, maxItems int) ([]Message, error) {
	var messages []Message
	cursor := ""

	for {
		params := url.Values{
			"channel": {channelID},
			"limit":   {fmt.Sprintf("%d", historyBatch)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.call(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, c.apiError("conversations.history", resp.Error)
		}

		for i := range resp.Messages {
			msg := resp.Messages[i]
			if msg.Subtype != "" && msg.Subtype != "thread_broadcast" {
				continue
			}

			msg.UserName = c.resolveUser(ctx, msg.User)

			if msg.ReplyCount > 0 {
				replies, err := c.FetchReplies(ctx, channelID, msg.TS)
				if err != nil {
					c.logger.Warn("failed to fetch thread replies",
						"channel", channelID,
						"ts", msg.TS,
						"error", err)
				} else {
					msg.Replies = replies
				}
			}

			messages = append(messages, msg)
			if maxItems > 0 && len(messages) >= maxItems {
				return messages, nil
			}
		}

		cursor = resp.ResponseMetadata.NextCursor
		if !resp.HasMore || cursor == "" {
			return messages, nil
		}
	}
}

// FetchReplies returns a thread's replies, excluding the parent message
// itself.
func (c *Client) FetchReplies(ctx context.Context, channelID, threadTS string) ([]Message, error) {
	var replies []Message
	cursor := ""

	for {
		params := url.Values{
			"channel": {channelID},
			"ts":      {threadTS},
			"limit":   {fmt.Sprintf("%d", historyBatch)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.call(ctx, "conversations.replies", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, c.apiError("conversations.replies", resp.Error)
		}

		for i := range resp.Messages {
			msg := resp.Messages[i]
			if msg.TS == threadTS {
				continue
			}
			msg.UserName = c.resolveUser(ctx, msg.User)
			replies = append(replies, msg)
		}

		cursor = resp.ResponseMetadata.NextCursor
		if !resp.HasMore || cursor == "" {
			return replies, nil
		}
	}
}

// resolveUser maps a user ID to a display name via users.info, caching
// the result. Lookup failures degrade to the raw ID.
func (c *Client) resolveUser(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}

	c.mu.Lock()
	if name, ok := c.userNames[userID]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	params := url.Values{"user": {userID}}

	var resp userInfoResponse
	if err := c.call(ctx, "users.info", params, &resp); err != nil {
		c.logger.Debug("user lookup failed", "user", userID, "error", err)
		return userID
	}
	if !resp.OK {
		c.logger.Debug("user lookup failed", "user", userID, "error", resp.Error)
		return userID
	}

	name := resp.User.Profile.DisplayName
	if name == "" {
		name = resp.User.Profile.RealName
	}
	if name == "" {
		name = resp.User.Name
	}
	if name == "" {
		name = userID
	}

	c.mu.Lock()
	c.userNames[userID] = name
	c.mu.Unlock()

	return name
}

func (c *Client) apiError(method, code string) error {
	if code == "not_in_channel" {
		return ErrNotInChannel
	}
	return fmt.Errorf("%w: %s: %s", ErrSlackAPI, method, code)
}

// call issues a GET against the Web API method and decodes the JSON
// response into result.
func (c *Client) call(ctx context.Context, method string, params url.Values, result any) error {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, snippet)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
