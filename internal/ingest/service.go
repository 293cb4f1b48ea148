package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/weaverai/weaver/internal/connector/github"
	"github.com/weaverai/weaver/internal/connector/slack"
	"github.com/weaverai/weaver/internal/knowledge"
)

var (
	// ErrInvalidRepo indicates a repository not in owner/name form.
	ErrInvalidRepo = errors.New("repository must be in owner/name form")

	// ErrChannelNotFound indicates no visible channel matched the name or ID.
	ErrChannelNotFound = errors.New("slack channel not found")

	// ErrConnectorUnavailable indicates the connector was not configured.
	ErrConnectorUnavailable = errors.New("connector is not configured")
)

// GitHubFetcher is the slice of the GitHub client the service uses.
type GitHubFetcher interface {
	FetchIssues(ctx context.Context, owner, repo, state string, maxItems int) ([]github.Issue, error)
	FetchPullRequests(ctx context.Context, owner, repo, state string, maxItems int) ([]github.PullRequest, error)
}

// SlackFetcher is the slice of the Slack client the service uses.
type SlackFetcher interface {
	ListChannels(ctx context.Context) ([]slack.Channel, error)
	ChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error)
	FetchMessages(ctx context.Context, channelID string, maxItems int) ([]slack.Message, error)
}

// DocumentStore is where processed chunks land.
type DocumentStore interface {
	Add(ctx context.Context, userID string, docs ...knowledge.Document) error
}

// Report summarizes one ingestion run.
type Report struct {
	Source    string        `json:"source"`
	Name      string        `json:"name"`
	Items     int           `json:"items"`
	Documents int           `json:"documents"`
	RawFile   string        `json:"raw_file,omitempty"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

// Service runs the fetch, archive, chunk, embed, store pipeline for one
// source at a time. Connectors may be nil when their token is not
// configured; using one then returns ErrConnectorUnavailable.
type Service struct {
	github    GitHubFetcher
	slack     SlackFetcher
	processor *Processor
	raw       *RawStore
	store     DocumentStore
	logger    *slog.Logger
}

// NewService assembles the pipeline.
func NewService(gh GitHubFetcher, sl SlackFetcher, processor *Processor, raw *RawStore, store DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		github:    gh,
		slack:     sl,
		processor: processor,
		raw:       raw,
		store:     store,
		logger:    logger,
	}
}

// IngestGitHub fetches issues and pull requests from repo ("owner/name"),
// archives the raw payload, and indexes the chunked documents for
// username. maxItems <= 0 means no limit per item kind.
func (s *Service) IngestGitHub(ctx context.Context, username, repo string, maxItems int) (*Report, error) {
	if s.github == nil {
		return nil, fmt.Errorf("%w: github", ErrConnectorUnavailable)
	}
	owner, name, ok := strings.Cut(strings.TrimSpace(repo), "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	repo = owner + "/" + name

	start := time.Now()

	issues, err := s.github.FetchIssues(ctx, owner, name, "all", maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issues from %s: %w", repo, err)
	}
	prs, err := s.github.FetchPullRequests(ctx, owner, name, "all", maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull requests from %s: %w", repo, err)
	}

	rawFile, err := s.raw.Save(username, "github", repo, map[string]any{
		"repo":          repo,
		"fetched_at":    start.UTC(),
		"issues":        issues,
		"pull_requests": prs,
	})
	if err != nil {
		return nil, err
	}

	docs := s.processor.ProcessIssues(username, repo, issues)
	docs = append(docs, s.processor.ProcessPullRequests(username, repo, prs)...)

	if err := s.store.Add(ctx, username, docs...); err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", repo, err)
	}

	report := &Report{
		Source:    "github",
		Name:      repo,
		Items:     len(issues) + len(prs),
		Documents: len(docs),
		RawFile:   rawFile,
		Elapsed:   time.Since(start),
	}
	report.ElapsedMS = report.Elapsed.Milliseconds()

	s.logger.Info("ingested github repository",
		"user", username,
		"repo", repo,
		"issues", len(issues),
		"pull_requests", len(prs),
		"documents", len(docs))
	return report, nil
}

// IngestSlack fetches a channel's history, archives it, and indexes the
// chunked documents for username. channel may be a channel ID or a
// name, with or without the leading '#'.
func (s *Service) IngestSlack(ctx context.Context, username, channel string, maxItems int) (*Report, error) {
	if s.slack == nil {
		return nil, fmt.Errorf("%w: slack", ErrConnectorUnavailable)
	}

	start := time.Now()

	ch, err := s.resolveChannel(ctx, channel)
	if err != nil {
		return nil, err
	}

	messages, err := s.slack.FetchMessages(ctx, ch.ID, maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch #%s history: %w", ch.Name, err)
	}

	rawFile, err := s.raw.Save(username, "slack", ch.Name, map[string]any{
		"channel_id":   ch.ID,
		"channel_name": ch.Name,
		"fetched_at":   start.UTC(),
		"messages":     messages,
	})
	if err != nil {
		return nil, err
	}

	docs := s.processor.ProcessMessages(username, ch.ID, ch.Name, messages)
	if err := s.store.Add(ctx, username, docs...); err != nil {
		return nil, fmt.Errorf("failed to index #%s: %w", ch.Name, err)
	}

	report := &Report{
		Source:    "slack",
		Name:      ch.Name,
		Items:     len(messages),
		Documents: len(docs),
		RawFile:   rawFile,
		Elapsed:   time.Since(start),
	}
	report.ElapsedMS = report.Elapsed.Milliseconds()

	s.logger.Info("ingested slack channel",
		"user", username,
		"channel", ch.Name,
		"messages", len(messages),
		"documents", len(docs))
	return report, nil
}

// ListRawFiles exposes the user's archived snapshots.
func (s *Service) ListRawFiles(username string) ([]RawFile, error) {
	return s.raw.List(username)
}

// resolveChannel accepts a channel ID ("C..." style) or a name and
// returns the channel metadata.
func (s *Service) resolveChannel(ctx context.Context, channel string) (*slack.Channel, error) {
	channel = strings.TrimPrefix(strings.TrimSpace(channel), "#")
	if channel == "" {
		return nil, fmt.Errorf("%w: empty channel", ErrChannelNotFound)
	}

	// Try as an ID first; Slack channel IDs start with C.
	if strings.HasPrefix(channel, "C") && strings.ToUpper(channel) == channel {
		if ch, err := s.slack.ChannelInfo(ctx, channel); err == nil {
			return ch, nil
		}
	}

	channels, err := s.slack.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	for i := range channels {
		if channels[i].Name == channel || channels[i].ID == channel {
			return &channels[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrChannelNotFound, channel)
}
