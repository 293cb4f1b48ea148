package rag

import (
	"context"
	"fmt"

	"github.com/weaverai/weaver/internal/knowledge"
)

// statsSampleLimit caps per-source-type samples in the stats view.
const statsSampleLimit = 3

// StatsStore is the slice of the knowledge store Stats needs.
type StatsStore interface {
	Count(ctx context.Context, userID string) (int, error)
	ListSourceTypes(ctx context.Context, userID string) (map[string]int, error)
	ListRepositories(ctx context.Context, userID string) ([]string, error)
	SampleBySourceType(ctx context.Context, userID, sourceType string, limit int32) ([]knowledge.Document, error)
}

// SourceStats summarizes one source type.
type SourceStats struct {
	Documents int      `json:"documents"`
	Samples   []string `json:"samples,omitempty"`
}

// Stats is the per-user knowledge base summary.
type Stats struct {
	TotalDocuments int                    `json:"total_documents"`
	Sources        map[string]SourceStats `json:"sources"`
	Repositories   []string               `json:"repositories"`
}

// CollectStats summarizes what userID has indexed: total chunks,
// per-source-type counts with a few sample titles or channels, and the
// list of ingested repositories.
func CollectStats(ctx context.Context, store StatsStore, userID string) (*Stats, error) {
	total, err := store.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats := &Stats{
		TotalDocuments: total,
		Sources:        make(map[string]SourceStats),
	}
	if total == 0 {
		return stats, nil
	}

	byType, err := store.ListSourceTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source types: %w", err)
	}

	for sourceType, count := range byType {
		entry := SourceStats{Documents: count}
		docs, err := store.SampleBySourceType(ctx, userID, sourceType, statsSampleLimit)
		if err == nil {
			entry.Samples = sampleLabels(docs)
		}
		stats.Sources[sourceType] = entry
	}

	repos, err := store.ListRepositories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	stats.Repositories = repos

	return stats, nil
}

// sampleLabels picks a human-readable label per sampled document:
// issue or PR titles for GitHub content, channel names for Slack.
func sampleLabels(docs []knowledge.Document) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, doc := range docs {
		label := doc.Metadata["title"]
		if label == "" {
			label = doc.Metadata["channel"]
		}
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}
