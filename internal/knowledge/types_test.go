package knowledge

import (
	"testing"
	"time"
)

func TestBuildSearchConfig_Defaults(t *testing.T) {
	cfg := buildSearchConfig(nil)

	if cfg.topK != DefaultTopK {
		t.Errorf("default topK = %d, want %d", cfg.topK, DefaultTopK)
	}
	if cfg.filter != nil {
		t.Errorf("default filter = %v, want nil", cfg.filter)
	}
	if cfg.timeout != defaultSearchTimeout {
		t.Errorf("default timeout = %v, want %v", cfg.timeout, defaultSearchTimeout)
	}
}

func TestBuildSearchConfig_TopKClamping(t *testing.T) {
	tests := []struct {
		name string
		k    int
		want int
	}{
		{"within range", 10, 10},
		{"zero falls back to default", 0, DefaultTopK},
		{"negative falls back to default", -3, DefaultTopK},
		{"above max is clamped", 100, MaxTopK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := buildSearchConfig([]SearchOption{WithTopK(tt.k)})
			if cfg.topK != tt.want {
				t.Errorf("topK = %d, want %d", cfg.topK, tt.want)
			}
		})
	}
}

func TestWithFilter_Accumulates(t *testing.T) {
	cfg := buildSearchConfig([]SearchOption{
		WithFilter("source_type", SourceTypeSlackMessage),
		WithFilter("channel", "general"),
	})

	if len(cfg.filter) != 2 {
		t.Fatalf("filter has %d entries, want 2", len(cfg.filter))
	}
	if cfg.filter["source_type"] != SourceTypeSlackMessage {
		t.Errorf("source_type filter = %q", cfg.filter["source_type"])
	}
	if cfg.filter["channel"] != "general" {
		t.Errorf("channel filter = %q", cfg.filter["channel"])
	}
}

func TestWithTimeout(t *testing.T) {
	cfg := buildSearchConfig([]SearchOption{WithTimeout(2 * time.Second)})
	if cfg.timeout != 2*time.Second {
		t.Errorf("timeout = %v, want 2s", cfg.timeout)
	}

	// Non-positive values keep the default
	cfg = buildSearchConfig([]SearchOption{WithTimeout(0)})
	if cfg.timeout != defaultSearchTimeout {
		t.Errorf("timeout = %v, want default", cfg.timeout)
	}
}

func TestValidSourceType(t *testing.T) {
	for _, s := range []string{SourceTypeGitHubIssue, SourceTypeGitHubPR, SourceTypeSlackMessage} {
		if !ValidSourceType(s) {
			t.Errorf("ValidSourceType(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "notion", "file"} {
		if ValidSourceType(s) {
			t.Errorf("ValidSourceType(%q) = true, want false", s)
		}
	}
}
