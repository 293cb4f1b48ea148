package cmd

import (
	"strings"
	"testing"
)

func TestParseServeAddr(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		defaultAddr string
		want        string
		wantErr     bool
	}{
		{
			name:        "default when no args",
			args:        nil,
			defaultAddr: "0.0.0.0:8000",
			want:        "0.0.0.0:8000",
		},
		{
			name:        "addr flag wins",
			args:        []string{"--addr", "127.0.0.1:9000"},
			defaultAddr: "0.0.0.0:8000",
			want:        "127.0.0.1:9000",
		},
		{
			name:        "positional address",
			args:        []string{"localhost:8080"},
			defaultAddr: "0.0.0.0:8000",
			want:        "localhost:8080",
		},
		{
			name:        "bare port binds all interfaces",
			args:        []string{":8080"},
			defaultAddr: "0.0.0.0:8000",
			want:        ":8080",
		},
		{
			name:        "missing port",
			args:        []string{"localhost"},
			defaultAddr: "0.0.0.0:8000",
			wantErr:     true,
		},
		{
			name:        "port out of range",
			args:        []string{"localhost:99999"},
			defaultAddr: "0.0.0.0:8000",
			wantErr:     true,
		},
		{
			name:        "port not numeric",
			args:        []string{"localhost:http"},
			defaultAddr: "0.0.0.0:8000",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseServeAddr(tt.args, tt.defaultAddr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseServeAddr(%v) = %q, want error", tt.args, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseServeAddr(%v): %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("parseServeAddr(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestValidateAddr(t *testing.T) {
	if err := validateAddr("192.168.1.10:8000"); err != nil {
		t.Errorf("validateAddr(ip:port): %v", err)
	}
	if err := validateAddr("bad host:8000"); err == nil {
		t.Error("validateAddr accepted host with whitespace")
	}
	if err := validateAddr("localhost:0"); err == nil {
		t.Error("validateAddr accepted port 0")
	}
}

func TestSourceLabel(t *testing.T) {
	got := sourceLabel(map[string]string{
		"source_type": "github_issue",
		"repo":        "acme/widgets",
		"number":      "42",
		"title":       "Crash on startup",
	})
	if !strings.Contains(got, "acme/widgets#42") {
		t.Errorf("sourceLabel() = %q, want repo#number prefix", got)
	}

	got = sourceLabel(map[string]string{
		"source_type": "slack_message",
		"channel":     "engineering",
	})
	if got != "#engineering" {
		t.Errorf("sourceLabel() = %q, want #engineering", got)
	}

	got = sourceLabel(map[string]string{"source_type": "github_issue"})
	if got != "github_issue" {
		t.Errorf("sourceLabel() fallback = %q", got)
	}
}
