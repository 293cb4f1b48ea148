package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/weaverai/weaver/internal/app"
	"github.com/weaverai/weaver/internal/config"
)

// runAsk answers a single question from the terminal:
//
//	weaver ask [--user name] <question...>
func runAsk() error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	user := fs.String("user", "default", "account whose knowledge base to query")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return fmt.Errorf("parse ask flags: %w", err)
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: weaver ask [--user name] <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.RequireAPIKey(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := initLogger()
	slog.SetDefault(logger)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup application: %w", err)
	}
	defer a.Close()

	answer, err := a.Engine.Ask(ctx, *user, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, src := range answer.Sources {
			fmt.Printf("  %d. %s (similarity %.2f)\n", i+1, sourceLabel(src.Metadata), src.Similarity)
		}
	}
	if answer.Fallback {
		fmt.Println()
		fmt.Println("(generation unavailable, showing the most relevant excerpts)")
	}
	return nil
}

// sourceLabel renders a short human-readable origin for a source.
func sourceLabel(meta map[string]string) string {
	switch meta["source_type"] {
	case "github_issue", "github_pull_request":
		if meta["repo"] != "" && meta["number"] != "" {
			return fmt.Sprintf("%s#%s %s", meta["repo"], meta["number"], meta["title"])
		}
	case "slack_message":
		if meta["channel"] != "" {
			return "#" + meta["channel"]
		}
	}
	if meta["title"] != "" {
		return meta["title"]
	}
	return meta["source_type"]
}
