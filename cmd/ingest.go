package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/weaverai/weaver/internal/app"
	"github.com/weaverai/weaver/internal/config"
)

// runIngest pulls one source into a user's knowledge base:
//
//	weaver ingest github <owner/repo> [--user name] [--max n]
//	weaver ingest slack <channel>     [--user name] [--max n]
func runIngest() error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	user := fs.String("user", "default", "account whose knowledge base to use")
	maxItems := fs.Int("max", 0, "cap fetched items per kind (0 = unlimited)")
	if err := fs.Parse(os.Args[2:]); err != nil {
		return fmt.Errorf("parse ingest flags: %w", err)
	}

	args := fs.Args()
	if len(args) < 2 {
		return fmt.Errorf("usage: weaver ingest <github|slack> <target> [--user name] [--max n]")
	}
	source, target := args[0], args[1]

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
	if source == "slack" {
		if err := cfg.RequireSlackToken(); err != nil {
			return err
		}
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

	switch source {
	case "github":
		report, err := a.Ingest.IngestGitHub(ctx, *user, target, *maxItems)
		if err != nil {
			return fmt.Errorf("ingest github %s: %w", target, err)
		}
		printReport(report.Source, report.Name, report.Items, report.Documents, report.ElapsedMS)
	case "slack":
		report, err := a.Ingest.IngestSlack(ctx, *user, target, *maxItems)
		if err != nil {
			return fmt.Errorf("ingest slack %s: %w", target, err)
		}
		printReport(report.Source, report.Name, report.Items, report.Documents, report.ElapsedMS)
	default:
		return fmt.Errorf("unknown ingest source %q (expected github or slack)", source)
	}
	return nil
}

func printReport(source, name string, items, documents int, elapsedMS int64) {
	fmt.Printf("Ingested %s %s: %d items, %d document chunks indexed (%.1fs)\n",
		source, name, items, documents, float64(elapsedMS)/1000)
}
