// Package cmd routes the weaver CLI: serve runs the HTTP API, ingest
// pulls a source into the knowledge base, ask answers a question from
// the terminal, migrate applies database migrations.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/weaverai/weaver/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the weaver CLI.
// Designed to be called from main() and testable in unit tests.
func Execute() error {
	if len(os.Args) < 2 {
		printHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest()
	case "ask":
		return runAsk()
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		return runVersion()
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

// initLogger builds the process-wide structured logger.
// DEBUG enables debug level; WEAVER_LOG_JSON switches to JSON output.
func initLogger() log.Logger {
	return log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("WEAVER_LOG_JSON") != "",
	})
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func printHelp() {
	fmt.Println("Weaver - ask questions about your team's GitHub and Slack history")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  weaver serve [--addr host:port]          Start the HTTP API server")
	fmt.Println("  weaver ingest github <owner/repo>        Ingest a GitHub repository")
	fmt.Println("  weaver ingest slack <channel>            Ingest a Slack channel")
	fmt.Println("  weaver ask <question...>                 Ask a question from the terminal")
	fmt.Println("  weaver migrate                           Apply database migrations")
	fmt.Println("  weaver version                           Show version information")
	fmt.Println()
	fmt.Println("Common flags:")
	fmt.Println("  --user <name>    Account whose knowledge base to use (ingest, ask)")
	fmt.Println("  --max <n>        Cap fetched items per kind (ingest)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GOOGLE_API_KEY / GEMINI_API_KEY   Required: Gemini API key")
	fmt.Println("  GITHUB_TOKEN                      Optional: raises GitHub rate limits")
	fmt.Println("  SLACK_BOT_TOKEN                   Required for Slack ingestion")
	fmt.Println("  DATABASE_URL                      Optional: PostgreSQL connection URL")
	fmt.Println("  DEBUG                             Optional: enable debug logging")
}
