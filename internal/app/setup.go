package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weaverai/weaver/db"
	"github.com/weaverai/weaver/internal/api"
	"github.com/weaverai/weaver/internal/auth"
	"github.com/weaverai/weaver/internal/config"
	"github.com/weaverai/weaver/internal/connector/github"
	"github.com/weaverai/weaver/internal/connector/slack"
	"github.com/weaverai/weaver/internal/ingest"
	"github.com/weaverai/weaver/internal/knowledge"
	"github.com/weaverai/weaver/internal/observability"
	"github.com/weaverai/weaver/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first so Genkit's TracerProvider has the processor.
	a.otelCleanup = observability.Setup(ctx, cfg.OTLPEndpoint, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder, err := provideEmbedder(g, cfg)
	if err != nil {
		return nil, err
	}

	a.Knowledge = knowledge.New(pool, embedder, cfg.EmbedBatchSize, logger)
	a.Auth = auth.New(pool, logger)

	generator := rag.NewGenkitGenerator(g, cfg.FullModelName())
	a.Engine = rag.New(a.Knowledge, generator, knowledge.DefaultTopK, logger)

	a.Ingest, err = provideIngestService(cfg, a.Knowledge, logger)
	if err != nil {
		return nil, err
	}

	a.Server, err = api.NewServer(api.ServerConfig{
		Logger:       logger,
		Engine:       a.Engine,
		Knowledge:    a.Knowledge,
		Auth:         a.Auth,
		Ingest:       a.Ingest,
		DataDir:      cfg.DataDir,
		Pool:         pool,
		LLMAvailable: config.RequireAPIKey() == nil,
		CORSOrigins:  cfg.CORSOrigins,
		IsDev:        cfg.Dev,
		TrustProxy:   cfg.TrustProxy,
		RateBurst:    cfg.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection
// pool with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The API
// key is consumed by the plugin from GOOGLE_API_KEY / GEMINI_API_KEY.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}
	slog.Debug("initialized genkit", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return g, nil
}

// provideEmbedder looks up the Google AI embedder and adapts it to the
// knowledge store's interface.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) (knowledge.Embedder, error) {
	aiEmbedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if aiEmbedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	return knowledge.NewGenkitEmbedder(aiEmbedder), nil
}

// provideIngestService builds connectors from the configured tokens
// and assembles the ingestion pipeline. Missing tokens leave the
// corresponding connector nil; using it reports ErrConnectorUnavailable.
func provideIngestService(cfg *config.Config, store *knowledge.Store, logger *slog.Logger) (*ingest.Service, error) {
	processor, err := ingest.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating processor: %w", err)
	}

	// GitHub works unauthenticated with tight rate limits; the client
	// is always available.
	var gh ingest.GitHubFetcher = github.New(cfg.GitHubToken, logger)

	var sl ingest.SlackFetcher
	if cfg.SlackBotToken != "" {
		sl = slack.New(cfg.SlackBotToken, logger)
	}

	raw, err := ingest.NewRawStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("creating raw store: %w", err)
	}
	return ingest.NewService(gh, sl, processor, raw, store, logger), nil
}
