// Package app assembles Weaver's components: database pool, Genkit,
// knowledge store, connectors, ingestion pipeline, query engine, and
// the HTTP API server. Setup wires everything in dependency order and
// Close releases it in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weaverai/weaver/internal/api"
	"github.com/weaverai/weaver/internal/auth"
	"github.com/weaverai/weaver/internal/config"
	"github.com/weaverai/weaver/internal/ingest"
	"github.com/weaverai/weaver/internal/knowledge"
	"github.com/weaverai/weaver/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit
	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store
	Auth      *auth.Store
	Engine    *rag.Engine
	Ingest    *ingest.Service
	Server    *api.Server

	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Debug("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
