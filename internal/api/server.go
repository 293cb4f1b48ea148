// Package api exposes Weaver over HTTP as a JSON API: account and
// session endpoints, ingestion triggers for GitHub and Slack, and the
// question answering and search surface. Every data endpoint is scoped
// to the authenticated user.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weaverai/weaver/internal/auth"
	"github.com/weaverai/weaver/internal/ingest"
	"github.com/weaverai/weaver/internal/knowledge"
	"github.com/weaverai/weaver/internal/rag"
)

// QueryEngine answers questions and runs retrieval-only searches.
type QueryEngine interface {
	Ask(ctx context.Context, userID, question string, opts ...knowledge.SearchOption) (*rag.Answer, error)
	Search(ctx context.Context, userID, query string, opts ...knowledge.SearchOption) ([]rag.Source, error)
}

// KnowledgeStore covers the store operations the API needs beyond the
// engine: stats inputs and bulk deletion.
type KnowledgeStore interface {
	rag.StatsStore
	Clear(ctx context.Context, userID string) (int, error)
}

// AuthStore manages accounts and session tokens.
type AuthStore interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Verify(ctx context.Context, token string) (*auth.User, error)
	Logout(ctx context.Context, token string) error
}

// Ingestor runs ingestion pipelines and lists archived snapshots.
type Ingestor interface {
	IngestGitHub(ctx context.Context, username, repo string, maxItems int) (*ingest.Report, error)
	IngestSlack(ctx context.Context, username, channel string, maxItems int) (*ingest.Report, error)
	ListRawFiles(username string) ([]ingest.RawFile, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Engine       QueryEngine    // Required
	Knowledge    KnowledgeStore // Required
	Auth         AuthStore      // Required
	Ingest       Ingestor       // Required
	DataDir      string         // Root for per-user workspaces
	Pool         *pgxpool.Pool  // Optional: nil disables pool stats in /ready
	LLMAvailable bool           // Reported by /health
	CORSOrigins  []string       // Allowed origins for CORS
	IsDev        bool           // Disables HSTS and Secure cookies
	TrustProxy   bool           // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst    int            // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil || cfg.Knowledge == nil || cfg.Auth == nil || cfg.Ingest == nil {
		return nil, errors.New("engine, knowledge store, auth store, and ingestor are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &authHandler{store: cfg.Auth, dataDir: cfg.DataDir, isDev: cfg.IsDev, logger: logger}
	qh := &queryHandler{engine: cfg.Engine, store: cfg.Knowledge, logger: logger}
	ih := &ingestHandler{service: cfg.Ingest, knowledge: cfg.Knowledge, logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", root)

	mux.HandleFunc("POST /auth/register", ah.register)
	mux.HandleFunc("POST /auth/login", ah.login)
	mux.HandleFunc("POST /auth/logout", ah.logout)

	// Everything below requires a valid session.
	authed := requireAuth(cfg.Auth, logger)
	mux.Handle("POST /ask", authed(http.HandlerFunc(qh.ask)))
	mux.Handle("GET /search", authed(http.HandlerFunc(qh.search)))
	mux.Handle("GET /stats", authed(http.HandlerFunc(qh.stats)))
	mux.Handle("DELETE /clear", authed(http.HandlerFunc(qh.clear)))
	mux.Handle("GET /repositories", authed(http.HandlerFunc(qh.repositories)))
	mux.Handle("POST /ingest/github", authed(http.HandlerFunc(ih.github)))
	mux.Handle("POST /ingest/slack", authed(http.HandlerFunc(ih.slack)))
	mux.Handle("GET /data/sources", authed(http.HandlerFunc(ih.sources)))

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newIPLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in logs.
	// CORS must be before RateLimit so preflight OPTIONS gets CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.Handle("GET /health", health(cfg.Pool, cfg.LLMAvailable))
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// root describes the service for unauthenticated discovery.
func root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "weaver",
		"status":  "ok",
		"endpoints": []string{
			"POST /auth/register",
			"POST /auth/login",
			"POST /auth/logout",
			"POST /ask",
			"GET /search",
			"GET /stats",
			"DELETE /clear",
			"GET /repositories",
			"POST /ingest/github",
			"POST /ingest/slack",
			"GET /data/sources",
		},
	})
}
