package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// health is a liveness probe reporting overall service state: whether
// the vector database is reachable, whether a generation model is
// configured, and how many document chunks are indexed in total. A nil
// pool degrades to a plain liveness answer.
func health(pool *pgxpool.Pool, llmAvailable bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		connected := false
		var docs int64
		if pool != nil && pool.Ping(ctx) == nil {
			connected = true
			// Count is informational; a failed query leaves it at zero.
			_ = pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&docs)
		}

		status := "ok"
		if pool != nil && !connected {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":              status,
			"vector_db_connected": connected,
			"llm_available":       llmAvailable,
			"document_count":      docs,
		})
	})
}

// readiness reports whether the server can reach its database. A nil
// pool degrades to a plain liveness answer.
func readiness(pool *pgxpool.Pool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}

		stats := pool.Stat()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ready",
			"total_conns":       stats.TotalConns(),
			"idle_conns":        stats.IdleConns(),
			"acquired_conns":    stats.AcquiredConns(),
			"max_conns":         stats.MaxConns(),
			"constructing_conn": stats.ConstructingConns(),
		})
	})
}
