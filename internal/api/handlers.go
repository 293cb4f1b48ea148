package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/weaverai/weaver/internal/ingest"
	"github.com/weaverai/weaver/internal/knowledge"
	"github.com/weaverai/weaver/internal/rag"
)

// maxBodyBytes caps request bodies. Questions and ingest requests are
// small JSON objects.
const maxBodyBytes = 64 * 1024

// queryHandler serves the question answering and knowledge endpoints.
type queryHandler struct {
	engine QueryEngine
	store  KnowledgeStore
	logger *slog.Logger
}

type askRequest struct {
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

func (h *queryHandler) ask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	var req askRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var opts []knowledge.SearchOption
	if req.TopK > 0 {
		opts = append(opts, knowledge.WithTopK(req.TopK))
	}
	if req.SourceType != "" {
		if !knowledge.ValidSourceType(req.SourceType) {
			writeError(w, http.StatusBadRequest, "invalid_source_type", "unknown source type")
			return
		}
		opts = append(opts, knowledge.WithFilter("source_type", req.SourceType))
	}

	answer, err := h.engine.Ask(r.Context(), user.Username, req.Question, opts...)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "empty_question", "question must not be empty")
			return
		}
		h.logger.Error("ask failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "ask_failed", "failed to answer question")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

func (h *queryHandler) search(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter q is required")
		return
	}

	var opts []knowledge.SearchOption
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		opts = append(opts, knowledge.WithTopK(limit))
	}
	if sourceType := r.URL.Query().Get("source_type"); sourceType != "" {
		if !knowledge.ValidSourceType(sourceType) {
			writeError(w, http.StatusBadRequest, "invalid_source_type", "unknown source type")
			return
		}
		opts = append(opts, knowledge.WithFilter("source_type", sourceType))
	}

	sources, err := h.engine.Search(r.Context(), user.Username, query, opts...)
	if err != nil {
		h.logger.Error("search failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "search_failed", "failed to search")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": sources,
	})
}

func (h *queryHandler) stats(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	stats, err := rag.CollectStats(r.Context(), h.store, user.Username)
	if err != nil {
		h.logger.Error("stats failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "failed to collect stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *queryHandler) clear(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	deleted, err := h.store.Clear(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("clear failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "clear_failed", "failed to clear documents")
		return
	}

	h.logger.Info("cleared knowledge base", "user", user.Username, "documents", deleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
	})
}

func (h *queryHandler) repositories(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	repos, err := h.store.ListRepositories(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("repository listing failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "repositories_failed", "failed to list repositories")
		return
	}
	if repos == nil {
		repos = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"repositories": repos,
	})
}

// ingestHandler serves the ingestion trigger and data source endpoints.
type ingestHandler struct {
	service   Ingestor
	knowledge KnowledgeStore
	logger    *slog.Logger
}

type ingestGitHubRequest struct {
	Repo     string `json:"repo"`
	MaxItems int    `json:"max_items,omitempty"`
}

func (h *ingestHandler) github(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	var req ingestGitHubRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.service.IngestGitHub(r.Context(), user.Username, req.Repo, req.MaxItems)
	if err != nil {
		h.writeIngestError(w, user.Username, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type ingestSlackRequest struct {
	Channel  string `json:"channel"`
	MaxItems int    `json:"max_items,omitempty"`
}

func (h *ingestHandler) slack(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	var req ingestSlackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.service.IngestSlack(r.Context(), user.Username, req.Channel, req.MaxItems)
	if err != nil {
		h.writeIngestError(w, user.Username, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *ingestHandler) sources(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	files, err := h.service.ListRawFiles(user.Username)
	if err != nil {
		h.logger.Error("data source listing failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "sources_failed", "failed to list data sources")
		return
	}
	if files == nil {
		files = []ingest.RawFile{}
	}

	sourceTypes, err := h.knowledge.ListSourceTypes(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("source type listing failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "sources_failed", "failed to list data sources")
		return
	}
	if sourceTypes == nil {
		sourceTypes = map[string]int{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources":      files,
		"source_types": sourceTypes,
	})
}

func (h *ingestHandler) writeIngestError(w http.ResponseWriter, username string, err error) {
	switch {
	case errors.Is(err, ingest.ErrInvalidRepo):
		writeError(w, http.StatusBadRequest, "invalid_repo", "repository must be in owner/name form")
	case errors.Is(err, ingest.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, "channel_not_found", "slack channel not found")
	case errors.Is(err, ingest.ErrConnectorUnavailable):
		writeError(w, http.StatusServiceUnavailable, "connector_unavailable", "connector is not configured")
	default:
		h.logger.Error("ingestion failed", "user", username, "error", err)
		writeError(w, http.StatusBadGateway, "ingest_failed", "failed to ingest source")
	}
}

// decodeBody decodes a JSON request body into dst, writing a 400 and
// returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}
