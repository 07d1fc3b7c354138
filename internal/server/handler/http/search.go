package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/logger"
	"github.com/atinyakov/ProjectMarket/internal/models"
)

// SearchService defines the project search required by SearchHandler.
type SearchService interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// SearchHandler serves POST /search/projects.
type SearchHandler struct {
	SearchService SearchService
	Log           *zap.Logger
}

// NewSearchHandler creates a SearchHandler over svc.
func NewSearchHandler(svc SearchService, log *zap.Logger) *SearchHandler {
	return &SearchHandler{SearchService: svc, Log: logger.OrNop(log)}
}

// QueryRequest is the JSON payload of search and assistant queries.
type QueryRequest struct {
	Query string `json:"query" validate:"notblank"`
}

// Search answers {"results": [...]}, best match first.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.SearchService.Search(r.Context(), req.Query)
	if err != nil {
		h.Log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
