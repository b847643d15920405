package handlers

import (
	"net/http"
	"strconv"

	"taskgraph/application/services"
	"taskgraph/pkg/common"

	"go.uber.org/zap"
)

// SearchHandler handles semantic search HTTP requests
type SearchHandler struct {
	search *services.SearchService
	logger *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// Search handles GET /search?q=...&limit=...
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
			"Query parameter 'q' is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
				"Query parameter 'limit' must be a positive integer")
			return
		}
		limit = parsed
	}

	results := h.search.Search(r.Context(), query, limit)
	common.RespondJSON(w, http.StatusOK, results)
}
