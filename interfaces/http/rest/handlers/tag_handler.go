package handlers

import (
	"net/http"

	"taskgraph/application/services"
	"taskgraph/domain/core/entities"
	"taskgraph/pkg/common"
	"taskgraph/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TagHandler handles tag and equivalency HTTP requests
type TagHandler struct {
	graph  *services.GraphService
	logger *zap.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(graph *services.GraphService, logger *zap.Logger) *TagHandler {
	return &TagHandler{graph: graph, logger: logger}
}

// TagView is a tag enriched with its resolved display name.
type TagView struct {
	entities.Node
	DisplayName string `json:"displayName"`
}

// CreateEquivalencyRequest represents the request body for linking two tags
type CreateEquivalencyRequest struct {
	MasterTagID     string `json:"masterTagId" validate:"required"`
	LinkedTagID     string `json:"linkedTagId" validate:"required,nefield=MasterTagID"`
	DisplayName     string `json:"displayName,omitempty" validate:"omitempty,max=100"`
	UseOriginalName bool   `json:"useOriginalName"`
}

// CreateEquivalencyResponse represents the response for linking two tags
type CreateEquivalencyResponse struct {
	JunctionID string `json:"junctionId"`
}

// ListTags handles GET /tags. An optional q parameter filters and ranks the
// tags by name match quality.
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags := h.graph.GetAllTags(r.Context())
	tags = services.FilterTagsByName(tags, r.URL.Query().Get("q"))

	views := make([]TagView, 0, len(tags))
	for i := range tags {
		views = append(views, TagView{
			Node:        tags[i],
			DisplayName: h.graph.GetTagDisplayName(r.Context(), &tags[i]),
		})
	}

	common.RespondJSON(w, http.StatusOK, views)
}

// GetTagTasks handles GET /tags/{tagID}/tasks. With includeEquivalents=true
// the listing expands through the tag's equivalency set and annotates each
// task with its source tag.
func (h *TagHandler) GetTagTasks(w http.ResponseWriter, r *http.Request) {
	tagID := chi.URLParam(r, "tagID")

	if r.URL.Query().Get("includeEquivalents") == "true" {
		tasks := h.graph.GetTasksInTagWithEquivalents(r.Context(), tagID)
		common.RespondJSON(w, http.StatusOK, tasks)
		return
	}

	tasks := h.graph.GetTasksInTag(r.Context(), tagID)
	common.RespondJSON(w, http.StatusOK, tasks)
}

// GetTagEquivalencies handles GET /tags/{tagID}/equivalencies
func (h *TagHandler) GetTagEquivalencies(w http.ResponseWriter, r *http.Request) {
	tagID := chi.URLParam(r, "tagID")
	equivalencies := h.graph.GetTagEquivalencies(r.Context(), tagID)
	common.RespondJSON(w, http.StatusOK, equivalencies)
}

// CreateEquivalency handles POST /equivalencies
func (h *TagHandler) CreateEquivalency(w http.ResponseWriter, r *http.Request) {
	var req CreateEquivalencyRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest,
			"Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.ValidationError,
			"Validation error: "+err.Error())
		return
	}

	junctionID := h.graph.CreateTagEquivalency(r.Context(),
		req.MasterTagID, req.LinkedTagID, req.DisplayName, req.UseOriginalName)
	if junctionID == "" {
		common.RespondErrorWithDetails(w, http.StatusUnprocessableEntity,
			common.StandardErrorCodes.ValidationError, "Equivalency could not be created",
			map[string]interface{}{
				"masterTagId": req.MasterTagID,
				"linkedTagId": req.LinkedTagID,
			})
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateEquivalencyResponse{JunctionID: junctionID})
}

// RemoveEquivalency handles DELETE /equivalencies/{junctionID}
func (h *TagHandler) RemoveEquivalency(w http.ResponseWriter, r *http.Request) {
	h.graph.RemoveTagEquivalency(r.Context(), chi.URLParam(r, "junctionID"))
	common.RespondJSON(w, http.StatusNoContent, nil)
}
