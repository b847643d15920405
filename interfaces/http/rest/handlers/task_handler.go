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

// maxBodyBytes bounds request bodies across all write endpoints.
const maxBodyBytes = 1 << 20

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	graph  *services.GraphService
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(graph *services.GraphService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{graph: graph, logger: logger}
}

// ChunkPayload is one typed fragment of composed task input.
type ChunkPayload struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=text tag"`
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Chunks []ChunkPayload `json:"chunks" validate:"required,min=1,dive"`
}

// CreateTaskResponse represents the response for creating a task
type CreateTaskResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

// UpdateTaskRequest represents the request body for updating a task
type UpdateTaskRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=500"`
	Completed *bool   `json:"completed,omitempty"`
	Archived  *bool   `json:"archived,omitempty"`
}

// AddTagRequest represents the request body for tagging a task
type AddTagRequest struct {
	TagName string `json:"tagName" validate:"required,min=1,max=100"`
}

// CreateTask handles POST /tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
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

	chunks := make([]services.Chunk, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		chunks = append(chunks, services.Chunk{
			Content: c.Content,
			Type:    services.ChunkType(c.Type),
		})
	}

	id := h.graph.AddTask(r.Context(), chunks)
	if id == "" {
		common.RespondError(w, http.StatusUnprocessableEntity, common.StandardErrorCodes.ValidationError,
			"Task could not be created from the given chunks")
		return
	}

	common.RespondJSON(w, http.StatusCreated, CreateTaskResponse{
		ID:        id,
		CreatedAt: utils.NowRFC3339(),
	})
}

// ListTasks handles GET /tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.graph.GetAllTasks(r.Context())
	common.RespondJSON(w, http.StatusOK, tasks)
}

// GetTaskTags handles GET /tasks/{taskID}/tags
func (h *TaskHandler) GetTaskTags(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	tags := h.graph.GetTagsForTask(r.Context(), taskID)
	common.RespondJSON(w, http.StatusOK, tags)
}

// AddTag handles POST /tasks/{taskID}/tags
func (h *TaskHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req AddTagRequest
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

	// The task comes from the caller here, so its existence is checked
	// before the junction is written.
	h.graph.AddTagToTask(r.Context(), req.TagName, taskID, true)
	common.RespondJSON(w, http.StatusNoContent, nil)
}

// UpdateTask handles PUT /tasks/{taskID}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req UpdateTaskRequest
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

	h.graph.UpdateTask(r.Context(), taskID, entities.NodeUpdate{
		Name:      req.Name,
		Completed: req.Completed,
		Archived:  req.Archived,
	})
	common.RespondJSON(w, http.StatusNoContent, nil)
}

// CompleteTask handles POST /tasks/{taskID}/complete
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.graph.CompleteTask(r.Context(), chi.URLParam(r, "taskID"))
	common.RespondJSON(w, http.StatusNoContent, nil)
}

// ArchiveTask handles POST /tasks/{taskID}/archive
func (h *TaskHandler) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	h.graph.ArchiveTask(r.Context(), chi.URLParam(r, "taskID"))
	common.RespondJSON(w, http.StatusNoContent, nil)
}
