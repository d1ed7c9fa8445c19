package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/api/shared"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/filter"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/service"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

func (h *TaskHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// ListTasks handles GET /api/tasks requests.
// Filters are read from the query string, e.g. ?txt=report&status[fail]=true.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	spec, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		h.log(r).Debug("invalid filter", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid filter")
		return
	}

	tasks, err := h.taskService.Query(r.Context(), spec)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to query tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasksToResponse(tasks))
}

// GetTask handles GET /api/tasks/{id} requests
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// CreateTask handles POST /api/tasks requests
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// UpdateTask handles PUT /api/tasks/{id} requests.
// An id in the body must match the path.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID != "" && req.ID != id.String() {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Task id in body does not match path")
		return
	}

	h.update(w, r, id, req)
}

// UpdateTaskFromBody handles PUT /api/tasks requests that carry the task id
// in the body.
func (h *TaskHandler) UpdateTaskFromBody(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == "" {
		HandleValidationError(w, r, domain.NewValidationError("id", "is required", domain.ErrInvalidID))
		return
	}

	h.update(w, r, uuid.MustParse(req.ID), req)
}

func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID, req UpdateTaskRequest) {
	task, err := h.taskService.Update(r.Context(), id, req.toFields())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id} requests
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, IDResponse{ID: id.String()})
}

// AddMsg handles POST /api/tasks/{id}/msg requests
func (h *TaskHandler) AddMsg(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	var req AddMsgRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.taskService.AddMsg(r.Context(), id, req.Txt, req.By)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add message")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, msgToResponse(msg))
}

// RemoveMsg handles DELETE /api/tasks/{id}/msg/{msgId} requests
func (h *TaskHandler) RemoveMsg(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}
	msgID := chi.URLParam(r, "msgId")

	if err := h.taskService.RemoveMsg(r.Context(), id, msgID); err != nil {
		HandleAPIError(w, r, err, "Failed to remove message")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, IDResponse{ID: msgID})
}

// PerformTask handles POST /api/tasks/{id}/perform requests.
// The attempt runs synchronously and the updated task is returned whether
// it succeeded or failed.
func (h *TaskHandler) PerformTask(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	task, err := h.taskService.Perform(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to perform task")
		return
	}

	h.log(r).Debug("task performed",
		slog.String("task_id", id.String()),
		slog.String("status", string(task.Status)))
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// EnqueuePerform handles POST /api/tasks/{id}/enqueue requests
func (h *TaskHandler) EnqueuePerform(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id", h.log(r))
	if !ok {
		return
	}

	if err := h.taskService.EnqueuePerform(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to enqueue task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{ID: id.String(), Status: "queued"})
}

// SeedTasks handles POST /api/tasks/seed requests
func (h *TaskHandler) SeedTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskService.Seed(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to seed tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, tasksToResponse(tasks))
}

// decodeAndValidate decodes the body into req and validates it, writing a
// 400 response and returning false on failure.
func (h *TaskHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		h.log(r).Debug("invalid request body", "error", err)
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return false
	}
	return true
}
