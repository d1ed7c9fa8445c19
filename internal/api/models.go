package api

import (
	"time"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/service"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description"`
	Importance  int    `json:"importance"  validate:"min=1,max=3"`
}

func (req CreateTaskRequest) toInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Importance:  domain.Importance(req.Importance),
	}
}

// UpdateTaskRequest carries the full replaceable field set of a task.
// Fields outside that set (createdAt, msgs) are accepted and ignored so
// clients can send back a task exactly as they received it.
type UpdateTaskRequest struct {
	// ID is only read by PUT /api/tasks, where the path has no id.
	ID          string     `json:"id"          validate:"omitempty,uuid"`
	Title       string     `json:"title"       validate:"required"`
	Description string     `json:"description"`
	Importance  int        `json:"importance"  validate:"min=1,max=3"`
	Status      string     `json:"status"      validate:"required,oneof=new done failed"`
	LastTriedAt *time.Time `json:"lastTriedAt"`
	TriesCount  int        `json:"triesCount"  validate:"gte=0"`
	DoneAt      *time.Time `json:"doneAt"`
	Errors      []string   `json:"errors"`
}

func (req UpdateTaskRequest) toFields() store.TaskFields {
	errs := req.Errors
	if errs == nil {
		errs = []string{}
	}
	return store.TaskFields{
		Title:       req.Title,
		Description: req.Description,
		Importance:  domain.Importance(req.Importance),
		Status:      domain.Status(req.Status),
		LastTriedAt: req.LastTriedAt,
		TriesCount:  req.TriesCount,
		DoneAt:      req.DoneAt,
		Errors:      errs,
	}
}

// AddMsgRequest defines the payload for attaching a message to a task.
type AddMsgRequest struct {
	Txt string `json:"txt" validate:"required"`
	By  string `json:"by"`
}

// MsgResponse is the wire form of a task message.
type MsgResponse struct {
	ID  string `json:"id"`
	Txt string `json:"txt"`
	By  string `json:"by"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Importance  int           `json:"importance"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastTriedAt *time.Time    `json:"lastTriedAt"`
	TriesCount  int           `json:"triesCount"`
	DoneAt      *time.Time    `json:"doneAt"`
	Errors      []string      `json:"errors"`
	Msgs        []MsgResponse `json:"msgs"`
}

// IDResponse acknowledges a deletion by echoing the removed id.
type IDResponse struct {
	ID string `json:"id"`
}

// EnqueueResponse acknowledges an accepted asynchronous perform request.
type EnqueueResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func msgToResponse(msg domain.Msg) MsgResponse {
	return MsgResponse{ID: msg.ID, Txt: msg.Txt, By: msg.By}
}

func taskToResponse(task *domain.Task) TaskResponse {
	errs := task.Errors
	if errs == nil {
		errs = []string{}
	}
	msgs := make([]MsgResponse, 0, len(task.Msgs))
	for _, m := range task.Msgs {
		msgs = append(msgs, msgToResponse(m))
	}

	return TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Importance:  int(task.Importance),
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		LastTriedAt: task.LastTriedAt,
		TriesCount:  task.TriesCount,
		DoneAt:      task.DoneAt,
		Errors:      errs,
		Msgs:        msgs,
	}
}

func tasksToResponse(tasks []*domain.Task) []TaskResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, taskToResponse(task))
	}
	return resp
}
