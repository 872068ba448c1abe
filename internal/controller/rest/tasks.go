package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/task"
	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	tasks task.TaskRepository
	log   *slog.Logger
}

func NewTaskHandler(tasks task.TaskRepository, log *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

type TaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	ProjectID   *int64  `json:"project_id" validate:"omitempty,gt=0"`
	UserID      *int64  `json:"user_id" validate:"omitempty,gt=0"`
}

func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List accepts an optional ?project_id= filter.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	var projectID *int64
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		projectID = &id
	}

	tasks, total, err := h.tasks.List(r.Context(), page, projectID)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, models.PageResult[models.Task]{
		Items: tasks,
		Page:  page.Number,
		Limit: page.Limit,
		Total: total,
	})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	t, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	t := models.Task{Title: strings.TrimSpace(*req.Title), ProjectID: req.ProjectID, UserID: req.UserID}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if t.UserID == nil {
		if userID, ok := UserIDFromContext(r.Context()); ok {
			t.UserID = &userID
		}
	}

	created, err := h.tasks.Create(r.Context(), t)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		RespondError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	t, err := h.tasks.Update(r.Context(), id, models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		ProjectID:   req.ProjectID,
		UserID:      req.UserID,
	})
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}
