package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/project"
	"github.com/go-chi/chi/v5"
)

type ProjectHandler struct {
	projects project.ProjectRepository
	log      *slog.Logger
}

func NewProjectHandler(projects project.ProjectRepository, log *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, log: log}
}

type ProjectRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	UserID      *int64  `json:"user_id" validate:"omitempty,gt=0"`
}

func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	projects, total, err := h.projects.List(r.Context(), page)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, models.PageResult[models.Project]{
		Items: projects,
		Page:  page.Number,
		Limit: page.Limit,
		Total: total,
	})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	p, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, p)
}

// Create defaults the owner to the token holder.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		RespondError(w, http.StatusBadRequest, "title is required")
		return
	}

	p := models.Project{Title: strings.TrimSpace(*req.Title), UserID: req.UserID}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Completed != nil {
		p.Completed = *req.Completed
	}
	if p.UserID == nil {
		if userID, ok := UserIDFromContext(r.Context()); ok {
			p.UserID = &userID
		}
	}

	created, err := h.projects.Create(r.Context(), p)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusCreated, created)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var req ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		RespondError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	p, err := h.projects.Update(r.Context(), id, models.ProjectPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		UserID:      req.UserID,
	})
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, p)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := h.projects.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "Project deleted successfully"})
}
