package rest

import (
	"log/slog"
	"net/http"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/user"
	"github.com/christmas-fire/nexus-collab/internal/service/auth"
	"github.com/christmas-fire/nexus-collab/internal/storage/uploads"
	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	users   user.UserRepository
	auth    *auth.AuthService
	uploads *uploads.Store
	log     *slog.Logger
}

func NewUserHandler(users user.UserRepository, authService *auth.AuthService, store *uploads.Store, log *slog.Logger) *UserHandler {
	return &UserHandler{users: users, auth: authService, uploads: store, log: log}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	users, total, err := h.users.List(r.Context(), page)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, models.PageResult[models.User]{
		Items: users,
		Page:  page.Number,
		Limit: page.Limit,
		Total: total,
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, err := readUserForm(r)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	if form.Username == nil || *form.Username == "" || form.Email == nil || *form.Email == "" {
		RespondError(w, http.StatusBadRequest, "username and email are required")
		return
	}
	if form.Password == nil {
		respondServiceError(w, h.log, auth.ErrPasswordRequired)
		return
	}

	passHash, err := h.auth.HashPassword(*form.Password)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	profilePath, err := saveProfile(h.uploads, form.profile)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	newUser := models.User{
		Username:     *form.Username,
		Email:        *form.Email,
		PasswordHash: passHash,
		ProfilePath:  profilePath,
	}
	if form.Bio != nil {
		newUser.Bio = *form.Bio
	}

	id, err := h.users.Create(r.Context(), newUser)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	created, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	form, err := readUserForm(r)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	patch, err := form.toPatch(h.auth.HashPassword)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	if patch.ProfilePath, err = saveProfile(h.uploads, form.profile); err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	u, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
