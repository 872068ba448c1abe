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

type AuthHandler struct {
	service *auth.AuthService
	users   user.UserRepository
	uploads *uploads.Store
	log     *slog.Logger
}

func NewAuthHandler(service *auth.AuthService, users user.UserRepository, store *uploads.Store, log *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, users: users, uploads: store, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
	Token   string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/user", h.CurrentUser)
	r.Put("/auth/update-profile", h.UpdateProfile)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, token, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusCreated, RegisterResponse{
		Message: "User registered successfully",
		UserID:  userID,
		Token:   token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, u, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Token: token, User: u})
}

func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, u)
}

// UpdateProfile edits the token holder's own account.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	form, err := readUserForm(r)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	patch, err := form.toPatch(h.service.HashPassword)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	if patch.ProfilePath, err = saveProfile(h.uploads, form.profile); err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	u, err := h.users.Update(r.Context(), userID, patch)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}

	RespondJSON(w, http.StatusOK, u)
}
