package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/repository/project"
	"github.com/christmas-fire/nexus-collab/internal/repository/task"
	"github.com/christmas-fire/nexus-collab/internal/repository/user"
	"github.com/christmas-fire/nexus-collab/internal/service/auth"
	"github.com/christmas-fire/nexus-collab/internal/storage/uploads"
)

// respondServiceError maps domain errors to a status code. Anything unrecognised is logged
// and reported as a 500 without detail.
func respondServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		RespondError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, errInvalidBody),
		errors.Is(err, models.ErrUnknownReference),
		errors.Is(err, auth.ErrEmailRequired),
		errors.Is(err, auth.ErrUsernameRequired),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrUserAlreadyExists),
		errors.Is(err, user.ErrUserAlreadyExists),
		errors.Is(err, uploads.ErrUnsupportedType),
		errors.Is(err, uploads.ErrTooLarge):
		RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, task.ErrTaskNotFound):
		RespondError(w, http.StatusNotFound, err.Error())
	default:
		log.Error("request failed", "error", err)
		RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
