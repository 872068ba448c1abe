package rest

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/christmas-fire/nexus-collab/internal/storage/uploads"
)

const (
	maxFormMemory = 32 << 20
	profileField  = "profile"
)

// userForm is the editable part of a user, sent either as multipart/form-data (with an
// optional profile picture) or as JSON.
type userForm struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Bio      *string `json:"bio"`
	Role     *string `json:"role" validate:"omitempty,min=1,max=50"`
	IsActive *bool   `json:"is_active"`

	profile *multipart.FileHeader
}

func readUserForm(r *http.Request) (userForm, error) {
	var form userForm

	err := r.ParseMultipartForm(maxFormMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		return form, decodeJSON(r, &form)
	case err != nil:
		return form, errInvalidBody
	}

	values := r.MultipartForm.Value
	form.Username = formValue(values, "username")
	form.Email = formValue(values, "email")
	form.Password = formValue(values, "password")
	form.Bio = formValue(values, "bio")
	form.Role = formValue(values, "role")
	if v := formValue(values, "is_active"); v != nil {
		active, err := strconv.ParseBool(*v)
		if err != nil {
			return form, fmt.Errorf("%w: is_active must be a boolean", errInvalidBody)
		}
		form.IsActive = &active
	}
	form.profile = profileFile(r.MultipartForm.File)

	return form, validateStruct(&form)
}

func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

// profileFile prefers the "profile" part but accepts a file under any field name.
func profileFile(files map[string][]*multipart.FileHeader) *multipart.FileHeader {
	if fhs := files[profileField]; len(fhs) > 0 {
		return fhs[0]
	}
	for _, fhs := range files {
		if len(fhs) > 0 {
			return fhs[0]
		}
	}
	return nil
}

// saveProfile stores the uploaded picture, if any, and returns its public path.
func saveProfile(store *uploads.Store, fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	path, err := store.SaveImage(fh.Filename, f)
	if err != nil {
		return nil, err
	}
	return &path, nil
}

// toPatch turns the form into a repository patch, hashing the password when one is given.
func (f userForm) toPatch(hash func(string) ([]byte, error)) (models.UserPatch, error) {
	patch := models.UserPatch{
		Username: f.Username,
		Email:    f.Email,
		Bio:      f.Bio,
		Role:     f.Role,
		IsActive: f.IsActive,
	}
	if f.Password != nil && *f.Password != "" {
		passHash, err := hash(*f.Password)
		if err != nil {
			return models.UserPatch{}, err
		}
		patch.PasswordHash = passHash
	}
	return patch, nil
}
