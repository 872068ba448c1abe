package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio"`
	IsActive     bool      `json:"is_active"`
	ProfilePath  *string   `json:"profile_path"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Projects []ProjectSummary `json:"projects,omitempty"`
	Tasks    []TaskSummary    `json:"tasks,omitempty"`
}

func (u User) Identity() Identity {
	return IdentityFromInt(u.ID)
}

// UserPatch holds the fields of a partial profile update. Nil means "leave as is".
type UserPatch struct {
	Username     *string
	Email        *string
	Bio          *string
	Role         *string
	IsActive     *bool
	ProfilePath  *string
	PasswordHash []byte
}
