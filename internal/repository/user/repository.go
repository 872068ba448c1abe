//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user with this email already exists")
)

const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, u models.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, page models.Page) ([]models.User, int, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) UserRepository {
	return &postgresRepository{db: db}
}

const userColumns = "id, username, email, role, bio, is_active, profile_path, password_hash, created_at, updated_at"

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Bio, &u.IsActive, &u.ProfilePath, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepository) Create(ctx context.Context, u models.User) (int64, error) {
	query := `INSERT INTO users (email, username, password_hash, bio, profile_path)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	var userID int64
	err := r.db.QueryRow(ctx, query, u.Email, u.Username, u.PasswordHash, u.Bio, u.ProfilePath).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrUserAlreadyExists
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	return userID, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1"

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	users := []models.User{*user}
	if err := r.loadAssociations(ctx, users); err != nil {
		return nil, err
	}

	return &users[0], nil
}

func (r *postgresRepository) List(ctx context.Context, page models.Page) ([]models.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM users").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := "SELECT " + userColumns + " FROM users ORDER BY id LIMIT $1 OFFSET $2"
	rows, err := r.db.Query(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, page.Limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}

	if err := r.loadAssociations(ctx, users); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// loadAssociations eager-loads the projects and tasks owned by each user in place.
func (r *postgresRepository) loadAssociations(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := lo.Map(users, func(u models.User, _ int) int64 { return u.ID })

	projects := make(map[int64][]models.ProjectSummary)
	rows, err := r.db.Query(ctx, "SELECT user_id, id, title, description, completed FROM projects WHERE user_id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return fmt.Errorf("failed to query user projects: %w", err)
	}
	for rows.Next() {
		var (
			owner int64
			p     models.ProjectSummary
		)
		if err := rows.Scan(&owner, &p.ID, &p.Title, &p.Description, &p.Completed); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan project row: %w", err)
		}
		projects[owner] = append(projects[owner], p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating project rows: %w", err)
	}

	tasks := make(map[int64][]models.TaskSummary)
	rows, err = r.db.Query(ctx, "SELECT user_id, id, title, description, completed FROM tasks WHERE user_id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return fmt.Errorf("failed to query user tasks: %w", err)
	}
	for rows.Next() {
		var (
			owner int64
			t     models.TaskSummary
		)
		if err := rows.Scan(&owner, &t.ID, &t.Title, &t.Description, &t.Completed); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks[owner] = append(tasks[owner], t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating task rows: %w", err)
	}

	for i := range users {
		users[i].Projects = lo.Ternary(projects[users[i].ID] != nil, projects[users[i].ID], []models.ProjectSummary{})
		users[i].Tasks = lo.Ternary(tasks[users[i].ID] != nil, tasks[users[i].ID], []models.TaskSummary{})
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	query := `UPDATE users SET
			username      = COALESCE($2, username),
			email         = COALESCE($3, email),
			bio           = COALESCE($4, bio),
			role          = COALESCE($5, role),
			is_active     = COALESCE($6, is_active),
			profile_path  = COALESCE($7, profile_path),
			password_hash = COALESCE($8, password_hash),
			updated_at    = now()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id,
		patch.Username, patch.Email, patch.Bio, patch.Role, patch.IsActive, patch.ProfilePath, patch.PasswordHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
