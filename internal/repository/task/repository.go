package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTaskNotFound = errors.New("task not found")

type TaskRepository interface {
	Create(ctx context.Context, t models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	// List pages through tasks, optionally restricted to one project.
	List(ctx context.Context, page models.Page, projectID *int64) ([]models.Task, int, error)
	Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) TaskRepository {
	return &postgresRepository{db: db}
}

const taskColumns = "id, title, description, completed, project_id, user_id, created_at, updated_at"

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.ProjectID, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepository) Create(ctx context.Context, t models.Task) (*models.Task, error) {
	query := `INSERT INTO tasks (title, description, completed, project_id, user_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + taskColumns

	created, err := scanTask(r.db.QueryRow(ctx, query, t.Title, t.Description, t.Completed, t.ProjectID, t.UserID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, models.ErrUnknownReference
		}
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return created, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = $1"

	t, err := scanTask(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (r *postgresRepository) List(ctx context.Context, page models.Page, projectID *int64) ([]models.Task, int, error) {
	var total int
	err := r.db.QueryRow(ctx, "SELECT count(*) FROM tasks WHERE $1::BIGINT IS NULL OR project_id = $1", projectID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := "SELECT " + taskColumns + ` FROM tasks
		WHERE $1::BIGINT IS NULL OR project_id = $1
		ORDER BY id LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, projectID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0, page.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, total, nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, patch models.TaskPatch) (*models.Task, error) {
	query := `UPDATE tasks SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			completed   = COALESCE($4, completed),
			project_id  = COALESCE($5, project_id),
			user_id     = COALESCE($6, user_id),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + taskColumns

	t, err := scanTask(r.db.QueryRow(ctx, query, id, patch.Title, patch.Description, patch.Completed, patch.ProjectID, patch.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, models.ErrUnknownReference
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
