package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/christmas-fire/nexus-collab/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProjectNotFound = errors.New("project not found")

type ProjectRepository interface {
	Create(ctx context.Context, p models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	List(ctx context.Context, page models.Page) ([]models.Project, int, error)
	Update(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, id int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) ProjectRepository {
	return &postgresRepository{db: db}
}

const projectColumns = "id, title, description, completed, user_id, created_at, updated_at"

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Completed, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, p models.Project) (*models.Project, error) {
	query := "INSERT INTO projects (title, description, completed, user_id) VALUES ($1, $2, $3, $4) RETURNING " + projectColumns

	created, err := scanProject(r.db.QueryRow(ctx, query, p.Title, p.Description, p.Completed, p.UserID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, models.ErrUnknownReference
		}
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return created, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	query := "SELECT " + projectColumns + " FROM projects WHERE id = $1"

	p, err := scanProject(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) List(ctx context.Context, page models.Page) ([]models.Project, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM projects").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	query := "SELECT " + projectColumns + " FROM projects ORDER BY id LIMIT $1 OFFSET $2"
	rows, err := r.db.Query(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0, page.Limit)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating project rows: %w", err)
	}

	return projects, total, nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error) {
	query := `UPDATE projects SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			completed   = COALESCE($4, completed),
			user_id     = COALESCE($5, user_id),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + projectColumns

	p, err := scanProject(r.db.QueryRow(ctx, query, id, patch.Title, patch.Description, patch.Completed, patch.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, models.ErrUnknownReference
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}

const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
