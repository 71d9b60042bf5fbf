package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"humanityclub/site/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")

const projectColumns = `id, title, description, image_url, image_key, created_at, updated_at`

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY title ASC, created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

func (r *ProjectRepository) Create(ctx context.Context, project models.Project) (models.Project, error) {
	query := `
		INSERT INTO projects (id, title, description, image_url, image_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + projectColumns

	return scanProject(r.pool.QueryRow(ctx, query,
		project.ID,
		project.Title,
		project.Description,
		project.ImageURL,
		project.ImageKey,
	))
}

func (r *ProjectRepository) UpdateText(ctx context.Context, id, title, description string) (models.Project, error) {
	query := `
		UPDATE projects
		SET title = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + projectColumns

	return scanProject(r.pool.QueryRow(ctx, query, id, title, description))
}

// UpdateImage stores the new image and returns the project as it was
// before the change so the caller can dispose of the old object.
func (r *ProjectRepository) UpdateImage(ctx context.Context, id, imageURL string, imageKey *string) (previous models.Project, updated models.Project, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Project{}, models.Project{}, err
	}
	defer tx.Rollback(ctx)

	previous, err = scanProject(tx.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return models.Project{}, models.Project{}, err
	}

	updated, err = scanProject(tx.QueryRow(ctx, `
		UPDATE projects
		SET image_url = $2, image_key = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+projectColumns, id, imageURL, imageKey))
	if err != nil {
		return models.Project{}, models.Project{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Project{}, models.Project{}, err
	}
	return previous, updated, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) (models.Project, error) {
	query := `DELETE FROM projects WHERE id = $1 RETURNING ` + projectColumns
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

// DeleteDuplicates keeps the newest project for every title and removes the
// rest, returning the removed rows.
func (r *ProjectRepository) DeleteDuplicates(ctx context.Context) ([]models.Project, error) {
	query := `
		DELETE FROM projects p
		USING projects newer
		WHERE p.title = newer.title
		  AND (p.created_at, p.id) < (newer.created_at, newer.id)
		RETURNING p.id, p.title, p.description, p.image_url, p.image_key, p.created_at, p.updated_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var removed []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		removed = append(removed, project)
	}
	return removed, rows.Err()
}

func scanProject(row pgx.Row) (models.Project, error) {
	var project models.Project
	if err := row.Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.ImageURL,
		&project.ImageKey,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return project, nil
}
