package emailtemplates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub-cms/backend/internal/models"
)

// ErrNotFound is returned when no template matches.
var ErrNotFound = errors.New("email template not found")

// Repository handles email_templates persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email templates repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, name, subject, body, sender, is_active, created_at, updated_at`

func scan(row pgx.Row) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	if err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.Sender, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns templates by name; activeOnly hides disabled ones.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.EmailTemplate, error) {
	q := `SELECT ` + columns + ` FROM email_templates`
	if activeOnly {
		q += ` WHERE is_active`
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.EmailTemplate{}
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// GetByID returns a template by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailTemplate, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM email_templates WHERE id = $1`, id))
}

// Create inserts t and fills ID and timestamps.
func (r *Repository) Create(ctx context.Context, t *models.EmailTemplate) error {
	const q = `INSERT INTO email_templates (name, subject, body, sender, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.Name, t.Subject, t.Body, t.Sender, t.IsActive).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update replaces the editable fields of t.
func (r *Repository) Update(ctx context.Context, t *models.EmailTemplate) error {
	const q = `UPDATE email_templates SET name = $1, subject = $2, body = $3, sender = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, t.Name, t.Subject, t.Body, t.Sender, t.IsActive, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a template.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
