package hackathons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub-cms/backend/internal/models"
)

var (
	// ErrNotFound is returned when no hackathon matches the lookup.
	ErrNotFound = errors.New("hackathon not found")
	// ErrSlugTaken is returned when another hackathon already owns the slug.
	ErrSlugTaken = errors.New("slug already in use")
)

const uniqueViolation = "23505"

// Repository handles hackathon persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a hackathon repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, title, theme, date, location, slug, description,
	schedule, prizes, faq, partnership_logos, poster_images,
	event_status, registration_end_date, created_at, updated_at`

// nested holds the JSON text columns of a hackathon row.
type nested struct {
	Schedule, Prizes, FAQ, Logos, Posters string
}

func encodeNested(h *models.Hackathon) (nested, error) {
	var n nested
	prizes := h.Prizes
	prizes.Version = models.PrizesVersion
	fields := []struct {
		dst *string
		v   any
	}{
		{&n.Schedule, nonNil(h.Schedule)},
		{&n.Prizes, prizes},
		{&n.FAQ, nonNil(h.FAQ)},
		{&n.Logos, nonNil(h.PartnershipLogos)},
		{&n.Posters, nonNil(h.PosterImages)},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return n, fmt.Errorf("encode hackathon: %w", err)
		}
		*f.dst = string(b)
	}
	return n, nil
}

func decodeNested(h *models.Hackathon, n nested) error {
	for _, f := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"schedule", n.Schedule, &h.Schedule},
		{"faq", n.FAQ, &h.FAQ},
		{"partnership_logos", n.Logos, &h.PartnershipLogos},
		{"poster_images", n.Posters, &h.PosterImages},
	} {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return fmt.Errorf("decode %s: %w", f.name, err)
		}
	}
	prizes, err := models.NormalizePrizes([]byte(n.Prizes))
	if err != nil {
		return err
	}
	h.Prizes = prizes
	models.SortPosters(h.PosterImages)
	return nil
}

// nonNil keeps empty lists stored as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scan(row pgx.Row) (*models.Hackathon, error) {
	var h models.Hackathon
	var n nested
	var status string
	err := row.Scan(&h.ID, &h.Title, &h.Theme, &h.Date, &h.Location, &h.Slug, &h.Description,
		&n.Schedule, &n.Prizes, &n.FAQ, &n.Logos, &n.Posters,
		&status, &h.RegistrationEndDate, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	h.EventStatus = models.HackathonStatus(status)
	if err := decodeNested(&h, n); err != nil {
		return nil, fmt.Errorf("hackathon %s: %w", h.ID, err)
	}
	return &h, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSlugTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Create inserts h and fills its ID and timestamps.
func (r *Repository) Create(ctx context.Context, h *models.Hackathon) error {
	n, err := encodeNested(h)
	if err != nil {
		return err
	}
	const q = `INSERT INTO hackathons (title, theme, date, location, slug, description,
		schedule, prizes, faq, partnership_logos, poster_images, event_status, registration_end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, h.Title, h.Theme, h.Date, h.Location, h.Slug, h.Description,
		n.Schedule, n.Prizes, n.FAQ, n.Logos, n.Posters, string(h.EventStatus), h.RegistrationEndDate).
		Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	h.Prizes.Version = models.PrizesVersion
	models.SortPosters(h.PosterImages)
	return nil
}

// Replace overwrites every editable field of the stored record with h.
func (r *Repository) Replace(ctx context.Context, h *models.Hackathon) error {
	n, err := encodeNested(h)
	if err != nil {
		return err
	}
	const q = `UPDATE hackathons SET title = $1, theme = $2, date = $3, location = $4, slug = $5,
		description = $6, schedule = $7, prizes = $8, faq = $9, partnership_logos = $10,
		poster_images = $11, event_status = $12, registration_end_date = $13, updated_at = NOW()
		WHERE id = $14
		RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, h.Title, h.Theme, h.Date, h.Location, h.Slug, h.Description,
		n.Schedule, n.Prizes, n.FAQ, n.Logos, n.Posters, string(h.EventStatus), h.RegistrationEndDate, h.ID).
		Scan(&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return mapWriteErr(err)
	}
	h.Prizes.Version = models.PrizesVersion
	models.SortPosters(h.PosterImages)
	return nil
}

// GetByID returns a hackathon by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Hackathon, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM hackathons WHERE id = $1`, id))
}

// GetBySlug returns a hackathon by its public slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Hackathon, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM hackathons WHERE slug = $1`, slug))
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status        models.HackathonStatus
	ExcludeDrafts bool
}

// List returns hackathons ordered by date, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Hackathon, error) {
	q := `SELECT ` + columns + ` FROM hackathons WHERE TRUE`
	var args []interface{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" AND event_status = $%d", len(args))
	}
	if f.ExcludeDrafts {
		args = append(args, string(models.HackathonDraft))
		q += fmt.Sprintf(" AND event_status <> $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, q+" ORDER BY date DESC, created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Hackathon{}
	for rows.Next() {
		h, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *h)
	}
	return list, rows.Err()
}

// Delete removes a hackathon and, via cascade, its registrations.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM hackathons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
