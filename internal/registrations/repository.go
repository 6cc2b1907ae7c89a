package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackhub-cms/backend/internal/models"
)

// ErrNotFound is returned when no registration matches.
var ErrNotFound = errors.New("registration not found")

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `SELECT r.id, r.name, r.email, r.phone, COALESCE(r.status, ''), r.hackathon_id, r.created_at, h.title
	FROM registrations r JOIN hackathons h ON h.id = r.hackathon_id`

func scanRegistration(row pgx.Row) (models.Registration, error) {
	var reg models.Registration
	var status string
	err := row.Scan(&reg.ID, &reg.Name, &reg.Email, &reg.Phone, &status, &reg.HackathonID, &reg.CreatedAt, &reg.HackathonTitle)
	reg.Status = models.RegistrationStatus(status)
	return reg, err
}

// whereClause renders f as SQL; "pending" also matches NULL status.
func whereClause(f Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.HackathonID != uuid.Nil {
		args = append(args, f.HackathonID)
		conds = append(conds, fmt.Sprintf("r.hackathon_id = $%d", len(args)))
	}
	switch f.Status {
	case "", StatusAll:
	case string(models.StatusPending):
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("(r.status = $%d OR r.status IS NULL)", len(args)))
	default:
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(r.name ILIKE $%d OR r.email ILIKE $%d OR r.phone ILIKE $%d)", n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns registrations matching f, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Registration, error) {
	where, args := whereClause(f)
	rows, err := r.pool.Query(ctx, selectColumns+where+" ORDER BY r.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, selectColumns+" WHERE r.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// ExistsForContact reports whether hackathonID already has a registration
// with the same email (case-insensitive) or phone.
func (r *Repository) ExistsForContact(ctx context.Context, hackathonID uuid.UUID, email, phone string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM registrations
		WHERE hackathon_id = $1 AND (lower(email) = lower($2) OR ($3 <> '' AND phone = $3)))`
	var exists bool
	err := r.pool.QueryRow(ctx, q, hackathonID, email, phone).Scan(&exists)
	return exists, err
}

// Create inserts a pending registration and fills ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (name, email, phone, status, hackathon_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	reg.Status = models.StatusPending
	return r.pool.QueryRow(ctx, q, reg.Name, reg.Email, reg.Phone, string(reg.Status), reg.HackathonID).
		Scan(&reg.ID, &reg.CreatedAt)
}

// UpdateStatus sets the status of one registration.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RegistrationStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE registrations SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkUpdateStatus sets status on every id belonging to hackathonID in one statement.
func (r *Repository) BulkUpdateStatus(ctx context.Context, hackathonID uuid.UUID, ids []uuid.UUID, status models.RegistrationStatus) (int64, error) {
	const q = `UPDATE registrations SET status = $1 WHERE hackathon_id = $2 AND id = ANY($3)`
	tag, err := r.pool.Exec(ctx, q, string(status), hackathonID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountByStatus returns per-status totals for hackathonID; NULL counts as pending.
func (r *Repository) CountByStatus(ctx context.Context, hackathonID uuid.UUID) (Counts, error) {
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'pending' OR status IS NULL),
		COUNT(*) FILTER (WHERE status = 'confirmed'),
		COUNT(*) FILTER (WHERE status = 'rejected')
		FROM registrations WHERE hackathon_id = $1`
	var c Counts
	err := r.pool.QueryRow(ctx, q, hackathonID).Scan(&c.Total, &c.Pending, &c.Confirmed, &c.Rejected)
	return c, err
}
