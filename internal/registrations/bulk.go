package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/models"
)

// ErrNothingPending is returned by ConfirmPending when no candidate exists.
var ErrNothingPending = errors.New("no pending registrations")

// StatusStore applies one status to many registrations in a single request.
type StatusStore interface {
	BulkUpdateStatus(ctx context.Context, hackathonID uuid.UUID, ids []uuid.UUID, status models.RegistrationStatus) (int64, error)
}

// BulkUpdater issues bulk status changes and reconciles the cached View.
type BulkUpdater struct {
	store  StatusStore
	logger *zap.Logger
}

// NewBulkUpdater creates a BulkUpdater.
func NewBulkUpdater(store StatusStore, logger *zap.Logger) *BulkUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkUpdater{store: store, logger: logger}
}

// Apply sets status on ids. On success the returned View mirrors the change;
// on failure the input View is returned untouched along with the error.
// Candidates are not re-checked against the store.
func (u *BulkUpdater) Apply(ctx context.Context, v View, hackathonID uuid.UUID, ids []uuid.UUID, status models.RegistrationStatus) (View, int64, error) {
	if !status.Valid() {
		return v, 0, fmt.Errorf("invalid status %q", status)
	}
	if len(ids) == 0 {
		return v, 0, nil
	}
	n, err := u.store.BulkUpdateStatus(ctx, hackathonID, ids, status)
	if err != nil {
		u.logger.Error("bulk status update failed",
			zap.String("hackathon_id", hackathonID.String()),
			zap.Int("ids", len(ids)),
			zap.String("status", string(status)),
			zap.Error(err))
		return v, 0, err
	}
	u.logger.Info("bulk status updated",
		zap.String("hackathon_id", hackathonID.String()),
		zap.Int64("rows", n),
		zap.String("status", string(status)))
	return v.ApplyStatus(ids, status), n, nil
}

// ConfirmPending confirms every pending candidate of hackathonID in v.
func (u *BulkUpdater) ConfirmPending(ctx context.Context, v View, hackathonID uuid.UUID) (View, int64, error) {
	ids := v.PendingCandidates(hackathonID)
	if len(ids) == 0 {
		return v, 0, ErrNothingPending
	}
	return u.Apply(ctx, v, hackathonID, ids, models.StatusConfirmed)
}
