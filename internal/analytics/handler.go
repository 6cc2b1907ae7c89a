package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/hackathons"
	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/internal/registrations"
	"github.com/hackhub-cms/backend/pkg/response"
)

// Counter returns per-status registration totals for one hackathon.
type Counter interface {
	CountByStatus(ctx context.Context, hackathonID uuid.UUID) (registrations.Counts, error)
}

// Events looks up hackathons.
type Events interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hackathon, error)
}

// Handler handles GET /admin/hackathons/:id/stats.
type Handler struct {
	counter Counter
	events  Events
	logger  *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(counter Counter, events Events, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{counter: counter, events: events, logger: logger}
}

// StatsResponse is the dashboard summary for one hackathon.
type StatsResponse struct {
	HackathonID      uuid.UUID `json:"hackathon_id"`
	Title            string    `json:"title"`
	EventStatus      string    `json:"event_status"`
	RegistrationOpen bool      `json:"registration_open"`
	registrations.Counts
	ConfirmationRate *float64 `json:"confirmation_rate,omitempty"`
}

// Stats handles GET /admin/hackathons/:id/stats. Pending includes records
// with no stored status.
func (h *Handler) Stats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hackathon id")
		return
	}
	ctx := c.Request.Context()
	event, err := h.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, hackathons.ErrNotFound) {
			response.NotFound(c, "hackathon not found")
			return
		}
		h.logger.Error("load hackathon failed", zap.Error(err))
		response.Internal(c, "failed to load hackathon")
		return
	}
	counts, err := h.counter.CountByStatus(ctx, id)
	if err != nil {
		h.logger.Error("count registrations failed", zap.String("hackathon_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to load registration counts")
		return
	}

	out := StatsResponse{
		HackathonID:      id,
		Title:            event.Title,
		EventStatus:      string(event.EventStatus),
		RegistrationOpen: event.RegistrationOpen(time.Now()),
		Counts:           counts,
	}
	if decided := counts.Confirmed + counts.Rejected; decided > 0 {
		rate := float64(counts.Confirmed) / float64(decided)
		out.ConfirmationRate = &rate
	}
	response.OK(c, out)
}
