package hackathons

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/pkg/response"
	"github.com/hackhub-cms/backend/pkg/textutil"
)

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, h *models.Hackathon) error
	Replace(ctx context.Context, h *models.Hackathon) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hackathon, error)
	GetBySlug(ctx context.Context, slug string) (*models.Hackathon, error)
	List(ctx context.Context, f ListFilter) ([]models.Hackathon, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Request is the body for POST /admin/hackathons and PUT /admin/hackathons/:id.
// PUT replaces the whole record.
type Request struct {
	Title               string               `json:"title" binding:"required"`
	Theme               string               `json:"theme"`
	Date                string               `json:"date" binding:"required"`
	Location            string               `json:"location"`
	Slug                string               `json:"slug" binding:"omitempty,slug"`
	Description         string               `json:"description"`
	Schedule            []models.ScheduleDay `json:"schedule"`
	Prizes              json.RawMessage      `json:"prizes"`
	FAQ                 []models.FAQItem     `json:"faq"`
	PartnershipLogos    []models.PartnerLogo `json:"partnership_logos"`
	PosterImages        []models.PosterImage `json:"poster_images"`
	EventStatus         string               `json:"event_status" binding:"omitempty,eventstatus"`
	RegistrationEndDate *string              `json:"registration_end_date"`
}

// Handler handles hackathon HTTP endpoints.
type Handler struct {
	store  Store
	cache  *Cache
	logger *zap.Logger
}

// NewHandler creates a hackathon handler. cache may be nil.
func NewHandler(store Store, cache *Cache, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, cache: cache, logger: logger}
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (req *Request) toModel() (*models.Hackathon, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, errors.New("invalid date")
	}
	prizes, err := models.NormalizePrizes(req.Prizes)
	if err != nil {
		return nil, errors.New("invalid prizes")
	}
	h := &models.Hackathon{
		Title:            req.Title,
		Theme:            req.Theme,
		Date:             date,
		Location:         req.Location,
		Slug:             req.Slug,
		Description:      req.Description,
		Schedule:         req.Schedule,
		Prizes:           prizes,
		FAQ:              req.FAQ,
		PartnershipLogos: req.PartnershipLogos,
		PosterImages:     req.PosterImages,
		EventStatus:      models.HackathonStatus(req.EventStatus),
	}
	if h.Slug == "" {
		h.Slug = textutil.Slugify(req.Title)
	}
	if h.Slug == "" {
		return nil, errors.New("title must contain letters or digits to derive a slug")
	}
	if h.EventStatus == "" {
		h.EventStatus = models.HackathonDraft
	}
	if req.RegistrationEndDate != nil && *req.RegistrationEndDate != "" {
		t, err := parseDate(*req.RegistrationEndDate)
		if err != nil {
			return nil, errors.New("invalid registration_end_date")
		}
		h.RegistrationEndDate = &t
	}
	return h, nil
}

func (h *Handler) writeErr(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "hackathon not found")
	case errors.Is(err, ErrSlugTaken):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hackathon id")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /admin/hackathons.
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := req.toModel()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.store.Create(c.Request.Context(), m); err != nil {
		h.writeErr(c, "create hackathon", err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), m.Slug)
	response.Created(c, m)
}

// Update handles PUT /admin/hackathons/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := req.toModel()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	existing, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.writeErr(c, "load hackathon", err)
		return
	}
	m.ID = id
	if err := h.store.Replace(ctx, m); err != nil {
		h.writeErr(c, "update hackathon", err)
		return
	}
	h.cache.Invalidate(ctx, existing.Slug, m.Slug)
	response.OK(c, m)
}

// GetByID handles GET /admin/hackathons/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeErr(c, "load hackathon", err)
		return
	}
	response.OK(c, m)
}

// List handles GET /admin/hackathons?status=.
func (h *Handler) List(c *gin.Context) {
	status := models.HackathonStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}
	list, err := h.store.List(c.Request.Context(), ListFilter{Status: status})
	if err != nil {
		h.writeErr(c, "list hackathons", err)
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /admin/hackathons/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	existing, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.writeErr(c, "load hackathon", err)
		return
	}
	if err := h.store.Delete(ctx, id); err != nil {
		h.writeErr(c, "delete hackathon", err)
		return
	}
	h.cache.Invalidate(ctx, existing.Slug)
	response.NoContent(c)
}

// PublicList handles GET /public/hackathons. Drafts are never listed.
func (h *Handler) PublicList(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), ListFilter{ExcludeDrafts: true})
	if err != nil {
		h.writeErr(c, "list hackathons", err)
		return
	}
	response.OK(c, list)
}

// PublicGet handles GET /public/hackathons/:slug.
func (h *Handler) PublicGet(c *gin.Context) {
	m, err := h.LookupPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.writeErr(c, "load hackathon", err)
		return
	}
	response.OK(c, m)
}

// LookupPublic resolves a slug through the cache. Drafts report ErrNotFound.
func (h *Handler) LookupPublic(ctx context.Context, slug string) (*models.Hackathon, error) {
	m, ok := h.cache.Get(ctx, slug)
	if !ok {
		var err error
		m, err = h.store.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		h.cache.Set(ctx, m)
	}
	if m.EventStatus == models.HackathonDraft {
		return nil, ErrNotFound
	}
	return m, nil
}
