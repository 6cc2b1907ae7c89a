package hackathons

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.RegisterGin()
}

type memStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]models.Hackathon
	slugHit int
}

func newMemStore() *memStore { return &memStore{byID: map[uuid.UUID]models.Hackathon{}} }

func (m *memStore) slugOwner(slug string) (uuid.UUID, bool) {
	for id, h := range m.byID {
		if h.Slug == slug {
			return id, true
		}
	}
	return uuid.Nil, false
}

func (m *memStore) Create(_ context.Context, h *models.Hackathon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.slugOwner(h.Slug); taken {
		return ErrSlugTaken
	}
	h.ID = uuid.New()
	h.CreatedAt, h.UpdatedAt = time.Now(), time.Now()
	m.byID[h.ID] = *h
	return nil
}

func (m *memStore) Replace(_ context.Context, h *models.Hackathon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, taken := m.slugOwner(h.Slug); taken && owner != h.ID {
		return ErrSlugTaken
	}
	if _, ok := m.byID[h.ID]; !ok {
		return ErrNotFound
	}
	m.byID[h.ID] = *h
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Hackathon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *memStore) GetBySlug(_ context.Context, slug string) (*models.Hackathon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slugHit++
	id, ok := m.slugOwner(slug)
	if !ok {
		return nil, ErrNotFound
	}
	h := m.byID[id]
	return &h, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.Hackathon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Hackathon{}
	for _, h := range m.byID {
		if f.Status != "" && h.EventStatus != f.Status {
			continue
		}
		if f.ExcludeDrafts && h.EventStatus == models.HackathonDraft {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setup(t *testing.T) (*gin.Engine, *memStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := newMemStore()
	h := NewHandler(store, NewCache(rdb, time.Minute, nil), nil)
	r := gin.New()
	r.POST("/admin/hackathons", h.Create)
	r.GET("/admin/hackathons", h.List)
	r.GET("/admin/hackathons/:id", h.GetByID)
	r.PUT("/admin/hackathons/:id", h.Update)
	r.DELETE("/admin/hackathons/:id", h.Delete)
	r.GET("/public/hackathons", h.PublicList)
	r.GET("/public/hackathons/:slug", h.PublicGet)
	return r, store, mr
}

func call(r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateDerivesSlugAndDefaultsToDraft(t *testing.T) {
	r, _, _ := setup(t)
	w, env := call(r, http.MethodPost, "/admin/hackathons", map[string]any{
		"title":  "Café Hack 2026",
		"date":   "2026-06-01",
		"prizes": map[string]any{"special_prizes": map[string]any{"k": "$10"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var h models.Hackathon
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, "cafe-hack-2026", h.Slug)
	assert.Equal(t, models.HackathonDraft, h.EventStatus)
	assert.Equal(t, models.PrizesVersion, h.Prizes.Version)
	require.Len(t, h.Prizes.SpecialPrizes, 1)
	assert.Equal(t, "k", h.Prizes.SpecialPrizes[0].Title)
}

func TestCreateRejectsBadInput(t *testing.T) {
	r, _, _ := setup(t)
	w, _ := call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "X", "date": "June"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "X", "date": "2026-06-01", "slug": "Bad Slug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "X", "date": "2026-06-01", "event_status": "live"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlugConflict(t *testing.T) {
	r, _, _ := setup(t)
	body := map[string]any{"title": "Same", "date": "2026-06-01"}
	w, _ := call(r, http.MethodPost, "/admin/hackathons", body)
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = call(r, http.MethodPost, "/admin/hackathons", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPublicHidesDraftsAndCaches(t *testing.T) {
	r, store, mr := setup(t)
	w, _ := call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "Live", "date": "2026-06-01", "event_status": "upcoming"})
	require.Equal(t, http.StatusCreated, w.Code)
	w, env := call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "Hidden", "date": "2026-07-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	var hidden models.Hackathon
	require.NoError(t, json.Unmarshal(env.Data, &hidden))

	w, _ = call(r, http.MethodGet, "/public/hackathons/hidden", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = call(r, http.MethodGet, "/public/hackathons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Hackathon
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "live", list[0].Slug)

	for i := 0; i < 3; i++ {
		w, _ = call(r, http.MethodGet, "/public/hackathons/live", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 1, store.slugHit-1, "only the first live lookup reaches the store")
	assert.True(t, mr.Exists(cacheKeyPrefix+"live"))
}

func TestUpdateReplacesAndInvalidates(t *testing.T) {
	r, _, mr := setup(t)
	w, env := call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "Old", "date": "2026-06-01", "event_status": "upcoming"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Hackathon
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w, _ = call(r, http.MethodGet, "/public/hackathons/old", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mr.Exists(cacheKeyPrefix+"old"))

	w, env = call(r, http.MethodPut, "/admin/hackathons/"+created.ID.String(), map[string]any{
		"title": "New", "date": "2026-06-02", "event_status": "ongoing", "location": "Paris",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Hackathon
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "new", updated.Slug)
	assert.Equal(t, "Paris", updated.Location)
	assert.False(t, mr.Exists(cacheKeyPrefix+"old"))

	w, _ = call(r, http.MethodGet, "/public/hackathons/old", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAndNotFound(t *testing.T) {
	r, _, _ := setup(t)
	w, env := call(r, http.MethodPost, "/admin/hackathons", map[string]any{"title": "Gone", "date": "2026-06-01"})
	require.Equal(t, http.StatusCreated, w.Code)
	var h models.Hackathon
	require.NoError(t, json.Unmarshal(env.Data, &h))

	w, _ = call(r, http.MethodDelete, "/admin/hackathons/"+h.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = call(r, http.MethodGet, "/admin/hackathons/"+h.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = call(r, http.MethodGet, "/admin/hackathons/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
