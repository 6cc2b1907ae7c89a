package emailtemplates

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub-cms/backend/internal/models"
)

type memStore map[uuid.UUID]models.EmailTemplate

func (m memStore) List(_ context.Context, activeOnly bool) ([]models.EmailTemplate, error) {
	out := []models.EmailTemplate{}
	for _, t := range m {
		if !activeOnly || t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m memStore) GetByID(_ context.Context, id uuid.UUID) (*models.EmailTemplate, error) {
	t, ok := m[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m memStore) Create(_ context.Context, t *models.EmailTemplate) error {
	t.ID = uuid.New()
	m[t.ID] = *t
	return nil
}

func (m memStore) Update(_ context.Context, t *models.EmailTemplate) error {
	if _, ok := m[t.ID]; !ok {
		return ErrNotFound
	}
	m[t.ID] = *t
	return nil
}

func (m memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m[id]; !ok {
		return ErrNotFound
	}
	delete(m, id)
	return nil
}

func router(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/t", h.List)
	r.GET("/t/:id", h.Get)
	r.POST("/t", h.Create)
	r.PUT("/t/:id", h.Update)
	r.DELETE("/t/:id", h.Delete)
	return r
}

func send(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTemplateCRUD(t *testing.T) {
	store := memStore{}
	r := router(store)

	w := send(r, http.MethodPost, "/t", map[string]any{"name": "Welcome", "subject": "Hi {{name}}", "body": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Data models.EmailTemplate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.Data.IsActive)
	id := created.Data.ID.String()

	w = send(r, http.MethodPut, "/t/"+id, map[string]any{"name": "Welcome", "subject": "S", "body": "B", "is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store[created.Data.ID].IsActive)

	_, err := Usable(context.Background(), store, created.Data.ID)
	assert.ErrorIs(t, err, ErrInactive)

	w = send(r, http.MethodGet, "/t?active=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	assert.Equal(t, http.StatusNoContent, send(r, http.MethodDelete, "/t/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/t/"+id, nil).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/t", map[string]any{"name": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodGet, "/t/nope", nil).Code)
}
