package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub-cms/backend/internal/auth"
	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/middleware"
	"github.com/hackhub-cms/backend/internal/models"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg Message) (Result, error) {
	if s.err != nil {
		return Result{}, s.err
	}
	s.sent = append(s.sent, msg)
	return Result{MessageID: "msg-1"}, nil
}

func serve(t *testing.T, h *Handler, body any) (*httptest.ResponseRecorder, SendEmailResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/send-email", h.Send)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp SendEmailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSendCustomEmail(t *testing.T) {
	s := &recordingSender{}
	h := NewHandler(s, compose.Envelope{}, "Hack Hub <no@x.com>", "https://site", nil)

	w, resp := serve(t, h, map[string]any{
		"to": "a@x.com",
		"data": map[string]any{
			"isCustomEmail":    true,
			"customSubject":    "Hello",
			"customContent":    "Body text",
			"partnershipLogos": []map[string]string{{"name": "Acme", "image_url": "https://l/acme.png"}},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "msg-1", resp.MessageID)

	require.Len(t, s.sent, 1)
	assert.Equal(t, "Hello", s.sent[0].Subject)
	assert.Equal(t, "a@x.com", s.sent[0].To)
	assert.Equal(t, "Hack Hub <no@x.com>", s.sent[0].From)
	assert.Contains(t, s.sent[0].HTML, "https://l/acme.png")
}

func TestSendConfirmationEmail(t *testing.T) {
	s := &recordingSender{}
	h := NewHandler(s, compose.Envelope{}, "no@x.com", "https://site", nil)

	w, resp := serve(t, h, map[string]any{
		"to": "a@x.com",
		"data": map[string]any{
			"name":           "Alex",
			"hackathonTitle": "HackFest",
			"hackathonDate":  "5/1/2026",
			"location":       "Berlin",
			"slug":           "hackfest",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	require.Len(t, s.sent, 1)
	assert.Contains(t, s.sent[0].Subject, "HackFest")
	assert.Contains(t, s.sent[0].HTML, "https://site/hackathons/hackfest")
}

func TestSendValidation(t *testing.T) {
	h := NewHandler(&recordingSender{}, compose.Envelope{}, "no@x.com", "", nil)

	w, resp := serve(t, h, map[string]any{"to": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)

	w, resp = serve(t, h, map[string]any{"to": "a@x.com", "data": map[string]any{"isCustomEmail": true, "customContent": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, compose.ErrMissingSubject.Error(), resp.Error)

	w, _ = serve(t, h, map[string]any{"to": "a@x.com", "data": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendProviderFailure(t *testing.T) {
	h := NewHandler(&recordingSender{err: errors.Join(ErrProviderRejected, errors.New("quota"))}, compose.Envelope{}, "no@x.com", "", nil)

	w, resp := serve(t, h, map[string]any{
		"to":   "a@x.com",
		"data": map[string]any{"isCustomEmail": true, "customSubject": "s", "customContent": "c"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestRegisteredSendRequiresStaffToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &recordingSender{}
	jwtService := auth.NewJWTService("secret", 1)
	r := gin.New()
	NewHandler(s, compose.Envelope{}, "no@x.com", "", nil).
		Register(r, middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin, models.RoleEditor))

	raw, err := json.Marshal(map[string]any{
		"to":   "victim@x.com",
		"data": map[string]any{"isCustomEmail": true, "customSubject": "s", "customContent": "<a href=x>c</a>"},
	})
	require.NoError(t, err)
	post := func(token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/send-email", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, post(""))
	assert.Empty(t, s.sent)

	viewer, err := jwtService.Generate(&models.User{ID: uuid.New(), Role: models.Role("viewer")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, post(viewer))
	assert.Empty(t, s.sent)

	editor, err := jwtService.Generate(&models.User{ID: uuid.New(), Role: models.RoleEditor})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post(editor))
	assert.Len(t, s.sent, 1)
}
