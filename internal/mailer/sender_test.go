package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/config"
)

func TestNewSenderSelectsProvider(t *testing.T) {
	s, err := NewSender(config.EmailConfig{Provider: "log"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.EmailConfig{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 465}, nil)
	require.NoError(t, err)
	require.IsType(t, &SMTPSender{}, s)
	assert.True(t, s.(*SMTPSender).dialer.SSL)

	s, err = NewSender(config.EmailConfig{Provider: "resend", APIKey: "re_x"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	_, err = NewSender(config.EmailConfig{Provider: "pigeon"}, nil)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zap.NewNop())
	res, err := s.Send(context.Background(), Message{To: "a@x.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Send(ctx, Message{To: "a@x.com"})
	assert.Error(t, err)
}

func TestResendSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc-123"}`))
	}))
	defer srv.Close()

	s, err := NewResendSender("re_test", srv.URL+"/", zap.NewNop())
	require.NoError(t, err)
	res, err := s.Send(context.Background(), Message{From: "f@x.com", To: "a@x.com", Subject: "S", HTML: "<p>h</p>"})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", res.MessageID)
	assert.Equal(t, "S", got["subject"])
	assert.Equal(t, "<p>h</p>", got["html"])
}

func TestResendSenderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to"}`))
	}))
	defer srv.Close()

	s, err := NewResendSender("re_test", srv.URL+"/", zap.NewNop())
	require.NoError(t, err)
	_, err = s.Send(context.Background(), Message{From: "f@x.com", To: "bad", Subject: "S", HTML: "h"})
	assert.ErrorIs(t, err, ErrProviderRejected)
}
