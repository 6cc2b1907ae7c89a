package campaigns

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackhub-cms/backend/internal/emailtemplates"
	"github.com/hackhub-cms/backend/internal/mailer"
	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/internal/notices"
	"github.com/hackhub-cms/backend/internal/registrations"
	"github.com/hackhub-cms/backend/pkg/redis"
)

type hubRecorder struct {
	mu     sync.Mutex
	events []string
}

func (h *hubRecorder) Broadcast(_ uuid.UUID, event string, _ interface{}) {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
}

type templateStore map[uuid.UUID]models.EmailTemplate

func (s templateStore) List(context.Context, bool) ([]models.EmailTemplate, error) { return nil, nil }
func (s templateStore) GetByID(_ context.Context, id uuid.UUID) (*models.EmailTemplate, error) {
	t, ok := s[id]
	if !ok {
		return nil, emailtemplates.ErrNotFound
	}
	return &t, nil
}
func (s templateStore) Create(context.Context, *models.EmailTemplate) error { return nil }
func (s templateStore) Update(context.Context, *models.EmailTemplate) error { return nil }
func (s templateStore) Delete(context.Context, uuid.UUID) error             { return nil }

type campaignFixture struct {
	router    *gin.Engine
	event     *models.Hackathon
	sender    *everyFourth
	hub       *hubRecorder
	locker    *redis.Locker
	templates templateStore
}

func newCampaignFixture(t *testing.T, n int) *campaignFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	event := testEvent()
	f := &campaignFixture{
		event:     event,
		sender:    &everyFourth{},
		hub:       &hubRecorder{},
		locker:    redis.NewLocker(rdb, "lock:", time.Minute, nil),
		templates: templateStore{},
	}
	h := NewHandler(Deps{
		Resolver:    NewResolver(regSource{regs: registrationsFor(event.ID, n)}, eventSource{event.ID: event}),
		Outbox:      &mailer.Outbox{Sender: f.sender, From: "Hack Hub <hi@x.com>"},
		Templates:   f.templates,
		Locker:      f.locker,
		Hub:         f.hub,
		Translator:  notices.NewTranslator("en", nil),
		BatchSize:   5,
		SendTimeout: time.Second,
		SiteURL:     "https://hack.example.com",
	})
	r := gin.New()
	r.GET("/admin/campaigns/presets", h.Presets)
	r.POST("/admin/hackathons/:id/campaigns/preview", h.Preview)
	r.POST("/admin/hackathons/:id/campaigns/send", h.Send)
	f.router = r
	return f
}

type reply struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Notice string          `json:"notice"`
}

func (f *campaignFixture) post(path string, payload any) (*httptest.ResponseRecorder, reply) {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var r reply
	_ = json.Unmarshal(w.Body.Bytes(), &r)
	return w, r
}

func (f *campaignFixture) path(action string) string {
	return "/admin/hackathons/" + f.event.ID.String() + "/campaigns/" + action
}

func TestSendPartialCampaign(t *testing.T) {
	f := newCampaignFixture(t, 13)
	w, r := f.post(f.path("send"), map[string]any{"status": "all", "preset": "update", "body": "Doors open at 9."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Sent 10 of 13 emails. 3 failed; see the server log for details.", r.Notice)

	var resp SendResponse
	require.NoError(t, json.Unmarshal(r.Data, &resp))
	assert.Equal(t, StateCompletedWithFailures, resp.State)
	assert.Equal(t, []int{5, 5, 3}, resp.Report.BatchSizes)
	assert.Equal(t, OutcomePartial, resp.Report.Outcome)

	assert.Equal(t, []string{"campaign_progress", "campaign_progress", "campaign_progress", "campaign_completed"}, f.hub.events)
}

func TestSendAllAndNothingToDo(t *testing.T) {
	f := newCampaignFixture(t, 3)
	w, r := f.post(f.path("send"), map[string]any{"status": "pending", "subject": "Hi {{name}}", "body": "See you"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Email sent to all 2 recipients.", r.Notice)

	f = newCampaignFixture(t, 0)
	w, r = f.post(f.path("send"), map[string]any{"subject": "s", "body": "b"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No recipients match this filter. Nothing was sent.", r.Notice)
	assert.Empty(t, f.sender.sent)

	// blank draft, empty target
	w, r = f.post(f.path("send"), map[string]any{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "No recipients match this filter. Nothing was sent.", r.Notice)
}

func TestSendValidationAndLock(t *testing.T) {
	f := newCampaignFixture(t, 3)
	w, r := f.post(f.path("send"), map[string]any{"body": "no subject"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide both a subject and content.", r.Error)

	release, err := f.locker.Acquire(context.Background(), registrations.LockName(f.event.ID))
	require.NoError(t, err)
	w, _ = f.post(f.path("send"), map[string]any{"subject": "s", "body": "b"})
	assert.Equal(t, http.StatusConflict, w.Code)
	release()
	assert.Empty(t, f.sender.sent)

	w, _ = f.post(f.path("send"), map[string]any{"status": "maybe", "subject": "s", "body": "b"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.post("/admin/hackathons/"+uuid.NewString()+"/campaigns/send", map[string]any{"subject": "s", "body": "b"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendWithStoredTemplate(t *testing.T) {
	f := newCampaignFixture(t, 2)
	active, inactive := uuid.New(), uuid.New()
	f.templates[active] = models.EmailTemplate{ID: active, Subject: "Stored {{name}}", Body: "Body", Sender: "Team <t@x.com>", IsActive: true}
	f.templates[inactive] = models.EmailTemplate{ID: inactive, Subject: "x", Body: "y"}

	w, _ := f.post(f.path("send"), map[string]any{"template_id": inactive})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = f.post(f.path("send"), map[string]any{"template_id": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.post(f.path("send"), map[string]any{"template_id": active})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, f.sender.sent, 2)
}

func TestPreviewAndPresets(t *testing.T) {
	f := newCampaignFixture(t, 4)
	w, r := f.post(f.path("preview"), map[string]any{"preset": "confirmation", "status": "pending"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p PreviewResponse
	require.NoError(t, json.Unmarshal(r.Data, &p))
	assert.Equal(t, 3, p.Recipients)
	assert.Equal(t, StateEditing, p.State)
	assert.Contains(t, p.Preview.Subject, "Autumn Hack")
	assert.Contains(t, p.Preview.HTML, "Hi R1")
	assert.Empty(t, f.sender.sent)

	req := httptest.NewRequest(http.MethodGet, "/admin/campaigns/presets", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"custom"`)
}

type slowSender struct {
	delay time.Duration
	mu    sync.Mutex
	sent  int
}

func (s *slowSender) Send(_ context.Context, msg mailer.Message) (mailer.Result, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return mailer.Result{MessageID: "id-" + msg.To}, nil
}

func TestSendReportOutlivesWriteTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	event := testEvent()
	sender := &slowSender{delay: 100 * time.Millisecond}
	h := NewHandler(Deps{
		Resolver:   NewResolver(regSource{regs: registrationsFor(event.ID, 15)}, eventSource{event.ID: event}),
		Outbox:     &mailer.Outbox{Sender: sender, From: "hi@x.com"},
		Translator: notices.NewTranslator("en", nil),
		BatchSize:  5,
	})
	r := gin.New()
	r.POST("/admin/hackathons/:id/campaigns/send", h.Send)

	srv := httptest.NewUnstartedServer(r)
	srv.Config.WriteTimeout = 150 * time.Millisecond
	srv.Start()
	defer srv.Close()

	raw, _ := json.Marshal(map[string]any{"subject": "s", "body": "b"})
	resp, err := http.Post(srv.URL+"/admin/hackathons/"+event.ID.String()+"/campaigns/send", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	var sent SendResponse
	require.NoError(t, json.Unmarshal(body.Data, &sent))
	assert.Equal(t, 15, sent.Report.Sent)
	assert.Equal(t, OutcomeAllSent, sent.Report.Outcome)
	assert.Equal(t, "Email sent to all 15 recipients.", body.Notice)
}
