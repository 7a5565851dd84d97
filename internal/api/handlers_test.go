package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/media"
	"github.com/pmonetwork/pmo-network/internal/pkg/ratelimit"
	"github.com/pmonetwork/pmo-network/internal/realtime"
	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
	"github.com/pmonetwork/pmo-network/internal/service/job"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
	"github.com/pmonetwork/pmo-network/internal/storage"
)

type captureMailer struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func (m *captureMailer) SendVerification(_ context.Context, u *domain.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify[u.Email] = token
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, u *domain.User, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[u.Email] = token
	return nil
}

func (m *captureMailer) verifyToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verify[email]
}

func (m *captureMailer) resetToken(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	t      *testing.T
	router http.Handler
	mailer *captureMailer
	broker *realtime.LocalBroker
	clock  *testClock
}

type session struct {
	UserID string
	Token  string
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	store := memory.New()
	mailer := &captureMailer{verify: map[string]string{}, reset: map[string]string{}}
	broker := realtime.NewLocalBroker()
	clock := &testClock{t: time.Now().UTC()}

	acts := activity.NewService(store.Activity())
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	docs := document.NewService(store.Documents(), blobs, store.Accounts(), document.Options{
		Extractor:   media.NewTextExtractor(),
		Thumbnailer: media.NewThumbnailer(),
		Events:      broker,
		Activity:    acts,
		TempDir:     t.TempDir(),
	}).WithClock(clock.now)

	svc := Services{
		Accounts:   account.NewService(store.Accounts(), mailer),
		Candidates: candidate.NewService(store.Candidates(), store.Accounts(), docs),
		Employers:  employer.NewService(store.Employers(), docs),
		Jobs:       job.NewService(store.Jobs(), nil),
		Applications: application.NewService(store.Applications(), store.Jobs(), docs, application.Hooks{
			Events:   broker,
			Activity: acts,
		}),
		Documents: docs,
		Messaging: messaging.NewService(store.Conversations(), store.Accounts(), store.Jobs(), messaging.Hooks{
			Events:   broker,
			Activity: acts,
		}),
		Activity: acts,
	}
	sessions := auth.NewSessionManager(auth.SessionConfig{Secret: "test-secret-that-is-long-enough-0123456789"})
	h := NewHandlers(svc, sessions, Options{
		LoginLimiter: limiter,
		Hub:          realtime.NewHub(broker, time.Hour),
		AppURL:       "http://app.test",
	})
	return &testEnv{
		t:      t,
		router: SetupRoutes(h, NewHealthChecker(nil, nil, nil, nil), nil),
		mailer: mailer,
		broker: broker,
		clock:  clock,
	}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(email string, role domain.Role) session {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
		"name":     strings.Split(email, "@")[0],
		"role":     string(role),
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	decode(e.t, rec, &out)
	require.NotEmpty(e.t, out.Token)
	return session{UserID: out.User.ID, Token: out.Token}
}

func (e *testEnv) upload(token, kind, name, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(e.t, mw.WriteField("kind", kind))
	require.NoError(e.t, mw.WriteField("title", name))
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(e.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// openJob creates and publishes a job for the employer.
func (e *testEnv) openJob(token, title string) domain.Job {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/employer/jobs", token, map[string]any{
		"title":    title,
		"location": "London",
		"skills":   []string{"PRINCE2"},
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var j domain.Job
	decode(e.t, rec, &j)
	assert.Equal(e.t, domain.JobDraft, j.Status)

	rec = e.do(http.MethodPost, "/api/employer/jobs/"+j.ID+"/status", token, map[string]string{"status": "open"})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	decode(e.t, rec, &j)
	return j
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decode(t, rec, &body)
	msg, _ := body["error"].(string)
	return msg
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.register("ada@example.com", domain.RoleCandidate)

	rec := env.do(http.MethodGet, "/api/auth/me", s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.User
	decode(t, rec, &me)
	assert.Equal(t, "ada@example.com", me.Email)
	assert.False(t, me.IsVerified())

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/auth/me", "not-a-token", nil).Code)

	rec = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "ADA@example.com", "password": "another good one", "name": "Ada", "role": "candidate",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "correct horse battery"})
	require.Equal(t, http.StatusOK, rec.Code)

	token := env.mailer.verifyToken("ada@example.com")
	require.NotEmpty(t, token)
	rec = env.do(http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &me)
	assert.True(t, me.IsVerified())

	rec = env.do(http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": token})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/resend-verification", s.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "long enough pw", "role": "candidate"}},
		{"weak password", map[string]string{"email": "a@example.com", "password": "short", "role": "candidate"}},
		{"admin role", map[string]string{"email": "a@example.com", "password": "long enough pw", "role": "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@example.com", "admin": "true"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register("grace@example.com", domain.RoleEmployer)

	rec := env.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "grace@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	token := env.mailer.resetToken("grace@example.com")
	require.NotEmpty(t, token)

	rec = env.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": token, "password": "a brand new secret"})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "grace@example.com", "password": "correct horse battery"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "grace@example.com", "password": "a brand new secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewMemoryLimiter(2, time.Minute))
	env.register("lin@example.com", domain.RoleCandidate)

	bad := map[string]string{"email": "lin@example.com", "password": "wrong password"}
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/auth/login", "", bad).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, "/api/auth/login", "", bad).Code)

	rec := env.do(http.MethodPost, "/api/auth/login", "", bad)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// The right password is refused too while the key is blocked.
	good := map[string]string{"email": "lin@example.com", "password": "correct horse battery"}
	assert.Equal(t, http.StatusTooManyRequests, env.do(http.MethodPost, "/api/auth/login", "", good).Code)
}

func TestRoleEnforcement(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("cand@example.com", domain.RoleCandidate)
	emp := env.register("emp@example.com", domain.RoleEmployer)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/candidate/profile", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/employer/profile", cand.Token, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/candidate/profile", emp.Token, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPost, "/api/jobs/x/apply", emp.Token, map[string]any{}).Code)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/candidate/profile", cand.Token, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/employer/profile", emp.Token, nil).Code)
}

func TestHiringFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	emp := env.register("hiring@acme.test", domain.RoleEmployer)
	cand := env.register("pm@example.com", domain.RoleCandidate)

	rec := env.do(http.MethodPost, "/api/employer/jobs", emp.Token, map[string]any{"title": "Draft role"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var draft domain.Job
	decode(t, rec, &draft)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/jobs/"+draft.ID, "", nil).Code)

	j := env.openJob(emp.Token, "Senior PMO Analyst")
	assert.Equal(t, domain.JobOpen, j.Status)
	assert.NotNil(t, j.PublishedAt)

	rec = env.do(http.MethodGet, "/api/jobs?q=analyst", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []domain.Job   `json:"data"`
		Pagination PaginationMeta `json:"pagination"`
	}
	decode(t, rec, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, j.ID, page.Data[0].ID)

	rec = env.upload(cand.Token, "cv", "cv.txt", "Experienced PMO lead with PRINCE2 and MSP.")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cv domain.Document
	decode(t, rec, &cv)
	assert.Equal(t, domain.DocumentCV, cv.Kind)

	rec = env.do(http.MethodPost, "/api/jobs/"+j.ID+"/apply", cand.Token, map[string]any{
		"cv_document_id": cv.ID,
		"cover_letter":   "I would love to join.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app domain.Application
	decode(t, rec, &app)
	assert.Equal(t, domain.StatusApplied, app.Status)

	rec = env.do(http.MethodPost, "/api/jobs/"+j.ID+"/apply", cand.Token, map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The public job page tells a signed-in candidate whether they applied.
	var seen struct {
		ID                string                   `json:"id"`
		Applied           *bool                    `json:"applied"`
		ApplicationStatus domain.ApplicationStatus `json:"application_status"`
	}
	viewJob := func(token string) {
		t.Helper()
		seen.Applied, seen.ApplicationStatus = nil, ""
		rec := env.do(http.MethodGet, "/api/jobs/"+j.ID, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &seen)
		assert.Equal(t, j.ID, seen.ID)
	}
	viewJob(cand.Token)
	require.NotNil(t, seen.Applied)
	assert.True(t, *seen.Applied)
	assert.Equal(t, domain.StatusApplied, seen.ApplicationStatus)

	viewJob(env.register("browser@example.com", domain.RoleCandidate).Token)
	require.NotNil(t, seen.Applied)
	assert.False(t, *seen.Applied)

	viewJob("")
	assert.Nil(t, seen.Applied, "anonymous viewers get the plain job")
	viewJob(emp.Token)
	assert.Nil(t, seen.Applied)
	viewJob("not-a-token")
	assert.Nil(t, seen.Applied, "a bad session is ignored on public pages")

	rec = env.do(http.MethodGet, "/api/employer/jobs/"+j.ID+"/applications", emp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var apps struct {
		Data       []domain.Application `json:"data"`
		Pagination PaginationMeta       `json:"pagination"`
	}
	decode(t, rec, &apps)
	require.Len(t, apps.Data, 1)
	assert.Equal(t, 1, apps.Pagination.Total)

	// The submitted CV is readable by the employer without a share.
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/documents/"+cv.ID, emp.Token, nil).Code)

	rec = env.do(http.MethodPut, "/api/employer/applications/"+app.ID+"/status", emp.Token, map[string]string{
		"status": "shortlisted", "note": "strong profile",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &app)
	assert.Equal(t, domain.StatusShortlisted, app.Status)

	rec = env.do(http.MethodPut, "/api/employer/applications/"+app.ID+"/status", emp.Token, map[string]string{"status": "applied"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodPut, "/api/employer/applications/"+app.ID+"/status", emp.Token, map[string]string{"status": "withdrawn"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/candidate/applications/"+app.ID, cand.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &app)
	require.Len(t, app.StatusHistory, 2)
	assert.Equal(t, domain.StatusShortlisted, app.StatusHistory[1].ToStatus)

	rec = env.do(http.MethodPost, "/api/candidate/applications/"+app.ID+"/withdraw", cand.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &app)
	assert.Equal(t, domain.StatusWithdrawn, app.Status)

	rec = env.do(http.MethodPut, "/api/employer/applications/"+app.ID+"/status", emp.Token, map[string]string{"status": "offered"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/candidate/applications?status=withdrawn", cand.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &apps)
	assert.Len(t, apps.Data, 1)
}

func TestApplyRejectsForeignCV(t *testing.T) {
	env := newTestEnv(t, nil)
	emp := env.register("hr@acme.test", domain.RoleEmployer)
	alice := env.register("alice@example.com", domain.RoleCandidate)
	bob := env.register("bob@example.com", domain.RoleCandidate)
	j := env.openJob(emp.Token, "Portfolio Manager")

	rec := env.upload(bob.Token, "cv", "bob.txt", "Bob's CV")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cv domain.Document
	decode(t, rec, &cv)

	rec = env.do(http.MethodPost, "/api/jobs/"+j.ID+"/apply", alice.Token, map[string]any{"cv_document_id": cv.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/jobs/missing/apply", alice.Token, map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCandidateCollections(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("col@example.com", domain.RoleCandidate)

	rec := env.do(http.MethodPost, "/api/candidate/skills", cand.Token, map[string]any{"name": "Risk management", "level": "expert"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sk domain.Skill
	decode(t, rec, &sk)

	rec = env.do(http.MethodPost, "/api/candidate/skills", cand.Token, map[string]any{"name": "Risk management"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/candidate/skills", cand.Token, map[string]any{"name": "Budgeting", "level": "guru"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/api/candidate/skills/"+sk.ID, cand.Token, map[string]any{"name": "Risk management", "level": "advanced"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &sk)
	assert.Equal(t, domain.SkillAdvanced, sk.Level)

	rec = env.do(http.MethodGet, "/api/candidate/skills", cand.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []domain.Skill `json:"data"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Data, 1)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/candidate/skills/"+sk.ID, cand.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/candidate/skills/"+sk.ID, cand.Token, nil).Code)

	// Another candidate cannot touch the first one's entries.
	rec = env.do(http.MethodPost, "/api/candidate/skills", cand.Token, map[string]any{"name": "Scheduling"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &sk)
	other := env.register("other@example.com", domain.RoleCandidate)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/candidate/skills/"+sk.ID, other.Token, nil).Code)
}

func TestDocumentSharing(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("sharer@example.com", domain.RoleCandidate)
	emp := env.register("viewer@acme.test", domain.RoleEmployer)
	peer := env.register("peer@example.com", domain.RoleCandidate)

	rec := env.upload(cand.Token, "cv", "cv.txt", "Programme manager, ten years.")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cv domain.Document
	decode(t, rec, &cv)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/documents/"+cv.ID, emp.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/documents/"+cv.ID, peer.Token, nil).Code)

	rec = env.do(http.MethodPost, "/api/documents/"+cv.ID+"/shares", cand.Token, map[string]any{"user_id": peer.UserID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	expires := env.clock.now().Add(24 * time.Hour)
	rec = env.do(http.MethodPost, "/api/documents/"+cv.ID+"/shares", cand.Token, map[string]any{
		"user_id": emp.UserID, "expires_at": expires,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/documents/"+cv.ID, emp.Token, nil).Code)

	rec = env.do(http.MethodGet, "/api/documents/"+cv.ID+"/download", emp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Programme manager, ten years.", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(http.MethodGet, "/api/employer/shared-documents", emp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shared struct {
		Data []domain.SharedDocument `json:"data"`
	}
	decode(t, rec, &shared)
	require.Len(t, shared.Data, 1)
	assert.Equal(t, cv.ID, shared.Data[0].DocumentID)

	env.clock.advance(48 * time.Hour)
	assert.Equal(t, http.StatusGone, env.do(http.MethodGet, "/api/documents/"+cv.ID, emp.Token, nil).Code)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/documents/"+cv.ID, emp.Token, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/documents/"+cv.ID, cand.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/documents/"+cv.ID, cand.Token, nil).Code)
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("up@example.com", domain.RoleCandidate)

	assert.Equal(t, http.StatusBadRequest, env.upload(cand.Token, "video", "clip.txt", "not a video").Code)
	assert.Equal(t, http.StatusBadRequest, env.upload(cand.Token, "scroll", "x.txt", "hello").Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", "cv"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cand.Token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "file")

	rec = env.do(http.MethodPost, "/api/documents", cand.Token, map[string]string{"kind": "cv"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessaging(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("talk@example.com", domain.RoleCandidate)
	emp := env.register("recruit@acme.test", domain.RoleEmployer)
	outsider := env.register("outsider@example.com", domain.RoleCandidate)

	rec := env.do(http.MethodPost, "/api/conversations", cand.Token, map[string]any{"recipient_id": outsider.UserID, "body": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodPost, "/api/conversations", cand.Token, map[string]any{"recipient_id": "ghost", "body": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(http.MethodPost, "/api/conversations", cand.Token, map[string]any{"recipient_id": emp.UserID, "job_id": "no-such-job", "body": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/conversations", cand.Token, map[string]any{
		"recipient_id": emp.UserID, "subject": "Your PMO role", "body": "Is the role hybrid?",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var conv domain.Conversation
	decode(t, rec, &conv)

	rec = env.do(http.MethodGet, "/api/messages/unread-count", emp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unread struct {
		Unread int `json:"unread"`
	}
	decode(t, rec, &unread)
	assert.Equal(t, 1, unread.Unread)

	path := "/api/conversations/" + conv.ID
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path+"/messages", outsider.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, path+"/messages", outsider.Token, map[string]string{"body": "me too"}).Code)

	rec = env.do(http.MethodPost, path+"/messages", emp.Token, map[string]string{"body": "Yes, three days on site."})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, path+"/messages", cand.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs struct {
		Data []domain.Message `json:"data"`
	}
	decode(t, rec, &msgs)
	require.Len(t, msgs.Data, 2)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, path+"/read", emp.Token, nil).Code)
	rec = env.do(http.MethodGet, "/api/messages/unread-count", emp.Token, nil)
	decode(t, rec, &unread)
	assert.Equal(t, 0, unread.Unread)
}

func TestActivityFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("log@example.com", domain.RoleCandidate)

	rec := env.do(http.MethodGet, "/api/activity", cand.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data []domain.ActivityLog `json:"data"`
	}
	decode(t, rec, &page)
	require.NotEmpty(t, page.Data)
	assert.Equal(t, "auth.registered", page.Data[len(page.Data)-1].Action)
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, nil)
	cand := env.register("live@example.com", domain.RoleCandidate)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+cand.Token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.NoError(t, env.broker.Publish(ctx, cand.UserID, domain.Event{
		ID: "e1", Type: domain.EventApplicationStatus, Title: "Update",
	}))
	var got []string
	for len(got) < 3 {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			got = append(got, line)
		}
	}
	assert.Equal(t, "id: e1", got[0])
	assert.Equal(t, "event: "+domain.EventApplicationStatus, got[1])
	assert.True(t, strings.HasPrefix(got[2], "data: "))
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := env.do(http.MethodDelete, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", errorMessage(t, rec))

	rec = env.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalid("title", "is required"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", application.ErrInvalidTransition), http.StatusBadRequest},
		{account.ErrInvalidCredentials, http.StatusUnauthorized},
		{document.ErrNotFound, http.StatusNotFound},
		{messaging.ErrRecipientNotFound, http.StatusNotFound},
		{application.ErrAlreadyApplied, http.StatusConflict},
		{application.ErrStaleStatus, http.StatusConflict},
		{document.ErrShareExpired, http.StatusGone},
		{account.ErrTokenExpired, http.StatusGone},
		{errRateLimited, http.StatusTooManyRequests},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondErrHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	respondErr(rec, req, errors.New("pq: password authentication failed for user pmo"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", errorMessage(t, rec))
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestPagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs?page=3&limit=500", nil)
	p := ParsePagination(req)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset)

	p = ParsePagination(httptest.NewRequest(http.MethodGet, "/api/jobs?page=-1&limit=x", nil))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)

	resp := NewPaginatedResponse([]int{1, 2}, PaginationParams{Page: 1, Limit: 2, Offset: 0}, 5)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasMore)

	resp = NewPaginatedResponse([]int{}, PaginationParams{Page: 1, Limit: 20}, 0)
	assert.Equal(t, 1, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasMore)
}
