package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

const testSecret = "test-secret-test-secret-test-secret"

func testUser() *domain.User {
	return &domain.User{ID: "user-1", Email: "pm@example.com", Name: "Pat Manager", Role: domain.RoleEmployer}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("", "correct horse"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.ErrorIs(t, CheckStrength(strings.Repeat("x", 73)), ErrWeakPassword)
}

func TestSessionRoundTrip(t *testing.T) {
	m := NewSessionManager(SessionConfig{Secret: testSecret, TTL: time.Hour})
	token, err := m.Sign(testUser())
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, domain.RoleEmployer, claims.Role)
	assert.Equal(t, "pm@example.com", claims.Email)
}

func TestSessionRejectsTamperedAndExpired(t *testing.T) {
	m := NewSessionManager(SessionConfig{Secret: testSecret, TTL: time.Hour})
	token, err := m.Sign(testUser())
	require.NoError(t, err)

	other := NewSessionManager(SessionConfig{Secret: "another-secret-another-secret-xx", TTL: time.Hour})
	_, err = other.Parse(token)
	assert.Error(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestIssueSetsCookie(t *testing.T) {
	m := NewSessionManager(SessionConfig{Secret: testSecret, CookieName: "pmo_session"})
	rec := httptest.NewRecorder()
	token, err := m.Issue(rec, testUser())
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "pmo_session", cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	claims, err := m.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())

	rec = httptest.NewRecorder()
	m.Clear(rec)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestFromRequestBearer(t *testing.T) {
	m := NewSessionManager(SessionConfig{Secret: testSecret})
	token, _ := m.Sign(testUser())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err := m.FromRequest(req)
	assert.NoError(t, err)

	req.Header.Set("Authorization", "Basic abc")
	_, err = m.FromRequest(req)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = m.FromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMiddleware(t *testing.T) {
	m := NewSessionManager(SessionConfig{Secret: testSecret})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		w.Write([]byte(claims.UserID()))
	})
	h := m.RequireAuth(RequireRole(domain.RoleCandidate)(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	employerToken, _ := m.Sign(testUser())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+employerToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	candidate := testUser()
	candidate.Role = domain.RoleCandidate
	candidateToken, _ := m.Sign(candidate)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+candidateToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestGoogleLoginRedirect(t *testing.T) {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost/auth/google/callback", false)
	rec := httptest.NewRecorder()
	p.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	assert.NotEmpty(t, state)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, stateCookie, cookie.Name)
	assert.Equal(t, state, cookie.Value)
}

func TestGoogleCompleteRejectsStateMismatch(t *testing.T) {
	p := NewGoogleProvider("id", "secret", "http://localhost/cb", false)
	req := httptest.NewRequest(http.MethodGet, "/cb?state=abc&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "xyz"})
	_, err := p.Complete(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGoogleComplete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-1", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(GoogleUserInfo{ID: "g-1", Email: "jo@example.com", VerifiedEmail: true, Name: "Jo"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewGoogleProvider("id", "secret", "http://localhost/cb", false)
	p.oauth2Config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userInfoURL = srv.URL + "/userinfo"

	req := httptest.NewRequest(http.MethodGet, "/cb?state=s1&code=c1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "s1"})
	info, err := p.Complete(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Equal(t, "g-1", info.ID)
	assert.True(t, info.VerifiedEmail)
}
