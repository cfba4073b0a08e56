package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kluvs-auth/internal/auth"
	"kluvs-auth/internal/auth/handler"
	"kluvs-auth/internal/auth/provider"
	"kluvs-auth/internal/authstate"
	"kluvs-auth/internal/member"
	"kluvs-auth/internal/middleware"
	"kluvs-auth/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://provider.example/authorize?state=" + state
}

func (s *stubProvider) ExchangeCode(ctx context.Context, code, verifier string) (*auth.Identity, error) {
	return &auth.Identity{Provider: "stub", ID: "u1", Email: "reader42@example.com"}, nil
}

type memorySessions struct {
	mu   sync.Mutex
	data map[string]session.Session
}

func (m *memorySessions) Create(ctx context.Context, s session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = s
	return nil
}

func (m *memorySessions) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessions) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

// setupRouter wires the handler against a fake club backend that knows
// one existing member, u1.
func setupRouter(t *testing.T) (*gin.Engine, *memorySessions) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Query().Get("user_id") == "u1" {
			_ = json.NewEncoder(w).Encode(member.Member{
				ID: 7, IdentityID: "u1", Name: "Ivan", Role: member.RoleAdmin,
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(backend.Close)

	sessions := &memorySessions{data: make(map[string]session.Session)}
	hub := session.NewHub()
	providers := provider.NewRegistry(&stubProvider{})
	gateway := member.NewGateway(backend.URL, "")

	states := authstate.NewRegistry(sessions, hub, providers, gateway, time.Hour)

	h := handler.NewHandler(
		providers,
		sessions,
		states,
		gateway,
		"http://localhost:5173",
		time.Hour,
	)

	router := gin.New()
	h.RegisterRoutes(router, middleware.NewAuthMiddleware(states))
	return router, sessions
}

func seedSession(t *testing.T, sessions *memorySessions) string {
	t.Helper()
	err := sessions.Create(context.Background(), session.Session{
		ID:        "s1",
		Identity:  auth.Identity{Provider: "stub", ID: "u1", Email: "reader42@example.com"},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return "s1"
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{Name: session.CookieName, Value: id}
}

func TestMeAnonymous(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snap authstate.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Nil(t, snap.Identity)
	assert.Nil(t, snap.Member)
	assert.False(t, snap.Loading)
	assert.False(t, snap.IsAdmin)
}

func TestMeWithSession(t *testing.T) {
	router, sessions := setupRouter(t)
	id := seedSession(t, sessions)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(sessionCookie(id))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snap authstate.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u1", snap.Identity.ID)
	require.NotNil(t, snap.Member)
	assert.Equal(t, "Ivan", snap.Member.Name)
	assert.True(t, snap.IsAdmin)
}

func TestLoginRedirectsToProvider(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/login/stub", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://provider.example/authorize")
}

func TestLoginUnknownProvider(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/login/github", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackRejectsBadState(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/stub?code=x&state=forged", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginIssuesFlowCookies(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/login/stub", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)

	live := make(map[string]bool)
	for _, c := range w.Result().Cookies() {
		live[c.Name] = c.MaxAge > 0
	}
	assert.True(t, live["__oauth_state"])
	assert.True(t, live["__oauth_pkce"])
}

func TestCallbackClearsFlowCookiesOnBadState(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/stub?code=x&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "__oauth_state", Value: "other"})
	req.AddCookie(&http.Cookie{Name: "__oauth_pkce", Value: "v"})
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	// A flow is good for one attempt: both cookies come back expired.
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Negative(t, c.MaxAge, c.Name)
	}
}

func TestCallbackEstablishesSession(t *testing.T) {
	router, sessions := setupRouter(t)

	// Begin a real flow to obtain matching state and verifier cookies.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth/login/stub", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)

	flowCookies := w.Result().Cookies()
	var state string
	for _, c := range flowCookies {
		if c.Name == "__oauth_state" {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/oauth/callback/stub?code=x&state="+state, nil)
	for _, c := range flowCookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Location"))

	var sessionID string
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionID = c.Value
		}
	}
	require.NotEmpty(t, sessionID)

	stored, err := sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.Identity.ID)
}

func TestRefreshRequiresAuth(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	router, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	router, sessions := setupRouter(t)
	id := seedSession(t, sessions)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(sessionCookie(id))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)

	stored, err := sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Subsequent state reads fall back to anonymous.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(sessionCookie(id))
	router.ServeHTTP(w, req)

	var snap authstate.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Nil(t, snap.Identity)
}
