package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCookieMatchesSessionLifetime(t *testing.T) {
	w := httptest.NewRecorder()
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	SetCookie(w, "s1", expiresAt)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "s1", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	// Absolute expiry only: the cookie dies with the session record,
	// no sliding Max-Age.
	assert.True(t, c.Expires.Equal(expiresAt))
	assert.Zero(t, c.MaxAge)
}

func TestClearCookieExpiresImmediately(t *testing.T) {
	w := httptest.NewRecorder()

	ClearCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
