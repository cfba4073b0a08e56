package session

import (
	"net/http"
	"time"
)

// CookieName carries the __Host- prefix: browsers only accept such a
// cookie over HTTPS, host-locked, with Path=/. Those attributes are
// fixed in sessionCookie and never configurable.
const CookieName = "__Host-session"

// SetCookie points the browser at its server-side session. The cookie
// expires exactly when the session record does: sessions have an
// absolute lifetime and are never renewed, so there is no sliding
// expiry and no reissue path.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	c := sessionCookie(sessionID)
	c.Expires = expiresAt
	http.SetCookie(w, c)
}

// ClearCookie removes the session cookie, on sign-out or when the
// browser presents a cookie whose session already expired server-side.
func ClearCookie(w http.ResponseWriter) {
	c := sessionCookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func sessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/", // required for __Host-
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
