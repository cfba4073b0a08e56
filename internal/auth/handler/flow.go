package handler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// An authorization flow spans two requests: login issues the CSRF state
// the provider echoes back plus the PKCE verifier whose challenge goes
// out with the authorization URL, both held in short-lived cookies; the
// callback consumes them. A flow is good for one attempt within flowTTL.
const (
	stateCookieName = "__oauth_state"
	pkceCookieName  = "__oauth_pkce"
	flowTTL         = 5 * time.Minute
)

// beginFlow issues the flow cookies and returns the values that go into
// the authorization URL.
func beginFlow(c *gin.Context) (state, codeChallenge string) {
	state = randomToken()
	verifier := randomToken()

	hash := sha256.Sum256([]byte(verifier))
	codeChallenge = base64.RawURLEncoding.EncodeToString(hash[:])

	setFlowCookie(c, stateCookieName, state, int(flowTTL.Seconds()))
	setFlowCookie(c, pkceCookieName, verifier, int(flowTTL.Seconds()))
	return state, codeChallenge
}

// consumeFlow validates the callback's state parameter against the flow
// cookies and returns the PKCE verifier for the code exchange. The
// cookies are cleared whether validation passes or not.
func consumeFlow(c *gin.Context) (verifier string, ok bool) {
	defer func() {
		setFlowCookie(c, stateCookieName, "", -1)
		setFlowCookie(c, pkceCookieName, "", -1)
	}()

	state := c.Query("state")
	if state == "" {
		return "", false
	}

	stateCookie, err := c.Request.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != state {
		return "", false
	}

	pkceCookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil || pkceCookie.Value == "" {
		return "", false
	}

	return pkceCookie.Value, true
}

func setFlowCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func randomToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
