package middleware

import (
	"errors"
	"net/http"

	"kluvs-auth/internal/authstate"
	"kluvs-auth/internal/session"

	"github.com/gin-gonic/gin"
)

const storeKey = "authStore"

// AuthMiddleware attaches the auth state store for the request's session
// to the gin context. Auth decisions stay session-based and
// provider-agnostic.
type AuthMiddleware struct {
	Registry *authstate.Registry
}

func NewAuthMiddleware(registry *authstate.Registry) *AuthMiddleware {
	return &AuthMiddleware{Registry: registry}
}

// Attach resolves the session cookie to a store when possible and falls
// back to the shared anonymous store. It never rejects the request:
// state reads must work signed out.
func (a *AuthMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := a.Registry.Anonymous(c.Request.Context())

		if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
			s, err := a.Registry.Get(c.Request.Context(), cookie.Value)
			switch {
			case err == nil:
				store = s
			case errors.Is(err, authstate.ErrNoSession):
				// Expired or signed out elsewhere; serve anonymous.
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "session lookup failed",
				})
				return
			}
		}

		c.Set(storeKey, store)
		c.Next()
	}
}

// RequireAuth rejects requests whose store holds no identity.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := StoreFrom(c)
		if store == nil || store.Snapshot().Identity == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// StoreFrom returns the store attached by Attach, or nil.
func StoreFrom(c *gin.Context) *authstate.Store {
	v, ok := c.Get(storeKey)
	if !ok {
		return nil
	}
	store, _ := v.(*authstate.Store)
	return store
}
