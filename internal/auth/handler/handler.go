package handler

import (
	"net/http"
	"time"

	"kluvs-auth/internal/auth/provider"
	"kluvs-auth/internal/authstate"
	"kluvs-auth/internal/logger"
	"kluvs-auth/internal/member"
	"kluvs-auth/internal/middleware"
	"kluvs-auth/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	states       *authstate.Registry
	members      *member.Gateway

	frontendOrigin string
	sessionTTL     time.Duration
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	states *authstate.Registry,
	members *member.Gateway,
	frontendOrigin string,
	sessionTTL time.Duration,
) *Handler {
	return &Handler{
		providers:      registry,
		sessionStore:   sessionStore,
		states:         states,
		members:        members,
		frontendOrigin: frontendOrigin,
		sessionTTL:     sessionTTL,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	r.GET("/oauth/login/:provider", auth.Attach(), h.login)
	r.GET("/oauth/callback/:provider", h.callback)

	api := r.Group("/auth")
	api.Use(auth.Attach())

	api.GET("/me", h.me)
	api.POST("/logout", h.logout)
	api.POST("/refresh", auth.RequireAuth(), h.refresh)
	api.PATCH("/profile", auth.RequireAuth(), h.updateProfile)
}

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	state, codeChallenge := beginFlow(c)

	store := middleware.StoreFrom(c)
	authURL, err := store.SignInWithProvider(providerName, state, codeChallenge)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	codeVerifier, ok := consumeFlow(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid oauth flow",
		})
		return
	}

	// Provider-reported errors (user cancelled, consent denied) go back
	// to the frontend to restart the flow; they are not server faults.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, h.frontendOrigin)
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oauth callback missing code and error", nil)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	identity, err := p.ExchangeCode(
		c.Request.Context(),
		code,
		codeVerifier,
	)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(h.sessionTTL)

	sess := session.Session{
		ID:        sessionID,
		Identity:  *identity,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt)

	// Starting the store runs the first member resolution (and, for
	// first-ever sign-ins, provisioning) before the browser lands back
	// on the dashboard.
	h.states.Create(c.Request.Context(), sessionID)

	logger.Info("login succeeded", map[string]any{
		"provider":    providerName,
		"identity_id": identity.ID,
		"request_id":  middleware.RequestIDFrom(c),
	})

	c.Redirect(http.StatusFound, h.frontendOrigin)
}

// me reports the auth state for this session: identity, member profile,
// loading and derived admin flag. A signed-in identity whose profile
// could not be resolved renders with a null member, never as signed out.
func (h *Handler) me(c *gin.Context) {
	store := middleware.StoreFrom(c)
	c.JSON(http.StatusOK, store.Snapshot())
}

func (h *Handler) refresh(c *gin.Context) {
	store := middleware.StoreFrom(c)
	store.RefreshProfile(c.Request.Context())
	c.JSON(http.StatusOK, store.Snapshot())
}

type updateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	store := middleware.StoreFrom(c)
	snap := store.Snapshot()
	if snap.Member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no member profile"})
		return
	}

	if _, err := h.members.UpdateName(c.Request.Context(), snap.Member.ID, req.Name); err != nil {
		logger.Error("member name update failed", map[string]any{
			"member_id": snap.Member.ID,
			"error":     err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile update failed"})
		return
	}

	store.RefreshProfile(c.Request.Context())
	c.JSON(http.StatusOK, store.Snapshot())
}

func (h *Handler) logout(c *gin.Context) {
	store := middleware.StoreFrom(c)

	if err := store.SignOut(c.Request.Context()); err != nil {
		// Surface the failure; local state was left untouched so the
		// client may retry.
		c.JSON(http.StatusBadGateway, gin.H{"error": "sign out failed"})
		return
	}

	if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		h.states.Drop(cookie.Value)
	}

	session.ClearCookie(c.Writer)

	c.Status(http.StatusNoContent)
}
