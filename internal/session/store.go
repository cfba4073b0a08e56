package session

import (
	"context"
	"time"

	"kluvs-auth/internal/auth"
)

// Session represents an authenticated browser session. It carries a
// snapshot of the provider identity so the auth state can be rebuilt
// after a restart without re-running the OAuth flow.
type Session struct {
	ID        string        `json:"id"`
	Identity  auth.Identity `json:"identity"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"` // absolute expiry, no sliding renewal
}

// Store defines how sessions are stored and retrieved.
// Implementations (e.g., Redis) must remain stateless and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
