package authstate

import (
	"context"

	"kluvs-auth/internal/auth"
	"kluvs-auth/internal/auth/provider"
	"kluvs-auth/internal/member"
	"kluvs-auth/internal/session"
)

// Source is the identity session source a Store observes: one initial
// snapshot plus a stream of session-changed notifications. A nil identity
// means signed out.
type Source interface {
	// InitialSession returns the identity currently attached to the
	// session, or nil if there is none.
	InitialSession(ctx context.Context) (*auth.Identity, error)

	// OnSessionChanged subscribes to sign-in/sign-out notifications.
	// The returned function removes the subscription.
	OnSessionChanged(fn func(*auth.Identity)) (unsubscribe func())

	// SignInURL begins an external authorization flow and returns the
	// URL to redirect the user to.
	SignInURL(providerName, state, codeChallenge string) (string, error)

	// SignOut ends the session at the source.
	SignOut(ctx context.Context) error
}

// ProfileService is the seam to the club backend's member API.
// Find must return member.ErrNotFound when no record exists, distinct
// from transport errors.
type ProfileService interface {
	Find(ctx context.Context, identityID string) (*member.Member, error)
	Create(ctx context.Context, nm member.NewMember) (*member.Member, error)
}

// SessionSource adapts a persisted browser session plus the session hub
// into a Source for one session ID.
type SessionSource struct {
	SessionID string
	Sessions  session.Store
	Hub       *session.Hub
	Providers *provider.Registry
}

func (s *SessionSource) InitialSession(ctx context.Context) (*auth.Identity, error) {
	if s.SessionID == "" {
		return nil, nil // anonymous instance, nothing persisted
	}

	sess, err := s.Sessions.Get(ctx, s.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	identity := sess.Identity
	return &identity, nil
}

func (s *SessionSource) OnSessionChanged(fn func(*auth.Identity)) func() {
	return s.Hub.Subscribe(s.SessionID, fn)
}

func (s *SessionSource) SignInURL(providerName, state, codeChallenge string) (string, error) {
	p, err := s.Providers.Get(providerName)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state, codeChallenge), nil
}

func (s *SessionSource) SignOut(ctx context.Context) error {
	if s.SessionID == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, s.SessionID); err != nil {
		return err
	}
	s.Hub.Publish(s.SessionID, nil)
	return nil
}

var _ Source = (*SessionSource)(nil)
