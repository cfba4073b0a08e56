package authstate

import (
	"context"
	"strings"

	"kluvs-auth/internal/auth"
	"kluvs-auth/internal/logger"
	"kluvs-auth/internal/member"
)

const defaultDisplayName = "New Member"

// provision creates the one member record for an identity that has none.
// The coordinator's guard guarantees a single pass per identity, so no
// locking happens here; the existence check stays in the coordinator.
// Creation failure degrades to a nil profile.
func (s *Store) provision(ctx context.Context, identity *auth.Identity) *member.Member {
	name := deriveDisplayName(identity)

	created, err := s.profiles.Create(ctx, member.NewMember{
		Name:       name,
		Points:     0,
		BooksRead:  0,
		IdentityID: identity.ID,
	})
	if err != nil {
		logger.Error("member provisioning failed", map[string]any{
			"identity_id": identity.ID,
			"error":       err.Error(),
		})
		return nil
	}

	logger.Info("member provisioned", map[string]any{
		"identity_id": identity.ID,
		"member_id":   created.ID,
	})
	return created
}

// deriveDisplayName picks a display name from provider metadata:
// full name, then generic name, then the email local part, then a
// constant default.
func deriveDisplayName(identity *auth.Identity) string {
	if v := identity.DisplayNameCandidate(auth.MetaFullName); v != "" {
		return v
	}
	if v := identity.DisplayNameCandidate(auth.MetaName); v != "" {
		return v
	}
	if identity.Email != "" {
		local, _, _ := strings.Cut(identity.Email, "@")
		if local != "" {
			return local
		}
	}
	return defaultDisplayName
}
