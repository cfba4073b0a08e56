package authstate

import (
	"context"
	"errors"
	"sync"

	"kluvs-auth/internal/auth"
	"kluvs-auth/internal/logger"
	"kluvs-auth/internal/member"
)

// Store holds the authoritative auth state for one application instance
// (one browser session): the current identity, the resolved member
// profile, and the derived admin flag. It is the only mutator of that
// state; resolution results and commands funnel through it.
//
// The per-identity concurrency guard (resolving) is a plain field
// mutated only under mu, checked-and-set before any backend I/O is
// issued, so overlapping session-changed events for the same identity
// collapse into a single resolution.
type Store struct {
	source   Source
	profiles ProfileService

	mu         sync.Mutex
	identity   *auth.Identity
	profile    *member.Member
	loading    bool
	resolving  string // identity id with a resolution in flight, "" when idle
	resolveSeq uint64 // counts resolutions; the current holder owns the guard
	guardOwner uint64 // sequence number of the resolution holding the guard
	started    bool   // initial snapshot received; change events ignored before this
	closed     bool

	// lifeCtx outlives the request that started the store; event-driven
	// resolutions run under it, not under a long-gone request context.
	lifeCtx context.Context
	cancel  context.CancelFunc
	unsub   func()
}

// Snapshot is a consistent copy of the observable auth state.
// IsAdmin is derived, never stored: true iff the member's role is admin.
type Snapshot struct {
	Identity *auth.Identity `json:"identity"`
	Member   *member.Member `json:"member"`
	Loading  bool           `json:"loading"`
	IsAdmin  bool           `json:"is_admin"`
}

func New(source Source, profiles ProfileService) *Store {
	lifeCtx, cancel := context.WithCancel(context.Background())
	return &Store{
		source:   source,
		profiles: profiles,
		loading:  true,
		lifeCtx:  lifeCtx,
		cancel:   cancel,
	}
}

// Start subscribes to session changes, requests the initial snapshot and
// runs the first resolution. Change notifications delivered before the
// snapshot call returns are dropped so the startup identity is not
// processed twice. Snapshot errors degrade to the anonymous state.
func (s *Store) Start(ctx context.Context) {
	s.unsub = s.source.OnSessionChanged(func(identity *auth.Identity) {
		s.mu.Lock()
		ready := s.started && !s.closed
		s.mu.Unlock()
		if !ready {
			return
		}
		s.handleIdentityChanged(s.lifeCtx, identity)
	})

	identity, err := s.source.InitialSession(ctx)
	if err != nil {
		logger.Error("initial session fetch failed", map[string]any{
			"error": err.Error(),
		})
		identity = nil
	}

	s.mu.Lock()
	s.started = true
	s.loading = false
	s.mu.Unlock()

	s.handleIdentityChanged(ctx, identity)
}

// Close removes the session-change subscription. The store keeps serving
// its last snapshot; it never transitions again.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	s.cancel()
	if unsub != nil {
		unsub()
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Loading: s.loading,
		IsAdmin: s.profile.IsAdmin(),
	}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	if s.profile != nil {
		profile := *s.profile
		snap.Member = &profile
	}
	return snap
}

// handleIdentityChanged is the resolution coordinator. A nil identity
// clears state synchronously with no backend calls. A non-nil identity
// publishes itself immediately (so "signed in, profile loading" is
// observable), then resolves the member profile unless a resolution for
// the same identity id is already in flight.
func (s *Store) handleIdentityChanged(ctx context.Context, identity *auth.Identity) {
	if identity == nil {
		s.mu.Lock()
		s.identity = nil
		s.profile = nil
		s.resolving = ""
		s.guardOwner = 0
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.resolving == identity.ID {
		// Duplicate trigger; the in-flight resolution is authoritative.
		s.mu.Unlock()
		return
	}
	s.resolveSeq++
	owner := s.resolveSeq
	s.resolving = identity.ID
	s.guardOwner = owner
	s.identity = identity
	s.mu.Unlock()

	// Release the guard only if this resolution still owns it. A
	// sign-out may have reset it and a newer resolution for the same
	// identity claimed it; matching on the id alone would free the
	// newer resolution's guard.
	defer func() {
		s.mu.Lock()
		if s.guardOwner == owner {
			s.resolving = ""
			s.guardOwner = 0
		}
		s.mu.Unlock()
	}()

	profile := s.resolve(ctx, identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The identity may have signed out or changed while the lookup was
	// in flight; a stale result must not resurrect it.
	if s.identity == nil || s.identity.ID != identity.ID {
		return
	}
	s.profile = profile
}

// resolve performs lookup and, when no record exists, provisioning.
// Failures are absorbed into a nil profile; callers never see an error.
func (s *Store) resolve(ctx context.Context, identity *auth.Identity) *member.Member {
	m, err := s.profiles.Find(ctx, identity.ID)
	if err == nil {
		return m
	}

	if errors.Is(err, member.ErrNotFound) {
		return s.provision(ctx, identity)
	}

	logger.Error("member lookup failed", map[string]any{
		"identity_id": identity.ID,
		"error":       err.Error(),
	})
	return nil
}

// SignInWithProvider begins an external authorization flow and returns
// the redirect URL. Provider errors surface to the caller; no profile
// state is touched here — the subsequent session-changed event is.
func (s *Store) SignInWithProvider(providerName, state, codeChallenge string) (string, error) {
	return s.source.SignInURL(providerName, state, codeChallenge)
}

// SignOut ends the session at the source, then clears local state
// synchronously so observers transition immediately rather than after
// the session-changed round trip. Source errors propagate and leave
// state untouched.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.source.SignOut(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = nil
	s.profile = nil
	s.resolving = ""
	s.guardOwner = 0
	s.mu.Unlock()
	return nil
}

// RefreshProfile re-runs the lookup step for the current identity and
// republishes the result. It never provisions and silently no-ops when
// signed out.
func (s *Store) RefreshProfile(ctx context.Context) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity == nil {
		return
	}

	m, err := s.profiles.Find(ctx, identity.ID)
	if err != nil {
		if !errors.Is(err, member.ErrNotFound) {
			logger.Error("member refresh failed", map[string]any{
				"identity_id": identity.ID,
				"error":       err.Error(),
			})
		}
		m = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil || s.identity.ID != identity.ID {
		return
	}
	s.profile = m
}
