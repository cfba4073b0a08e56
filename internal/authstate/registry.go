package authstate

import (
	"context"
	"errors"
	"sync"
	"time"

	"kluvs-auth/internal/auth/provider"
	"kluvs-auth/internal/session"

	gocache "github.com/patrickmn/go-cache"
)

// ErrNoSession is returned when a store is requested for a session that
// no longer exists (expired, signed out, or never created).
var ErrNoSession = errors.New("authstate: no such session")

// entry is the cached slot for one session. The once gate means racing
// requests for the same session share a single store and a single
// startup resolution, while the build itself runs outside the registry
// mutex (it does redis and backend I/O).
type entry struct {
	once  sync.Once
	store *Store
}

// Registry maps browser session IDs to their Store instances. Stores
// are kept in a TTL'd cache aligned with the session lifetime; eviction
// closes the store. A cache miss with a live persisted session rebuilds
// the store, so auth state survives service restarts.
type Registry struct {
	mu        sync.Mutex // guards cache slot allocation only, never I/O
	cache     *gocache.Cache
	sessions  session.Store
	hub       *session.Hub
	providers *provider.Registry
	profiles  ProfileService

	anonOnce sync.Once
	anon     *Store
}

func NewRegistry(
	sessions session.Store,
	hub *session.Hub,
	providers *provider.Registry,
	profiles ProfileService,
	ttl time.Duration,
) *Registry {
	cache := gocache.New(ttl, 10*time.Minute)
	cache.OnEvicted(func(_ string, v interface{}) {
		if e, ok := v.(*entry); ok && e.store != nil {
			e.store.Close()
		}
	})

	return &Registry{
		cache:     cache,
		sessions:  sessions,
		hub:       hub,
		providers: providers,
		profiles:  profiles,
	}
}

// Create builds and starts the store for a freshly created session.
func (r *Registry) Create(ctx context.Context, sessionID string) *Store {
	return r.start(ctx, r.slot(sessionID), sessionID)
}

// Get returns the store for a session, rebuilding it from the persisted
// session if the cache lost it. ErrNoSession when the session is gone.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	r.mu.Lock()
	v, ok := r.cache.Get(sessionID)
	r.mu.Unlock()
	if ok {
		return r.start(ctx, v.(*entry), sessionID), nil
	}

	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	return r.start(ctx, r.slot(sessionID), sessionID), nil
}

// Drop closes and forgets the store for a session (sign-out path).
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Delete triggers the eviction hook, which closes the store.
	r.cache.Delete(sessionID)
}

// Anonymous returns the shared store bound to no session: identity and
// profile stay nil, but sign-in commands work. Used for requests that
// carry no session cookie.
func (r *Registry) Anonymous(ctx context.Context) *Store {
	r.anonOnce.Do(func() {
		r.anon = New(&SessionSource{
			Sessions:  r.sessions,
			Hub:       r.hub,
			Providers: r.providers,
		}, r.profiles)
		r.anon.Start(ctx)
	})
	return r.anon
}

// slot claims the cache entry for a session, creating it when absent.
// Only this map access holds r.mu.
func (r *Registry) slot(sessionID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache.Get(sessionID); ok {
		return v.(*entry)
	}
	e := &entry{}
	r.cache.SetDefault(sessionID, e)
	return e
}

// start runs the store's startup resolution at most once per entry.
// Concurrent callers for the same session block here, not on r.mu, so
// one slow session never stalls the rest.
func (r *Registry) start(ctx context.Context, e *entry, sessionID string) *Store {
	e.once.Do(func() {
		e.store = New(&SessionSource{
			SessionID: sessionID,
			Sessions:  r.sessions,
			Hub:       r.hub,
			Providers: r.providers,
		}, r.profiles)
		e.store.Start(ctx)
	})
	return e.store
}
