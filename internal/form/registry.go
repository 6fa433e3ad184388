package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formguard/formguard/internal/metrics"
)

// ErrTooManySessions is returned by Open when the registry is full.
var ErrTooManySessions = errors.New("too many open form sessions")

// RegistryConfig bounds the registry.
type RegistryConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// DefaultRegistryConfig is used for zero values.
var DefaultRegistryConfig = RegistryConfig{
	IdleTTL:       30 * time.Minute,
	SweepInterval: time.Minute,
	MaxSessions:   10000,
}

func (c RegistryConfig) normalize() RegistryConfig {
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultRegistryConfig.IdleTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultRegistryConfig.SweepInterval
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultRegistryConfig.MaxSessions
	}
	return c
}

// Registry tracks open sessions by id and expires idle ones.
type Registry struct {
	deps *Deps
	cfg  RegistryConfig

	mu       sync.Mutex
	sessions map[string]*Session

	runMu   sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry(deps *Deps, cfg RegistryConfig) *Registry {
	return &Registry{
		deps:     deps,
		cfg:      cfg.normalize(),
		sessions: make(map[string]*Session),
	}
}

// Open creates a session for clientKey. A full registry is swept once
// before giving up.
func (r *Registry) Open(clientKey string) (*Session, error) {
	r.mu.Lock()
	full := len(r.sessions) >= r.cfg.MaxSessions
	r.mu.Unlock()
	if full {
		r.Sweep(r.deps.now())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}
	session := NewSession(uuid.New().String(), clientKey, r.deps)
	r.sessions[session.ID()] = session
	metrics.SetActiveSessions(len(r.sessions))
	return session, nil
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	session.touch(r.deps.now())
	return session, true
}

// Remove drops a session.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	metrics.SetActiveSessions(len(r.sessions))
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a
// submit in flight are kept.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for id, session := range r.sessions {
		lastActive, busy := session.idleSince()
		if busy || now.Sub(lastActive) < r.cfg.IdleTTL {
			continue
		}
		delete(r.sessions, id)
		expired++
	}
	if expired > 0 {
		metrics.RecordSessionsExpired(expired)
		metrics.SetActiveSessions(len(r.sessions))
		if r.deps.Logger != nil {
			r.deps.Logger.Debug("Expired idle form sessions",
				zap.Int("expired", expired),
				zap.Int("remaining", len(r.sessions)))
		}
	}
	return expired
}

// Start runs the idle sweeper until ctx is done or Stop is called.
// Calling Start on a running registry is a no-op.
func (r *Registry) Start(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(r.deps.now())
			}
		}
	}(r.stopped)
}

// Stop halts the sweeper and waits for it to exit.
func (r *Registry) Stop() {
	r.runMu.Lock()
	cancel, stopped := r.cancel, r.stopped
	r.cancel, r.stopped = nil, nil
	r.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}
