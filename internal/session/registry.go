package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/muhammadolammi/atsresume/internal/metrics"
	"github.com/robfig/cron/v3"
)

// RegistryConfig configures idle-session teardown.
type RegistryConfig struct {
	IdleTimeout time.Duration
	SweepSpec   string // cron spec, e.g. "@every 10m"
	Clock       clockwork.Clock
	Logger      *slog.Logger
}

type entry struct {
	state    *State
	lastSeen time.Time
}

// Registry holds every live session of the process. Sessions not touched for
// IdleTimeout are torn down by the sweeper.
type Registry struct {
	cfg  RegistryConfig
	cron *cron.Cron

	mu         sync.Mutex
	sessions   map[uuid.UUID]*entry
	onTeardown []func(uuid.UUID)
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:      cfg,
		sessions: make(map[uuid.UUID]*entry),
	}
}

// OnTeardown registers fn to run after a session is removed, whether
// explicitly or by the sweeper.
func (r *Registry) OnTeardown(fn func(uuid.UUID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTeardown = append(r.onTeardown, fn)
}

func (r *Registry) Create() *State {
	s := New()
	r.mu.Lock()
	r.sessions[s.ID()] = &entry{state: s, lastSeen: r.cfg.Clock.Now()}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	r.cfg.Logger.Info("session created", "session_id", s.ID())
	return s
}

// Get returns the session and marks it as recently used.
func (r *Registry) Get(id uuid.UUID) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.lastSeen = r.cfg.Clock.Now()
	return e.state, nil
}

// Delete tears the session down: its state is reset and teardown hooks run.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	n := len(r.sessions)
	hooks := append([]func(uuid.UUID){}, r.onTeardown...)
	r.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	r.teardown(e.state, hooks)
	r.cfg.Logger.Info("session deleted", "session_id", id)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than IdleTimeout and returns how
// many were removed. A zero IdleTimeout disables eviction.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	now := r.cfg.Clock.Now()

	r.mu.Lock()
	var expired []*State
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.cfg.IdleTimeout {
			expired = append(expired, e.state)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	hooks := append([]func(uuid.UUID){}, r.onTeardown...)
	r.mu.Unlock()

	for _, s := range expired {
		r.teardown(s, hooks)
		r.cfg.Logger.Info("session evicted", "session_id", s.ID(), "idle_timeout", r.cfg.IdleTimeout)
	}
	metrics.SessionsActive.Set(float64(n))
	metrics.SessionsEvicted.Add(float64(len(expired)))
	return len(expired)
}

func (r *Registry) teardown(s *State, hooks []func(uuid.UUID)) {
	s.Reset()
	for _, fn := range hooks {
		fn(s.ID())
	}
}

// Start schedules Sweep on the configured cron spec.
func (r *Registry) Start() error {
	if r.cfg.SweepSpec == "" || r.cfg.IdleTimeout <= 0 {
		r.cfg.Logger.Info("session sweeper disabled")
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(r.cfg.SweepSpec, func() { r.Sweep() }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	c.Start()
	r.cron = c
	r.cfg.Logger.Info("session sweeper started", "spec", r.cfg.SweepSpec, "idle_timeout", r.cfg.IdleTimeout)
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish.
func (r *Registry) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}
