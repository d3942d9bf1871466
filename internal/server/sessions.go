package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
	"github.com/joseph-ayodele/policy-intake/internal/wizard"
)

// Mutation computes the next state of a session. A denied transition is not persisted; an error
// leaves the session untouched.
type Mutation func(ctx context.Context, s wizard.State) (wizard.State, wizard.Transition, error)

// Registry keeps live wizard sessions. Operations on one session are serialized; accepted
// states are written through to the session repository when one is configured.
type Registry struct {
	machine *wizard.Machine
	repo    repository.SessionRepository
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	mu      sync.Mutex
	state   wizard.State
	touched time.Time
}

// NewRegistry returns a registry. repo may be nil for in-memory sessions.
func NewRegistry(machine *wizard.Machine, repo repository.SessionRepository, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		machine:  machine,
		repo:     repo,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Create starts a session at the first step.
func (r *Registry) Create(ctx context.Context) (uuid.UUID, wizard.State, error) {
	id := uuid.New()
	st := r.machine.Initial()
	if err := r.persist(ctx, id, st); err != nil {
		return uuid.Nil, wizard.State{}, err
	}
	r.mu.Lock()
	r.sessions[id] = &session{state: st, touched: r.now()}
	r.mu.Unlock()
	r.logger.Info("session.created", "session_id", id)
	return id, st, nil
}

// State returns the current state of a session.
func (r *Registry) State(ctx context.Context, id uuid.UUID) (wizard.State, error) {
	s, err := r.get(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Apply runs fn under the session lock and swaps in its result when the transition is accepted.
// The returned state is the session state after the call.
func (r *Registry) Apply(ctx context.Context, id uuid.UUID, fn Mutation) (wizard.State, wizard.Transition, error) {
	s, err := r.get(ctx, id)
	if err != nil {
		return wizard.State{}, wizard.Transition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, tr, err := fn(ctx, s.state)
	if err != nil {
		return s.state, tr, err
	}
	s.touched = r.now()
	if !tr.OK {
		return s.state, tr, nil
	}
	if err := r.persist(ctx, id, next); err != nil {
		return s.state, tr, err
	}
	s.state = next
	return next, tr, nil
}

// Delete drops a session from memory and storage.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	if r.repo == nil {
		return nil
	}
	if err := r.repo.Delete(ctx, id); err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return nil
}

// Evict drops sessions idle for longer than the TTL from memory and purges stored snapshots
// older than that. It returns the number of sessions evicted from memory.
func (r *Registry) Evict(ctx context.Context) (int, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var evicted int
	for id, s := range r.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.touched.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
		s.mu.Unlock()
	}
	r.mu.Unlock()

	if r.repo != nil {
		purged, err := r.repo.PurgeBefore(ctx, cutoff)
		if err != nil {
			return evicted, err
		}
		r.logger.Info("session.purged", "evicted", evicted, "purged", purged)
	}
	return evicted, nil
}

// RunEvictor evicts idle sessions every interval until ctx ends.
func (r *Registry) RunEvictor(ctx context.Context, interval time.Duration) {
	if r.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.Evict(ctx); err != nil {
				r.logger.Warn("session.evict.failed", "error", err)
			}
		}
	}
}

func (r *Registry) get(ctx context.Context, id uuid.UUID) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	if r.repo == nil {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}

	row, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	st, err := wizard.DecodeSnapshot(row.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	s := &session{state: st, touched: r.now()}
	r.sessions[id] = s
	r.logger.Info("session.restored", "session_id", id, "step", st.Current)
	return s, nil
}

func (r *Registry) persist(ctx context.Context, id uuid.UUID, st wizard.State) error {
	if r.repo == nil {
		return nil
	}
	snap, err := wizard.EncodeSnapshot(st, r.now().UTC())
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	if err := r.repo.Save(ctx, id, string(st.Current), snap); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}
