// apps/go-server/internal/store/memory.go
//
// In-memory session store for running rounds.
//
// Characteristics:
//   - Stores *orchestrator.Orchestrator values keyed by round ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Sweep stops and drops rounds idle longer than a TTL; RunSweeper calls it
//     periodically until its context is cancelled.
//   - Keeps the memory_active_rounds gauge in step with the map size.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/apps/go-server/internal/metrics"
	"github.com/robalobadob/memory/apps/go-server/internal/orchestrator"
)

var ErrNotFound = errors.New("store: round not found")

// Store holds live rounds.
type Store interface {
	// Save adds or replaces a round.
	Save(ctx context.Context, o *orchestrator.Orchestrator) error

	// Get retrieves a round by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*orchestrator.Orchestrator, error)

	// Delete stops and removes a round. Returns ErrNotFound if missing.
	Delete(ctx context.Context, id string) error

	// Sweep stops and removes rounds last seen before cutoff and returns
	// how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Len reports the number of live rounds.
	Len() int
}

type memory struct {
	mu     sync.RWMutex
	rounds map[string]*orchestrator.Orchestrator
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{rounds: make(map[string]*orchestrator.Orchestrator)}
}

func (m *memory) Save(ctx context.Context, o *orchestrator.Orchestrator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.rounds[o.ID]; ok && prev != o {
		prev.Stop()
	}
	m.rounds[o.ID] = o
	metrics.ActiveRounds.Set(float64(len(m.rounds)))
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*orchestrator.Orchestrator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.rounds[id]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	o, ok := m.rounds[id]
	if ok {
		delete(m.rounds, id)
		metrics.ActiveRounds.Set(float64(len(m.rounds)))
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	o.Stop()
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	var idle []*orchestrator.Orchestrator
	for id, o := range m.rounds {
		if o.LastSeen().Before(cutoff) {
			idle = append(idle, o)
			delete(m.rounds, id)
		}
	}
	metrics.ActiveRounds.Set(float64(len(m.rounds)))
	m.mu.Unlock()

	for _, o := range idle {
		o.Stop()
	}
	return len(idle)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rounds)
}

// RunSweeper sweeps s every interval, dropping rounds idle longer than ttl,
// until ctx is done.
func RunSweeper(ctx context.Context, s Store, ttl, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Sweep(ctx, now.Add(-ttl)); n > 0 {
				log.Info().Int("swept", n).Int("active", s.Len()).Msg("idle rounds removed")
			}
		}
	}
}
