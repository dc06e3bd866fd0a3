package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitpoint/fitpoint/pkg/compute"
	"github.com/fitpoint/fitpoint/pkg/types"
)

// ErrNotFound is returned for an unknown or evicted session ID.
var ErrNotFound = errors.New("session: not found")

// EventKind identifies what happened to a session.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventUpdated  EventKind = "updated"
	EventDeleted  EventKind = "deleted"
	EventEvicted  EventKind = "evicted"
	EventAnalyzed EventKind = "analyzed" // pipeline rerun; Analysis is set
)

// Event is delivered to listeners after the store lock is released.
type Event struct {
	Kind     EventKind
	ID       string
	Version  uint64
	Analysis *compute.Analysis
}

// Listener receives store events. It runs on the caller's goroutine and must
// not block for long.
type Listener func(Event)

// Info is a read-only view of a session.
type Info struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Version   uint64           `json:"version"`
	Rows      int              `json:"rows"`
	Well      types.WellInputs `json:"well"`
}

// entry is one session. mu guards every field below it and is held for the
// whole of a pipeline run. cached always holds the analysis of version.
type entry struct {
	id        string
	name      string
	createdAt time.Time

	mu         sync.Mutex
	updatedAt  time.Time
	lastSeen   time.Time
	version    uint64
	rows       []types.RawRow
	well       types.WellInputs
	state      compute.FitState
	cached     *compute.Analysis
}

func (e *entry) info() Info {
	return Info{
		ID:        e.id,
		Name:      e.name,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Version:   e.version,
		Rows:      len(e.rows),
		Well:      e.well,
	}
}

// Store is a thread-safe in-memory session store keyed by session ID.
// A background goroutine (Run) periodically evicts sessions that have not
// been touched within the configured TTL.
type Store struct {
	mu        sync.RWMutex
	data      map[string]*entry
	ttl       time.Duration
	listeners []Listener
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Subscribe registers fn for every subsequent event. It is meant to be called
// during startup, before the store is shared.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	ls := s.listeners
	s.mu.RUnlock()
	for _, fn := range ls {
		fn(ev)
	}
}

// Create starts a new, empty session.
func (s *Store) Create(name string) Info {
	now := s.now()
	e := &entry{
		id:        uuid.NewString(),
		name:      name,
		createdAt: now,
		updatedAt: now,
		lastSeen:  now,
		rows:      []types.RawRow{},
	}
	e.cached = compute.Process(e.rows, e.well, &e.state)

	s.mu.Lock()
	s.data[e.id] = e
	s.mu.Unlock()

	info := e.info()
	s.emit(Event{Kind: EventCreated, ID: e.id})
	return info
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Get returns the session's current view.
func (s *Store) Get(id string) (Info, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = s.now()
	return e.info(), nil
}

// Rows returns a copy of the session's raw table.
func (s *Store) Rows(id string) ([]types.RawRow, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = s.now()
	out := make([]types.RawRow, len(e.rows))
	copy(out, e.rows)
	return out, nil
}

// List returns every live session, oldest first.
func (s *Store) List() []Info {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.data))
	for _, e := range s.data {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.info())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of sessions currently held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.data[id]
	delete(s.data, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.emit(Event{Kind: EventDeleted, ID: id})
	return nil
}

// ReplaceRows swaps the whole table and returns the new version.
func (s *Store) ReplaceRows(id string, rows []types.RawRow) (uint64, error) {
	return s.edit(id, func(e *entry) {
		e.rows = append(make([]types.RawRow, 0, len(rows)), rows...)
	})
}

// AppendRows adds rows to the end of the table and returns the new version.
func (s *Store) AppendRows(id string, rows []types.RawRow) (uint64, error) {
	return s.edit(id, func(e *entry) {
		e.rows = append(e.rows, rows...)
	})
}

// SetWell replaces the well inputs and returns the new version.
func (s *Store) SetWell(id string, well types.WellInputs) (uint64, error) {
	return s.edit(id, func(e *entry) {
		e.well = well
	})
}

// edit applies fn and reruns the pipeline before the lock is released, so
// every version is analysed and an inflection found in a short-lived version
// still reaches the session's FitState.
func (s *Store) edit(id string, fn func(e *entry)) (uint64, error) {
	e, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	fn(e)
	e.version++
	now := s.now()
	e.updatedAt = now
	e.lastSeen = now
	a := compute.Process(e.rows, e.well, &e.state)
	e.cached = a
	v := e.version
	e.mu.Unlock()

	slog.Debug("session: analysis recomputed", "session", id, "version", v, "status", a.Status)
	s.emit(Event{Kind: EventUpdated, ID: id, Version: v})
	s.emit(Event{Kind: EventAnalyzed, ID: id, Version: v, Analysis: a})
	return v, nil
}

// Analysis returns the pipeline result for the session's current version.
// The returned Analysis is shared and must not be modified.
func (s *Store) Analysis(id string) (*compute.Analysis, uint64, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = s.now()
	return e.cached, e.version, nil
}

// Evict removes sessions whose last access is older than now minus TTL.
// It returns the number of sessions removed.
func (s *Store) Evict(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var evicted []string
	for id, e := range s.data {
		e.mu.Lock()
		stale := !e.lastSeen.After(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.data, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	for _, id := range evicted {
		s.emit(Event{Kind: EventEvicted, ID: id})
	}
	return len(evicted)
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so sessions are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Info("session: evicted idle sessions", "count", n)
			}
		}
	}
}
