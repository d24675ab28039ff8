package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/table"
)

// Source says where a table came from.
type Source string

const (
	SourceNone   Source = ""
	SourceFetch  Source = "data"
	SourceImport Source = "imported_data"
)

// Tables is the per-browser analysis state.
type Tables struct {
	Data     *table.Table
	Imported *table.Table
	Latest   Source

	SoundID    string // sound behind Data
	ImportName string // file behind Imported
}

// Active returns the most recently produced table, falling back to the
// other one when it is unset.
func (t Tables) Active() (*table.Table, Source) {
	switch {
	case t.Latest == SourceImport && t.Imported != nil:
		return t.Imported, SourceImport
	case t.Latest == SourceFetch && t.Data != nil:
		return t.Data, SourceFetch
	case t.Data != nil:
		return t.Data, SourceFetch
	case t.Imported != nil:
		return t.Imported, SourceImport
	}
	return nil, SourceNone
}

type Flash struct {
	Kind    string // "info" or "error"
	Message string
}

// State belongs to one browser session. All access goes through its mutex.
type State struct {
	ID string

	mu       sync.Mutex
	tables   Tables
	flashes  []Flash
	lastSeen time.Time
}

func (s *State) Snapshot() Tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables
}

// Update applies fn to the tables while holding the session lock.
func (s *State) Update(fn func(t *Tables)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.tables)
}

func (s *State) AddFlash(kind, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: msg})
}

// TakeFlashes returns pending messages and clears them.
func (s *State) TakeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// Store keeps session state in memory, keyed by a random id.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*State),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the state for id, creating a new session when id is unknown
// or expired. created reports whether a new id was issued.
func (st *Store) Get(id string) (s *State, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	if s, ok := st.sessions[id]; ok && now.Sub(s.lastSeen) <= st.ttl {
		s.lastSeen = now
		return s, false
	}
	s = &State{ID: uuid.NewString(), lastSeen: now}
	st.sessions[s.ID] = s
	return s, true
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.lastSeen) > st.ttl {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	log := logger.New().WithComponent("session.sweeper")
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := st.Sweep(); n > 0 {
				log.WithField("expired", n).WithField("active", st.Len()).Info("sessions swept")
			}
		}
	}
}
