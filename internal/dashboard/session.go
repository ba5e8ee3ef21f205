package dashboard

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"acadboard/internal/attendance"
	"acadboard/internal/store"
	"acadboard/internal/upstream"
)

// State tracks one session's position in the edit/save cycle.
type State int

const (
	StateClean State = iota
	StateDirty
	StateSaving
	StatePartiallyFailed
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	case StateSaving:
		return "saving"
	case StatePartiallyFailed:
		return "partially_failed"
	}
	return "unknown"
}

// ErrSaveInFlight rejects a second save while one is outstanding. Edits
// stay allowed during a save; only the save action itself is guarded.
var ErrSaveInFlight = errors.New("a save is already in progress")

// Session owns the roster and log stores for one teacher for the session's
// lifetime. The daily view and stats are recomputed from it on demand and
// never stored.
type Session struct {
	TeacherID string
	Roster    *attendance.RosterStore
	Logs      *attendance.LogStore

	mu         sync.Mutex
	subjectIDs map[string]string
	state      State
	// editedInFlight records edits that land while a save is running;
	// those edits are not in the saved snapshot, so the save must not
	// end in Clean.
	editedInFlight bool
	lastUsed       time.Time
}

// State returns the current edit/save state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ApplyEdit records a local status edit and marks the session dirty.
func (s *Session) ApplyEdit(rollNo, subject string, date time.Time, status attendance.Status) attendance.LogEntry {
	entry := s.Logs.ApplyLocalEdit(rollNo, subject, date, status)
	s.mu.Lock()
	if s.state == StateSaving {
		s.editedInFlight = true
	} else {
		s.state = StateDirty
	}
	s.mu.Unlock()
	return entry
}

// tokenMarker binds the upstream client to one session's bearer token.
type tokenMarker struct {
	client *upstream.Client
	token  string
}

func (m tokenMarker) MarkAttendance(ctx context.Context, req attendance.MarkRequest) error {
	return m.client.MarkAttendance(ctx, m.token, req)
}

// Save persists one day's logs upstream. Exactly one save may be in flight
// per session; others get ErrSaveInFlight. The resulting state is Clean
// when every subject succeeded, PartiallyFailed otherwise.
func (s *Session) Save(ctx context.Context, client *upstream.Client, token string, date time.Time) ([]attendance.SubjectOutcome, error) {
	s.mu.Lock()
	if s.state == StateSaving {
		s.mu.Unlock()
		return nil, ErrSaveInFlight
	}
	prev := s.state
	s.state = StateSaving
	s.editedInFlight = false
	subjectIDs := s.subjectIDs
	s.mu.Unlock()

	outcomes, err := attendance.Save(ctx, tokenMarker{client, token}, date, s.Logs.All(), subjectIDs, s.Roster.All())

	s.mu.Lock()
	defer s.mu.Unlock()
	edited := s.editedInFlight
	s.editedInFlight = false
	switch {
	case err != nil:
		if edited {
			s.state = StateDirty
		} else {
			s.state = prev
		}
		return nil, err
	case attendance.SavedCount(outcomes) != len(outcomes):
		s.state = StatePartiallyFailed
	case edited:
		// Edits landed after the log snapshot was taken; they are not
		// persisted yet, however cleanly the writes went.
		s.state = StateDirty
	default:
		s.state = StateClean
	}
	return outcomes, nil
}

// Manager creates and expires sessions, one per teacher.
type Manager struct {
	client *upstream.Client
	cache  *store.Cache
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a manager; cache may be nil when Redis is unavailable.
func NewManager(client *upstream.Client, cache *store.Cache, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		client:   client,
		cache:    cache,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

// Get returns the teacher's session, creating and loading it on first use.
func (m *Manager) Get(ctx context.Context, teacherID, token string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[teacherID]
	if ok {
		s.mu.Lock()
		s.lastUsed = time.Now()
		s.mu.Unlock()
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s = &Session{
		TeacherID: teacherID,
		Roster:    attendance.NewRosterStore(),
		Logs:      attendance.NewLogStore(),
	}
	if err := m.load(ctx, s, teacherID, token); err != nil {
		return nil, err
	}
	s.lastUsed = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have raced us here; keep the first one.
	if first, ok := m.sessions[teacherID]; ok {
		return first, nil
	}
	m.sessions[teacherID] = s
	return s, nil
}

// Refresh re-fetches roster, logs, and subject ids for an existing session,
// discarding unsaved local edits.
func (m *Manager) Refresh(ctx context.Context, s *Session, token string) error {
	if m.cache != nil {
		m.cache.Invalidate(ctx, s.TeacherID)
	}
	if err := m.load(ctx, s, s.TeacherID, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = StateClean
	s.mu.Unlock()
	return nil
}

func (m *Manager) load(ctx context.Context, s *Session, teacherID, token string) error {
	var snap store.Snapshot
	if m.cache != nil && m.cache.Load(ctx, teacherID, &snap) {
		s.Roster.Replace(snap.Students)
		s.Logs.Replace(snap.Logs)
		s.mu.Lock()
		s.subjectIDs = snap.SubjectIDs
		s.mu.Unlock()
		return nil
	}

	students, err := m.client.Students(ctx, token, teacherID)
	if err != nil {
		return err
	}
	logs, err := m.client.TeacherLogs(ctx, token)
	if err != nil {
		return err
	}
	subjectIDs, err := m.client.SubjectIDs(ctx, token)
	if err != nil {
		return err
	}

	s.Roster.Replace(students)
	s.Logs.Replace(logs)
	s.mu.Lock()
	s.subjectIDs = subjectIDs
	s.mu.Unlock()

	if m.cache != nil {
		m.cache.Store(ctx, teacherID, store.Snapshot{
			Students:   students,
			Logs:       logs,
			SubjectIDs: subjectIDs,
		})
	}
	return nil
}

// Sweep drops sessions idle longer than the TTL. Run it periodically.
func (m *Manager) Sweep() {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff) && s.state != StateSaving
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			log.Printf("session %s expired", id)
		}
	}
}
