package attendance

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogEntry is one recorded attendance outcome for one student, one subject,
// one calendar date. Date is always the canonical "YYYY-MM-DD" form with no
// time component. At most one entry per (Date, Subject, RollNo) tuple is
// authoritative; local edits replace, never duplicate.
type LogEntry struct {
	ID        string     `json:"-"`
	Date      string     `json:"date"`
	Subject   string     `json:"subject_name"`
	RollNo    string     `json:"roll_number"`
	Status    Status     `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// LogStore holds the raw attendance log for one teacher session. Edits are
// optimistic and purely in-memory; persistence happens separately via Save.
type LogStore struct {
	mu      sync.RWMutex
	entries []LogEntry
	nowFunc func() time.Time
}

// NewLogStore creates an empty store.
func NewLogStore() *LogStore {
	return &LogStore{nowFunc: time.Now}
}

// Replace swaps the full log list, e.g. after a fresh upstream fetch.
func (s *LogStore) Replace(entries []LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]LogEntry, len(entries))
	copy(s.entries, entries)
}

// All returns a copy of every entry.
func (s *LogStore) All() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// ForDate returns entries whose Date equals day ("YYYY-MM-DD").
func (s *LogStore) ForDate(day string) []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LogEntry
	for _, e := range s.entries {
		if e.Date == day {
			out = append(out, e)
		}
	}
	return out
}

// ApplyLocalEdit records status for (rollNo, subject, date), replacing any
// prior entry for that tuple. Applying the same edit twice leaves exactly
// one entry. No network call happens here.
func (s *LogStore) ApplyLocalEdit(rollNo, subject string, date time.Time, status Status) LogEntry {
	day := LocalDate(date)
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Date == day && e.Subject == subject && e.RollNo == rollNo {
			continue
		}
		kept = append(kept, e)
	}
	entry := LogEntry{
		ID:        uuid.NewString(),
		Date:      day,
		Subject:   subject,
		RollNo:    rollNo,
		Status:    status,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	s.entries = append(kept, entry)
	return entry
}
