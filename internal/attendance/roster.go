package attendance

import (
	"encoding/json"
	"sync"
)

// LowAttendanceThreshold is the policy cutoff: strictly below this rate a
// student is flagged for warning.
const LowAttendanceThreshold = 75.0

// Student is one roster entry. A student appears once per subject they are
// enrolled in, so (RollNo, Subject) is the unique key within a teacher's
// roster. InternalID is the opaque backend identifier used only for writes.
type Student struct {
	RollNo        string  `json:"roll_number"`
	InternalID    string  `json:"id"`
	Name          string  `json:"name"`
	Subject       string  `json:"subject_name"`
	Course        string  `json:"course"`
	Semester      int     `json:"current_semester"`
	AttendancePct float64 `json:"attendance_percentage"`

	// Raw keeps the unmapped upstream record; the warning endpoints expect
	// exactly this shape, so it is carried along rather than re-encoded.
	Raw json.RawMessage `json:"-"`
}

// RosterStore holds the roster for one teacher session.
type RosterStore struct {
	mu       sync.RWMutex
	students []Student
}

// NewRosterStore creates an empty store.
func NewRosterStore() *RosterStore {
	return &RosterStore{}
}

// Replace swaps the full roster.
func (s *RosterStore) Replace(students []Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = make([]Student, len(students))
	copy(s.students, students)
}

// All returns a copy of the roster.
func (s *RosterStore) All() []Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Student, len(s.students))
	copy(out, s.students)
	return out
}

// Find returns the roster entry for (roll, subject).
func (s *RosterStore) Find(rollNo, subject string) (Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		if st.RollNo == rollNo && st.Subject == subject {
			return st, true
		}
	}
	return Student{}, false
}

// Len returns the roster size.
func (s *RosterStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.students)
}

// LowAttendance returns every student strictly below the policy threshold.
// This runs on the full roster, never the filtered view, so global alerting
// does not change with whatever filters the dashboard currently applies.
func LowAttendance(roster []Student) []Student {
	var out []Student
	for _, st := range roster {
		if st.AttendancePct < LowAttendanceThreshold {
			out = append(out, st)
		}
	}
	return out
}
