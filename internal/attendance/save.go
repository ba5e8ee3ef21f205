package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"acadboard/internal/metrics"
)

var (
	// ErrNothingToSave means the target date has no log entries at all.
	ErrNothingToSave = errors.New("no attendance logs for this date")

	// ErrSubjectUnmapped means a subject label had no backend identifier.
	ErrSubjectUnmapped = errors.New("subject has no backend id")
)

// MarkRequest is one per-subject write to the upstream mark endpoint.
type MarkRequest struct {
	TsID    string   `json:"ts_id"`
	Date    string   `json:"attendance_date"`
	Present []string `json:"present"`
	Absent  []string `json:"absent"`
}

// Marker issues one attendance write. Implemented by the upstream client,
// bound to a session token by the caller.
type Marker interface {
	MarkAttendance(ctx context.Context, req MarkRequest) error
}

// SubjectOutcome reports one subject's write attempt.
type SubjectOutcome struct {
	Subject string
	TsID    string
	Present int
	Absent  int
	Err     error
}

// Save persists one day's logs upstream, one write per subject. Writes are
// best effort, not transactional: subjects are attempted concurrently and
// a failure for one never cancels the others. Entries whose subject has no
// backend id, or whose roll number is missing from the roster, are dropped
// and counted; the unresolvable subject still shows up as a failed outcome
// so the caller can report it.
//
// Returns ErrNothingToSave when the date has no logs at all.
func Save(ctx context.Context, m Marker, date time.Time, logs []LogEntry, subjectIDs map[string]string, roster []Student) ([]SubjectOutcome, error) {
	day := LocalDate(date)

	bySubject := make(map[string][]LogEntry)
	for _, e := range logs {
		if e.Date != day {
			continue
		}
		bySubject[e.Subject] = append(bySubject[e.Subject], e)
	}
	if len(bySubject) == 0 {
		return nil, ErrNothingToSave
	}

	internalID := make(map[string]string, len(roster))
	for _, st := range roster {
		internalID[st.RollNo+"\x00"+st.Subject] = st.InternalID
	}

	subjects := make([]string, 0, len(bySubject))
	for s := range bySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	outcomes := make([]SubjectOutcome, len(subjects))
	var wg sync.WaitGroup
	for i, subject := range subjects {
		out := SubjectOutcome{Subject: subject}

		tsID, ok := subjectIDs[subject]
		if !ok || tsID == "" {
			metrics.SaveSubjectsUnmapped.Inc()
			out.Err = ErrSubjectUnmapped
			outcomes[i] = out
			continue
		}
		out.TsID = tsID

		req := MarkRequest{TsID: tsID, Date: day, Present: []string{}, Absent: []string{}}
		for _, e := range bySubject[subject] {
			id, ok := internalID[e.RollNo+"\x00"+subject]
			if !ok || id == "" {
				metrics.SaveRollsDropped.Inc()
				continue
			}
			switch e.Status {
			case StatusPresent:
				req.Present = append(req.Present, id)
			case StatusAbsent:
				req.Absent = append(req.Absent, id)
			}
		}
		out.Present = len(req.Present)
		out.Absent = len(req.Absent)

		wg.Add(1)
		go func(i int, out SubjectOutcome, req MarkRequest) {
			defer wg.Done()
			out.Err = m.MarkAttendance(ctx, req)
			outcomes[i] = out
		}(i, out, req)
	}
	wg.Wait()

	return outcomes, nil
}

// SavedCount returns how many outcomes succeeded.
func SavedCount(outcomes []SubjectOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}
