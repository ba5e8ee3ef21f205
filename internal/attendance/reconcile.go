package attendance

import (
	"encoding/json"
	"time"

	"acadboard/internal/metrics"
)

// DailyRow is the per-student view for one date. It is derived, never
// stored: recomputed on every change to date, roster, or logs.
type DailyRow struct {
	Student
	// Status is nil when the student has not been marked for the date.
	Status      *Status
	LastUpdated string
}

// MarshalJSON emits the view-model shape: lowercase status or null, and
// "-" for an unknown last-updated time.
func (r DailyRow) MarshalJSON() ([]byte, error) {
	var status *string
	if r.Status != nil {
		s := r.Status.String()
		status = &s
	}
	return json.Marshal(struct {
		RollNo        string  `json:"roll_number"`
		Name          string  `json:"name"`
		Subject       string  `json:"subject_name"`
		Course        string  `json:"course"`
		Semester      int     `json:"current_semester"`
		AttendancePct float64 `json:"attendance_percentage"`
		Status        *string `json:"status"`
		LastUpdated   string  `json:"last_updated"`
	}{r.RollNo, r.Name, r.Subject, r.Course, r.Semester, r.AttendancePct, status, r.LastUpdated})
}

// LocalDate formats t as "YYYY-MM-DD" in t's own location. Formatting must
// never round-trip through UTC: 11pm local on the 15th is still the 15th.
func LocalDate(t time.Time) string {
	return t.Format("2006-01-02")
}

type logKey struct {
	date    string
	subject string
	rollNo  string
}

// Reconcile merges the roster with the logs for one date. Every roster
// entry produces exactly one row; a missing log means "not marked". It
// never fails: malformed entries are skipped and counted.
func Reconcile(roster []Student, logs []LogEntry, date time.Time) []DailyRow {
	day := LocalDate(date)

	byKey := make(map[logKey]LogEntry, len(logs))
	for _, e := range logs {
		if e.Date == "" || e.Subject == "" || e.RollNo == "" || e.Status == 0 {
			metrics.ReconcileSkipped.Inc()
			continue
		}
		byKey[logKey{e.Date, e.Subject, e.RollNo}] = e
	}

	rows := make([]DailyRow, 0, len(roster))
	for _, st := range roster {
		row := DailyRow{Student: st, LastUpdated: "-"}
		if e, ok := byKey[logKey{day, st.Subject, st.RollNo}]; ok {
			status := e.Status
			row.Status = &status
			row.LastUpdated = lastUpdatedDisplay(e)
		}
		rows = append(rows, row)
	}
	return rows
}

// lastUpdatedDisplay picks the freshest provenance available:
// UpdatedAt, then CreatedAt, then the entry's own date, then "-".
func lastUpdatedDisplay(e LogEntry) string {
	if e.UpdatedAt != nil {
		return e.UpdatedAt.Format("2006-01-02 15:04")
	}
	if e.CreatedAt != nil {
		return e.CreatedAt.Format("2006-01-02 15:04")
	}
	if e.Date != "" {
		return e.Date
	}
	return "-"
}
