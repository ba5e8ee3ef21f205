package attendance

import (
	"strconv"
	"strings"
)

// FilterAll is the sentinel meaning "no restriction" for the select-style
// filters.
const FilterAll = "all"

// Filter is the compound dashboard filter. All set predicates AND
// together; each predicate is independent, so application order never
// changes the result.
type Filter struct {
	// Search matches case-insensitively against name or roll number.
	Search   string
	Subject  string
	Course   string
	Semester string

	NotMarkedOnly     bool
	LowAttendanceOnly bool
}

// Apply returns the rows matching every predicate.
func (f Filter) Apply(rows []DailyRow) []DailyRow {
	out := make([]DailyRow, 0, len(rows))
	for _, r := range rows {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f Filter) match(r DailyRow) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.Name), q) &&
			!strings.Contains(strings.ToLower(r.RollNo), q) {
			return false
		}
	}
	if !sentinelMatch(f.Subject, r.Subject) {
		return false
	}
	if !sentinelMatch(f.Course, r.Course) {
		return false
	}
	if !sentinelMatch(f.Semester, strconv.Itoa(r.Semester)) {
		return false
	}
	if f.NotMarkedOnly && r.Status != nil {
		return false
	}
	if f.LowAttendanceOnly && r.AttendancePct >= LowAttendanceThreshold {
		return false
	}
	return true
}

func sentinelMatch(filter, value string) bool {
	return filter == "" || filter == FilterAll || filter == value
}
