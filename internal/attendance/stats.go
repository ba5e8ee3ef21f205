package attendance

import (
	"log"
	"math"
	"time"

	"acadboard/internal/metrics"
)

// Stats summarizes one day for the currently filtered roster.
type Stats struct {
	Total             int `json:"total"`
	PresentToday      int `json:"present_today"`
	AbsentToday       int `json:"absent_today"`
	NotMarked         int `json:"not_marked"`
	AvgAttendanceRate int `json:"avg_attendance_rate"`
}

// ComputeStats counts today's outcomes over the filtered roster. The
// average rate comes from the roster's precomputed attendance percentages,
// not from the logs. subject narrows the counted logs when non-empty and
// not the "all" sentinel.
//
// Roster and logs come from two different upstream endpoints and can
// legitimately disagree (e.g. a student added mid-day), so NotMarked is
// clamped at zero rather than trusted to stay non-negative.
func ComputeStats(filtered []Student, dayLogs []LogEntry, date time.Time, subject string) Stats {
	st := Stats{Total: len(filtered)}

	if len(filtered) > 0 {
		var sum float64
		for _, s := range filtered {
			sum += s.AttendancePct
		}
		st.AvgAttendanceRate = int(math.Round(sum / float64(len(filtered))))
	}

	day := LocalDate(date)
	for _, e := range dayLogs {
		if e.Date != day {
			continue
		}
		if subject != "" && subject != FilterAll && e.Subject != subject {
			continue
		}
		switch e.Status {
		case StatusPresent:
			st.PresentToday++
		case StatusAbsent:
			st.AbsentToday++
		}
	}

	st.NotMarked = st.Total - st.PresentToday - st.AbsentToday
	if st.NotMarked < 0 {
		// Logs outnumber the roster: upstream data drift. Keep the
		// dashboard sane but make the drift observable.
		log.Printf("stats: clamping not-marked (total=%d present=%d absent=%d)",
			st.Total, st.PresentToday, st.AbsentToday)
		metrics.NotMarkedClamped.Inc()
		st.NotMarked = 0
	}
	return st
}
