package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"acadboard/internal/attendance"
)

var (
	// ErrMissingSelection means subject, course, or semester was left out.
	ErrMissingSelection = errors.New("please select subject, course and semester")

	// ErrNoStudents means no roster entry matched the selection.
	ErrNoStudents = errors.New("no students match the selected filters")
)

// Request selects one month of one subject's attendance for one
// course/semester cohort. All three cohort fields are required.
type Request struct {
	Month    string `form:"month" json:"month"` // "YYYY-MM"
	Subject  string `form:"subject" json:"subject"`
	Course   string `form:"course" json:"course"`
	Semester int    `form:"semester" json:"semester"`
}

// Row is one student's line in the monthly matrix. Days has one cell per
// calendar day: "P", "A", "-" (class held, student unmarked), or "" (no
// class that day).
type Row struct {
	RollNo      string
	Name        string
	Days        []string
	DaysPresent int
	Percentage  string
}

// Matrix is the assembled month report, ready to serialize.
type Matrix struct {
	Subject      string
	Month        time.Time
	DaysInMonth  int
	TotalClasses int
	Rows         []Row
}

type dayKey struct {
	date   string
	rollNo string
}

// BuildMonthlyMatrix validates the request, filters the roster to the
// selected cohort, and fills the day-by-day grid. Validation runs before
// any matrix work so bad input costs nothing.
func BuildMonthlyMatrix(students []attendance.Student, logs []attendance.LogEntry, req Request) (*Matrix, error) {
	if req.Subject == "" || req.Course == "" || req.Semester == 0 {
		return nil, ErrMissingSelection
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q: expected YYYY-MM", req.Month)
	}

	var cohort []attendance.Student
	for _, st := range students {
		if st.Subject == req.Subject && st.Course == req.Course && st.Semester == req.Semester {
			cohort = append(cohort, st)
		}
	}
	if len(cohort) == 0 {
		return nil, ErrNoStudents
	}

	daysInMonth := time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	prefix := month.Format("2006-01") + "-"

	// classDates: any log for the subject on a date means class was held
	// that day, regardless of which student it was for.
	classDates := make(map[string]bool)
	statusFor := make(map[dayKey]attendance.Status)
	for _, e := range logs {
		if e.Subject != req.Subject || !strings.HasPrefix(e.Date, prefix) {
			continue
		}
		classDates[e.Date] = true
		statusFor[dayKey{e.Date, e.RollNo}] = e.Status
	}

	m := &Matrix{
		Subject:      req.Subject,
		Month:        month,
		DaysInMonth:  daysInMonth,
		TotalClasses: len(classDates),
	}

	for _, st := range cohort {
		row := Row{RollNo: st.RollNo, Name: st.Name, Days: make([]string, daysInMonth)}
		for d := 1; d <= daysInMonth; d++ {
			date := fmt.Sprintf("%s%02d", prefix, d)
			status, marked := statusFor[dayKey{date, st.RollNo}]
			switch {
			case marked && status == attendance.StatusPresent:
				row.Days[d-1] = "P"
				row.DaysPresent++
			case marked && status == attendance.StatusAbsent:
				row.Days[d-1] = "A"
			case classDates[date]:
				row.Days[d-1] = "-"
			default:
				row.Days[d-1] = ""
			}
		}
		if m.TotalClasses > 0 {
			row.Percentage = fmt.Sprintf("%.2f%%", float64(row.DaysPresent)/float64(m.TotalClasses)*100)
		} else {
			row.Percentage = "0.00%"
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

const sheetName = "Attendance"

// WriteXLSX serializes the matrix. The column order is fixed — Roll No,
// Name, day 1..N, Total Classes, Days Present, Percentage — and downstream
// consumers of the file depend on it.
func (m *Matrix) WriteXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	header := []interface{}{"Roll No", "Name"}
	for d := 1; d <= m.DaysInMonth; d++ {
		header = append(header, strconv.Itoa(d))
	}
	header = append(header, "Total Classes", "Days Present", "Percentage")
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, row := range m.Rows {
		cells := []interface{}{row.RollNo, row.Name}
		for _, day := range row.Days {
			cells = append(cells, day)
		}
		cells = append(cells, m.TotalClasses, row.DaysPresent, row.Percentage)
		if err := setRow(f, i+2, cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheetName, cell, &values)
}

// Filename builds the download name: the subject lowercased with anything
// non-alphanumeric stripped, plus the year-month.
func Filename(subject string, month time.Time) string {
	var b strings.Builder
	for _, r := range strings.ToLower(subject) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return fmt.Sprintf("Attendance_%s_%s.xlsx", b.String(), month.Format("2006-01"))
}
