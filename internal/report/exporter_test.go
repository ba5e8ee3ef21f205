package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"acadboard/internal/attendance"
)

func reportStudents() []attendance.Student {
	return []attendance.Student{
		{RollNo: "R1", Name: "Asha", Subject: "Physics", Course: "BSc", Semester: 3},
		{RollNo: "R2", Name: "Bilal", Subject: "Physics", Course: "BSc", Semester: 3},
		{RollNo: "R3", Name: "Chitra", Subject: "Physics", Course: "BA", Semester: 3},
	}
}

func TestBuildMonthlyMatrixValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"missing subject", Request{Month: "2025-06", Course: "BSc", Semester: 3}, ErrMissingSelection},
		{"missing course", Request{Month: "2025-06", Subject: "Physics", Semester: 3}, ErrMissingSelection},
		{"missing semester", Request{Month: "2025-06", Subject: "Physics", Course: "BSc"}, ErrMissingSelection},
		{"no matching students", Request{Month: "2025-06", Subject: "Physics", Course: "BCom", Semester: 3}, ErrNoStudents},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildMonthlyMatrix(reportStudents(), nil, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildMonthlyMatrixBadMonth(t *testing.T) {
	_, err := BuildMonthlyMatrix(reportStudents(), nil, Request{Month: "June 2025", Subject: "Physics", Course: "BSc", Semester: 3})
	if err == nil {
		t.Error("expected error for unparsable month")
	}
}

func TestBuildMonthlyMatrix(t *testing.T) {
	logs := []attendance.LogEntry{
		{Date: "2025-06-02", Subject: "Physics", RollNo: "R1", Status: attendance.StatusPresent},
		// Class held on the 3rd (R2 marked) with no entry for R1.
		{Date: "2025-06-03", Subject: "Physics", RollNo: "R2", Status: attendance.StatusAbsent},
		// Other subject and other month must not count.
		{Date: "2025-06-05", Subject: "Chemistry", RollNo: "R1", Status: attendance.StatusPresent},
		{Date: "2025-07-02", Subject: "Physics", RollNo: "R1", Status: attendance.StatusPresent},
	}
	req := Request{Month: "2025-06", Subject: "Physics", Course: "BSc", Semester: 3}

	m, err := BuildMonthlyMatrix(reportStudents(), logs, req)
	if err != nil {
		t.Fatalf("BuildMonthlyMatrix() error = %v", err)
	}

	if m.DaysInMonth != 30 {
		t.Errorf("DaysInMonth = %d, want 30", m.DaysInMonth)
	}
	if m.TotalClasses != 2 {
		t.Errorf("TotalClasses = %d, want 2", m.TotalClasses)
	}
	if len(m.Rows) != 2 { // R3 is BA, filtered out
		t.Fatalf("got %d rows, want 2", len(m.Rows))
	}

	r1 := m.Rows[0]
	if r1.RollNo != "R1" {
		t.Fatalf("first row = %s, want R1", r1.RollNo)
	}
	for d := 1; d <= 30; d++ {
		want := ""
		switch d {
		case 2:
			want = "P"
		case 3:
			want = "-"
		}
		if r1.Days[d-1] != want {
			t.Errorf("R1 day %d = %q, want %q", d, r1.Days[d-1], want)
		}
	}
	if r1.DaysPresent != 1 {
		t.Errorf("R1 DaysPresent = %d, want 1", r1.DaysPresent)
	}
	if r1.Percentage != "50.00%" {
		t.Errorf("R1 Percentage = %q, want 50.00%%", r1.Percentage)
	}

	r2 := m.Rows[1]
	if r2.Days[2] != "A" {
		t.Errorf("R2 day 3 = %q, want A", r2.Days[2])
	}
}

func TestBuildMonthlyMatrixNoClasses(t *testing.T) {
	req := Request{Month: "2025-06", Subject: "Physics", Course: "BSc", Semester: 3}
	m, err := BuildMonthlyMatrix(reportStudents(), nil, req)
	if err != nil {
		t.Fatalf("BuildMonthlyMatrix() error = %v", err)
	}
	if m.TotalClasses != 0 {
		t.Errorf("TotalClasses = %d, want 0", m.TotalClasses)
	}
	if m.Rows[0].Percentage != "0.00%" {
		t.Errorf("Percentage = %q, want 0.00%% when no classes held", m.Rows[0].Percentage)
	}
}

func TestWriteXLSX(t *testing.T) {
	logs := []attendance.LogEntry{
		{Date: "2025-06-02", Subject: "Physics", RollNo: "R1", Status: attendance.StatusPresent},
	}
	req := Request{Month: "2025-06", Subject: "Physics", Course: "BSc", Semester: 3}
	m, err := BuildMonthlyMatrix(reportStudents(), logs, req)
	if err != nil {
		t.Fatal(err)
	}

	data, err := m.WriteXLSX()
	if err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 { // header + 2 students
		t.Fatalf("got %d sheet rows, want 3", len(rows))
	}

	header := rows[0]
	if header[0] != "Roll No" || header[1] != "Name" {
		t.Errorf("header starts %v, want Roll No, Name", header[:2])
	}
	// 2 leading + 30 days + 3 trailing columns.
	if header[2] != "1" || header[31] != "30" {
		t.Errorf("day columns misplaced: col3=%q col32=%q", header[2], header[31])
	}
	if header[32] != "Total Classes" || header[33] != "Days Present" || header[34] != "Percentage" {
		t.Errorf("trailing columns = %v", header[32:])
	}

	r1 := rows[1]
	if r1[0] != "R1" || r1[3] != "P" {
		t.Errorf("R1 row = roll %q day2 %q, want R1, P", r1[0], r1[3])
	}
}

func TestFilename(t *testing.T) {
	month := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		subject string
		want    string
	}{
		{"Physics", "Attendance_physics_2025-06.xlsx"},
		{"Data Structures & Algorithms II", "Attendance_datastructuresalgorithmsii_2025-06.xlsx"},
	}
	for _, tt := range tests {
		if got := Filename(tt.subject, month); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
