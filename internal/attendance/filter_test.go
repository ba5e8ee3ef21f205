package attendance

import (
	"testing"
)

func filterRows() []DailyRow {
	present := StatusPresent
	return []DailyRow{
		{Student: Student{RollNo: "CS101", Name: "Asha Rao", Subject: "Physics", Course: "CS", Semester: 3, AttendancePct: 80}, Status: &present},
		{Student: Student{RollNo: "CS102", Name: "Bilal Khan", Subject: "Physics", Course: "CS", Semester: 3, AttendancePct: 60}},
		{Student: Student{RollNo: "BSC201", Name: "Chitra Nair", Subject: "Chemistry", Course: "BSc", Semester: 3, AttendancePct: 90}},
		{Student: Student{RollNo: "CS301", Name: "Dev Patel", Subject: "Physics", Course: "CS", Semester: 5, AttendancePct: 70}},
	}
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string // roll numbers
	}{
		{name: "no filters", filter: Filter{}, want: []string{"CS101", "CS102", "BSC201", "CS301"}},
		{name: "all sentinels", filter: Filter{Subject: "all", Course: "all", Semester: "all"}, want: []string{"CS101", "CS102", "BSC201", "CS301"}},
		{name: "course", filter: Filter{Course: "CS"}, want: []string{"CS101", "CS102", "CS301"}},
		{name: "course and semester", filter: Filter{Course: "CS", Semester: "3"}, want: []string{"CS101", "CS102"}},
		{name: "search by name", filter: Filter{Search: "bilal"}, want: []string{"CS102"}},
		{name: "search by roll", filter: Filter{Search: "bsc2"}, want: []string{"BSC201"}},
		{name: "not marked only", filter: Filter{NotMarkedOnly: true}, want: []string{"CS102", "BSC201", "CS301"}},
		{name: "low attendance only", filter: Filter{LowAttendanceOnly: true}, want: []string{"CS102", "CS301"}},
		{name: "compound", filter: Filter{Course: "CS", Semester: "3", NotMarkedOnly: true, LowAttendanceOnly: true}, want: []string{"CS102"}},
		{name: "no match", filter: Filter{Course: "BSc", Semester: "5"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(filterRows())
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(got), len(tt.want))
			}
			for i, row := range got {
				if row.RollNo != tt.want[i] {
					t.Errorf("row %d = %s, want %s", i, row.RollNo, tt.want[i])
				}
			}
		})
	}
}

func TestFilterOrderIndependence(t *testing.T) {
	rows := filterRows()

	combined := Filter{Course: "CS", Semester: "3"}.Apply(rows)
	semThenCourse := Filter{Course: "CS"}.Apply(Filter{Semester: "3"}.Apply(rows))
	courseThenSem := Filter{Semester: "3"}.Apply(Filter{Course: "CS"}.Apply(rows))

	if len(combined) != len(semThenCourse) || len(combined) != len(courseThenSem) {
		t.Fatalf("result sizes differ: %d, %d, %d", len(combined), len(semThenCourse), len(courseThenSem))
	}
	for i := range combined {
		if combined[i].RollNo != semThenCourse[i].RollNo || combined[i].RollNo != courseThenSem[i].RollNo {
			t.Errorf("row %d differs between application orders", i)
		}
	}
}
