package attendance

import (
	"encoding/json"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Present", StatusPresent, true},
		{"present", StatusPresent, true},
		{"ABSENT", StatusAbsent, true},
		{" absent ", StatusAbsent, true},
		{"", 0, false},
		{"late", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStatus(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(StatusPresent)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"Present"` {
		t.Errorf("marshal = %s, want \"Present\"", data)
	}

	var s Status
	if err := json.Unmarshal([]byte(`"absent"`), &s); err != nil {
		t.Fatal(err)
	}
	if s != StatusAbsent {
		t.Errorf("unmarshal = %v, want absent", s)
	}

	if err := json.Unmarshal([]byte(`"late"`), &s); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDailyRowJSON(t *testing.T) {
	present := StatusPresent
	marked, err := json.Marshal(DailyRow{
		Student:     Student{RollNo: "R1", Name: "Asha"},
		Status:      &present,
		LastUpdated: "2025-03-15 14:30",
	})
	if err != nil {
		t.Fatal(err)
	}

	var view map[string]interface{}
	if err := json.Unmarshal(marked, &view); err != nil {
		t.Fatal(err)
	}
	if view["status"] != "present" {
		t.Errorf("marked row status = %v, want lowercase present", view["status"])
	}

	unmarked, err := json.Marshal(DailyRow{Student: Student{RollNo: "R1"}, LastUpdated: "-"})
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(unmarked, &view); err != nil {
		t.Fatal(err)
	}
	if view["status"] != nil {
		t.Errorf("unmarked row status = %v, want null", view["status"])
	}
	if view["last_updated"] != "-" {
		t.Errorf("unmarked row last_updated = %v, want -", view["last_updated"])
	}
}
