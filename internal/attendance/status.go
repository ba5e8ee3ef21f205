package attendance

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the canonical attendance outcome. The upstream API speaks
// capitalized values ("Present"/"Absent"); dashboard view models speak
// lowercase. Both spellings are mapped at the boundary so the rest of the
// code only ever sees this enum.
type Status int

const (
	StatusPresent Status = iota + 1
	StatusAbsent
)

// ParseStatus accepts either casing. The second return is false for
// anything that is not a recognizable status.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present":
		return StatusPresent, true
	case "absent":
		return StatusAbsent, true
	}
	return 0, false
}

// String returns the lowercase view-model form.
func (s Status) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	}
	return "unknown"
}

// Canonical returns the capitalized wire form used by the upstream API.
func (s Status) Canonical() string {
	switch s {
	case StatusPresent:
		return "Present"
	case StatusAbsent:
		return "Absent"
	}
	return ""
}

// MarshalJSON emits the canonical wire form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Canonical())
}

// UnmarshalJSON accepts either casing.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok := ParseStatus(raw)
	if !ok {
		return fmt.Errorf("unknown attendance status %q", raw)
	}
	*s = parsed
	return nil
}
