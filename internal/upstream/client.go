package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"acadboard/internal/attendance"
	"acadboard/internal/metrics"
)

// ErrUnauthorized maps upstream 401/403 responses. The gateway never
// refreshes tokens itself; the session collaborator owns that.
var ErrUnauthorized = errors.New("unauthorized")

// Client calls the academic backend REST API. Every call carries the
// bearer token of the teacher session it acts for.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Students fetches the teacher's roster. Each entry keeps its raw JSON
// record alongside the mapped fields; the warning endpoints want the raw
// shape back untouched.
func (c *Client) Students(ctx context.Context, token, teacherID string) ([]attendance.Student, error) {
	var raws []json.RawMessage
	if err := c.getJSON(ctx, token, "/teachers/"+teacherID+"/students/", &raws); err != nil {
		return nil, fmt.Errorf("fetch students: %w", err)
	}

	students := make([]attendance.Student, 0, len(raws))
	for _, raw := range raws {
		var w studentWire
		if err := json.Unmarshal(raw, &w); err != nil {
			metrics.UpstreamErrors.WithLabelValues("students").Inc()
			continue
		}
		st := w.toStudent()
		st.Raw = raw
		students = append(students, st)
	}
	return students, nil
}

// TeacherLogs fetches the flat attendance log list for the teacher.
// Entries with an unparsable status are dropped and counted.
func (c *Client) TeacherLogs(ctx context.Context, token string) ([]attendance.LogEntry, error) {
	var wires []logWire
	if err := c.getJSON(ctx, token, "/attendance/teacherwise/", &wires); err != nil {
		return nil, fmt.Errorf("fetch attendance logs: %w", err)
	}

	entries := make([]attendance.LogEntry, 0, len(wires))
	for _, w := range wires {
		e, ok := w.toEntry()
		if !ok {
			metrics.UpstreamErrors.WithLabelValues("teacherwise").Inc()
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SubjectIDs fetches the subject-name to ts_id mapping needed for writes.
func (c *Client) SubjectIDs(ctx context.Context, token string) (map[string]string, error) {
	var wires []struct {
		TsID        json.Number `json:"ts_id"`
		SubjectName string      `json:"subject_name"`
	}
	if err := c.getJSON(ctx, token, "/teachers/me/teacher-subject-ids/", &wires); err != nil {
		return nil, fmt.Errorf("fetch subject ids: %w", err)
	}

	out := make(map[string]string, len(wires))
	for _, w := range wires {
		if w.SubjectName == "" {
			continue
		}
		out[w.SubjectName] = w.TsID.String()
	}
	return out, nil
}

// MarkAttendance issues one per-subject attendance write.
func (c *Client) MarkAttendance(ctx context.Context, token string, req attendance.MarkRequest) error {
	if err := c.postJSON(ctx, token, "/attendance/mark/", req); err != nil {
		metrics.UpstreamErrors.WithLabelValues("mark").Inc()
		return fmt.Errorf("mark %s: %w", req.TsID, err)
	}
	return nil
}

// SendWarning forwards one raw roster record to the warning mailer.
func (c *Client) SendWarning(ctx context.Context, token string, raw json.RawMessage) error {
	if err := c.postJSON(ctx, token, "/send-attendance-warning/", raw); err != nil {
		metrics.UpstreamErrors.WithLabelValues("warning").Inc()
		return fmt.Errorf("send warning: %w", err)
	}
	return nil
}

// SendBulkWarning forwards raw roster records to the bulk warning mailer.
func (c *Client) SendBulkWarning(ctx context.Context, token string, raws []json.RawMessage) error {
	if err := c.postJSON(ctx, token, "/send-bulk-attendance-warning/", raws); err != nil {
		metrics.UpstreamErrors.WithLabelValues("bulk_warning").Inc()
		return fmt.Errorf("send bulk warning: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, out interface{}) error {
	resp, err := c.do(ctx, token, http.MethodGet, path, nil)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		// GETs are safe to retry once on transport-level failures.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		resp, err = c.do(ctx, token, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, token, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, token, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, token, method, path string, body []byte) (*http.Response, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upstream error %s: %s", resp.Status, string(b))
	}
	return nil
}

type studentWire struct {
	ID            json.Number `json:"id"`
	RollNumber    string      `json:"roll_number"`
	Name          string      `json:"name"`
	SubjectName   string      `json:"subject_name"`
	Course        string      `json:"course"`
	Semester      int         `json:"current_semester"`
	AttendancePct float64     `json:"attendance_percentage"`
}

func (w studentWire) toStudent() attendance.Student {
	return attendance.Student{
		RollNo:        w.RollNumber,
		InternalID:    w.ID.String(),
		Name:          w.Name,
		Subject:       w.SubjectName,
		Course:        w.Course,
		Semester:      w.Semester,
		AttendancePct: w.AttendancePct,
	}
}

type logWire struct {
	Date        string     `json:"date"`
	SubjectName string     `json:"subject_name"`
	RollNumber  string     `json:"roll_number"`
	Status      string     `json:"status"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func (w logWire) toEntry() (attendance.LogEntry, bool) {
	status, ok := attendance.ParseStatus(w.Status)
	if !ok {
		return attendance.LogEntry{}, false
	}
	return attendance.LogEntry{
		Date:      w.Date,
		Subject:   w.SubjectName,
		RollNo:    w.RollNumber,
		Status:    status,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}, true
}
