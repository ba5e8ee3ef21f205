package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"acadboard/internal/attendance"
)

// Snapshot is one teacher's upstream data, cached as a unit so roster,
// logs, and subject ids never come from different fetches.
type Snapshot struct {
	Students   []attendance.Student
	Logs       []attendance.LogEntry
	SubjectIDs map[string]string
}

// Student.Raw is excluded from the domain type's JSON on purpose, but the
// warning endpoints need it back verbatim after a cache hit, so the cache
// encoding carries it in an explicit field.
type snapshotJSON struct {
	Students   []snapshotStudent     `json:"students"`
	Logs       []attendance.LogEntry `json:"logs"`
	SubjectIDs map[string]string     `json:"subject_ids"`
}

type snapshotStudent struct {
	attendance.Student
	Raw json.RawMessage `json:"raw,omitempty"`
}

// MarshalJSON encodes the snapshot with each student's raw upstream record.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	wire := snapshotJSON{Logs: s.Logs, SubjectIDs: s.SubjectIDs}
	wire.Students = make([]snapshotStudent, len(s.Students))
	for i, st := range s.Students {
		wire.Students[i] = snapshotStudent{Student: st, Raw: st.Raw}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores the snapshot, raw records included.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.Logs = wire.Logs
	s.SubjectIDs = wire.SubjectIDs
	s.Students = make([]attendance.Student, len(wire.Students))
	for i, w := range wire.Students {
		st := w.Student
		st.Raw = w.Raw
		s.Students[i] = st
	}
	return nil
}

// Cache is a short-TTL redis cache for upstream snapshots. Every method is
// best effort: a broken redis degrades to fetching upstream, never to a
// failed request.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache builds a cache; ttl <= 0 gets a short default.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func cacheKey(teacherID string) string {
	return "acadboard:snapshot:" + teacherID
}

// Load fills out from the cached snapshot; false on miss or any error.
func (c *Cache) Load(ctx context.Context, teacherID string, out *Snapshot) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, cacheKey(teacherID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("snapshot cache read failed: %v", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("snapshot cache decode failed: %v", err)
		return false
	}
	return true
}

// Store writes the snapshot with the cache TTL.
func (c *Cache) Store(ctx context.Context, teacherID string, snap Snapshot) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("snapshot cache encode failed: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(teacherID), data, c.ttl).Err(); err != nil {
		log.Printf("snapshot cache write failed: %v", err)
	}
}

// Invalidate drops the teacher's snapshot, e.g. after a save.
func (c *Cache) Invalidate(ctx context.Context, teacherID string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(teacherID)).Err(); err != nil {
		log.Printf("snapshot cache invalidate failed: %v", err)
	}
}
