package catalog

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCreateAndEndSession(t *testing.T) {
	c := openTestCatalog(t)
	start := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	id, err := c.CreateSession("task-1", "host-a", start)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	end := start.Add(time.Minute)
	if err := c.EndSession(id, end); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sessions, err := c.SessionsForTask("task-1")
	if err != nil {
		t.Fatalf("SessionsForTask: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].EndedAt == nil {
		t.Fatal("EndedAt is nil after EndSession")
	}
	if !sessions[0].StartedAt.Equal(start) {
		t.Fatalf("StartedAt = %v, want %v", sessions[0].StartedAt, start)
	}
}

func TestTotalRecordingTimeExcludesIncompleteSessions(t *testing.T) {
	c := openTestCatalog(t)
	start := time.Now().Truncate(time.Millisecond)

	complete, _ := c.CreateSession("task-2", "host-a", start)
	c.EndSession(complete, start.Add(10*time.Second))

	c.CreateSession("task-2", "host-a", start.Add(time.Minute)) // never ended

	total, err := c.TotalRecordingTime("task-2")
	if err != nil {
		t.Fatalf("TotalRecordingTime: %v", err)
	}
	if total != 10*time.Second {
		t.Fatalf("total = %v, want 10s", total)
	}
}

func TestAppendFrameOffsetIndexIsContiguousPerChunk(t *testing.T) {
	c := openTestCatalog(t)
	if _, err := c.InsertChunk("/tmp/chunk0.mp4", "host-a", "task", "task-3", 0, 30); err != nil {
		t.Fatalf("InsertChunk: %v", err)
	}

	const n = 20
	for i := 0; i < n; i++ {
		id, err := c.AppendFrame("host-a", sql.NullString{}, i == 0,
			sql.NullInt64{Int64: int64(i), Valid: true}, sql.NullInt64{Int64: int64(i), Valid: true},
			sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{})
		if err != nil {
			t.Fatalf("AppendFrame %d: %v", i, err)
		}
		if id == 0 {
			t.Fatalf("AppendFrame %d: got id 0", i)
		}
	}

	frames, err := c.FramesForTask("task-3")
	if err != nil {
		t.Fatalf("FramesForTask: %v", err)
	}
	if len(frames) != n {
		t.Fatalf("got %d frames, want %d", len(frames), n)
	}
	for i, f := range frames {
		if f.OffsetIndex != i {
			t.Fatalf("frame %d has offset_index %d, want %d", i, f.OffsetIndex, i)
		}
	}
	if !frames[0].IsKeyframe {
		t.Fatal("first frame should be the keyframe")
	}
}

func TestAppendFrameOffsetIndexResetsOnNewChunk(t *testing.T) {
	c := openTestCatalog(t)
	c.InsertChunk("/tmp/chunk0.mp4", "host-b", "task", "task-4", 0, 30)
	c.AppendFrame("host-b", sql.NullString{}, true, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{})
	c.AppendFrame("host-b", sql.NullString{}, false, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{})

	c.InsertChunk("/tmp/chunk1.mp4", "host-b", "task", "task-4", 1, 30)
	id, err := c.AppendFrame("host-b", sql.NullString{}, true, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{}, sql.NullInt64{})
	if err != nil {
		t.Fatalf("AppendFrame: %v", err)
	}
	if id == 0 {
		t.Fatal("got id 0")
	}

	frames, err := c.FramesForTask("task-4")
	if err != nil {
		t.Fatalf("FramesForTask: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	// Frame order is chunk created_at then offset_index, so the new
	// chunk's single frame (offset 0) must appear after the first chunk's
	// two frames (offsets 0,1), not interleaved by global id.
	if frames[2].OffsetIndex != 0 {
		t.Fatalf("frame in second chunk has offset_index %d, want 0 (reset)", frames[2].OffsetIndex)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.sqlite")
	c1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	c1.Close()

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer c2.Close()
}
