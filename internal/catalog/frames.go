package catalog

import (
	"database/sql"
	"fmt"
)

// FrameInfo is one row of the frames table, joined with its chunk for the
// fields a manifest needs.
type FrameInfo struct {
	ID            int64
	ChunkID       int64
	OffsetIndex   int
	CapturedAt    sql.NullString
	IsKeyframe    bool
	PTS           sql.NullInt64
	DTS           sql.NullInt64
	DisplayIndex  sql.NullInt64
	DisplayWidth  sql.NullInt64
	DisplayHeight sql.NullInt64
}

// AppendFrame locates the latest chunk for device_name, computes the next
// offset_index within it, and inserts the frame row — all inside one
// transaction, since this is the only place offset_index is assigned and
// it must never produce a duplicate or a gap.
func (c *Catalog) AppendFrame(deviceName string, capturedAt sql.NullString, isKeyframe bool,
	pts, dts sql.NullInt64, displayIndex, displayWidth, displayHeight sql.NullInt64) (int64, error) {

	tx, err := c.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("catalog: append frame: begin: %w", err)
	}
	defer tx.Rollback()

	var chunkID int64
	err = tx.QueryRow(
		`SELECT id FROM chunks WHERE device_name = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		deviceName,
	).Scan(&chunkID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("catalog: append frame: no chunk open for device %q", deviceName)
		}
		return 0, fmt.Errorf("catalog: append frame: find chunk: %w", err)
	}

	var maxOffset sql.NullInt64
	if err := tx.QueryRow(
		`SELECT MAX(offset_index) FROM frames WHERE video_chunk_id = ?`, chunkID,
	).Scan(&maxOffset); err != nil {
		return 0, fmt.Errorf("catalog: append frame: max offset: %w", err)
	}
	nextOffset := int64(0)
	if maxOffset.Valid {
		nextOffset = maxOffset.Int64 + 1
	}

	keyframeVal := 0
	if isKeyframe {
		keyframeVal = 1
	}

	res, err := tx.Exec(
		`INSERT INTO frames (video_chunk_id, device_name, offset_index, captured_at,
		                      is_keyframe, pts, dts, display_index, display_width, display_height)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunkID, deviceName, nextOffset, capturedAt, keyframeVal, pts, dts,
		displayIndex, displayWidth, displayHeight,
	)
	if err != nil {
		return 0, fmt.Errorf("catalog: append frame: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("catalog: append frame: last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("catalog: append frame: commit: %w", err)
	}
	return id, nil
}

// FramesForTask returns every frame recorded for task_id, joined with its
// chunk, ordered by the chunk's creation time then the frame's
// offset_index — the canonical frame order the manifest builder relies on.
func (c *Catalog) FramesForTask(taskID string) ([]FrameInfo, error) {
	rows, err := c.db.Query(
		`SELECT f.id, f.video_chunk_id, f.offset_index, f.captured_at, f.is_keyframe,
		        f.pts, f.dts, f.display_index, f.display_width, f.display_height
		 FROM frames f
		 JOIN chunks c ON c.id = f.video_chunk_id
		 WHERE c.task_id = ?
		 ORDER BY c.created_at ASC, c.id ASC, f.offset_index ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: frames for task: %w", err)
	}
	defer rows.Close()

	var out []FrameInfo
	for rows.Next() {
		var f FrameInfo
		var keyframe int
		if err := rows.Scan(&f.ID, &f.ChunkID, &f.OffsetIndex, &f.CapturedAt, &keyframe,
			&f.PTS, &f.DTS, &f.DisplayIndex, &f.DisplayWidth, &f.DisplayHeight); err != nil {
			return nil, fmt.Errorf("catalog: scan frame row: %w", err)
		}
		f.IsKeyframe = keyframe != 0
		out = append(out, f)
	}
	return out, rows.Err()
}
