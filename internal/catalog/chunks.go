package catalog

import (
	"database/sql"
	"fmt"
)

// ChunkInfo is one row of the chunks table.
type ChunkInfo struct {
	ID            int64
	SessionID     sql.NullInt64
	FilePath      string
	DeviceName    string
	RecordingType string
	TaskID        string
	ChunkIndex    int
	FPS           int
	CreatedAt     string
}

// InsertChunk inserts a new chunk row and returns its id. It implements
// encoder.Cataloger so the chunk writer can call it without importing this
// package's storage details.
func (c *Catalog) InsertChunk(filePath, deviceName, recordingType, taskID string, chunkIndex, fps int) (int64, error) {
	res, err := c.db.Exec(
		`INSERT INTO chunks (file_path, device_name, recording_type, task_id, chunk_index, fps)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		filePath, deviceName, nullableString(recordingType), nullableString(taskID), chunkIndex, fps,
	)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert chunk: %w", err)
	}
	return res.LastInsertId()
}

// ChunksForTask returns every chunk recorded for task_id, ordered by
// creation time.
func (c *Catalog) ChunksForTask(taskID string) ([]ChunkInfo, error) {
	rows, err := c.db.Query(
		`SELECT id, session_id, file_path, device_name,
		        COALESCE(recording_type, ''), COALESCE(task_id, ''), chunk_index,
		        COALESCE(fps, 0), created_at
		 FROM chunks WHERE task_id = ? ORDER BY created_at ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: chunks for task: %w", err)
	}
	defer rows.Close()

	var out []ChunkInfo
	for rows.Next() {
		var ch ChunkInfo
		if err := rows.Scan(&ch.ID, &ch.SessionID, &ch.FilePath, &ch.DeviceName,
			&ch.RecordingType, &ch.TaskID, &ch.ChunkIndex, &ch.FPS, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan chunk row: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// DeleteChunk removes a chunk row and its frames. Administrative-only:
// never called on the recording hot path.
func (c *Catalog) DeleteChunk(id int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("catalog: delete chunk: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM frames WHERE video_chunk_id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete chunk frames: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete chunk: %w", err)
	}
	return tx.Commit()
}
