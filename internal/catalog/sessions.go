package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// SessionInfo is one row of the sessions table.
type SessionInfo struct {
	ID         int64
	TaskID     string
	DeviceName string
	StartedAt  time.Time
	EndedAt    *time.Time
}

const timeLayout = time.RFC3339Nano

// CreateSession inserts a new session row and returns its id.
func (c *Catalog) CreateSession(taskID, deviceName string, startedAt time.Time) (int64, error) {
	res, err := c.db.Exec(
		`INSERT INTO sessions (task_id, device_name, started_at) VALUES (?, ?, ?)`,
		nullableString(taskID), deviceName, startedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("catalog: create session: %w", err)
	}
	return res.LastInsertId()
}

// EndSession sets the session's end timestamp.
func (c *Catalog) EndSession(id int64, endedAt time.Time) error {
	_, err := c.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`,
		endedAt.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("catalog: end session %d: %w", id, err)
	}
	return nil
}

// SessionsForTask returns every session recorded for task_id, ordered by
// start time.
func (c *Catalog) SessionsForTask(taskID string) ([]SessionInfo, error) {
	rows, err := c.db.Query(
		`SELECT id, task_id, device_name, started_at, ended_at
		 FROM sessions WHERE task_id = ? ORDER BY started_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: sessions for task: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			s         SessionInfo
			taskID    sql.NullString
			startedAt string
			endedAt   sql.NullString
		)
		if err := rows.Scan(&s.ID, &taskID, &s.DeviceName, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan session row: %w", err)
		}
		s.TaskID = taskID.String
		started, err := time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("catalog: parse started_at: %w", err)
		}
		s.StartedAt = started
		if endedAt.Valid {
			ended, err := time.Parse(timeLayout, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("catalog: parse ended_at: %w", err)
			}
			s.EndedAt = &ended
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TotalRecordingTime sums the durations of sessions for task_id that have
// both a start and an end timestamp; incomplete sessions are excluded.
func (c *Catalog) TotalRecordingTime(taskID string) (time.Duration, error) {
	sessions, err := c.SessionsForTask(taskID)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, s := range sessions {
		if s.EndedAt == nil {
			continue
		}
		total += s.EndedAt.Sub(s.StartedAt)
	}
	return total, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
