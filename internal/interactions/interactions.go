// Package interactions documents the jsonl contract for the external
// interaction tracker. Recording mouse/keyboard events is out of scope for
// this core: a separate process writes one JSON object per line to
// interactions.jsonl in the task's output directory when task mode and
// --track-interactions are both active. This package only knows the file
// path convention and how to fold focus events into a focused-time total
// for the manifest.
package interactions

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
)

// Event is one line of interactions.jsonl.
type Event struct {
	Type            string  `json:"type"` // "focus_gained", "focus_lost", "mouse_move", "key_press", ...
	TimestampMs     int64   `json:"timestamp_ms"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"` // present on focus_lost: time the window held focus
}

// Path returns the conventional interactions.jsonl location for a task's
// output directory.
func Path(outputDir string) string {
	return filepath.Join(outputDir, "interactions.jsonl")
}

// FocusedSeconds sums duration_seconds across focus_lost events in
// interactions.jsonl. Returns 0 with no error when the file is absent,
// since tracking is optional and most recordings never produce it.
func FocusedSeconds(outputDir string) (float64, error) {
	f, err := os.Open(Path(outputDir))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var total float64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue // a malformed line doesn't invalidate the rest
		}
		if ev.Type == "focus_lost" {
			total += ev.DurationSeconds
		}
	}
	return total, scanner.Err()
}
