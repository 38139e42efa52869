// Package display enumerates attached displays, answers point-in-display
// queries, and publishes the latest known cursor position via a
// process-wide single-writer/many-reader cell.
package display

import "fmt"

// Descriptor describes one connected display output. Origins come from the
// OS and place the display in a signed integer mosaic of the virtual desktop.
type Descriptor struct {
	Index     int
	Width     int
	Height    int
	OriginX   int
	OriginY   int
	IsPrimary bool
}

// ErrCaptureFailed is returned when display enumeration fails or the OS
// reports zero displays.
type ErrCaptureFailed struct {
	Reason string
}

func (e *ErrCaptureFailed) Error() string {
	return fmt.Sprintf("display enumeration failed: %s", e.Reason)
}

// List returns all attached displays. Leftmost display index 0 is
// conventionally primary. Fails if the OS call fails or returns no displays.
func List() ([]Descriptor, error) {
	descs, err := listPlatform()
	if err != nil {
		return nil, err
	}
	if len(descs) == 0 {
		return nil, &ErrCaptureFailed{Reason: "no displays reported"}
	}
	return descs, nil
}

// At returns the index of the display containing point (x, y), using
// origin.x <= x < origin.x+width (and analogous for y). Returns 0 if no
// display contains the point — this happens when the cursor is momentarily
// off-screen during a monitor hot-plug or transition.
func At(displays []Descriptor, x, y int) int {
	for _, d := range displays {
		if x >= d.OriginX && x < d.OriginX+d.Width &&
			y >= d.OriginY && y < d.OriginY+d.Height {
			return d.Index
		}
	}
	return 0
}
