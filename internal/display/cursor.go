package display

import "sync/atomic"

// cursorPoint packs an (x, y) pair so it can be stored/loaded atomically as
// a single word — readers never block a concurrent writer.
type cursorPoint struct {
	x, y int32
	set  bool
}

var cursorCell atomic.Pointer[cursorPoint]

// UpdateCursor records the latest known cursor position. Last writer wins;
// there is no queueing or blocking.
func UpdateCursor(x, y int32) {
	cursorCell.Store(&cursorPoint{x: x, y: y, set: true})
}

// CursorPosition returns the most recently recorded cursor position. ok is
// false if no position has ever been recorded.
func CursorPosition() (x, y int32, ok bool) {
	p := cursorCell.Load()
	if p == nil {
		return 0, 0, false
	}
	return p.x, p.y, p.set
}
