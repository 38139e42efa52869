// Package capture drives per-display platform capturers at a target frame
// rate, converts their pixel data to packed RGB, overlays the cursor glyph,
// and emits Frame values for the encoder to consume.
package capture

import (
	"errors"
	"time"
)

// Capturer is the platform-specific source of raw pixel data for one
// display. Implementations are not required to be safe for use from more
// than one goroutine at a time; the producer that owns a Capturer pins it
// to a single OS thread for its lifetime.
type Capturer interface {
	// Capture pulls one frame of BGRA pixel data. Returns ErrWouldBlock if
	// no new frame is ready yet; the caller should sleep briefly and retry.
	Capture() (pix []byte, stride int, err error)
	// Bounds returns the capturer's current width and height in pixels.
	Bounds() (width, height int)
	// Close releases platform resources.
	Close() error
}

// Config selects which display a Capturer targets.
type Config struct {
	DisplayIndex int
}

// ErrNotSupported is returned when screen capture isn't implemented for the
// running platform/build configuration.
var ErrNotSupported = errors.New("screen capture not supported on this platform/build")

// ErrWouldBlock signals that no new frame is available yet.
var ErrWouldBlock = errors.New("capture would block")

// New creates a platform-specific Capturer for the given display.
func New(cfg Config) (Capturer, error) {
	return newPlatformCapturerFn(cfg)
}

// newPlatformCapturerFn is indirected through a variable so tests can
// substitute a fake capturer without a real display.
var newPlatformCapturerFn = newPlatformCapturer

// Frame is one captured, converted image ready for the encoder. It owns its
// data buffer exclusively; nothing else retains a reference to it.
type Frame struct {
	Data         []byte // packed RGB, row-major, stride = Width*3
	Width        int
	Height       int
	DisplayIndex int
	CapturedAt   time.Time
	Timestamp    time.Duration // monotonic offset from the first frame
}
