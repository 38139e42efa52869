package capture

import (
	"errors"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/display"
	"github.com/omegalabsinc/screenrecorder/internal/switcher"
)

// CaptureError wraps a non-retryable failure from the active platform
// capturer; the producer aborts the run when one occurs.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return "capture: " + e.Err.Error() }
func (e *CaptureError) Unwrap() error  { return e.Err }

// wouldBlockSleep is how long the producer backs off between would-block
// retries before asking the capturer again.
const wouldBlockSleep = time.Millisecond

// ProducerConfig parameterizes Run.
type ProducerConfig struct {
	FPS int
	// TargetFrames caps the run to a frame count; zero means unbounded
	// (the caller relies entirely on StopFlag).
	TargetFrames int
	// Displays is the full set of known displays. A single-entry slice
	// disables the monitor-switch path entirely.
	Displays []display.Descriptor
	// Switch drives multi-monitor hysteresis. Nil for single-monitor runs.
	Switch *switcher.Policy
	// InitialDisplay is the display index to open when Switch is nil.
	InitialDisplay int
}

// Sender is the send side of the bounded bridge: Send blocks until the
// frame is accepted or the receiver is gone, in which case ok is false.
type Sender interface {
	Send(f Frame) (ok bool)
}

// Run drives capture of the active display at the configured frame rate
// until stopFlag reports true, the target frame count is reached, or the
// receiver goes away. It blocks the calling goroutine/thread for its
// duration.
func Run(cfg ProducerConfig, sender Sender, stopFlag func() bool) error {
	if cfg.FPS <= 0 {
		cfg.FPS = 1
	}
	framePeriod := time.Second / time.Duration(cfg.FPS)

	activeIndex := cfg.InitialDisplay
	if cfg.Switch != nil {
		activeIndex = cfg.Switch.Current()
	}

	capturer, err := New(Config{DisplayIndex: activeIndex})
	if err != nil {
		return &CaptureError{Err: err}
	}
	defer capturer.Close()

	width, height := capturer.Bounds()

	var origin time.Time
	frameCount := 0

	for {
		frameStart := time.Now()

		if stopFlag != nil && stopFlag() {
			return nil
		}
		if cfg.TargetFrames > 0 && frameCount >= cfg.TargetFrames {
			return nil
		}

		if cfg.Switch != nil && len(cfg.Displays) > 1 {
			if cx, cy, ok := display.CursorPosition(); ok {
				cursorDisplay := display.At(cfg.Displays, int(cx), int(cy))
				if newIdx, switched := cfg.Switch.MaybeSwitch(frameStart, cursorDisplay); switched {
					if err := capturer.Close(); err != nil {
						return &CaptureError{Err: err}
					}
					capturer, err = New(Config{DisplayIndex: newIdx})
					if err != nil {
						return &CaptureError{Err: err}
					}
					activeIndex = newIdx
					width, height = capturer.Bounds()
				}
			}
		}

		pix, stride, err := capturer.Capture()
		for errors.Is(err, ErrWouldBlock) {
			time.Sleep(wouldBlockSleep)
			pix, stride, err = capturer.Capture()
		}
		if err != nil {
			return &CaptureError{Err: err}
		}

		rgb := bgraToRGB(pix, width, height, stride)
		if cx, cy, ok := display.CursorPosition(); ok {
			overlayCursor(rgb, width, height, int(cx), int(cy))
		}

		now := time.Now()
		if origin.IsZero() {
			origin = now
		}

		frame := Frame{
			Data:         rgb,
			Width:        width,
			Height:       height,
			DisplayIndex: activeIndex,
			CapturedAt:   now,
			Timestamp:    now.Sub(origin),
		}

		if !sender.Send(frame) {
			return nil
		}
		frameCount++

		elapsed := time.Since(frameStart)
		if remaining := framePeriod - elapsed; remaining > 0 {
			time.Sleep(remaining)
		}
	}
}
