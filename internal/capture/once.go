package capture

import (
	"errors"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/display"
)

// CaptureOnce takes a single frame from the given display, performing the
// same would-block retry and cursor overlay as the continuous producer.
// It opens and closes its own Capturer rather than sharing one with a
// running recording, so it's safe to call from a separate one-shot process
// such as the screenshot command.
func CaptureOnce(displayIndex int) (Frame, error) {
	capturer, err := New(Config{DisplayIndex: displayIndex})
	if err != nil {
		return Frame{}, &CaptureError{Err: err}
	}
	defer capturer.Close()

	width, height := capturer.Bounds()

	pix, stride, err := capturer.Capture()
	for errors.Is(err, ErrWouldBlock) {
		time.Sleep(wouldBlockSleep)
		pix, stride, err = capturer.Capture()
	}
	if err != nil {
		return Frame{}, &CaptureError{Err: err}
	}

	rgb := bgraToRGB(pix, width, height, stride)
	if cx, cy, ok := display.CursorPosition(); ok {
		overlayCursor(rgb, width, height, int(cx), int(cy))
	}

	return Frame{
		Data:         rgb,
		Width:        width,
		Height:       height,
		DisplayIndex: displayIndex,
		CapturedAt:   time.Now(),
	}, nil
}
