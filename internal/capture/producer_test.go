package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/display"
)

type fakeCapturer struct {
	width, height int
	closed        bool
}

func (f *fakeCapturer) Capture() ([]byte, int, error) {
	return make([]byte, f.width*f.height*4), f.width * 4, nil
}
func (f *fakeCapturer) Bounds() (int, int) { return f.width, f.height }
func (f *fakeCapturer) Close() error       { f.closed = true; return nil }

type collectingSender struct {
	mu     sync.Mutex
	frames []Frame
	limit  int
}

func (s *collectingSender) Send(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.frames) >= s.limit {
		return false
	}
	s.frames = append(s.frames, f)
	return true
}

func TestRunEmitsTargetFrameCount(t *testing.T) {
	orig := newPlatformCapturerFn
	newPlatformCapturerFn = func(cfg Config) (Capturer, error) {
		return &fakeCapturer{width: 4, height: 2}, nil
	}
	defer func() { newPlatformCapturerFn = orig }()

	sender := &collectingSender{}
	cfg := ProducerConfig{FPS: 1000, TargetFrames: 3}

	if err := Run(cfg, sender, func() bool { return false }); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(sender.frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(sender.frames))
	}
	for _, f := range sender.frames {
		if f.Width != 4 || f.Height != 2 {
			t.Fatalf("frame dims = %dx%d, want 4x2", f.Width, f.Height)
		}
		if len(f.Data) != 4*2*3 {
			t.Fatalf("frame data len = %d, want %d", len(f.Data), 4*2*3)
		}
	}
}

func TestRunStopsWhenReceiverGone(t *testing.T) {
	orig := newPlatformCapturerFn
	newPlatformCapturerFn = func(cfg Config) (Capturer, error) {
		return &fakeCapturer{width: 2, height: 2}, nil
	}
	defer func() { newPlatformCapturerFn = orig }()

	sender := &collectingSender{limit: 1}
	cfg := ProducerConfig{FPS: 1000}

	if err := Run(cfg, sender, func() bool { return false }); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(sender.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(sender.frames))
	}
}

func TestRunOverlaysCursorWhenPositionKnown(t *testing.T) {
	orig := newPlatformCapturerFn
	newPlatformCapturerFn = func(cfg Config) (Capturer, error) {
		return &fakeCapturer{width: 40, height: 40}, nil
	}
	defer func() { newPlatformCapturerFn = orig }()

	display.UpdateCursor(0, 0)
	sender := &collectingSender{}
	cfg := ProducerConfig{FPS: 1000, TargetFrames: 1}

	if err := Run(cfg, sender, func() bool { return false }); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(sender.frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(sender.frames))
	}
	// Row 10 of the glyph is 11px wide; an interior pixel there is the
	// glyph's white fill, which the zeroed source buffer would never produce.
	f := sender.frames[0]
	idx := (10*f.Width + 5) * 3
	if f.Data[idx] != 255 {
		t.Fatalf("pixel at glyph interior = %d, want white fill (255)", f.Data[idx])
	}
}

func TestRunRespectsStopFlag(t *testing.T) {
	orig := newPlatformCapturerFn
	newPlatformCapturerFn = func(cfg Config) (Capturer, error) {
		return &fakeCapturer{width: 2, height: 2}, nil
	}
	defer func() { newPlatformCapturerFn = orig }()

	sender := &collectingSender{}
	stopped := false
	cfg := ProducerConfig{FPS: 1000}

	done := make(chan error, 1)
	go func() {
		done <- Run(cfg, sender, func() bool { return stopped })
	}()
	time.Sleep(5 * time.Millisecond)
	stopped = true

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not honor stopFlag within timeout")
	}
}
