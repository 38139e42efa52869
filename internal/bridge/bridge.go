// Package bridge implements the bounded bridge: a capacity-bounded
// forwarder from the synchronous frame producer to the asynchronous
// encoder. Unlike internal/workerpool, which drops work when its queue is
// full, the bridge never drops a frame — Send blocks until the encoder
// catches up or the bridge is closed.
package bridge

import (
	"sync"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/capture"
	"github.com/omegalabsinc/screenrecorder/internal/logging"
)

var log = logging.L("bridge")

var _ capture.Sender = (*Bridge)(nil)

// metricInterval is how often the forwarded-frame count is logged.
const metricInterval = 10 * time.Second

// Bridge is a back-pressured, single-producer single-consumer channel of
// captured frames.
type Bridge struct {
	frames    chan capture.Frame
	forwarded uint64
	mu        sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	metricsWG sync.WaitGroup
}

// Capacity computes the bridge's default buffer size: ten seconds of
// frames at the given frame rate.
func Capacity(fps int) int {
	if fps < 1 {
		fps = 1
	}
	return fps * 10
}

// New creates a Bridge with the given capacity and starts its periodic
// observability logging.
func New(capacity int) *Bridge {
	if capacity < 1 {
		capacity = 1
	}
	b := &Bridge{
		frames: make(chan capture.Frame, capacity),
		closed: make(chan struct{}),
	}
	b.metricsWG.Add(1)
	go b.logMetrics()
	return b
}

// Send blocks until the frame is accepted or the bridge is closed. It
// implements capture.Sender. Returns false once the bridge is closed —
// the producer should treat that as "receiver is gone" and exit.
func (b *Bridge) Send(f capture.Frame) bool {
	select {
	case b.frames <- f:
		b.mu.Lock()
		b.forwarded++
		b.mu.Unlock()
		return true
	case <-b.closed:
		return false
	}
}

// Frames returns the receive side for the encoder to range over. The
// channel is closed by CloseChannel; Close alone leaves it open, so a
// ranging reader keeps receiving any buffered frames until CloseChannel
// is called.
func (b *Bridge) Frames() <-chan capture.Frame {
	return b.frames
}

// Close stops accepting new frames and unblocks any pending Send. It does
// not close the underlying channel immediately — CloseChannel does that
// once the producer goroutine has actually exited, to avoid a send-on-
// closed-channel panic racing the producer's last Send call.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
}

// CloseChannel closes the frame channel so a ranging consumer's loop ends.
// Call only after the producer goroutine has returned.
func (b *Bridge) CloseChannel() {
	close(b.frames)
	b.metricsWG.Wait()
}

func (b *Bridge) forwardedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.forwarded
}

func (b *Bridge) logMetrics() {
	defer b.metricsWG.Done()
	ticker := time.NewTicker(metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			log.Info("bridge forwarded frames", "count", b.forwardedCount())
		case <-b.closed:
			log.Info("bridge forwarded frames", "count", b.forwardedCount())
			return
		}
	}
}
