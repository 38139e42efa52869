// Package encoder implements the chunking encoder: backend selection
// and fallback, RGB->YUV420P conversion, scale-and-pad, chunk rollover, and
// the per-chunk Opening/Running/Flushing/Closed state machine.
package encoder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/logging"
)

var log = logging.L("encoder")

// Packet is one encoded access unit ready to be written to the container.
type Packet struct {
	Data       []byte
	IsKeyframe bool
	PTS        int64
	DTS        int64
}

// Config is the common encoder configuration shared by every backend.
type Config struct {
	Width, Height int
	FPS           int
	GOP           int // keyframe interval in frames
	Quality       int // 1..10
}

// CodecParams describes the encoded stream well enough to build a muxer
// stream, independent of which backend produced the packets.
type CodecParams struct {
	Width, Height int
	// ExtraData is the codec's out-of-band configuration (e.g. H.264
	// SPS/PPS), required by most MP4 muxers before the first sample.
	ExtraData []byte
	// TimeBaseNum/Den is the encoder's time base (normally 1/fps).
	TimeBaseNum, TimeBaseDen int
}

// Backend is a single codec implementation. The priority list is the
// ordered enumeration of variants; selection and fallback are variant
// dispatch over this interface, not inheritance.
type Backend interface {
	Name() string
	IsHardware() bool
	Init(cfg Config) error
	// CodecParameters returns the stream parameters needed to open a muxer
	// for this backend's output. Valid only after a successful Init.
	CodecParameters() CodecParams
	// SendFrame submits one YUV420P frame at the given PTS (in the
	// encoder's 1/fps time base) and returns any packets the backend is
	// ready to emit.
	SendFrame(y, u, v []byte, pts int64) ([]Packet, error)
	ForceKeyframe() error
	// Flush drains any packets buffered inside the backend (B-frame
	// reordering, lookahead) at end of chunk.
	Flush() ([]Packet, error)
	Close() error
}

// EncodingError is fatal: every backend in the priority list failed to
// initialize.
type EncodingError struct {
	Attempts []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("no encoder backend available, tried: %s", strings.Join(e.Attempts, ", "))
}

// EncoderRuntimeFailure is fatal: a live recording failed and either no
// lower-priority backend remained or the hot-swap itself failed.
type EncoderRuntimeFailure struct {
	Backend string
	Err     error
}

func (e *EncoderRuntimeFailure) Error() string {
	return fmt.Sprintf("encoder runtime failure on backend %q: %v", e.Backend, e.Err)
}
func (e *EncoderRuntimeFailure) Unwrap() error { return e.Err }

// qualityToCRF maps the 1..10 quality input to software x264's CRF range,
// per the required mapping: CRF = clamp(42 - 3*quality, 12, 35).
func qualityToCRF(quality int) int {
	crf := 42 - 3*quality
	return clampInt(crf, 12, 35)
}

// qualityToCRFSteep is the steeper screen-content-legibility mapping used
// by one platform variant: CRF = clamp(30 - (22*quality)/10, 8, 28).
func qualityToCRFSteep(quality int) int {
	crf := 30 - (22*quality)/10
	return clampInt(crf, 8, 28)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// backendFactory constructs and Inits one backend instance, or returns an
// error if the backend is unavailable on this platform/build.
type backendFactory struct {
	name    string
	newFunc func() (Backend, error)
}

// priorityList is the platform priority list: GPU backends first (not
// implemented in this build, so newFunc always reports unavailable),
// astiav/libavcodec next, pure-Go openh264 last as the guaranteed-available
// fallback.
func priorityList() []backendFactory {
	return []backendFactory{
		{name: "gpu", newFunc: newGPUBackend},
		{name: "astiav", newFunc: newAstiavBackend},
		{name: "openh264", newFunc: newOpenH264Backend},
	}
}

var retryDelays = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond}

// nonRetryable reports whether an init error's text marks it as permanent
// (the backend will never become available by retrying) rather than
// transient.
func nonRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no such")
}

// initWithRetry runs factory.newFunc and Init with exponential backoff,
// stopping early on a non-retryable error.
func initWithRetry(factory backendFactory, cfg Config) (Backend, error) {
	var lastErr error
	attempts := len(retryDelays)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelays[attempt-1])
		}
		backend, err := factory.newFunc()
		if err == nil {
			err = backend.Init(cfg)
		}
		if err == nil {
			return backend, nil
		}
		lastErr = err
		if nonRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

// selectBackend tries each entry in the priority list in order, logging
// each failure, and returns the first that initializes successfully.
func selectBackend(list []backendFactory, cfg Config) (Backend, error) {
	var tried []string
	for _, factory := range list {
		backend, err := initWithRetry(factory, cfg)
		if err != nil {
			log.Warn("encoder backend unavailable", "backend", factory.name, "error", err)
			tried = append(tried, factory.name)
			continue
		}
		log.Info("encoder backend selected", "backend", backend.Name(), "hardware", backend.IsHardware())
		return backend, nil
	}
	return nil, &EncodingError{Attempts: tried}
}

// indexInList returns the position of a backend name in list, or -1.
func indexInList(list []backendFactory, name string) int {
	for i, f := range list {
		if f.name == name {
			return i
		}
	}
	return -1
}

// hotSwap finds the next backend strictly below current in the priority
// list, initializes it once (no retries mid-recording), and returns it in
// place of current. Returns an error if there is no lower-priority backend
// or the swap itself fails.
func hotSwap(list []backendFactory, currentName string, cfg Config) (Backend, error) {
	idx := indexInList(list, currentName)
	if idx < 0 || idx+1 >= len(list) {
		return nil, errors.New("no lower-priority backend available")
	}
	next := list[idx+1]
	backend, err := next.newFunc()
	if err == nil {
		err = backend.Init(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("hot-swap to %s failed: %w", next.name, err)
	}
	log.Warn("encoder hot-swapped after runtime failure", "from", currentName, "to", backend.Name())
	return backend, nil
}
