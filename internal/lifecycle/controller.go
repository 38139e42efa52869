// Package lifecycle wires the display/capture/bridge/encoder/catalog
// components together for one recording session: input validation,
// default output roots, dedicated-OS-thread producer placement, and the
// two cooperative shutdown paths.
package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/audio"
	"github.com/omegalabsinc/screenrecorder/internal/bridge"
	"github.com/omegalabsinc/screenrecorder/internal/capture"
	"github.com/omegalabsinc/screenrecorder/internal/catalog"
	"github.com/omegalabsinc/screenrecorder/internal/config"
	"github.com/omegalabsinc/screenrecorder/internal/diag"
	"github.com/omegalabsinc/screenrecorder/internal/display"
	"github.com/omegalabsinc/screenrecorder/internal/encoder"
	"github.com/omegalabsinc/screenrecorder/internal/logging"
	"github.com/omegalabsinc/screenrecorder/internal/switcher"
)

var log = logging.L("lifecycle")

// shutdownGrace is how long the controller waits after a shutdown request
// before it sets the producer's stop flag.
const shutdownGrace = 500 * time.Millisecond

// Result summarizes one completed recording session.
type Result struct {
	SessionID      int64
	ChunkCount     int
	FrameCount     int
	AudioBatches   int
	StartedAt      time.Time
	EndedAt        time.Time
	InterruptedBy  string // "interrupt", "terminate", or "" for normal completion
}

// Controller owns one recording session end to end.
type Controller struct {
	cfg *config.Config
	cat *catalog.Catalog

	stopFlag atomic.Bool
	stopOnce sync.Once
	signalCh chan string
}

// New validates cfg, resolves default output roots, and opens the catalog.
// Run must be called exactly once on the returned Controller.
func New(cfg *config.Config) (*Controller, error) {
	if err := validateInputs(cfg); err != nil {
		return nil, err
	}
	if err := resolveOutputRoots(cfg); err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: open catalog: %w", err)
	}

	return &Controller{
		cfg:      cfg,
		cat:      cat,
		signalCh: make(chan string, 1),
	}, nil
}

func validateInputs(cfg *config.Config) error {
	if cfg.FPS < 1 || cfg.FPS > 60 {
		return fmt.Errorf("lifecycle: fps %d outside supported range [1,60]", cfg.FPS)
	}
	if cfg.RecordingType == "task" && cfg.TaskID == "" {
		return errors.New("lifecycle: task_id is required for task recordings")
	}
	return nil
}

// resolveOutputRoots fills in OutputDir/DBPath defaults under the user's
// home directory when the caller left them at their zero value, and
// creates any missing directories.
func resolveOutputRoots(cfg *config.Config) error {
	if cfg.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.DeviceName = host
		} else {
			cfg.DeviceName = "unknown-device"
		}
	}

	if cfg.OutputDir == "" {
		base := config.BaseDir()
		if cfg.RecordingType == "task" {
			cfg.OutputDir = filepath.Join(base, "data", "tasks", cfg.TaskID)
		} else {
			cfg.OutputDir = filepath.Join(base, "data", "always_on")
		}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(config.BaseDir(), "db.sqlite")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("lifecycle: create output dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("lifecycle: create db dir: %w", err)
	}
	return nil
}

// RequestInterrupt signals the cooperative, user-initiated shutdown path.
func (c *Controller) RequestInterrupt() { c.requestStop("interrupt") }

// RequestTermination signals the termination-signal shutdown path.
func (c *Controller) RequestTermination() { c.requestStop("terminate") }

func (c *Controller) requestStop(reason string) {
	c.stopOnce.Do(func() {
		select {
		case c.signalCh <- reason:
		default:
		}
	})
}

// Run drives one full recording session: enumerate displays, open a
// session row, spawn the producer on a dedicated OS thread, run the
// bridge and chunk writer until shutdown, and join everything before
// returning.
func (c *Controller) Run() (Result, error) {
	defer c.cat.Close()

	host := diag.CollectHostInfo()
	log.Info("host diagnostics", "hostname", host.Hostname, "os", host.OSType,
		"arch", host.Architecture, "cpu", host.CPUModel, "cores", host.CPUCores,
		"ram_total_mb", host.RAMTotalMB, "ram_free_mb", host.RAMFreeMB)

	if err := diag.CheckDiskSpace(c.cfg.OutputDir); err != nil {
		return Result{}, fmt.Errorf("lifecycle: %w", err)
	}

	displays, err := display.List()
	if err != nil {
		return Result{}, fmt.Errorf("lifecycle: enumerate displays: %w", err)
	}

	width, height := c.cfg.Width, c.cfg.Height
	if width == 0 || height == 0 {
		width, height = maxDisplayBounds(displays)
	}
	width -= width % 2
	height -= height % 2

	startedAt := time.Now()
	sessionID, err := c.cat.CreateSession(c.cfg.TaskID, c.cfg.DeviceName, startedAt)
	if err != nil {
		return Result{}, fmt.Errorf("lifecycle: create session: %w", err)
	}

	// Each buffered frame holds width*height RGB pixels (3 bytes each);
	// shrink the requested capacity if the host doesn't have the memory to
	// back ten seconds of frames at this resolution.
	frameBytes := int64(width) * int64(height) * 3
	bridgeCapacity := diag.SafeBridgeCapacity(bridge.Capacity(c.cfg.FPS), frameBytes)
	br := bridge.New(bridgeCapacity)

	chunkWriter, err := encoder.NewChunkWriter(encoder.ChunkWriterConfig{
		Encode: encoder.Config{
			Width:   width,
			Height:  height,
			FPS:     c.cfg.FPS,
			GOP:     c.cfg.FPS * c.cfg.GOPSeconds,
			Quality: c.cfg.Quality,
		},
		OutputDir:         c.cfg.OutputDir,
		ChunkDurationSecs: c.cfg.ChunkDurationSecs,
		DeviceName:        c.cfg.DeviceName,
		RecordingType:     c.cfg.RecordingType, // "always_on" or "task"; stored as-is on each chunk row
		TaskID:            c.cfg.TaskID,
		Cataloger:         c.cat,
	})
	if err != nil {
		c.cat.EndSession(sessionID, time.Now())
		return Result{}, fmt.Errorf("lifecycle: start encoder: %w", err)
	}

	audioCapturer := audio.NewCapturer()
	var audioBatches int64
	if !c.cfg.NoAudio {
		if err := audioCapturer.Start(func([]byte) {
			atomic.AddInt64(&audioBatches, 1)
		}); err != nil {
			log.Warn("audio capture unavailable, continuing video-only", "error", err)
		}
	}

	initialDisplay := 0
	if c.cfg.DisplayIndex >= 0 && c.cfg.DisplayIndex < len(displays) {
		initialDisplay = c.cfg.DisplayIndex
	}
	var switchPolicy *switcher.Policy
	if len(displays) > 1 {
		checkInterval := switcher.DefaultCheckInterval
		if c.cfg.MonitorSwitchIntervalSecs > 0 {
			checkInterval = time.Duration(c.cfg.MonitorSwitchIntervalSecs) * time.Second
		}
		switchPolicy = switcher.New(initialDisplay, checkInterval)
	}

	producerErrCh := make(chan error, 1)
	var producerWG sync.WaitGroup
	producerWG.Add(1)
	go func() {
		defer producerWG.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		producerErrCh <- capture.Run(capture.ProducerConfig{
			FPS:            c.cfg.FPS,
			Displays:       displays,
			Switch:         switchPolicy,
			InitialDisplay: initialDisplay,
		}, br, c.stopFlag.Load)
	}()

	drainResultCh := make(chan drainResult, 1)
	go func() { drainResultCh <- c.drainBridge(br, chunkWriter) }()

	interruptedBy := c.waitForShutdownOrCompletion(producerErrCh)

	// The producer may already have exited on its own (target frame count
	// reached, or a capture error); Close is idempotent via sync.Once so
	// calling it again for the interrupt/terminate path is safe either way.
	br.Close()
	producerWG.Wait()
	br.CloseChannel()
	drained := <-drainResultCh
	frameCount := drained.count

	audioCapturer.Stop()

	if err := chunkWriter.Shutdown(); err != nil {
		log.Error("encoder shutdown failed", "error", err)
	}

	endedAt := time.Now()
	if err := c.cat.EndSession(sessionID, endedAt); err != nil {
		log.Error("end session failed", "error", err)
	}

	chunks, err := c.cat.ChunksForTask(c.cfg.TaskID)
	chunkCount := 0
	if err == nil {
		chunkCount = len(chunks)
	}

	if drained.err != nil {
		return Result{
			SessionID:     sessionID,
			ChunkCount:    chunkCount,
			FrameCount:    frameCount,
			AudioBatches:  int(atomic.LoadInt64(&audioBatches)),
			StartedAt:     startedAt,
			EndedAt:       endedAt,
			InterruptedBy: interruptedBy,
		}, fmt.Errorf("lifecycle: %w", drained.err)
	}

	return Result{
		SessionID:     sessionID,
		ChunkCount:    chunkCount,
		FrameCount:    frameCount,
		AudioBatches:  int(atomic.LoadInt64(&audioBatches)),
		StartedAt:     startedAt,
		EndedAt:       endedAt,
		InterruptedBy: interruptedBy,
	}, nil
}

// waitForShutdownOrCompletion blocks until either a shutdown is requested
// or the producer finishes on its own (target frame count / capture
// error). On a shutdown request it flips the stop flag after a brief
// grace period so the encoder sees a clean in-flight-frame boundary
// before the producer actually exits.
func (c *Controller) waitForShutdownOrCompletion(producerErrCh <-chan error) string {
	select {
	case reason := <-c.signalCh:
		time.Sleep(shutdownGrace)
		c.stopFlag.Store(true)
		return reason
	case err := <-producerErrCh:
		if err != nil {
			log.Error("producer exited with error", "error", err)
		}
		c.stopFlag.Store(true)
		return ""
	}
}

// drainResult is what drainBridge reports back once it stops consuming
// frames, either because the bridge's channel closed or because the
// encoder failed terminally.
type drainResult struct {
	count int
	err   error
}

// drainBridge ranges over the bridge's frame channel, submitting each
// frame to the chunk writer, until the channel is closed or the chunk
// writer reports a terminal encoder failure. Callers run it in its own
// goroutine since it blocks for the whole recording session; the chunk
// writer is not safe for concurrent use, so exactly one such goroutine may
// run per Controller.
func (c *Controller) drainBridge(br *bridge.Bridge, cw *encoder.ChunkWriter) drainResult {
	count := 0
	for frame := range br.Frames() {
		if _, err := cw.SubmitFrame(encoder.FrameInput{
			RGB:          frame.Data,
			Width:        frame.Width,
			Height:       frame.Height,
			DisplayIndex: frame.DisplayIndex,
			CapturedAt:   frame.CapturedAt,
		}); err != nil {
			var failure *encoder.EncoderRuntimeFailure
			if errors.As(err, &failure) {
				log.Error("encoder failed terminally, stopping session", "error", err)
				c.stopFlag.Store(true)
				br.Close()
				return drainResult{count: count, err: err}
			}
			log.Error("submit frame failed", "error", err)
			continue
		}
		count++
	}
	return drainResult{count: count}
}

func maxDisplayBounds(displays []display.Descriptor) (int, int) {
	var w, h int
	for _, d := range displays {
		if d.Width > w {
			w = d.Width
		}
		if d.Height > h {
			h = d.Height
		}
	}
	return w, h
}
