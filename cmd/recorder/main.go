package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/omegalabsinc/screenrecorder/internal/archive"
	"github.com/omegalabsinc/screenrecorder/internal/capture"
	"github.com/omegalabsinc/screenrecorder/internal/catalog"
	"github.com/omegalabsinc/screenrecorder/internal/concat"
	"github.com/omegalabsinc/screenrecorder/internal/config"
	"github.com/omegalabsinc/screenrecorder/internal/control"
	"github.com/omegalabsinc/screenrecorder/internal/lifecycle"
	"github.com/omegalabsinc/screenrecorder/internal/logging"
	"github.com/omegalabsinc/screenrecorder/internal/mediatools"
)

var version = "0.1.0"

var log = logging.L("main")

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "recorder",
	Short: "Long-running screen recorder",
	Long:  `recorder captures a display to chunked video files and assembles them into a final recording on demand.`,
}

var recordFlags struct {
	recordingType        string
	taskID               string
	output               string
	duration             int
	fps                  int
	quality              int
	width                int
	height               int
	display              int
	chunkDurationSecs    int
	monitorSwitchSecs    int
	noAudio              bool
	trackInteractions    bool
	trackMouseMoves      bool
	ffmpegPath           string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start a recording session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecord()
	},
}

var concatFlags struct {
	taskID     string
	output     string
	ffmpegPath string
}

var concatCmd = &cobra.Command{
	Use:   "concat",
	Short: "Assemble a task's chunks into one final recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConcat()
	},
}

var screenshotFlags struct {
	output  string
	display int
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a single frame from a display and save it as PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScreenshot()
	},
}

var inspectFlags struct {
	taskID string
}

var inspectSessionsCmd = &cobra.Command{
	Use:   "inspect-sessions",
	Short: "List recorded sessions for a task",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspectSessions()
	},
}

var pruneFlags struct {
	taskID    string
	olderThan string
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete chunk rows (and their files) for a task or older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrune()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running record process to stop gracefully",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStop()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recorder v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.omega/config.yaml)")

	recordCmd.Flags().StringVar(&recordFlags.recordingType, "recording-type", "always_on", "always_on or task")
	recordCmd.Flags().StringVar(&recordFlags.taskID, "task-id", "", "task identifier (required when --recording-type=task)")
	recordCmd.Flags().StringVar(&recordFlags.output, "output", "", "output directory (default derived from recording-type/task-id)")
	recordCmd.Flags().IntVar(&recordFlags.duration, "duration", 0, "stop automatically after this many seconds (0 = run until interrupted)")
	recordCmd.Flags().IntVar(&recordFlags.fps, "fps", 0, "capture frame rate")
	recordCmd.Flags().IntVar(&recordFlags.quality, "quality", 0, "encode quality, 1 (smallest) to 10 (best)")
	recordCmd.Flags().IntVar(&recordFlags.width, "width", 0, "output width (0 = derive from the widest display)")
	recordCmd.Flags().IntVar(&recordFlags.height, "height", 0, "output height (0 = derive from the tallest display)")
	recordCmd.Flags().IntVar(&recordFlags.display, "display", -1, "pin capture to one display index (-1 = start on the primary)")
	recordCmd.Flags().IntVar(&recordFlags.chunkDurationSecs, "chunk-duration", 0, "seconds of video per chunk file")
	recordCmd.Flags().IntVar(&recordFlags.monitorSwitchSecs, "monitor-switch-interval", 0, "seconds the cursor must dwell on a display before switching to it")
	recordCmd.Flags().BoolVar(&recordFlags.noAudio, "no-audio", false, "disable audio capture")
	recordCmd.Flags().BoolVar(&recordFlags.trackInteractions, "track-interactions", false, "expect an interactions.jsonl from an external tracker in the output directory")
	recordCmd.Flags().BoolVar(&recordFlags.trackMouseMoves, "track-mouse-moves", false, "request mouse-move events from the interaction tracker (implies --track-interactions)")
	recordCmd.Flags().StringVar(&recordFlags.ffmpegPath, "ffmpeg-path", "", "path to the ffmpeg binary")

	concatCmd.Flags().StringVar(&concatFlags.taskID, "task-id", "", "task to assemble")
	concatCmd.Flags().StringVar(&concatFlags.output, "output", "", "output directory (default: the task's recording directory)")
	concatCmd.Flags().StringVar(&concatFlags.ffmpegPath, "ffmpeg-path", "", "path to the ffmpeg binary")
	_ = concatCmd.MarkFlagRequired("task-id")

	screenshotCmd.Flags().StringVar(&screenshotFlags.output, "output", "screenshot.png", "file to write the PNG to")
	screenshotCmd.Flags().IntVar(&screenshotFlags.display, "display", 0, "display index to capture")

	inspectSessionsCmd.Flags().StringVar(&inspectFlags.taskID, "task-id", "", "task to inspect")
	_ = inspectSessionsCmd.MarkFlagRequired("task-id")

	pruneCmd.Flags().StringVar(&pruneFlags.taskID, "task-id", "", "restrict pruning to this task")
	pruneCmd.Flags().StringVar(&pruneFlags.olderThan, "older-than", "", "prune chunks created before this duration ago, e.g. 168h")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(concatCmd)
	rootCmd.AddCommand(screenshotCmd)
	rootCmd.AddCommand(inspectSessionsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging sets up structured logging from config. Call after
// config.Load(). Returns the rotating file writer, or nil if logging to a
// file wasn't configured or couldn't be opened, so the caller can wire a
// SIGHUP handler to reopen it for external log rotation.
func initLogging(cfg *config.Config) *logging.RotatingWriter {
	var output io.Writer = os.Stdout
	var rw *logging.RotatingWriter
	if cfg.LogFile != "" {
		var err error
		rw, err = logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			rw = nil
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
	return rw
}

// loadConfig loads the layered config and overlays any record-specific
// flags the caller passed, using defaults -> file -> env -> flags
// precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if recordFlags.recordingType != "" {
		cfg.RecordingType = recordFlags.recordingType
	}
	if recordFlags.taskID != "" {
		cfg.TaskID = recordFlags.taskID
	}
	if recordFlags.output != "" {
		cfg.OutputDir = recordFlags.output
	}
	if recordFlags.fps > 0 {
		cfg.FPS = recordFlags.fps
	}
	if recordFlags.quality > 0 {
		cfg.Quality = recordFlags.quality
	}
	if recordFlags.width > 0 {
		cfg.Width = recordFlags.width
	}
	if recordFlags.height > 0 {
		cfg.Height = recordFlags.height
	}
	if recordFlags.chunkDurationSecs > 0 {
		cfg.ChunkDurationSecs = recordFlags.chunkDurationSecs
	}
	if recordFlags.ffmpegPath != "" {
		cfg.FFmpegPath = recordFlags.ffmpegPath
	}
	if recordFlags.display >= 0 {
		cfg.DisplayIndex = recordFlags.display
	}
	if recordFlags.monitorSwitchSecs > 0 {
		cfg.MonitorSwitchIntervalSecs = recordFlags.monitorSwitchSecs
	}
	cfg.NoAudio = cfg.NoAudio || recordFlags.noAudio
	cfg.TrackInteractions = cfg.TrackInteractions || recordFlags.trackInteractions || recordFlags.trackMouseMoves
	cfg.TrackMouseMoves = cfg.TrackMouseMoves || recordFlags.trackMouseMoves

	result := cfg.ValidateTiered()
	for _, w := range result.Warnings {
		log.Warn("config validation", "error", w)
	}
	if result.HasFatals() {
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}
	return cfg, nil
}

func runRecord() error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rw := initLogging(cfg)

	if tool, err := mediatools.Discover(cfg.FFprobePath); err != nil {
		log.Warn("ffprobe not usable; concat validation will fail later", "error", err)
	} else {
		log.Info("ffprobe discovered", "path", tool.Path, "version", tool.Version)
	}

	ctrl, err := lifecycle.New(cfg)
	if err != nil {
		log.Error("start controller", "error", err)
		os.Exit(1)
	}

	controlAddr := cfg.ControlSocketPath
	if controlAddr == "" {
		controlAddr = control.DefaultAddr(config.BaseDir())
	}
	controlSrv, err := control.Listen(controlAddr, ctrl.RequestInterrupt)
	if err != nil {
		log.Warn("control socket unavailable, stop command won't reach this process", "error", err)
	} else {
		go controlSrv.Serve()
		defer controlSrv.Close()
	}

	if recordFlags.duration > 0 {
		timer := time.AfterFunc(time.Duration(recordFlags.duration)*time.Second, ctrl.RequestInterrupt)
		defer timer.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if sig == syscall.SIGTERM {
			ctrl.RequestTermination()
		} else {
			ctrl.RequestInterrupt()
		}
	}()

	if rw != nil {
		hupCh := make(chan os.Signal, 1)
		signal.Notify(hupCh, syscall.SIGHUP)
		go func() {
			for range hupCh {
				if err := rw.Reopen(); err != nil {
					log.Error("log reopen failed", "error", err)
				}
			}
		}()
	}

	log.Info("recording started",
		"recording_type", cfg.RecordingType,
		"task_id", cfg.TaskID,
		"output_dir", cfg.OutputDir,
		"fps", cfg.FPS,
	)
	if cfg.TrackInteractions {
		log.Info("interaction tracking requested; expecting interactions.jsonl from an external tracker",
			"output_dir", cfg.OutputDir, "track_mouse_moves", cfg.TrackMouseMoves)
	}

	result, err := ctrl.Run()
	if err != nil {
		log.Error("recording failed", "error", err)
		os.Exit(1)
	}

	log.Info("recording finished",
		"session_id", result.SessionID,
		"chunks", result.ChunkCount,
		"frames", result.FrameCount,
		"audio_batches", result.AudioBatches,
		"interrupted_by", result.InterruptedBy,
		"duration", result.EndedAt.Sub(result.StartedAt),
	)
	return nil
}

func runStop() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := cfg.ControlSocketPath
	if addr == "" {
		addr = control.DefaultAddr(config.BaseDir())
	}
	if err := control.RequestStop(addr); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	fmt.Println("stop requested")
	return nil
}

func runConcat() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogging(cfg)

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	output := concatFlags.output
	if output == "" {
		output = filepath.Join(config.BaseDir(), "data", "tasks", concatFlags.taskID)
	}
	ffmpegPath := concatFlags.ffmpegPath
	if ffmpegPath == "" {
		ffmpegPath = cfg.FFmpegPath
	}

	if tool, err := mediatools.Discover(ffmpegPath); err != nil {
		return fmt.Errorf("concat: %w", err)
	} else {
		log.Info("ffmpeg discovered", "path", tool.Path, "version", tool.Version)
	}
	if err := mediatools.CheckConcatSupport(ffmpegPath); err != nil {
		return fmt.Errorf("concat: %w", err)
	}

	result, err := concat.Build(cat, concat.Options{
		TaskID:      concatFlags.taskID,
		OutputDir:   output,
		FFmpegPath:  ffmpegPath,
		FFprobePath: cfg.FFprobePath,
		Quality:     cfg.Quality,
	})
	if err != nil {
		return fmt.Errorf("concat: %w", err)
	}

	fmt.Printf("wrote %s (%.1fs, %d bytes, codec %s, %d chunks excluded)\n",
		result.OutputPath, result.Duration, result.Size, result.Codec, result.ExcludedCount)

	provider, err := archive.New(cfg)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if provider != nil {
		if err := archive.ArchiveTask(context.Background(), provider, output, concatFlags.taskID); err != nil {
			return err
		}
	}
	return nil
}

func runScreenshot() error {
	frame, err := capture.CaptureOnce(screenshotFlags.display)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			si := (y*frame.Width + x) * 3
			di := img.PixOffset(x, y)
			img.Pix[di+0] = frame.Data[si+0]
			img.Pix[di+1] = frame.Data[si+1]
			img.Pix[di+2] = frame.Data[si+2]
			img.Pix[di+3] = 255
		}
	}

	f, err := os.Create(screenshotFlags.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", screenshotFlags.output, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	fmt.Printf("wrote %s (%dx%d)\n", screenshotFlags.output, frame.Width, frame.Height)
	return nil
}

func runInspectSessions() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	sessions, err := cat.SessionsForTask(inspectFlags.taskID)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	total, err := cat.TotalRecordingTime(inspectFlags.taskID)
	if err != nil {
		return fmt.Errorf("total recording time: %w", err)
	}

	for _, s := range sessions {
		status := "incomplete"
		ended := "-"
		if s.EndedAt != nil {
			status = "complete"
			ended = s.EndedAt.Format(time.RFC3339)
		}
		fmt.Printf("session %d: started=%s ended=%s status=%s\n", s.ID, s.StartedAt.Format(time.RFC3339), ended, status)
	}
	fmt.Printf("total complete recording time: %s across %d session(s)\n", total, len(sessions))
	return nil
}

func runPrune() error {
	if pruneFlags.taskID == "" && pruneFlags.olderThan == "" {
		return fmt.Errorf("prune requires --task-id, --older-than, or both")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogging(cfg)

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	var cutoff time.Time
	if pruneFlags.olderThan != "" {
		d, err := time.ParseDuration(pruneFlags.olderThan)
		if err != nil {
			return fmt.Errorf("parse --older-than: %w", err)
		}
		cutoff = time.Now().Add(-d)
	}

	chunks, err := cat.ChunksForTask(pruneFlags.taskID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}

	deleted := 0
	for _, ch := range chunks {
		if !cutoff.IsZero() {
			createdAt, err := time.Parse("2006-01-02T15:04:05.000Z", ch.CreatedAt)
			if err != nil || createdAt.After(cutoff) {
				continue
			}
		}
		if err := os.Remove(ch.FilePath); err != nil && !os.IsNotExist(err) {
			log.Warn("prune: failed to remove chunk file", "path", ch.FilePath, "error", err)
		}
		if err := cat.DeleteChunk(ch.ID); err != nil {
			log.Warn("prune: failed to delete chunk row", "id", ch.ID, "error", err)
			continue
		}
		deleted++
	}

	fmt.Printf("pruned %d of %d chunk(s)\n", deleted, len(chunks))
	return nil
}
