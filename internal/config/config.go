package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/omegalabsinc/screenrecorder/internal/logging"
)

var log = logging.L("config")

// Config holds every tunable for a recording run, loaded in layered order:
// defaults -> YAML file -> OMEGA_* env vars -> CLI flags.
type Config struct {
	// Recording identity. RecordingType doubles as the output-root selector
	// (data/always_on vs data/tasks/{task_id}) and the value stored on every
	// chunk row, matching the operator-facing --recording-type flag.
	RecordingType string `mapstructure:"recording_type"` // "always_on" or "task"
	TaskID        string `mapstructure:"task_id"`
	DeviceName    string `mapstructure:"device_name"`

	// Capture
	FPS                       int  `mapstructure:"fps"`
	Width                     int  `mapstructure:"width"`  // 0 = derive from the widest display
	Height                    int  `mapstructure:"height"` // 0 = derive from the tallest display
	DisplayIndex              int  `mapstructure:"display_index"`
	MonitorSwitchIntervalSecs int  `mapstructure:"monitor_switch_interval_secs"`
	NoAudio                   bool `mapstructure:"no_audio"`
	TrackInteractions         bool `mapstructure:"track_interactions"`
	TrackMouseMoves           bool `mapstructure:"track_mouse_moves"`

	// Encoder
	Quality           int `mapstructure:"quality"` // 1 (smallest) .. 10 (best)
	ChunkDurationSecs int `mapstructure:"chunk_duration_secs"`
	GOPSeconds        int `mapstructure:"gop_seconds"`

	// Storage
	OutputDir string `mapstructure:"output_dir"`
	DBPath    string `mapstructure:"db_path"`

	// External tools
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`

	// Logging
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`

	// Local control
	ControlSocketPath string `mapstructure:"control_socket_path"`

	// Archive (supplemental, off by default)
	ArchiveProvider  string `mapstructure:"archive_provider"` // none|local|s3|azure|gcs|b2
	ArchiveLocalPath string `mapstructure:"archive_local_path"`
	ArchiveS3Bucket  string `mapstructure:"archive_s3_bucket"`
	ArchiveS3Region  string `mapstructure:"archive_s3_region"`
	ArchiveContainer string `mapstructure:"archive_container"` // azure container / gcs bucket / b2 bucket
}

func Default() *Config {
	return &Config{
		RecordingType:             "always_on",
		FPS:                       15,
		DisplayIndex:              -1,
		MonitorSwitchIntervalSecs: 1,
		Quality:                   6,
		ChunkDurationSecs: 300,
		GOPSeconds:        2,
		// OutputDir and DBPath are left empty: internal/lifecycle resolves
		// them relative to RecordingType/TaskID under BaseDir() unless the
		// caller set them explicitly (config file, env, or flag).
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		LogLevel:          "info",
		LogFormat:         "text",
		LogMaxSizeMB:      50,
		LogMaxBackups:     3,
		ControlSocketPath: filepath.Join(BaseDir(), "control.sock"),
		ArchiveProvider:   "none",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(BaseDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("OMEGA")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			log.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

func Save(cfg *Config, cfgFile string) error {
	viper.Set("recording_type", cfg.RecordingType)
	viper.Set("task_id", cfg.TaskID)
	viper.Set("device_name", cfg.DeviceName)
	viper.Set("fps", cfg.FPS)
	viper.Set("width", cfg.Width)
	viper.Set("height", cfg.Height)
	viper.Set("display_index", cfg.DisplayIndex)
	viper.Set("monitor_switch_interval_secs", cfg.MonitorSwitchIntervalSecs)
	viper.Set("no_audio", cfg.NoAudio)
	viper.Set("track_interactions", cfg.TrackInteractions)
	viper.Set("track_mouse_moves", cfg.TrackMouseMoves)
	viper.Set("quality", cfg.Quality)
	viper.Set("chunk_duration_secs", cfg.ChunkDurationSecs)
	viper.Set("gop_seconds", cfg.GOPSeconds)
	viper.Set("output_dir", cfg.OutputDir)
	viper.Set("db_path", cfg.DBPath)
	viper.Set("ffmpeg_path", cfg.FFmpegPath)
	viper.Set("ffprobe_path", cfg.FFprobePath)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("log_file", cfg.LogFile)
	viper.Set("log_max_size_mb", cfg.LogMaxSizeMB)
	viper.Set("log_max_backups", cfg.LogMaxBackups)
	viper.Set("control_socket_path", cfg.ControlSocketPath)
	viper.Set("archive_provider", cfg.ArchiveProvider)
	viper.Set("archive_local_path", cfg.ArchiveLocalPath)
	viper.Set("archive_s3_bucket", cfg.ArchiveS3Bucket)
	viper.Set("archive_s3_region", cfg.ArchiveS3Region)
	viper.Set("archive_container", cfg.ArchiveContainer)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
	} else {
		cfgPath = filepath.Join(BaseDir(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return err
	}
	return viper.WriteConfigAs(cfgPath)
}

// BaseDir returns {home}/.omega, the default root for config, the catalog
// database, recordings, and the control socket.
func BaseDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".omega")
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return filepath.Join(u.HomeDir, ".omega")
	}
	return filepath.Join(os.TempDir(), ".omega")
}
