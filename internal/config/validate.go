package config

import (
	"fmt"
)

// ValidationResult separates fatal errors (block startup) from warnings
// (logged, config is adjusted in place, startup continues).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r *ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

func (r *ValidationResult) addFatal(format string, args ...interface{}) {
	r.Fatals = append(r.Fatals, fmt.Errorf(format, args...))
}

func (r *ValidationResult) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Errorf(format, args...))
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validArchiveProviders = map[string]bool{
	"none": true, "local": true, "s3": true, "azure": true, "gcs": true, "b2": true,
}

// ValidateTiered checks the config and, where safe, clamps values in place
// rather than rejecting them outright. Fatal errors leave the config
// unusable (an unknown recording_type, missing task_id in task mode, fps
// outside the supported capture range, an unknown archive_provider or a
// provider missing its required bucket, container or path); everything
// else is a warning and a best-effort fix-up.
func (c *Config) ValidateTiered() *ValidationResult {
	r := &ValidationResult{}

	switch c.RecordingType {
	case "always_on":
	case "task":
		if c.TaskID == "" {
			r.addFatal("task_id is required when recording_type is %q", c.RecordingType)
		}
	default:
		r.addFatal("recording_type %q is not valid (use always_on or task)", c.RecordingType)
	}

	if c.FPS < 1 || c.FPS > 60 {
		r.addFatal("fps %d is outside the supported range [1,60]", c.FPS)
	}

	if c.Quality < 1 || c.Quality > 10 {
		r.addWarning("quality %d is outside [1,10], clamping", c.Quality)
		c.Quality = clamp(c.Quality, 1, 10)
	}

	if c.ChunkDurationSecs < 1 {
		r.addWarning("chunk_duration_secs %d is below minimum 1, clamping", c.ChunkDurationSecs)
		c.ChunkDurationSecs = 1
	} else if c.ChunkDurationSecs > 3600 {
		r.addWarning("chunk_duration_secs %d exceeds maximum 3600, clamping", c.ChunkDurationSecs)
		c.ChunkDurationSecs = 3600
	}

	if c.GOPSeconds < 1 {
		r.addWarning("gop_seconds %d is below minimum 1, clamping", c.GOPSeconds)
		c.GOPSeconds = 1
	}

	// The encoder's YUV420P chroma subsampling requires even width/height;
	// round down rather than reject a recording over an odd-sized display.
	if c.Width > 0 && c.Width%2 != 0 {
		r.addWarning("width %d is odd, rounding down to %d", c.Width, c.Width-1)
		c.Width--
	}
	if c.Height > 0 && c.Height%2 != 0 {
		r.addWarning("height %d is odd, rounding down to %d", c.Height, c.Height-1)
		c.Height--
	}

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		r.addWarning("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.addWarning("log_format %q is not valid (use text or json)", c.LogFormat)
	}

	if c.ArchiveProvider != "" && !validArchiveProviders[c.ArchiveProvider] {
		r.addFatal("archive_provider %q is not valid (use none, local, s3, azure, gcs, b2)", c.ArchiveProvider)
	}
	if c.ArchiveProvider == "s3" && c.ArchiveS3Bucket == "" {
		r.addFatal("archive_s3_bucket is required when archive_provider is s3")
	}
	if (c.ArchiveProvider == "azure" || c.ArchiveProvider == "gcs" || c.ArchiveProvider == "b2") && c.ArchiveContainer == "" {
		r.addFatal("archive_container is required when archive_provider is %q", c.ArchiveProvider)
	}
	if c.ArchiveProvider == "local" && c.ArchiveLocalPath == "" {
		r.addFatal("archive_local_path is required when archive_provider is local")
	}

	return r
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
