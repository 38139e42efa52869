package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateTieredTaskModeRequiresTaskID(t *testing.T) {
	cfg := Default()
	cfg.RecordingType = "task"
	cfg.TaskID = ""
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("task mode without task_id should be fatal")
	}
}

func TestValidateTieredUnknownModeIsFatal(t *testing.T) {
	cfg := Default()
	cfg.RecordingType = "bogus"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("unknown recording_type should be fatal")
	}
}

func TestValidateTieredFPSOutOfRangeIsFatal(t *testing.T) {
	cfg := Default()
	cfg.FPS = 0
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("fps 0 should be fatal")
	}

	cfg = Default()
	cfg.FPS = 61
	result = cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("fps above 60 should be fatal")
	}
}

func TestValidateTieredQualityClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Quality = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped quality should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for out-of-range quality")
	}
	if cfg.Quality != 1 {
		t.Fatalf("Quality = %d, want 1 (clamped)", cfg.Quality)
	}
}

func TestValidateTieredChunkDurationClamping(t *testing.T) {
	cfg := Default()
	cfg.ChunkDurationSecs = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped chunk duration should be warning: %v", result.Fatals)
	}
	if cfg.ChunkDurationSecs != 1 {
		t.Fatalf("ChunkDurationSecs = %d, want 1", cfg.ChunkDurationSecs)
	}

	cfg = Default()
	cfg.ChunkDurationSecs = 99999
	cfg.ValidateTiered()
	if cfg.ChunkDurationSecs != 3600 {
		t.Fatalf("ChunkDurationSecs = %d, want 3600", cfg.ChunkDurationSecs)
	}
}

func TestValidateTieredOddDimensionsRoundDown(t *testing.T) {
	cfg := Default()
	cfg.Width = 1921
	cfg.Height = 1081
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("odd dimensions should be a warning, not fatal: %v", result.Fatals)
	}
	if cfg.Width != 1920 {
		t.Fatalf("Width = %d, want 1920", cfg.Width)
	}
	if cfg.Height != 1080 {
		t.Fatalf("Height = %d, want 1080", cfg.Height)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestValidateTieredArchiveProviderRequiresMatchingFields(t *testing.T) {
	cfg := Default()
	cfg.ArchiveProvider = "s3"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("s3 archive provider without a bucket should be fatal")
	}

	cfg = Default()
	cfg.ArchiveProvider = "azure"
	result = cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("azure archive provider without a container should be fatal")
	}
}

func TestValidateTieredUnknownArchiveProviderIsFatal(t *testing.T) {
	cfg := Default()
	cfg.ArchiveProvider = "dropbox"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("unknown archive provider should be fatal")
	}
	found := false
	for _, err := range result.Fatals {
		if strings.Contains(err.Error(), "dropbox") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected fatal error naming the bad provider")
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}
