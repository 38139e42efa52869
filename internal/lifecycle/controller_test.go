package lifecycle

import (
	"path/filepath"
	"testing"

	"github.com/omegalabsinc/screenrecorder/internal/config"
	"github.com/omegalabsinc/screenrecorder/internal/display"
)

func TestValidateInputsRejectsOutOfRangeFPS(t *testing.T) {
	cfg := config.Default()
	cfg.FPS = 0
	if err := validateInputs(cfg); err == nil {
		t.Fatal("expected error for fps 0")
	}

	cfg.FPS = 61
	if err := validateInputs(cfg); err == nil {
		t.Fatal("expected error for fps 61")
	}
}

func TestValidateInputsRequiresTaskIDInTaskMode(t *testing.T) {
	cfg := config.Default()
	cfg.FPS = 15
	cfg.RecordingType = "task"
	cfg.TaskID = ""
	if err := validateInputs(cfg); err == nil {
		t.Fatal("expected error for missing task_id in task mode")
	}

	cfg.TaskID = "task-123"
	if err := validateInputs(cfg); err != nil {
		t.Fatalf("unexpected error with task_id set: %v", err)
	}
}

func TestResolveOutputRootsDefaultsAlwaysOn(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := config.Default()
	cfg.FPS = 15
	cfg.RecordingType = "always_on"

	if err := resolveOutputRoots(cfg); err != nil {
		t.Fatalf("resolveOutputRoots: %v", err)
	}
	want := filepath.Join(dir, ".omega", "data", "always_on")
	if cfg.OutputDir != want {
		t.Fatalf("OutputDir = %q, want %q", cfg.OutputDir, want)
	}
	if cfg.DeviceName == "" {
		t.Fatal("expected device_name to default to the hostname")
	}
}

func TestResolveOutputRootsDefaultsTaskDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg := config.Default()
	cfg.FPS = 15
	cfg.RecordingType = "task"
	cfg.TaskID = "abc-123"

	if err := resolveOutputRoots(cfg); err != nil {
		t.Fatalf("resolveOutputRoots: %v", err)
	}
	want := filepath.Join(dir, ".omega", "data", "tasks", "abc-123")
	if cfg.OutputDir != want {
		t.Fatalf("OutputDir = %q, want %q", cfg.OutputDir, want)
	}
}

func TestResolveOutputRootsKeepsExplicitOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.FPS = 15
	cfg.OutputDir = filepath.Join(dir, "custom")
	cfg.DBPath = filepath.Join(dir, "custom.sqlite")

	if err := resolveOutputRoots(cfg); err != nil {
		t.Fatalf("resolveOutputRoots: %v", err)
	}
	if cfg.OutputDir != filepath.Join(dir, "custom") {
		t.Fatalf("OutputDir was overwritten: %q", cfg.OutputDir)
	}
}

func TestMaxDisplayBoundsTakesElementwiseMax(t *testing.T) {
	displays := []display.Descriptor{
		{Index: 0, Width: 1920, Height: 1080},
		{Index: 1, Width: 2560, Height: 900},
	}
	w, h := maxDisplayBounds(displays)
	if w != 2560 || h != 1080 {
		t.Fatalf("got %dx%d, want 2560x1080", w, h)
	}
}
