package concat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateChunkRejectsMissingFile(t *testing.T) {
	ok, reason := validateChunk("ffprobe", "ffmpeg", filepath.Join(t.TempDir(), "missing.mp4"))
	if ok {
		t.Fatal("expected validation to fail for a missing file")
	}
	if reason != "missing" {
		t.Fatalf("reason = %q, want %q", reason, "missing")
	}
}

func TestValidateChunkRejectsTooSmallFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.mp4")
	if err := os.WriteFile(path, []byte("not a real chunk"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ok, reason := validateChunk("ffprobe", "ffmpeg", path)
	if ok {
		t.Fatal("expected validation to fail for a file under the minimum size")
	}
	if reason != "too small" {
		t.Fatalf("reason = %q, want %q", reason, "too small")
	}
}
