package concat

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omegalabsinc/screenrecorder/internal/catalog"
)

func TestWriteConcatListEscapesSingleQuotes(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "list.txt")

	paths := []string{
		filepath.Join(dir, "o'clock.mp4"),
		filepath.Join(dir, "plain.mp4"),
	}
	if err := writeConcatList(listPath, paths); err != nil {
		t.Fatalf("writeConcatList: %v", err)
	}

	out, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(out)
	if !strings.Contains(content, `o'\''clock.mp4`) {
		t.Fatalf("expected escaped quote in list, got: %s", content)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			t.Fatalf("line not in concat demuxer format: %q", line)
		}
	}
}

func TestNormalizeDimensionsSinglePairNoNormalization(t *testing.T) {
	frames := []catalog.FrameInfo{
		{DisplayWidth: sql.NullInt64{Int64: 1920, Valid: true}, DisplayHeight: sql.NullInt64{Int64: 1080, Valid: true}},
		{DisplayWidth: sql.NullInt64{Int64: 1920, Valid: true}, DisplayHeight: sql.NullInt64{Int64: 1080, Valid: true}},
	}
	width, height, needsNormalization, resolutions := normalizeDimensions(frames)
	if needsNormalization {
		t.Fatal("expected no normalization with a single resolution")
	}
	if width != 1920 || height != 1080 {
		t.Fatalf("got %dx%d, want 1920x1080", width, height)
	}
	if len(resolutions) != 1 || resolutions[0].FrameCount != 2 {
		t.Fatalf("unexpected resolution buckets: %+v", resolutions)
	}
}

func TestNormalizeDimensionsTakesElementwiseMaxima(t *testing.T) {
	frames := []catalog.FrameInfo{
		{DisplayWidth: sql.NullInt64{Int64: 1920, Valid: true}, DisplayHeight: sql.NullInt64{Int64: 1080, Valid: true}},
		{DisplayWidth: sql.NullInt64{Int64: 2560, Valid: true}, DisplayHeight: sql.NullInt64{Int64: 1440, Valid: true}},
	}
	width, height, needsNormalization, resolutions := normalizeDimensions(frames)
	if !needsNormalization {
		t.Fatal("expected normalization across two distinct resolutions")
	}
	if width != 2560 || height != 1440 {
		t.Fatalf("got %dx%d, want 2560x1440", width, height)
	}
	if len(resolutions) != 2 {
		t.Fatalf("got %d resolution buckets, want 2", len(resolutions))
	}
}

func TestNormalizeDimensionsFallsBackWhenNoDisplayInfo(t *testing.T) {
	width, height, needsNormalization, resolutions := normalizeDimensions(nil)
	if needsNormalization {
		t.Fatal("expected no normalization with zero frames")
	}
	if width == 0 || height == 0 {
		t.Fatal("expected a non-zero fallback box")
	}
	if len(resolutions) != 0 {
		t.Fatalf("expected no resolution buckets, got %+v", resolutions)
	}
}

func TestBuildFailsFastOnUnknownTask(t *testing.T) {
	cat := openTestCatalog(t)
	_, err := Build(cat, Options{TaskID: "does-not-exist", OutputDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error for a task with no chunks")
	}
	var invalid *InvalidParameter
	if !asInvalidParameter(err, &invalid) {
		t.Fatalf("expected *InvalidParameter, got %T: %v", err, err)
	}
}

func asInvalidParameter(err error, target **InvalidParameter) bool {
	if ip, ok := err.(*InvalidParameter); ok {
		*target = ip
		return true
	}
	return false
}

func openTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.sqlite"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
