// Package concat implements the concat & manifest builder: it loads
// a task's chunks and frames from the catalog, validates each chunk file
// with the probe tool, concatenates the survivors into one output file,
// and writes metadata.json/frames.json describing the result.
package concat

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/catalog"
	"github.com/omegalabsinc/screenrecorder/internal/logging"
)

var log = logging.L("concat")

var backoffs = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Options parameterizes one concat run.
type Options struct {
	TaskID      string
	OutputDir   string // directory holding the task's chunks; final.mp4/metadata.json/frames.json are written here
	FFmpegPath  string
	FFprobePath string
	Quality     int // encode quality used for the source chunks, threaded through since the catalog doesn't persist it per-chunk
}

// Result summarizes a completed concat run, enough to report to the
// operator or embed in a caller's own response.
type Result struct {
	OutputPath    string
	Duration      float64
	Size          int64
	Codec         string
	Bitrate       int64
	Normalized    bool
	ExcludedCount int
}

// Build runs the full concat algorithm: validate, concat list, invoke the
// concatenator, probe the result, and write the manifests. It retries the
// whole attempt up to 3 times with exponential backoff (2s/4s/8s) since
// transient media-tool failures are common.
func Build(cat *catalog.Catalog, opts Options) (*Result, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("concat: create output dir: %w", err)
	}

	finalPath := filepath.Join(opts.OutputDir, "final.mp4")
	metadataPath := filepath.Join(opts.OutputDir, "metadata.json")
	framesPath := filepath.Join(opts.OutputDir, "frames.json")
	for _, p := range []string{finalPath, metadataPath, framesPath} {
		_ = os.Remove(p)
	}

	chunks, err := cat.ChunksForTask(opts.TaskID)
	if err != nil {
		return nil, fmt.Errorf("concat: load chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, &InvalidParameter{Msg: fmt.Sprintf("no chunks recorded for task %q", opts.TaskID)}
	}

	fps := 30
	for _, ch := range chunks {
		if ch.FPS > 0 {
			fps = ch.FPS
			break
		}
	}

	frames, err := cat.FramesForTask(opts.TaskID)
	if err != nil {
		return nil, fmt.Errorf("concat: load frames: %w", err)
	}

	width, height, needsNormalization, resolutions := normalizeDimensions(frames)

	attempts := len(backoffs)
	var lastErr error
	var lastOut string
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(backoffs[attempt-1])
		}

		result, out, err := attempt1(cat, opts, chunks, fps, width, height, needsNormalization, finalPath)
		if err == nil {
			if werr := writeManifests(cat, opts, metadataPath, framesPath, finalPath, chunks, frames,
				fps, needsNormalization, resolutions, width, height, result); werr != nil {
				return nil, werr
			}
			return result, nil
		}

		lastErr = err
		lastOut = out
		_ = os.Remove(finalPath)
		log.Warn("concat attempt failed", "task_id", opts.TaskID, "attempt", attempt+1, "error", err)
	}

	return nil, &EncodingError{Msg: lastErr.Error(), LastOut: lastOut, Attempts: attempts}
}

// attempt1 runs one full validate-concat-probe pass.
func attempt1(cat *catalog.Catalog, opts Options, chunks []catalog.ChunkInfo, fps, width, height int,
	needsNormalization bool, finalPath string) (*Result, string, error) {

	checks := validateChunks(opts.FFprobePath, opts.FFmpegPath, chunks)

	var survivors []string
	var excluded int
	for _, c := range checks {
		if c.ok {
			survivors = append(survivors, c.chunk.FilePath)
		} else {
			excluded++
			log.Warn("excluding invalid chunk", "path", c.chunk.FilePath, "reason", c.reason)
		}
	}
	if excluded > 0 {
		log.Info("chunk validation summary", "invalid", excluded, "valid", len(survivors))
	}
	if len(survivors) == 0 {
		return nil, "", &InvalidParameter{Msg: "no valid chunks survived validation"}
	}

	listPath := finalPath + ".concat.txt"
	if err := writeConcatList(listPath, survivors); err != nil {
		return nil, "", err
	}
	defer os.Remove(listPath)

	out, err := runConcat(opts.FFmpegPath, listPath, finalPath, needsNormalization, width, height, fps)
	if err != nil {
		return nil, out, err
	}

	info, err := os.Stat(finalPath)
	if err != nil || info.Size() < minFileBytes {
		_ = os.Remove(finalPath)
		return nil, out, fmt.Errorf("final output missing or under %d bytes", minFileBytes)
	}

	duration, codec, bitrate, err := probeOutput(opts.FFprobePath, finalPath)
	if err != nil {
		return nil, out, fmt.Errorf("probe final output: %w", err)
	}

	return &Result{
		OutputPath:    finalPath,
		Duration:      duration,
		Size:          info.Size(),
		Codec:         codec,
		Bitrate:       bitrate,
		Normalized:    needsNormalization,
		ExcludedCount: excluded,
	}, out, nil
}

// writeConcatList emits the ffmpeg concat demuxer's list format, escaping
// single quotes per the demuxer's own quoting rule.
func writeConcatList(path string, paths []string) (err error) {
	f, createErr := os.Create(path)
	if createErr != nil {
		return fmt.Errorf("concat: create list file: %w", createErr)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("concat: close list file: %w", cerr)
		}
	}()

	for _, p := range paths {
		abs, aerr := filepath.Abs(p)
		if aerr != nil {
			return fmt.Errorf("concat: absolute path for %s: %w", p, aerr)
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, werr := fmt.Fprintf(f, "file '%s'\n", escaped); werr != nil {
			return fmt.Errorf("concat: write list entry: %w", werr)
		}
	}
	return nil
}

// runConcat invokes the external concatenator: a plain stream copy when
// every chunk already shares one resolution, or a software re-encode with
// scale-and-pad normalization and forced constant frame rate otherwise.
func runConcat(ffmpegPath, listPath, outPath string, needsNormalization bool, width, height, fps int) (string, error) {
	args := []string{"-hide_banner", "-f", "concat", "-safe", "0", "-i", listPath}

	if !needsNormalization {
		args = append(args,
			"-c", "copy",
			"-fflags", "+genpts+igndts+discardcorrupt",
			"-avoid_negative_ts", "make_zero",
		)
	} else {
		filter := fmt.Sprintf(
			"scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black,fps=%d",
			width, height, width, height, fps,
		)
		args = append(args,
			"-vf", filter,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "23",
			"-r", fmt.Sprintf("%d", fps),
			"-vsync", "cfr",
		)
	}
	args = append(args, "-y", outPath)

	cmd := exec.Command(ffmpegPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// normalizeDimensions collects the distinct (width,height) pairs across a
// task's frames and decides whether the concat needs normalization, per
// spec.md §4.8 step 2.
func normalizeDimensions(frames []catalog.FrameInfo) (width, height int, needsNormalization bool, resolutions []resolutionCount) {
	counts := make(map[[2]int]int)
	for _, f := range frames {
		if !f.DisplayWidth.Valid || !f.DisplayHeight.Valid {
			continue
		}
		key := [2]int{int(f.DisplayWidth.Int64), int(f.DisplayHeight.Int64)}
		counts[key]++
	}

	for dims, count := range counts {
		resolutions = append(resolutions, resolutionCount{Width: dims[0], Height: dims[1], FrameCount: count})
		if dims[0] > width {
			width = dims[0]
		}
		if dims[1] > height {
			height = dims[1]
		}
	}
	needsNormalization = len(counts) > 1

	if width == 0 || height == 0 {
		width, height = 1920, 1080 // no display dimensions recorded at all; fall back to a sane default box
	}
	return width, height, needsNormalization, resolutions
}

type resolutionCount struct {
	Width      int
	Height     int
	FrameCount int
}
