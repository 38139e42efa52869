package concat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"

	"github.com/omegalabsinc/screenrecorder/internal/catalog"
	"github.com/omegalabsinc/screenrecorder/internal/workerpool"
)

const minFileBytes = 1024

var acceptedCodecs = map[string]bool{"h264": true, "hevc": true}

// chunkCheck is one chunk's validation outcome.
type chunkCheck struct {
	chunk  catalog.ChunkInfo
	ok     bool
	reason string
}

// validateChunks probes every chunk concurrently through a bounded worker
// pool and returns one outcome per input chunk, same order as the input.
func validateChunks(ffprobePath, ffmpegPath string, chunks []catalog.ChunkInfo) []chunkCheck {
	results := make([]chunkCheck, len(chunks))

	workers := len(chunks)
	if workers > 8 {
		workers = 8
	}
	pool := workerpool.New(workers, len(chunks))

	for i, ch := range chunks {
		i, ch := i, ch
		pool.Submit(func() {
			ok, reason := validateChunk(ffprobePath, ffmpegPath, ch.FilePath)
			results[i] = chunkCheck{chunk: ch, ok: ok, reason: reason}
		})
	}
	pool.StopAccepting()
	pool.Drain(context.Background())

	return results
}

// validateChunk runs its checks in order, short-circuiting on the first
// failure: the file exists, it's above a minimum size, ffprobe reports a
// video stream whose codec is one concat accepts, the probed duration is
// inside (0, 3600) seconds, and a full ffmpeg read pass succeeds.
func validateChunk(ffprobePath, ffmpegPath, path string) (ok bool, reason string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "missing"
	}
	if info.Size() < minFileBytes {
		return false, "too small"
	}

	codec, err := probeVideoCodec(ffprobePath, path)
	if err != nil {
		return false, fmt.Sprintf("no video stream: %v", err)
	}
	if !acceptedCodecs[codec] {
		return false, fmt.Sprintf("unsupported codec %q", codec)
	}

	duration, err := probeDuration(ffprobePath, path)
	if err != nil {
		return false, fmt.Sprintf("unparseable duration: %v", err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 || duration >= 3600 {
		return false, fmt.Sprintf("duration %.3fs out of range (0, 3600)", duration)
	}

	if err := fullReadPass(ffmpegPath, path); err != nil {
		return false, fmt.Sprintf("full read failed: %v", err)
	}

	return true, ""
}

func probeVideoCodec(ffprobePath, path string) (string, error) {
	out, err := exec.Command(ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return "", err
	}
	codec := string(bytes.TrimSpace(out))
	if codec == "" {
		return "", fmt.Errorf("no video stream")
	}
	return codec, nil
}

func probeDuration(ffprobePath, path string) (float64, error) {
	out, err := exec.Command(ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	).Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(string(bytes.TrimSpace(out)), 64)
}

// fullReadPass decodes the entire file to a null sink and fails if the
// decoder wrote anything to stderr, catching truncated or corrupt
// containers that a quick stream-info probe alone would miss.
func fullReadPass(ffmpegPath, path string) error {
	cmd := exec.Command(ffmpegPath, "-v", "error", "-i", path, "-f", "null", "-")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	if stderr.Len() > 0 {
		return fmt.Errorf("decoder reported: %s", stderr.String())
	}
	return nil
}

// probeOutput inspects the merged output for the fields metadata.json
// reports: duration, size, codec, bitrate.
func probeOutput(ffprobePath, path string) (duration float64, codec string, bitrate int64, err error) {
	out, runErr := exec.Command(ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format=duration,bit_rate:stream=codec_name",
		"-of", "json",
		path,
	).Output()
	if runErr != nil {
		return 0, "", 0, runErr
	}

	var parsed struct {
		Streams []struct {
			CodecName string `json:"codec_name"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			BitRate  string `json:"bit_rate"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, "", 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) > 0 {
		codec = parsed.Streams[0].CodecName
	}
	duration, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	bitrate, _ = strconv.ParseInt(parsed.Format.BitRate, 10, 64)
	return duration, codec, bitrate, nil
}
