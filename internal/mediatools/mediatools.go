// Package mediatools discovers and probes the ffmpeg/ffprobe binaries the
// encoder and concat stages shell out to, the way internal/concat's
// validate.go probes individual chunk files with os/exec.
package mediatools

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// ToolInfo describes a discovered ffmpeg or ffprobe binary.
type ToolInfo struct {
	Path    string
	Version string
}

// Discover resolves path (a configured path or bare command name) against
// PATH and runs -version against it, failing if the binary is missing or
// doesn't run.
func Discover(path string) (ToolInfo, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return ToolInfo{}, fmt.Errorf("mediatools: %s not found: %w", path, err)
	}

	out, err := exec.Command(resolved, "-version").Output()
	if err != nil {
		return ToolInfo{}, fmt.Errorf("mediatools: %s -version: %w", resolved, err)
	}

	return ToolInfo{Path: resolved, Version: firstLine(out)}, nil
}

func firstLine(out []byte) string {
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(line))
}

// requiredDemuxers are the ffmpeg components internal/concat's Build
// shells out to for the concat-demuxer pass and, when chunk resolutions
// differ, the scale/pad filter graph.
var requiredDemuxers = []string{"concat", "scale", "pad"}

// CheckConcatSupport runs `ffmpeg -filters` and fails if any filter
// internal/concat's normalization path depends on is missing from this
// ffmpeg build, catching a misconfigured --ffmpeg-path before a real
// recording session ever reaches the concat step.
func CheckConcatSupport(ffmpegPath string) error {
	out, err := exec.Command(ffmpegPath, "-hide_banner", "-filters").Output()
	if err != nil {
		return fmt.Errorf("mediatools: %s -filters: %w", ffmpegPath, err)
	}
	var missing []string
	for _, name := range requiredDemuxers {
		if !bytes.Contains(out, []byte(name)) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("mediatools: %s is missing required filter(s): %s", ffmpegPath, strings.Join(missing, ", "))
	}
	return nil
}
