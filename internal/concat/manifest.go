package concat

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/omegalabsinc/screenrecorder/internal/catalog"
	"github.com/omegalabsinc/screenrecorder/internal/interactions"
)

const manifestVersion = "1.0"

// metadataDoc is metadata.json's schema, spec.md §4.8 step 9.
type metadataDoc struct {
	Version       string            `json:"version"`
	TaskID        string            `json:"task_id"`
	DeviceName    string            `json:"device_name"`
	RecordingType string            `json:"recording_type"`
	CreatedAt     string            `json:"created_at"`
	RecordingTime recordingTimeDoc  `json:"recording_time"`
	Video         videoDoc          `json:"video"`
	FocusedTime   float64           `json:"focused_time"`
	Chunks        chunksDoc         `json:"chunks"`
	Frames        framesSummaryDoc  `json:"frames"`
	Displays      displaysDoc       `json:"displays"`
}

type recordingTimeDoc struct {
	TotalSeconds     float64 `json:"total_seconds"`
	TotalFormatted   string  `json:"total_formatted"`
	OverheadSeconds  float64 `json:"overhead_seconds"`
	EfficiencyPercent float64 `json:"efficiency_percent"`
}

type videoDoc struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
	Codec    string  `json:"codec"`
	Bitrate  int64   `json:"bitrate"`
	FPS      int     `json:"fps"`
	Quality  int     `json:"quality"`
}

type chunksDoc struct {
	TotalCount int               `json:"total_count"`
	Details    []chunkDetailDoc  `json:"details"`
}

type chunkDetailDoc struct {
	ChunkIndex int    `json:"chunk_index"`
	FilePath   string `json:"file_path"`
	CreatedAt  string `json:"created_at"`
}

type framesSummaryDoc struct {
	TotalCount       int     `json:"total_count"`
	KeyframeCount    int     `json:"keyframe_count"`
	KeyframeInterval float64 `json:"keyframe_interval"`
}

type displaysDoc struct {
	MonitorsUsed         int                `json:"monitors_used"`
	UniqueDisplayIndices []int              `json:"unique_display_indices"`
	Normalized           bool               `json:"normalized"`
	Resolutions          []resolutionDoc    `json:"resolutions"`
	FinalResolution      finalResolutionDoc `json:"final_resolution"`
}

type resolutionDoc struct {
	W          int `json:"w"`
	H          int `json:"h"`
	FrameCount int `json:"frame_count"`
}

type finalResolutionDoc struct {
	W int `json:"w"`
	H int `json:"h"`
}

// frameDoc is one entry of frames.json, spec.md §4.8 step 10.
type frameDoc struct {
	Offset        int    `json:"offset"`
	Timestamp     string `json:"timestamp"`
	PTS           int64  `json:"pts"`
	IsKeyframe    bool   `json:"is_keyframe"`
	DisplayIndex  *int64 `json:"display_index"`
	DisplayWidth  *int64 `json:"display_width"`
	DisplayHeight *int64 `json:"display_height"`
}

// writeManifests checkpoints the catalog, computes the recording-time and
// display summaries, and writes metadata.json and frames.json.
func writeManifests(cat *catalog.Catalog, opts Options, metadataPath, framesPath, finalPath string,
	chunks []catalog.ChunkInfo, frames []catalog.FrameInfo, fps int, needsNormalization bool,
	resolutions []resolutionCount, width, height int, result *Result) error {

	if err := cat.Checkpoint(); err != nil {
		log.Warn("catalog checkpoint before manifest failed", "error", err)
	}

	sessions, err := cat.SessionsForTask(opts.TaskID)
	if err != nil {
		return fmt.Errorf("concat: load sessions: %w", err)
	}
	var totalRecording time.Duration
	for _, s := range sessions {
		if s.EndedAt == nil {
			continue
		}
		totalRecording += s.EndedAt.Sub(s.StartedAt)
	}
	totalSeconds := totalRecording.Seconds()

	efficiency := 0.0
	if totalSeconds > 0 {
		efficiency = result.Duration / totalSeconds * 100
	}

	focusedTime, err := interactions.FocusedSeconds(opts.OutputDir)
	if err != nil {
		log.Warn("reading interactions.jsonl failed", "error", err)
		focusedTime = 0
	}

	deviceName, recordingType := "", ""
	if len(chunks) > 0 {
		deviceName = chunks[0].DeviceName
		recordingType = chunks[0].RecordingType
	}

	chunkDetails := make([]chunkDetailDoc, len(chunks))
	for i, ch := range chunks {
		chunkDetails[i] = chunkDetailDoc{ChunkIndex: ch.ChunkIndex, FilePath: ch.FilePath, CreatedAt: ch.CreatedAt}
	}

	keyframeCount := 0
	for _, f := range frames {
		if f.IsKeyframe {
			keyframeCount++
		}
	}
	keyframeInterval := 0.0
	if keyframeCount > 0 {
		keyframeInterval = float64(len(frames)) / float64(keyframeCount)
	}

	displayIndexSet := make(map[int64]bool)
	for _, f := range frames {
		if f.DisplayIndex.Valid {
			displayIndexSet[f.DisplayIndex.Int64] = true
		}
	}
	uniqueIndices := make([]int, 0, len(displayIndexSet))
	for idx := range displayIndexSet {
		uniqueIndices = append(uniqueIndices, int(idx))
	}
	sort.Ints(uniqueIndices)

	resolutionDocs := make([]resolutionDoc, len(resolutions))
	for i, r := range resolutions {
		resolutionDocs[i] = resolutionDoc{W: r.Width, H: r.Height, FrameCount: r.FrameCount}
	}

	doc := metadataDoc{
		Version:       manifestVersion,
		TaskID:        opts.TaskID,
		DeviceName:    deviceName,
		RecordingType: recordingType,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		RecordingTime: recordingTimeDoc{
			TotalSeconds:      totalSeconds,
			TotalFormatted:    formatDuration(totalRecording),
			OverheadSeconds:   totalSeconds - result.Duration,
			EfficiencyPercent: efficiency,
		},
		Video: videoDoc{
			Path:     finalPath,
			Duration: result.Duration,
			Size:     result.Size,
			Codec:    result.Codec,
			Bitrate:  result.Bitrate,
			FPS:      fps,
			Quality:  opts.Quality,
		},
		FocusedTime: focusedTime,
		Chunks: chunksDoc{
			TotalCount: len(chunks),
			Details:    chunkDetails,
		},
		Frames: framesSummaryDoc{
			TotalCount:       len(frames),
			KeyframeCount:    keyframeCount,
			KeyframeInterval: keyframeInterval,
		},
		Displays: displaysDoc{
			MonitorsUsed:         len(uniqueIndices),
			UniqueDisplayIndices: uniqueIndices,
			Normalized:           needsNormalization,
			Resolutions:          resolutionDocs,
			FinalResolution:      finalResolutionDoc{W: width, H: height},
		},
	}

	if err := writeJSONFile(metadataPath, doc); err != nil {
		return fmt.Errorf("concat: write metadata.json: %w", err)
	}

	frameDocs := make([]frameDoc, len(frames))
	for i, f := range frames {
		frameDocs[i] = frameDoc{
			Offset:        f.OffsetIndex,
			Timestamp:     f.CapturedAt.String,
			PTS:           f.PTS.Int64,
			IsKeyframe:    f.IsKeyframe,
			DisplayIndex:  nullableInt64(f.DisplayIndex),
			DisplayWidth:  nullableInt64(f.DisplayWidth),
			DisplayHeight: nullableInt64(f.DisplayHeight),
		}
	}
	if err := writeJSONFile(framesPath, frameDocs); err != nil {
		return fmt.Errorf("concat: write frames.json: %w", err)
	}

	return nil
}

func formatDuration(d time.Duration) string {
	total := int64(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
