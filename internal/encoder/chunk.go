package encoder

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"
)

// FrameMetadata is returned to the caller after a frame has been
// submitted, populated from the most recent packet the backend emitted.
type FrameMetadata struct {
	IsKeyframe bool
	PTS        int64
	DTS        int64
	ChunkIndex int
}

// Cataloger is the narrow slice of the catalog the chunk writer needs:
// recording a new chunk row on rollover. Defined here, not imported from
// internal/catalog, so encoder has no dependency on the catalog's storage
// details.
type Cataloger interface {
	InsertChunk(path, deviceName, recordingType, taskID string, chunkIndex, fps int) (int64, error)
	AppendFrame(deviceName string, capturedAt sql.NullString, isKeyframe bool,
		pts, dts sql.NullInt64, displayIndex, displayWidth, displayHeight sql.NullInt64) (int64, error)
}

// FrameInput is one captured frame handed to the chunk writer: the raw
// source pixels plus the per-frame metadata the catalog records alongside
// the encoded packet.
type FrameInput struct {
	RGB          []byte
	Width        int
	Height       int
	DisplayIndex int
	CapturedAt   time.Time
}

// ChunkWriterConfig parameterizes a ChunkWriter for one recording session.
type ChunkWriterConfig struct {
	Encode            Config
	OutputDir         string
	ChunkDurationSecs int
	DeviceName        string
	RecordingType     string
	TaskID            string
	Cataloger         Cataloger
}

// ChunkWriter owns the current output file and encoder backend for one
// recording session: it rolls chunks over by frame count, writes and
// catalogs each one, and recovers from a mid-run backend failure by
// hot-swapping to the next lower-priority backend.
type ChunkWriter struct {
	cfg            ChunkWriterConfig
	list           []backendFactory
	backend        Backend
	mux            *muxer
	state          *chunkMachine
	framesPerChunk int
	frameInChunk   int
	chunkIndex     int
	ptsOffset      int64
	lastMeta       FrameMetadata
}

// NewChunkWriter selects an encoder backend via the priority list, opens
// the first chunk, and catalogs it.
func NewChunkWriter(cfg ChunkWriterConfig) (*ChunkWriter, error) {
	if cfg.Encode.FPS <= 0 {
		return nil, fmt.Errorf("chunk writer: fps must be positive")
	}
	if cfg.ChunkDurationSecs <= 0 {
		cfg.ChunkDurationSecs = 1
	}

	list := priorityList()
	backend, err := selectBackend(list, cfg.Encode)
	if err != nil {
		return nil, err
	}

	w := &ChunkWriter{
		cfg:            cfg,
		list:           list,
		backend:        backend,
		framesPerChunk: cfg.Encode.FPS * cfg.ChunkDurationSecs,
	}
	if err := w.openChunk(); err != nil {
		backend.Close()
		return nil, err
	}
	return w, nil
}

func (w *ChunkWriter) openChunk() error {
	filename := time.Now().Format("2006-01-02_15-04-05") + ".mp4"
	path := filepath.Join(w.cfg.OutputDir, filename)

	mux, err := newMuxer(path, w.backend.CodecParameters())
	if err != nil {
		return fmt.Errorf("chunk writer: open chunk: %w", err)
	}

	if w.cfg.Cataloger != nil {
		if _, err := w.cfg.Cataloger.InsertChunk(path, w.cfg.DeviceName, w.cfg.RecordingType, w.cfg.TaskID, w.chunkIndex, w.cfg.Encode.FPS); err != nil {
			mux.close()
			return fmt.Errorf("chunk writer: catalog chunk: %w", err)
		}
	}

	w.mux = mux
	w.state = newChunkMachine()
	w.frameInChunk = 0
	return nil
}

// SubmitFrame scales, converts, and submits one captured frame, rolling
// over to a new chunk when the per-chunk frame budget is reached, and
// records the frame in the catalog (captured_at, keyframe flag, PTS/DTS,
// and the source display's index/dimensions) once the backend has
// actually produced a packet for it.
func (w *ChunkWriter) SubmitFrame(in FrameInput) (FrameMetadata, error) {
	if err := w.state.submitFrame(); err != nil {
		return FrameMetadata{}, err
	}

	rgb := in.RGB
	width, height := in.Width, in.Height
	if width != w.cfg.Encode.Width || height != w.cfg.Encode.Height {
		rgb = scaleAndPad(rgb, width, height, w.cfg.Encode.Width, w.cfg.Encode.Height)
	}

	ySize, uSize, vSize := planeSizes(w.cfg.Encode.Width, w.cfg.Encode.Height)
	y := make([]byte, ySize)
	u := make([]byte, uSize)
	v := make([]byte, vSize)
	rgbToYUV420P(rgb, w.cfg.Encode.Width, w.cfg.Encode.Height, y, u, v,
		w.cfg.Encode.Width, (w.cfg.Encode.Width+1)/2, (w.cfg.Encode.Width+1)/2)

	pts := int64(w.frameInChunk)
	packets, err := w.backend.SendFrame(y, u, v, pts)
	if err != nil {
		if swapErr := w.recoverFromFailure(); swapErr != nil {
			w.state.markFailed()
			return FrameMetadata{}, swapErr
		}
		packets, err = w.backend.SendFrame(y, u, v, pts)
		if err != nil {
			w.state.markFailed()
			return FrameMetadata{}, &EncoderRuntimeFailure{Backend: w.backend.Name(), Err: err}
		}
	}

	for _, p := range packets {
		if err := w.mux.write(p); err != nil {
			return FrameMetadata{}, err
		}
		w.lastMeta = FrameMetadata{IsKeyframe: p.IsKeyframe, PTS: p.PTS, DTS: p.DTS, ChunkIndex: w.chunkIndex}

		if w.cfg.Cataloger != nil {
			capturedAt := sql.NullString{String: in.CapturedAt.UTC().Format(time.RFC3339Nano), Valid: !in.CapturedAt.IsZero()}
			if _, err := w.cfg.Cataloger.AppendFrame(w.cfg.DeviceName, capturedAt, p.IsKeyframe,
				sql.NullInt64{Int64: p.PTS, Valid: true}, sql.NullInt64{Int64: p.DTS, Valid: true},
				sql.NullInt64{Int64: int64(in.DisplayIndex), Valid: true},
				sql.NullInt64{Int64: int64(in.Width), Valid: true},
				sql.NullInt64{Int64: int64(in.Height), Valid: true},
			); err != nil {
				return w.lastMeta, fmt.Errorf("chunk writer: catalog frame: %w", err)
			}
		}
	}

	w.frameInChunk++
	if w.frameInChunk >= w.framesPerChunk {
		if err := w.rollover(); err != nil {
			return w.lastMeta, err
		}
	}

	return w.lastMeta, nil
}

// recoverFromFailure implements the one-shot hot-swap: find the next
// backend strictly below the current one, reinitialize it without
// retries, and swap it into place. The swapped-in backend is told to make
// its first frame a keyframe.
func (w *ChunkWriter) recoverFromFailure() error {
	next, err := hotSwap(w.list, w.backend.Name(), w.cfg.Encode)
	if err != nil {
		return &EncoderRuntimeFailure{Backend: w.backend.Name(), Err: err}
	}
	w.backend.Close()
	w.backend = next
	if err := w.backend.ForceKeyframe(); err != nil {
		return &EncoderRuntimeFailure{Backend: w.backend.Name(), Err: err}
	}
	return nil
}

// rollover finalizes the current chunk's container and opens the next one.
func (w *ChunkWriter) rollover() error {
	w.ptsOffset += int64(w.frameInChunk)
	w.state.beginFlush()

	if err := w.finalizeChunk(); err != nil {
		return err
	}
	w.chunkIndex++
	return w.openChunk()
}

func (w *ChunkWriter) finalizeChunk() error {
	packets, err := w.backend.Flush()
	if err != nil {
		return fmt.Errorf("chunk writer: flush: %w", err)
	}
	for _, p := range packets {
		if err := w.mux.write(p); err != nil {
			return err
		}
	}
	if err := w.mux.close(); err != nil {
		return err
	}
	w.state.finish()
	return nil
}

// Shutdown flushes and finalizes the current chunk, then releases the
// backend. Triggered by a graceful-stop request or the frame channel
// closing.
func (w *ChunkWriter) Shutdown() error {
	w.state.beginFlush()
	if err := w.finalizeChunk(); err != nil {
		w.backend.Close()
		return err
	}
	return w.backend.Close()
}
