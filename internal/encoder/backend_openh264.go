package encoder

import (
	"fmt"

	"github.com/y9o/go-openh264/openh264"
)

// openh264Backend is the guaranteed-available, pure-Go software fallback:
// last in the priority list, selected when no hardware or libavcodec
// backend initializes.
type openh264Backend struct {
	cfg     Config
	enc     *openh264.Encoder
	pendingKeyframe bool
}

func newOpenH264Backend() (Backend, error) {
	return &openh264Backend{}, nil
}

func (b *openh264Backend) Name() string    { return "openh264" }
func (b *openh264Backend) IsHardware() bool { return false }

func (b *openh264Backend) Init(cfg Config) error {
	if cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return fmt.Errorf("openh264: width/height must be even, got %dx%d", cfg.Width, cfg.Height)
	}
	crf := qualityToCRF(cfg.Quality)
	enc, err := openh264.NewEncoder(openh264.Params{
		Width:          cfg.Width,
		Height:         cfg.Height,
		FPS:            cfg.FPS,
		GOPSize:        cfg.GOP,
		ConstantRateFactor: crf,
		UseBFrames:     false,
	})
	if err != nil {
		return fmt.Errorf("openh264: init: %w", err)
	}
	b.cfg = cfg
	b.enc = enc
	return nil
}

func (b *openh264Backend) CodecParameters() CodecParams {
	if b.enc == nil {
		return CodecParams{}
	}
	return CodecParams{
		Width:       b.cfg.Width,
		Height:      b.cfg.Height,
		ExtraData:   b.enc.SPSPPS(),
		TimeBaseNum: 1,
		TimeBaseDen: b.cfg.FPS,
	}
}

func (b *openh264Backend) SendFrame(y, u, v []byte, pts int64) ([]Packet, error) {
	if b.enc == nil {
		return nil, fmt.Errorf("openh264: backend not initialized")
	}
	forceKey := b.pendingKeyframe
	b.pendingKeyframe = false

	nalu, isKeyframe, err := b.enc.EncodeYUV420(y, u, v, forceKey)
	if err != nil {
		return nil, fmt.Errorf("openh264: encode: %w", err)
	}
	if len(nalu) == 0 {
		return nil, nil
	}
	return []Packet{{
		Data:       nalu,
		IsKeyframe: isKeyframe,
		PTS:        pts,
		DTS:        pts,
	}}, nil
}

func (b *openh264Backend) ForceKeyframe() error {
	b.pendingKeyframe = true
	return nil
}

func (b *openh264Backend) Flush() ([]Packet, error) {
	// openh264 is a zero-lookahead encoder with no B-frames; nothing is
	// buffered internally.
	return nil, nil
}

func (b *openh264Backend) Close() error {
	if b.enc == nil {
		return nil
	}
	b.enc.Close()
	b.enc = nil
	return nil
}

var _ Backend = (*openh264Backend)(nil)
