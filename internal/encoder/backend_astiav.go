package encoder

import (
	"errors"
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// astiavBackend drives libavcodec's software H.264 encoder (libx264) through
// cgo bindings. It sits above openh264 in the priority list: where the
// underlying libavcodec build lacks libx264, FindEncoder reports it
// unavailable and selection falls through to openh264.
type astiavBackend struct {
	cfg             Config
	codecCtx        *astiav.CodecContext
	frame           *astiav.Frame
	pendingKeyframe bool
}

func newAstiavBackend() (Backend, error) {
	codec := astiav.FindEncoderByName("libx264")
	if codec == nil {
		return nil, errors.New("astiav: libx264 encoder not found in this libavcodec build")
	}
	return &astiavBackend{}, nil
}

func (b *astiavBackend) Name() string     { return "astiav" }
func (b *astiavBackend) IsHardware() bool { return false }

func (b *astiavBackend) Init(cfg Config) error {
	if cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return fmt.Errorf("astiav: width/height must be even, got %dx%d", cfg.Width, cfg.Height)
	}
	codec := astiav.FindEncoderByName("libx264")
	if codec == nil {
		return errors.New("astiav: libx264 encoder not found in this libavcodec build")
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return errors.New("astiav: AllocCodecContext failed")
	}
	ctx.SetWidth(cfg.Width)
	ctx.SetHeight(cfg.Height)
	ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
	ctx.SetTimeBase(astiav.NewRational(1, cfg.FPS))
	ctx.SetGopSize(cfg.GOP)
	ctx.SetMaxBFrames(0)

	crf := qualityToCRF(cfg.Quality)
	opts := astiav.NewDictionary()
	defer opts.Free()
	if err := opts.Set("crf", fmt.Sprintf("%d", crf), astiav.NewDictionaryFlags()); err != nil {
		ctx.Free()
		return fmt.Errorf("astiav: set crf option: %w", err)
	}
	if err := opts.Set("preset", "veryfast", astiav.NewDictionaryFlags()); err != nil {
		ctx.Free()
		return fmt.Errorf("astiav: set preset option: %w", err)
	}

	if err := ctx.Open(codec, opts); err != nil {
		ctx.Free()
		return fmt.Errorf("astiav: open: %w", err)
	}

	frame := astiav.AllocFrame()
	frame.SetWidth(cfg.Width)
	frame.SetHeight(cfg.Height)
	frame.SetPixelFormat(astiav.PixelFormatYuv420P)
	if err := frame.AllocBuffer(1); err != nil {
		ctx.Free()
		frame.Free()
		return fmt.Errorf("astiav: frame AllocBuffer: %w", err)
	}

	b.cfg = cfg
	b.codecCtx = ctx
	b.frame = frame
	return nil
}

func (b *astiavBackend) CodecParameters() CodecParams {
	if b.codecCtx == nil {
		return CodecParams{}
	}
	tb := b.codecCtx.TimeBase()
	return CodecParams{
		Width:       b.cfg.Width,
		Height:      b.cfg.Height,
		ExtraData:   b.codecCtx.ExtraData(),
		TimeBaseNum: tb.Num(),
		TimeBaseDen: tb.Den(),
	}
}

func (b *astiavBackend) SendFrame(y, u, v []byte, pts int64) ([]Packet, error) {
	if b.codecCtx == nil {
		return nil, errors.New("astiav: backend not initialized")
	}

	if err := b.frame.Data().SetBytes(0, y); err != nil {
		return nil, fmt.Errorf("astiav: write Y plane: %w", err)
	}
	if err := b.frame.Data().SetBytes(1, u); err != nil {
		return nil, fmt.Errorf("astiav: write U plane: %w", err)
	}
	if err := b.frame.Data().SetBytes(2, v); err != nil {
		return nil, fmt.Errorf("astiav: write V plane: %w", err)
	}
	b.frame.SetPts(pts)
	if b.pendingKeyframe {
		b.frame.SetPictureType(astiav.PictureTypeI)
		b.pendingKeyframe = false
	} else {
		b.frame.SetPictureType(astiav.PictureTypeNone)
	}

	if err := b.codecCtx.SendFrame(b.frame); err != nil && !errors.Is(err, astiav.ErrEagain) {
		return nil, fmt.Errorf("astiav: send frame: %w", err)
	}

	return b.drainPackets()
}

func (b *astiavBackend) drainPackets() ([]Packet, error) {
	var out []Packet
	for {
		pkt := astiav.AllocPacket()
		err := b.codecCtx.ReceivePacket(pkt)
		if err != nil {
			pkt.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				break
			}
			return out, fmt.Errorf("astiav: receive packet: %w", err)
		}
		data := make([]byte, len(pkt.Data()))
		copy(data, pkt.Data())
		out = append(out, Packet{
			Data:       data,
			IsKeyframe: pkt.Flags().Has(astiav.PacketFlagKey),
			PTS:        pkt.Pts(),
			DTS:        pkt.Dts(),
		})
		pkt.Unref()
		pkt.Free()
	}
	return out, nil
}

func (b *astiavBackend) ForceKeyframe() error {
	b.pendingKeyframe = true
	return nil
}

func (b *astiavBackend) Flush() ([]Packet, error) {
	if b.codecCtx == nil {
		return nil, nil
	}
	if err := b.codecCtx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEagain) && !errors.Is(err, astiav.ErrEof) {
		return nil, fmt.Errorf("astiav: flush send: %w", err)
	}
	return b.drainPackets()
}

func (b *astiavBackend) Close() error {
	if b.frame != nil {
		b.frame.Free()
		b.frame = nil
	}
	if b.codecCtx != nil {
		b.codecCtx.Free()
		b.codecCtx = nil
	}
	return nil
}

var _ Backend = (*astiavBackend)(nil)
