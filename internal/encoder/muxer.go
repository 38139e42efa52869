package encoder

import (
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// streamTimeBase is the muxer (container) time base every packet is
// rescaled into before being written.
var streamTimeBase = astiav.NewRational(1, 90000)

// muxer owns one fragmented-MP4 output file: a format context, its I/O
// context, and the single video stream.
type muxer struct {
	path       string
	formatCtx  *astiav.FormatContext
	ioCtx      *astiav.IOContext
	stream     *astiav.Stream
	encoderTB  astiav.Rational
	headerDone bool
}

// newMuxer opens a fragmented-MP4 file at path and declares one H.264 video
// stream from params, independent of which Backend produced those params.
func newMuxer(path string, params CodecParams) (*muxer, error) {
	oc, err := astiav.AllocOutputFormatContext(nil, "mp4", path)
	if err != nil || oc == nil {
		return nil, fmt.Errorf("muxer: alloc output context: %w", err)
	}

	stream := oc.NewStream(nil)
	if stream == nil {
		oc.Free()
		return nil, fmt.Errorf("muxer: NewStream failed")
	}
	cp := stream.CodecParameters()
	cp.SetMediaType(astiav.MediaTypeVideo)
	cp.SetCodecID(astiav.CodecIDH264)
	cp.SetWidth(params.Width)
	cp.SetHeight(params.Height)
	if len(params.ExtraData) > 0 {
		cp.SetExtraData(params.ExtraData)
	}
	stream.SetTimeBase(streamTimeBase)

	ioFlags := astiav.NewIOContextFlags(astiav.IOContextFlagWrite)
	pb, err := astiav.OpenIOContext(path, ioFlags, nil, nil)
	if err != nil {
		oc.Free()
		return nil, fmt.Errorf("muxer: OpenIOContext: %w", err)
	}
	oc.SetPb(pb)

	muxOpts := astiav.NewDictionary()
	defer muxOpts.Free()
	if err := muxOpts.Set("movflags", "frag_keyframe+empty_moov+default_base_moof", astiav.NewDictionaryFlags()); err != nil {
		pb.Close()
		pb.Free()
		oc.Free()
		return nil, fmt.Errorf("muxer: set movflags: %w", err)
	}
	if err := oc.WriteHeader(muxOpts); err != nil {
		pb.Close()
		pb.Free()
		oc.Free()
		return nil, fmt.Errorf("muxer: WriteHeader: %w", err)
	}

	encoderTB := astiav.NewRational(params.TimeBaseNum, params.TimeBaseDen)
	return &muxer{
		path:       path,
		formatCtx:  oc,
		ioCtx:      pb,
		stream:     stream,
		encoderTB:  encoderTB,
		headerDone: true,
	}, nil
}

// write rescales a packet's timestamps from the encoder time base to the
// stream (1/90000) time base and writes it.
func (m *muxer) write(p Packet) error {
	pkt := astiav.AllocPacket()
	defer pkt.Free()

	pkt.SetData(p.Data)
	pkt.SetPts(p.PTS)
	pkt.SetDts(p.DTS)
	if p.IsKeyframe {
		pkt.SetFlags(pkt.Flags().Add(astiav.PacketFlagKey))
	}
	pkt.SetStreamIndex(m.stream.Index())
	pkt.RescaleTs(m.encoderTB, m.stream.TimeBase())

	if err := m.formatCtx.WriteInterleavedFrame(pkt); err != nil {
		return fmt.Errorf("muxer: write frame: %w", err)
	}
	return nil
}

// close writes the trailer and releases the I/O context and format
// context, finalizing the container file on disk.
func (m *muxer) close() error {
	var err error
	if m.headerDone {
		err = m.formatCtx.WriteTrailer()
	}
	if m.ioCtx != nil {
		m.ioCtx.Close()
		m.ioCtx.Free()
	}
	if m.formatCtx != nil {
		m.formatCtx.Free()
	}
	if err != nil {
		return fmt.Errorf("muxer: write trailer: %w", err)
	}
	return nil
}
