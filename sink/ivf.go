package sink

import (
	"fmt"
	"io"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"

	"github.com/thesyncim/svtav1"
)

// IVFSink writes an AV1 IVF file through pion's ivfwriter, feeding it RTP
// packets from a Packetizer.
//
// ivfwriter converts RTP time to milliseconds and then to its time base, so
// WriteUnit picks for each PTS the smallest whole millisecond that lands
// back on that PTS. The frame count in the header is only updated when the
// destination is an io.WriteSeeker.
type IVFSink struct {
	writer     *ivfwriter.IVFWriter
	packetizer *svtav1.Packetizer
	fpsNum     uint64
	fpsDen     uint64
}

// NewIVFSink writes the IVF header to w. Frame rates below one frame per
// second cannot be represented through ivfwriter's millisecond clock.
func NewIVFSink(w io.Writer, width, height int, fpsNum, fpsDen uint32) (*IVFSink, error) {
	if fpsNum == 0 || fpsDen == 0 || fpsNum < fpsDen {
		return nil, fmt.Errorf("ivf: invalid frame rate %d/%d", fpsNum, fpsDen)
	}
	if width <= 0 || width > 0xFFFF || height <= 0 || height > 0xFFFF {
		return nil, fmt.Errorf("ivf: invalid size %dx%d", width, height)
	}
	iw, err := ivfwriter.NewWith(w,
		ivfwriter.WithCodec(webrtc.MimeTypeAV1),
		ivfwriter.WithWidthAndHeight(uint16(width), uint16(height)),
		// ivfwriter takes the time base, the inverse of the frame rate.
		ivfwriter.WithFrameRate(fpsDen, fpsNum),
	)
	if err != nil {
		return nil, fmt.Errorf("ivf: %w", err)
	}
	return &IVFSink{
		writer:     iw,
		packetizer: svtav1.NewPacketizer(0, 0, svtav1.DefaultMTU),
		fpsNum:     uint64(fpsNum),
		fpsDen:     uint64(fpsDen),
	}, nil
}

// rtpTimestamp maps a frame index to the RTP time ivfwriter turns back into
// that index: ms = ceil(pts * num / den), ts = ms * 90.
func (s *IVFSink) rtpTimestamp(pts int64) uint32 {
	ms := (uint64(pts)*s.fpsNum + s.fpsDen - 1) / s.fpsDen
	return uint32(ms * svtav1.VideoClockRate / 1000)
}

func (s *IVFSink) WriteUnit(u Unit) error {
	for _, pkt := range s.packetizer.Packetize(u.Data, s.rtpTimestamp(u.PTS)) {
		if err := s.writer.WriteRTP(pkt); err != nil {
			return fmt.Errorf("ivf: %w", err)
		}
	}
	return nil
}

// Close finalizes the header and closes the destination if it is an
// io.Closer. Calling Close twice is a no-op.
func (s *IVFSink) Close() error {
	return s.writer.Close()
}
