package sink

import (
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/thesyncim/svtav1/internal/obu"
)

const mp4TrackID = 1

// ErrNoSequenceHeader is returned when the first unit written to an MP4Sink
// has no sequence header and none was supplied.
var ErrNoSequenceHeader = errors.New("mp4: no sequence header before first sample")

type mp4Sample struct {
	data []byte
	pts  int64
	key  bool
}

// MP4Sink writes a fragmented MP4 (ftyp, moov, then one moof+mdat per GOP)
// with an av01 sample entry. Samples are temporal units without temporal
// delimiters. The track timescale is the frame rate numerator, so one PTS
// step lasts fpsDen ticks.
type MP4Sink struct {
	out       io.Writer
	width     int
	height    int
	fpsNum    uint32
	fpsDen    uint32
	seqHeader []byte

	initWritten bool
	firstPTS    int64
	pending     []mp4Sample
	fragSeq     uint32
	samples     int
	closed      bool
}

func NewMP4Sink(w io.Writer, width, height int, fpsNum, fpsDen uint32) (*MP4Sink, error) {
	if fpsNum == 0 || fpsDen == 0 {
		return nil, fmt.Errorf("mp4: invalid frame rate %d/%d", fpsNum, fpsDen)
	}
	return &MP4Sink{
		out:     w,
		width:   width,
		height:  height,
		fpsNum:  fpsNum,
		fpsDen:  fpsDen,
		fragSeq: 1,
	}, nil
}

// SetSequenceHeader supplies the codec configuration ahead of the first
// unit, typically from Encoder.StreamHeader. Only the sequence header OBU
// is kept.
func (s *MP4Sink) SetSequenceHeader(data []byte) {
	if seq := obu.SequenceHeader(data); seq != nil {
		s.seqHeader = append([]byte(nil), seq...)
	}
}

// Samples reports how many samples have been written out.
func (s *MP4Sink) Samples() int { return s.samples }

func (s *MP4Sink) WriteUnit(u Unit) error {
	if s.closed {
		return errors.New("mp4: sink closed")
	}
	data := obu.StripTemporalDelimiters(u.Data)
	if s.seqHeader == nil {
		s.SetSequenceHeader(data)
	}
	if !s.initWritten && len(s.pending) == 0 {
		s.firstPTS = u.PTS
	}
	if u.Keyframe && len(s.pending) > 0 {
		if err := s.flush(u.PTS, true); err != nil {
			return err
		}
	}
	s.pending = append(s.pending, mp4Sample{data: data, pts: u.PTS, key: u.Keyframe})
	return nil
}

func (s *MP4Sink) writeInit() error {
	if s.seqHeader == nil {
		return ErrNoSequenceHeader
	}
	info, err := obu.ParseSequenceHeader(s.seqHeader)
	if err != nil {
		return fmt.Errorf("mp4: %w", err)
	}

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(s.fpsNum, "video", "und")
	trak := init.Moov.Trak

	av1C := &mp4.Av1CBox{
		CodecConfRec: av1.CodecConfRec{
			Version:              1,
			SeqProfile:           info.Profile,
			SeqLevelIdx0:         info.Level,
			SeqTier0:             info.Tier,
			HighBitdepth:         boolByte(info.BitDepth > 8),
			TwelveBit:            boolByte(info.BitDepth == 12),
			MonoChrome:           boolByte(info.MonoChrome),
			ChromaSubsamplingX:   info.SubsamplingX,
			ChromaSubsamplingY:   info.SubsamplingY,
			ChromaSamplePosition: info.ChromaSamplePosition,
			ConfigOBUs:           s.seqHeader,
		},
	}
	av01 := mp4.CreateVisualSampleEntryBox("av01", uint16(s.width), uint16(s.height), av1C)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(av01)
	trak.Tkhd.Width = mp4.Fixed32(s.width << 16)
	trak.Tkhd.Height = mp4.Fixed32(s.height << 16)

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "av01", "mp41"})
	if err := ftyp.Encode(s.out); err != nil {
		return fmt.Errorf("mp4: encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(s.out); err != nil {
		return fmt.Errorf("mp4: encode moov: %w", err)
	}
	s.initWritten = true
	return nil
}

// flush writes pending samples as one fragment. nextPTS, when known, sets
// the duration of the last sample.
func (s *MP4Sink) flush(nextPTS int64, haveNext bool) error {
	if len(s.pending) == 0 {
		return nil
	}
	if !s.initWritten {
		if err := s.writeInit(); err != nil {
			return err
		}
	}

	frag, err := mp4.CreateFragment(s.fragSeq, mp4TrackID)
	if err != nil {
		return fmt.Errorf("mp4: create fragment: %w", err)
	}
	den := int64(s.fpsDen)
	for i, ps := range s.pending {
		var dur int64
		switch {
		case i+1 < len(s.pending):
			dur = (s.pending[i+1].pts - ps.pts) * den
		case haveNext:
			dur = (nextPTS - ps.pts) * den
		}
		if dur <= 0 {
			dur = den
		}

		flags := mp4.NonSyncSampleFlags
		if ps.key {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(ps.data)),
				Dur:   uint32(dur),
			},
			DecodeTime: uint64((ps.pts - s.firstPTS) * den),
			Data:       ps.data,
		})
	}
	if err := frag.Encode(s.out); err != nil {
		return fmt.Errorf("mp4: encode fragment: %w", err)
	}

	s.fragSeq++
	s.samples += len(s.pending)
	s.pending = s.pending[:0]
	return nil
}

// Close writes the last fragment and closes the destination if it is an
// io.Closer.
func (s *MP4Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.flush(0, false)
	if c, ok := s.out.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
