package verify

import (
	"errors"
	"fmt"
	"io"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"

	"github.com/thesyncim/svtav1/internal/obu"
)

// Sample is one temporal unit read back from a container.
type Sample struct {
	Data []byte
	PTS  int64
	// Keyframe is the container's sync flag for MP4. For IVF and raw OBU
	// streams it reports whether the unit carries a sequence header.
	Keyframe bool
}

// StreamInfo is what the container header says about the stream.
type StreamInfo struct {
	Width, Height  int
	FPSNum, FPSDen uint32
}

// ReadIVF reads every frame of an AV1 IVF stream. PTS is the IVF frame
// timestamp in header timebase units.
func ReadIVF(r io.Reader) (StreamInfo, []Sample, error) {
	rd, hdr, err := ivfreader.NewWith(r)
	if err != nil {
		return StreamInfo{}, nil, fmt.Errorf("ivf: %w", err)
	}
	if hdr.FourCC != "AV01" {
		return StreamInfo{}, nil, fmt.Errorf("ivf: fourcc %q is not AV01", hdr.FourCC)
	}
	info := StreamInfo{
		Width:  int(hdr.Width),
		Height: int(hdr.Height),
		FPSNum: hdr.TimebaseDenominator,
		FPSDen: hdr.TimebaseNumerator,
	}

	var samples []Sample
	for {
		data, fh, err := rd.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return info, samples, nil
		}
		if err != nil {
			return info, samples, fmt.Errorf("ivf: frame %d: %w", len(samples), err)
		}
		// ivfreader scales the stored pts by den/num, rounding down; undo it.
		pts := int64(fh.Timestamp)
		if num, den := uint64(hdr.TimebaseNumerator), uint64(hdr.TimebaseDenominator); num != 0 && den != 0 {
			pts = int64((fh.Timestamp*num + den - 1) / den)
		}
		samples = append(samples, Sample{
			Data:     data,
			PTS:      pts,
			Keyframe: obu.SequenceHeader(data) != nil,
		})
	}
}

// ReadMP4 reads the AV1 track of a fragmented MP4 file.
func ReadMP4(r io.ReadSeeker) (StreamInfo, []Sample, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return StreamInfo{}, nil, fmt.Errorf("mp4: %w", err)
	}
	if !f.IsFragmented() || f.Init == nil || f.Init.Moov == nil {
		return StreamInfo{}, nil, errors.New("mp4: not a fragmented file")
	}

	var trak *mp4.TrakBox
	for _, t := range f.Init.Moov.Traks {
		if t.Mdia != nil && t.Mdia.Hdlr != nil && t.Mdia.Hdlr.HandlerType == "vide" {
			trak = t
			break
		}
	}
	if trak == nil {
		return StreamInfo{}, nil, errors.New("mp4: no video track")
	}
	trackID := trak.Tkhd.TrackID

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil {
		for _, t := range f.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	info := StreamInfo{
		Width:  int(trak.Tkhd.Width >> 16),
		Height: int(trak.Tkhd.Height >> 16),
		FPSNum: trak.Mdia.Mdhd.Timescale,
	}

	var samples []Sample
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, trackID) {
				continue
			}
			full, err := frag.GetFullSamples(trex)
			if err != nil {
				return info, samples, fmt.Errorf("mp4: samples: %w", err)
			}
			for _, s := range full {
				if info.FPSDen == 0 && s.Dur > 0 {
					info.FPSDen = s.Dur
				}
				pts := int64(s.DecodeTime)
				if info.FPSDen > 0 {
					pts /= int64(info.FPSDen)
				}
				samples = append(samples, Sample{Data: s.Data, PTS: pts, Keyframe: s.IsSync()})
			}
		}
	}
	return info, samples, nil
}

func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

// SplitTemporalUnits splits a raw low-overhead OBU stream at its temporal
// delimiters. PTS is the unit index.
func SplitTemporalUnits(data []byte) ([]Sample, error) {
	var (
		samples []Sample
		start   = -1
		off     int
	)
	flush := func(end int) {
		if start < 0 {
			return
		}
		unit := data[start:end]
		samples = append(samples, Sample{
			Data:     unit,
			PTS:      int64(len(samples)),
			Keyframe: obu.SequenceHeader(unit) != nil,
		})
	}
	err := obu.Walk(data, func(u obu.Unit) error {
		if u.Type == obu.TypeTemporalDelimiter {
			flush(off)
			start = off
		} else if start < 0 {
			return fmt.Errorf("obu: %s before the first temporal delimiter", u.Type)
		}
		off += len(u.Raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	flush(len(data))
	return samples, nil
}
