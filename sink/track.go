package sink

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// SampleWriter is satisfied by *webrtc.TrackLocalStaticSample.
type SampleWriter interface {
	WriteSample(s media.Sample) error
}

var _ SampleWriter = (*webrtc.TrackLocalStaticSample)(nil)

// TrackSink writes units as media samples to a WebRTC track. The track
// packetizes them itself.
type TrackSink struct {
	track    SampleWriter
	duration time.Duration
}

// NewTrackSink sends one sample per unit, each lasting one frame period.
func NewTrackSink(track SampleWriter, fpsNum, fpsDen uint32) (*TrackSink, error) {
	if fpsNum == 0 || fpsDen == 0 {
		return nil, fmt.Errorf("track: invalid frame rate %d/%d", fpsNum, fpsDen)
	}
	return &TrackSink{
		track:    track,
		duration: time.Second * time.Duration(fpsDen) / time.Duration(fpsNum),
	}, nil
}

// NewAV1Track creates a sample track for AV1 with the given ids.
func NewAV1Track(id, streamID string) (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeAV1, ClockRate: 90000},
		id, streamID,
	)
}

func (s *TrackSink) WriteUnit(u Unit) error {
	return s.track.WriteSample(media.Sample{Data: u.Data, Duration: s.duration})
}

// Close is a no-op; the track belongs to its peer connection.
func (s *TrackSink) Close() error { return nil }
