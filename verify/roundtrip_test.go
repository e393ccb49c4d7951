//go:build cgo && aom

package verify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/svtav1"
	"github.com/thesyncim/svtav1/sink"
	"github.com/thesyncim/svtav1/source"
)

func encodePattern(t *testing.T, s sink.Sink, pattern source.PatternType, frames int) source.Info {
	t.Helper()
	if !svtav1.Available() {
		t.Skipf("SvtAv1Enc not available: %v", svtav1.LoadError())
	}

	src := source.NewPattern(source.PatternConfig{Width: 160, Height: 96, Pattern: pattern, Frames: frames})
	info := src.Info()

	cfg, err := svtav1.NewEncoderConfig(uint32(info.Width), uint32(info.Height), svtav1.WithPreset(12))
	require.NoError(t, err)
	defer cfg.Close()
	cfg.Config().SetFrameRate(info.FPSNum, info.FPSDen)
	require.NoError(t, cfg.SetParameter("keyint", "8"))

	enc, err := cfg.NewEncoder()
	require.NoError(t, err)
	defer enc.Close()

	asm := sink.NewAssembler(s, nil)
	p, err := svtav1.NewPipeline(enc,
		svtav1.I420Source{Read: src.ReadFrame, Width: info.Width, Height: info.Height}, asm)
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, asm.Close())
	return info
}

func TestRoundTrip_OBU(t *testing.T) {
	const frames = 20
	var out bytes.Buffer
	info := encodePattern(t, sink.NewOBUSink(&out), source.PatternColorBars, frames)

	samples, err := SplitTemporalUnits(out.Bytes())
	require.NoError(t, err)
	require.Len(t, samples, frames)
	assert.True(t, samples[0].Keyframe)

	res, err := DecodeAll(samples)
	require.NoError(t, err)
	require.Len(t, res.Pictures, frames)

	ref, err := source.NewPattern(source.PatternConfig{Width: 160, Height: 96, Frames: 1}).ReadFrame()
	require.NoError(t, err)
	for i, pic := range res.Pictures {
		assert.Equal(t, info.Width, pic.Width)
		assert.Equal(t, info.Height, pic.Height)
		psnr, err := PSNR(ref, pic.Data, pic.Width, pic.Height)
		require.NoError(t, err)
		assert.Greater(t, psnr, 25.0, "picture %d", i)
	}
}

func TestRoundTrip_IVF(t *testing.T) {
	const frames = 12
	var out seekBuffer
	s, err := sink.NewIVFSink(&out, 160, 96, 30, 1)
	require.NoError(t, err)
	encodePattern(t, s, source.PatternMovingBox, frames)

	info, samples, err := ReadIVF(bytes.NewReader(out.buf))
	require.NoError(t, err)
	assert.Equal(t, 160, info.Width)
	require.Len(t, samples, frames)

	res, err := DecodeAll(samples)
	require.NoError(t, err)
	assert.Len(t, res.Pictures, frames)
}

func TestRoundTrip_MP4(t *testing.T) {
	const frames = 16
	var out bytes.Buffer
	s, err := sink.NewMP4Sink(&out, 160, 96, 30, 1)
	require.NoError(t, err)
	encodePattern(t, s, source.PatternCheckerboard, frames)

	_, samples, err := ReadMP4(bytes.NewReader(out.Bytes()))
	require.NoError(t, err)
	require.Len(t, samples, frames)
	assert.True(t, samples[0].Keyframe)

	// MP4 samples carry no temporal delimiters; libaom accepts that.
	res, err := DecodeAll(samples)
	require.NoError(t, err)
	assert.Len(t, res.Pictures, frames)
}
