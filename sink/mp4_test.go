package sink

import (
	"bytes"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/svtav1/internal/obu"
)

func TestMP4Sink_Fragments(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewMP4Sink(&buf, 640, 480, 30, 1)
	require.NoError(t, err)

	units := []Unit{
		testUnit(0, true), testUnit(1, false), testUnit(2, false),
		testUnit(3, true), testUnit(4, false),
	}
	for _, u := range units {
		require.NoError(t, s.WriteUnit(u))
	}
	require.NoError(t, s.Close())
	assert.Equal(t, len(units), s.Samples())

	f, err := mp4.DecodeFile(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, f.IsFragmented())
	require.NotNil(t, f.Init)

	trak := f.Init.Moov.Trak
	assert.Equal(t, uint32(30), trak.Mdia.Mdhd.Timescale)
	assert.Equal(t, mp4.Fixed32(640<<16), trak.Tkhd.Width)
	assert.Equal(t, mp4.Fixed32(480<<16), trak.Tkhd.Height)

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil {
		for _, tr := range f.Init.Moov.Mvex.Trexs {
			if tr.TrackID == mp4TrackID {
				trex = tr
			}
		}
	}

	var samples []mp4.FullSample
	var fragments int
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			fragments++
			fs, err := frag.GetFullSamples(trex)
			require.NoError(t, err)
			samples = append(samples, fs...)
		}
	}
	assert.Equal(t, 2, fragments, "one fragment per key frame")
	require.Len(t, samples, len(units))

	for i, smp := range samples {
		assert.Equal(t, uint64(i), smp.DecodeTime)
		assert.Equal(t, uint32(1), smp.Dur)
		assert.Equal(t, units[i].Keyframe, smp.IsSync(), "sample %d", i)
		assert.False(t, bytes.HasPrefix(smp.Data, obu.TemporalDelimiter), "temporal delimiters stripped")
		assert.Equal(t, obu.StripTemporalDelimiters(units[i].Data), smp.Data)
	}
}

func TestMP4Sink_ExplicitSequenceHeader(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewMP4Sink(&buf, 640, 480, 30000, 1001)
	require.NoError(t, err)
	s.SetSequenceHeader(append(append([]byte(nil), obu.TemporalDelimiter...), seqHeader640x480...))

	u := testUnit(0, false)
	require.NoError(t, s.WriteUnit(u))
	require.NoError(t, s.Close())
	assert.True(t, bytes.Contains(buf.Bytes(), []byte("av1C")))
	assert.True(t, bytes.Contains(buf.Bytes(), seqHeader640x480))
}

func TestMP4Sink_NoSequenceHeader(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewMP4Sink(&buf, 640, 480, 30, 1)
	require.NoError(t, err)
	require.NoError(t, s.WriteUnit(testUnit(0, false)))
	assert.ErrorIs(t, s.Close(), ErrNoSequenceHeader)
}

func TestMP4Sink_InvalidRate(t *testing.T) {
	_, err := NewMP4Sink(&bytes.Buffer{}, 64, 64, 30, 0)
	assert.Error(t, err)
}
