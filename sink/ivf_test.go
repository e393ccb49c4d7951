package sink

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/svtav1/internal/obu"
)

type ivfFrame struct {
	pts  uint64
	data []byte
}

func readIVF(t *testing.T, b []byte) (hdr []byte, frames []ivfFrame) {
	t.Helper()
	require.GreaterOrEqual(t, len(b), 32)
	hdr = b[:32]
	for off := 32; off < len(b); {
		require.LessOrEqual(t, off+12, len(b))
		size := int(binary.LittleEndian.Uint32(b[off:]))
		pts := binary.LittleEndian.Uint64(b[off+4:])
		off += 12
		require.LessOrEqual(t, off+size, len(b))
		frames = append(frames, ivfFrame{pts: pts, data: b[off : off+size]})
		off += size
	}
	return hdr, frames
}

func TestIVFSink_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ivf")
	f, err := os.Create(path)
	require.NoError(t, err)

	s, err := NewIVFSink(f, 640, 480, 30, 1)
	require.NoError(t, err)

	units := []Unit{testUnit(0, true), testUnit(1, false), testUnit(2, false), testUnit(3, true)}
	for _, u := range units {
		require.NoError(t, s.WriteUnit(u))
	}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "idempotent")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	hdr, frames := readIVF(t, b)

	assert.Equal(t, "DKIF", string(hdr[0:4]))
	assert.Equal(t, "AV01", string(hdr[8:12]))
	assert.Equal(t, uint16(640), binary.LittleEndian.Uint16(hdr[12:]))
	assert.Equal(t, uint16(480), binary.LittleEndian.Uint16(hdr[14:]))
	assert.Equal(t, uint32(30), binary.LittleEndian.Uint32(hdr[16:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(hdr[20:]))
	assert.Equal(t, uint32(len(units)), binary.LittleEndian.Uint32(hdr[24:]))

	require.Len(t, frames, len(units))
	for i, fr := range frames {
		assert.Equal(t, uint64(i), fr.pts)
		assert.True(t, bytes.HasPrefix(fr.data, obu.TemporalDelimiter))
		n, err := obu.CountTemporalUnits(fr.data)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, units[0].Data, frames[0].data)
	assert.NotNil(t, obu.SequenceHeader(frames[3].data))
}

func TestIVFSink_PlainWriter(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewIVFSink(&buf, 1280, 720, 60, 1)
	require.NoError(t, err)
	for i := int64(0); i < 3; i++ {
		require.NoError(t, s.WriteUnit(testUnit(i, i == 0)))
	}
	require.NoError(t, s.Close())

	hdr, frames := readIVF(t, buf.Bytes())
	assert.Equal(t, uint16(1280), binary.LittleEndian.Uint16(hdr[12:]))
	assert.Equal(t, uint16(720), binary.LittleEndian.Uint16(hdr[14:]))
	assert.Equal(t, uint32(60), binary.LittleEndian.Uint32(hdr[16:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(hdr[20:]))
	require.Len(t, frames, 3)
	for i, fr := range frames {
		assert.Equal(t, uint64(i), fr.pts)
	}
}

func TestIVFSink_FractionalRate(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewIVFSink(&buf, 64, 64, 30000, 1001)
	require.NoError(t, err)
	const n = 40
	for i := int64(0); i < n; i++ {
		require.NoError(t, s.WriteUnit(testUnit(i, i == 0)))
	}
	require.NoError(t, s.Close())

	hdr, frames := readIVF(t, buf.Bytes())
	assert.Equal(t, uint32(30000), binary.LittleEndian.Uint32(hdr[16:]))
	assert.Equal(t, uint32(1001), binary.LittleEndian.Uint32(hdr[20:]))
	require.Len(t, frames, n)
	for i, fr := range frames {
		assert.Equal(t, uint64(i), fr.pts)
	}
}

func TestIVFSink_InvalidRate(t *testing.T) {
	_, err := NewIVFSink(&bytes.Buffer{}, 64, 64, 0, 1)
	assert.Error(t, err)
	_, err = NewIVFSink(&bytes.Buffer{}, 64, 64, 1, 2)
	assert.Error(t, err)
	_, err = NewIVFSink(&bytes.Buffer{}, 70000, 64, 30, 1)
	assert.Error(t, err)
}
