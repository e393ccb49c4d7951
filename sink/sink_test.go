package sink

import (
	"errors"
	"testing"

	av1obu "github.com/pion/rtp/codecs/av1/obu"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/svtav1"
	"github.com/thesyncim/svtav1/internal/obu"
)

// seqHeader640x480 is a main profile, level 4.0, 8-bit 4:2:0 sequence header.
var seqHeader640x480 = []byte{
	0x0A, 0x0B,
	0x00, 0x00, 0x00, 0x42, 0xA5, 0x3F, 0xBB, 0xE0, 0x13, 0xC0, 0x02,
}

func frameOBU(n int, fill byte) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = fill
	}
	o := av1obu.OBU{Header: av1obu.Header{Type: obu.TypeFrame, HasSizeField: true}, Payload: payload}
	return o.Marshal()
}

// testUnit builds a temporal unit; key units carry the sequence header.
func testUnit(pts int64, key bool) Unit {
	data := append([]byte(nil), obu.TemporalDelimiter...)
	if key {
		data = append(data, seqHeader640x480...)
	}
	data = append(data, frameOBU(100+int(pts), byte(pts))...)
	return Unit{Data: data, PTS: pts, Keyframe: key}
}

type memSink struct {
	units  []Unit
	closed int
	err    error
}

func (m *memSink) WriteUnit(u Unit) error {
	if m.err != nil {
		return m.err
	}
	m.units = append(m.units, u)
	return nil
}

func (m *memSink) Close() error {
	m.closed++
	return nil
}

func newTestAssembler(s Sink) *Assembler {
	logger, _ := test.NewNullLogger()
	return NewAssembler(s, logger)
}

func TestAssembler_GroupsByTemporalDelimiter(t *testing.T) {
	ms := &memSink{}
	a := newTestAssembler(ms)

	require.NoError(t, a.add([]byte{1, 2}, svtav1.FlagHasTD, 0, true))
	require.NoError(t, a.add([]byte{3}, 0, 0, false))
	require.NoError(t, a.add([]byte{4}, svtav1.FlagHasTD, 1, false))
	assert.Len(t, ms.units, 1, "second unit still open")

	require.NoError(t, a.add([]byte{5}, svtav1.FlagHasTD|svtav1.FlagEOS, 2, false))
	require.Len(t, ms.units, 3)
	assert.Equal(t, Unit{Data: []byte{1, 2, 3}, PTS: 0, Keyframe: true}, ms.units[0])
	assert.Equal(t, Unit{Data: []byte{4}, PTS: 1}, ms.units[1])
	assert.Equal(t, Unit{Data: []byte{5}, PTS: 2}, ms.units[2])
	assert.Equal(t, 3, a.Units())

	require.NoError(t, a.Close())
	assert.Equal(t, 1, ms.closed)
}

func TestAssembler_EmptyEOS(t *testing.T) {
	ms := &memSink{}
	a := newTestAssembler(ms)

	require.NoError(t, a.add([]byte{1}, svtav1.FlagHasTD, 0, true))
	require.NoError(t, a.add(nil, svtav1.FlagEOS, 0, false))
	require.Len(t, ms.units, 1)

	require.NoError(t, a.add(nil, svtav1.FlagEOS|svtav1.FlagHasTD, 0, false))
	assert.Len(t, ms.units, 1, "empty EOS adds nothing")
}

func TestAssembler_CopiesData(t *testing.T) {
	ms := &memSink{}
	a := newTestAssembler(ms)

	buf := []byte{9, 9}
	require.NoError(t, a.add(buf, svtav1.FlagHasTD, 0, false))
	buf[0] = 0
	require.NoError(t, a.Flush())
	assert.Equal(t, []byte{9, 9}, ms.units[0].Data)
}

func TestAssembler_SinkError(t *testing.T) {
	boom := errors.New("boom")
	a := newTestAssembler(&memSink{err: boom})

	require.NoError(t, a.add([]byte{1}, svtav1.FlagHasTD, 0, false))
	assert.ErrorIs(t, a.add([]byte{2}, svtav1.FlagHasTD, 1, false), boom)
}
