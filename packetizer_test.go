package svtav1

import (
	"testing"

	"github.com/pion/rtp"
	av1obu "github.com/pion/rtp/codecs/av1/obu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/svtav1/internal/obu"
)

func sizedOBU(t obu.Type, payload []byte) []byte {
	o := av1obu.OBU{Header: av1obu.Header{Type: t, HasSizeField: true}, Payload: payload}
	return o.Marshal()
}

func temporalUnit(seq bool, frameLen int, fill byte) []byte {
	out := append([]byte(nil), obu.TemporalDelimiter...)
	if seq {
		out = append(out, sizedOBU(obu.TypeSequenceHeader, []byte{0x00, 0x00, 0x00, 0x24, 0xC4})...)
	}
	frame := make([]byte, frameLen)
	for i := range frame {
		frame[i] = fill
	}
	return append(out, sizedOBU(obu.TypeFrame, frame)...)
}

func TestPacketizer_Packetize(t *testing.T) {
	p := NewPacketizer(12345, 96, 1200)
	assert.Equal(t, uint32(12345), p.SSRC())
	assert.Equal(t, uint8(96), p.PayloadType())
	assert.Equal(t, 1200, p.MTU())

	packets := p.Packetize(temporalUnit(true, 5000, 7), 90000)
	require.Greater(t, len(packets), 1)

	for i, pkt := range packets {
		assert.Equal(t, uint32(12345), pkt.SSRC)
		assert.Equal(t, uint8(96), pkt.PayloadType)
		assert.Equal(t, uint32(90000), pkt.Timestamp)
		assert.LessOrEqual(t, len(pkt.Payload), 1200-rtpHeaderSize)
		assert.Equal(t, i == len(packets)-1, pkt.Marker, "marker only on the last packet")
		if i > 0 {
			assert.Equal(t, packets[i-1].SequenceNumber+1, pkt.SequenceNumber)
		}
	}

	assert.Nil(t, p.Packetize(nil, 0))
}

func TestPacketizer_Defaults(t *testing.T) {
	p := NewPacketizer(1, 96, 0)
	assert.Equal(t, DefaultMTU, p.MTU())

	// Payload sizes are 16-bit; larger MTUs would wrap.
	assert.Equal(t, DefaultMTU, NewPacketizer(1, 96, 70000).MTU())
	assert.Equal(t, 65547, NewPacketizer(1, 96, 65547).MTU())
}

func TestPacketizer_Timestamp(t *testing.T) {
	p := NewPacketizer(1, 96, 1200)
	assert.Equal(t, uint32(3000), p.Timestamp(1), "30 fps by default")

	p.SetFrameRate(30000, 1001)
	assert.Equal(t, uint32(3003), p.Timestamp(1))
	assert.Equal(t, uint32(90090), p.Timestamp(30))

	p.SetFrameRate(0, 1)
	assert.Equal(t, uint32(3003), p.Timestamp(1), "zero rate ignored")
}

func TestPacketizer_PacketizePacket(t *testing.T) {
	fc := newFakeCore()
	enc := newTestEncoder(t, fc, 64, 64)
	require.NoError(t, enc.SendFrame(testFrame(t, 64, 64, 9), WithPTS(2)))

	pkt, err := enc.GetPacket(false)
	require.NoError(t, err)

	p := NewPacketizer(1, 96, 1200)
	rtpPackets, err := p.PacketizePacket(pkt)
	require.NoError(t, err)
	for _, rp := range rtpPackets {
		assert.Equal(t, uint32(6000), rp.Timestamp)
	}

	pkt.Release()
	_, err = p.PacketizePacket(pkt)
	assert.ErrorIs(t, err, ErrPacketReleased)
}

func TestDepacketizer_RoundTrip(t *testing.T) {
	p := NewPacketizer(1, 96, 500)
	d := NewDepacketizer()

	depacketize := func(packets []*rtp.Packet) *DepacketizedUnit {
		var unit *DepacketizedUnit
		for _, pkt := range packets {
			if u := d.Depacketize(pkt); u != nil {
				require.Nil(t, unit, "one unit per marker")
				unit = u
			}
		}
		require.NotNil(t, unit)
		return unit
	}

	key := temporalUnit(true, 3000, 1)
	unit := depacketize(p.Packetize(key, 0))
	assert.True(t, unit.Keyframe)
	assert.Equal(t, key, unit.Data)

	delta := temporalUnit(false, 800, 2)
	unit = depacketize(p.Packetize(delta, 3000))
	assert.False(t, unit.Keyframe)
	assert.Equal(t, uint32(3000), unit.Timestamp)

	// The cached sequence header is repeated ahead of delta units.
	units, err := obu.Parse(unit.Data)
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, obu.TypeTemporalDelimiter, units[0].Type)
	assert.Equal(t, obu.TypeSequenceHeader, units[1].Type)
	assert.Equal(t, obu.TypeFrame, units[2].Type)
	assert.Len(t, units[2].Payload, 800)

	d.Reset()
	unit = depacketize(p.Packetize(delta, 6000))
	assert.Nil(t, obu.SequenceHeader(unit.Data), "reset drops the cached header")
}

func TestDepacketizer_SequenceGap(t *testing.T) {
	p := NewPacketizer(1, 96, 300)
	d := NewDepacketizer()

	first := p.Packetize(temporalUnit(true, 2000, 1), 0)
	require.Greater(t, len(first), 3)
	for i, pkt := range first {
		if i == 2 {
			continue
		}
		assert.Nil(t, d.Depacketize(pkt), "packet %d", i)
	}

	// The next unit is delivered whole.
	next := temporalUnit(false, 500, 2)
	var unit *DepacketizedUnit
	for _, pkt := range p.Packetize(next, 3000) {
		if u := d.Depacketize(pkt); u != nil {
			unit = u
		}
	}
	require.NotNil(t, unit)
	assert.Equal(t, uint32(3000), unit.Timestamp)
	units, err := obu.Parse(unit.Data)
	require.NoError(t, err)
	assert.Equal(t, obu.TypeFrame, units[len(units)-1].Type)
	assert.Len(t, units[len(units)-1].Payload, 500)
}

func TestDepacketizer_LostMarker(t *testing.T) {
	p := NewPacketizer(1, 96, 300)
	d := NewDepacketizer()

	first := p.Packetize(temporalUnit(true, 1000, 1), 0)
	for _, pkt := range first[:len(first)-1] {
		assert.Nil(t, d.Depacketize(pkt))
	}

	second := temporalUnit(false, 400, 2)
	var unit *DepacketizedUnit
	for _, pkt := range p.Packetize(second, 3000) {
		if u := d.Depacketize(pkt); u != nil {
			require.Nil(t, unit)
			unit = u
		}
	}
	require.NotNil(t, unit)
	assert.Equal(t, uint32(3000), unit.Timestamp)
	assert.Nil(t, obu.SequenceHeader(unit.Data), "header of the incomplete unit is not cached")
}

func TestDepacketizer_IgnoresEmpty(t *testing.T) {
	d := NewDepacketizer()
	assert.Nil(t, d.Depacketize(&rtp.Packet{Header: rtp.Header{Marker: true}}))
}
