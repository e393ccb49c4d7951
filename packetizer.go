package svtav1

import (
	"math"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/thesyncim/svtav1/internal/obu"
)

// DefaultMTU is used when NewPacketizer is given an MTU too small for a
// header or too large for a 16-bit payload size.
const DefaultMTU = 1200

const maxMTU = rtpHeaderSize + math.MaxUint16

// VideoClockRate is the RTP clock rate of the AV1 payload format.
const VideoClockRate = 90000

const rtpHeaderSize = 12

// Packetizer converts encoder output into RTP packets using pion's
// AV1Payloader. It is safe for concurrent use.
type Packetizer struct {
	ssrc        uint32
	payloadType uint8
	mtu         int
	sequencer   rtp.Sequencer
	clockRate   uint32
	payloader   *codecs.AV1Payloader
	fpsNum      uint32
	fpsDen      uint32
	mu          sync.Mutex
}

// NewPacketizer creates an AV1 RTP packetizer. Timestamps assume 30 fps
// until SetFrameRate is called.
func NewPacketizer(ssrc uint32, payloadType uint8, mtu int) *Packetizer {
	if mtu <= rtpHeaderSize || mtu > maxMTU {
		mtu = DefaultMTU
	}
	return &Packetizer{
		ssrc:        ssrc,
		payloadType: payloadType,
		mtu:         mtu,
		sequencer:   rtp.NewRandomSequencer(),
		clockRate:   VideoClockRate,
		payloader:   &codecs.AV1Payloader{},
		fpsNum:      30,
		fpsDen:      1,
	}
}

// SetFrameRate sets the rate used to convert presentation timestamps
// (frame counts) into RTP timestamps. Zero values are ignored.
func (p *Packetizer) SetFrameRate(num, den uint32) {
	if num == 0 || den == 0 {
		return
	}
	p.mu.Lock()
	p.fpsNum, p.fpsDen = num, den
	p.mu.Unlock()
}

// Timestamp converts a presentation timestamp in frames to RTP clock units.
func (p *Packetizer) Timestamp(pts int64) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint32(pts * int64(p.clockRate) * int64(p.fpsDen) / int64(p.fpsNum))
}

// Packetize splits one temporal unit into RTP packets sharing timestamp ts.
// The marker bit is set on the last packet.
func (p *Packetizer) Packetize(data []byte, ts uint32) []*rtp.Packet {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	payloads := p.payloader.Payload(uint16(p.mtu-rtpHeaderSize), data)
	if len(payloads) == 0 {
		return nil
	}

	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      ts,
				SSRC:           p.ssrc,
			},
			Payload: payload,
		}
	}
	return packets
}

// PacketizePacket packetizes an encoder packet using its PTS. The packet
// is not released.
func (p *Packetizer) PacketizePacket(pkt *Packet) ([]*rtp.Packet, error) {
	if pkt.Released() {
		return nil, ErrPacketReleased
	}
	return p.Packetize(pkt.Data(), p.Timestamp(pkt.PTS)), nil
}

func (p *Packetizer) SSRC() uint32       { p.mu.Lock(); defer p.mu.Unlock(); return p.ssrc }
func (p *Packetizer) PayloadType() uint8 { p.mu.Lock(); defer p.mu.Unlock(); return p.payloadType }
func (p *Packetizer) MTU() int           { p.mu.Lock(); defer p.mu.Unlock(); return p.mtu }

// Depacketizer reassembles temporal units from AV1 RTP packets. Output
// OBUs always carry size fields and each unit starts with a temporal
// delimiter, so it can be fed to a decoder or written to IVF directly.
type Depacketizer struct {
	av1       codecs.AV1Depacketizer
	buf       []byte
	seqHeader []byte
	timestamp uint32
	started   bool
	keyframe  bool
	lastSeq   uint16
	haveSeq   bool
	// dropping is set after a sequence gap until the damaged unit ends.
	dropping bool
	mu       sync.Mutex
}

// DepacketizedUnit is one reassembled temporal unit.
type DepacketizedUnit struct {
	Data      []byte
	Timestamp uint32
	// Keyframe reports that the unit starts a new coded video sequence.
	Keyframe bool
}

func NewDepacketizer() *Depacketizer {
	return &Depacketizer{}
}

// Depacketize consumes one RTP packet and returns a complete unit when the
// packet carries the marker bit. Corrupt payloads are dropped. A gap in
// sequence numbers discards the unit being assembled; packets are then
// skipped until the next unit begins.
func (d *Depacketizer) Depacketize(pkt *rtp.Packet) *DepacketizedUnit {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.haveSeq && pkt.SequenceNumber != d.lastSeq+1 {
		d.discard()
		d.dropping = true
	}
	d.lastSeq = pkt.SequenceNumber
	d.haveSeq = true

	if d.dropping {
		if d.started && pkt.Timestamp == d.timestamp {
			if pkt.Marker {
				d.dropping = false
				d.started = false
			}
			return nil
		}
		d.dropping = false
	}

	if len(pkt.Payload) == 0 {
		return nil
	}
	if d.started && d.timestamp != pkt.Timestamp {
		d.discard()
	}
	d.timestamp = pkt.Timestamp
	d.started = true

	obus, err := d.av1.Unmarshal(pkt.Payload)
	if err != nil {
		return nil
	}
	if d.av1.N {
		d.keyframe = true
	}
	d.buf = append(d.buf, obus...)

	if !pkt.Marker {
		return nil
	}

	if seq := obu.SequenceHeader(d.buf); seq != nil {
		d.seqHeader = append(d.seqHeader[:0], seq...)
	}
	out := make([]byte, 0, len(obu.TemporalDelimiter)+len(d.seqHeader)+len(d.buf))
	out = append(out, obu.TemporalDelimiter...)
	if !d.keyframe && d.seqHeader != nil && obu.SequenceHeader(d.buf) == nil {
		out = append(out, d.seqHeader...)
	}
	out = append(out, d.buf...)

	unit := &DepacketizedUnit{Data: out, Timestamp: d.timestamp, Keyframe: d.keyframe}
	d.buf = d.buf[:0]
	d.keyframe = false
	return unit
}

// discard drops the partial unit, including an OBU fragment held by the
// payload depacketizer.
func (d *Depacketizer) discard() {
	d.buf = d.buf[:0]
	d.keyframe = false
	d.av1 = codecs.AV1Depacketizer{}
}

// Reset drops any partially assembled unit and the cached sequence header.
func (d *Depacketizer) Reset() {
	d.mu.Lock()
	d.discard()
	d.seqHeader = nil
	d.started = false
	d.haveSeq = false
	d.dropping = false
	d.mu.Unlock()
}
