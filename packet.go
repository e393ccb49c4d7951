package svtav1

import (
	"fmt"
	"io"
	"strings"
	"unsafe"
)

// PacketFlags are the buffer flags of an output packet.
type PacketFlags uint32

const (
	FlagEOS          PacketFlags = 1 << 0 // last packet of the stream
	FlagShowExisting PacketFlags = 1 << 1 // show-existing-frame header only
	FlagHasTD        PacketFlags = 1 << 2 // starts with a temporal delimiter
	FlagIsAltRef     PacketFlags = 1 << 3
	FlagErrorMask    PacketFlags = 0xFFFFFFF0
)

// Has reports whether all bits of flag are set.
func (f PacketFlags) Has(flag PacketFlags) bool {
	return f&flag == flag
}

func (f PacketFlags) String() string {
	var parts []string
	if f.Has(FlagEOS) {
		parts = append(parts, "EOS")
	}
	if f.Has(FlagShowExisting) {
		parts = append(parts, "ShowExisting")
	}
	if f.Has(FlagHasTD) {
		parts = append(parts, "HasTD")
	}
	if f.Has(FlagIsAltRef) {
		parts = append(parts, "AltRef")
	}
	if rest := f & FlagErrorMask; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%X", uint32(rest)))
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// PictureType is the AV1 picture type of a packet or a forced input frame.
type PictureType uint32

const (
	PictureInter        PictureType = 0
	PictureAltRef       PictureType = 1
	PictureIntraOnly    PictureType = 2
	PictureKey          PictureType = 3
	PictureNonRef       PictureType = 4
	PictureFwKey        PictureType = 5
	PictureShowExisting PictureType = 6
	PictureSwitch       PictureType = 7
	// PictureInvalid on input lets the encoder choose.
	PictureInvalid PictureType = 0xFF
)

func (t PictureType) String() string {
	switch t {
	case PictureInter:
		return "Inter"
	case PictureAltRef:
		return "AltRef"
	case PictureIntraOnly:
		return "IntraOnly"
	case PictureKey:
		return "Key"
	case PictureNonRef:
		return "NonRef"
	case PictureFwKey:
		return "FwKey"
	case PictureShowExisting:
		return "ShowExisting"
	case PictureSwitch:
		return "Switch"
	case PictureInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("PictureType(%d)", uint32(t))
	}
}

type packetKind int

const (
	kindOutput packetKind = iota
	kindStreamHeader
)

// noCopy makes go vet's copylocks check flag copies of Packet.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Packet is one encoded output buffer. Its bytes live in library memory until
// Release is called; Data is valid only until then. Use Bytes for a copy that
// outlives the packet.
//
// Packets belong to the Encoder that produced them. Encoder.Close releases
// any packet still outstanding, so a Packet never outlives its session.
type Packet struct {
	noCopy noCopy

	owner *Encoder
	hdr   *bufferHeader
	kind  packetKind

	Flags       PacketFlags
	PTS         int64
	DTS         int64
	PictureType PictureType
	QP          uint32
}

func newPacket(owner *Encoder, hdr *bufferHeader, kind packetKind) *Packet {
	return &Packet{
		owner:       owner,
		hdr:         hdr,
		kind:        kind,
		Flags:       PacketFlags(hdr.flags),
		PTS:         hdr.pts,
		DTS:         hdr.dts,
		PictureType: hdr.picType,
		QP:          hdr.qp,
	}
}

// Data returns the encoded bytes without copying. The slice is read-only and
// must not be used after Release. It is nil once the packet is released.
func (p *Packet) Data() []byte {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	return p.dataLocked()
}

func (p *Packet) dataLocked() []byte {
	if p.hdr == nil || p.hdr.pBuffer == nil || p.hdr.nFilledLen == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p.hdr.pBuffer), p.hdr.nFilledLen)
}

// Bytes returns a copy of the encoded bytes, or nil after Release.
func (p *Packet) Bytes() []byte {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	data := p.dataLocked()
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// Len is the payload size in bytes, 0 after Release.
func (p *Packet) Len() int {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	if p.hdr == nil {
		return 0
	}
	return int(p.hdr.nFilledLen)
}

// WriteTo writes the payload to w.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	if p.hdr == nil {
		return 0, ErrPacketReleased
	}
	n, err := w.Write(p.dataLocked())
	return int64(n), err
}

// IsKeyframe reports whether the packet carries a key frame.
func (p *Packet) IsKeyframe() bool {
	return p.PictureType == PictureKey
}

// IsEOS reports whether this is the final packet of the stream.
func (p *Packet) IsEOS() bool {
	return p.Flags.Has(FlagEOS)
}

// Released reports whether Release has been called.
func (p *Packet) Released() bool {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	return p.hdr == nil
}

// Release returns the buffer to the library. Only the first call has an
// effect. Release may be called from any goroutine.
func (p *Packet) Release() {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	p.owner.releaseLocked(p)
}
