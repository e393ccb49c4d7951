package svtav1

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// ErrBufferTooSmall is returned by GetRecon when dst cannot hold a picture.
var ErrBufferTooSmall = errors.New("svtav1: buffer too small")

// SessionState is the observable phase of an encoder session. It is tracked
// for inspection only; the encoder does not refuse calls based on it.
type SessionState int

const (
	StateReady    SessionState = iota // accepting frames
	StateDraining                     // end of stream sent, packets pending
	StateTerminal                     // every packet delivered
	StateClosed                       // native resources released
)

func (s SessionState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateDraining:
		return "Draining"
	case StateTerminal:
		return "Terminal"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// EncoderStats provides encoding counters.
type EncoderStats struct {
	FramesSent        uint64 // pictures accepted by SendFrame
	PacketsReceived   uint64 // packets returned by GetPacket
	KeyframesReceived uint64
	BytesReceived     uint64
}

// ReconFrame is a reconstructed picture copied into a caller buffer.
type ReconFrame struct {
	Data        []byte
	PTS         int64
	PictureType PictureType
	Flags       PacketFlags
}

type sendOptions struct {
	pts      int64
	hasPTS   bool
	keyframe bool
}

// SendOption modifies a single SendFrame call.
type SendOption func(*sendOptions)

// WithPTS sets the presentation timestamp of the frame. Without it the
// library's default (zero) is sent.
func WithPTS(pts int64) SendOption {
	return func(o *sendOptions) {
		o.pts = pts
		o.hasPTS = true
	}
}

// WithKeyframe forces the frame to be coded as a key frame.
func WithKeyframe() SendOption {
	return func(o *sendOptions) {
		o.keyframe = true
	}
}

// Encoder is an initialized SVT-AV1 encoder session.
//
// An Encoder is not safe for concurrent use, with one exception: Packet
// methods, including Release, may be called from other goroutines. Close
// must be called to release the native encoder; it also releases every
// packet not yet released.
type Encoder struct {
	core   core
	handle *componentHandle
	config Configuration
	log    logrus.FieldLogger

	// mu guards the packet registry and the handle during Close.
	mu      sync.Mutex
	packets map[*Packet]struct{}

	state       SessionState
	stats       EncoderStats
	keyframeReq atomic.Bool

	statsPin *runtime.Pinner
}

func newEncoder(c core, h *componentHandle, cfg Configuration, log logrus.FieldLogger) *Encoder {
	return &Encoder{
		core:    c,
		handle:  h,
		config:  cfg,
		log:     log,
		packets: make(map[*Packet]struct{}),
	}
}

// Config returns the configuration the encoder was initialized with.
func (e *Encoder) Config() Configuration {
	return e.config
}

// State returns the current session phase.
func (e *Encoder) State() SessionState {
	return e.state
}

// Stats returns the session counters.
func (e *Encoder) Stats() EncoderStats {
	return e.stats
}

// RequestKeyframe forces the next frame passed to SendFrame to be a key frame.
func (e *Encoder) RequestKeyframe() {
	e.keyframeReq.Store(true)
}

func (e *Encoder) closed() bool {
	return !e.handle.valid()
}

// SendFrame submits one picture. The planes are read during the call only.
func (e *Encoder) SendFrame(f *Frame, opts ...SendOption) error {
	if e.closed() {
		return ErrEncoderClosed
	}
	if f == nil || len(f.Luma) == 0 {
		return ErrEmptyFrame
	}
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	in := &ioFormat{
		luma:     pinPlane(&pinner, f.Luma),
		cb:       pinPlane(&pinner, f.Cb),
		cr:       pinPlane(&pinner, f.Cr),
		yStride:  f.YStride,
		crStride: f.CrStride,
		cbStride: f.CbStride,
	}
	pinner.Pin(in)

	hdr := &bufferHeader{
		size:       uint32(bufferHeaderSize),
		pBuffer:    unsafe.Pointer(in),
		nFilledLen: f.Size,
		picType:    PictureInvalid,
	}
	if o.hasPTS {
		hdr.pts = o.pts
	}
	if e.keyframeReq.Swap(false) || o.keyframe {
		hdr.picType = PictureKey
	}

	if err := statusErr("send_picture", e.core.sendPicture(e.handle.ptr, hdr)); err != nil {
		return err
	}
	e.stats.FramesSent++
	return nil
}

func pinPlane(p *runtime.Pinner, plane []byte) unsafe.Pointer {
	if len(plane) == 0 {
		return nil
	}
	p.Pin(&plane[0])
	return unsafe.Pointer(&plane[0])
}

// SendEOS signals end of stream. Remaining packets are then retrieved with
// GetPacket(true) or Drain.
func (e *Encoder) SendEOS() error {
	if e.closed() {
		return ErrEncoderClosed
	}
	hdr := &bufferHeader{
		size:    uint32(bufferHeaderSize),
		flags:   uint32(FlagEOS),
		picType: PictureInvalid,
	}
	if err := statusErr("send_picture", e.core.sendPicture(e.handle.ptr, hdr)); err != nil {
		return err
	}
	e.state = StateDraining
	e.log.WithField("frames", e.stats.FramesSent).Debug("svtav1: end of stream sent")
	return nil
}

// GetPacket retrieves the next encoded packet.
//
// The call blocks when picSendDone is true or the prediction structure is
// low delay. Otherwise it returns immediately with an error satisfying
// IsEmptyQueue when nothing is ready. After the last packet the library
// reports shutdown, detectable with IsShutdown.
func (e *Encoder) GetPacket(picSendDone bool) (*Packet, error) {
	if e.closed() {
		return nil, ErrEncoderClosed
	}
	var done uint8
	if picSendDone {
		done = 1
	}

	hdr, st := e.core.getPacket(e.handle.ptr, done)
	if st != StatusNone {
		if st == StatusFifoShutdown && e.state != StateTerminal {
			e.state = StateTerminal
			e.log.WithField("packets", e.stats.PacketsReceived).Debug("svtav1: encoder shut down")
		}
		return nil, &CallError{Op: "get_packet", Status: st}
	}
	if hdr == nil {
		return nil, &CallError{Op: "get_packet", Status: StatusUndefined}
	}

	p := newPacket(e, hdr, kindOutput)
	e.mu.Lock()
	e.packets[p] = struct{}{}
	e.mu.Unlock()

	e.stats.PacketsReceived++
	e.stats.BytesReceived += uint64(hdr.nFilledLen)
	if p.IsKeyframe() {
		e.stats.KeyframesReceived++
	}
	if p.IsEOS() {
		e.state = StateTerminal
	}
	return p, nil
}

// Drain blocks for every remaining packet and passes each to fn. The packet
// is released when fn returns, so fn must copy anything it keeps. Drain
// returns nil once the stream is complete, or the first error from fn.
func (e *Encoder) Drain(fn func(*Packet) error) error {
	for {
		p, err := e.GetPacket(true)
		if err != nil {
			if IsShutdown(err) {
				return nil
			}
			return err
		}
		err = fn(p)
		eos := p.IsEOS()
		p.Release()
		if err != nil {
			return err
		}
		if eos {
			return nil
		}
	}
}

// StreamHeader returns the sequence header OBUs for out-of-band signalling
// (codec configuration records, SDP). Release it like any other packet.
func (e *Encoder) StreamHeader() (*Packet, error) {
	if e.closed() {
		return nil, ErrEncoderClosed
	}
	hdr, st := e.core.streamHeader(e.handle.ptr)
	if err := statusErr("stream_header", st); err != nil {
		return nil, err
	}
	if hdr == nil {
		return nil, &CallError{Op: "stream_header", Status: StatusUndefined}
	}
	p := newPacket(e, hdr, kindStreamHeader)
	e.mu.Lock()
	e.packets[p] = struct{}{}
	e.mu.Unlock()
	return p, nil
}

// ReconSize is the buffer size GetRecon needs for one picture.
func (e *Encoder) ReconSize() int {
	w, h := int(e.config.SourceWidth), int(e.config.SourceHeight)
	cw, ch := chromaDims(w, h)
	var n int
	switch e.config.EncoderColorFormat {
	case ColorFormatYUV400:
		n = w * h
	case ColorFormatYUV422:
		n = w*h + 2*cw*h
	case ColorFormatYUV444:
		n = 3 * w * h
	default:
		n = w*h + 2*cw*ch
	}
	return n * e.config.EncoderBitDepth.BytesPerSample()
}

// GetRecon copies the next reconstructed picture into dst. It requires
// ReconEnabled in the configuration and never blocks: an error satisfying
// IsEmptyQueue means no picture is ready.
func (e *Encoder) GetRecon(dst []byte) (*ReconFrame, error) {
	if e.closed() {
		return nil, ErrEncoderClosed
	}
	if need := e.ReconSize(); len(dst) < need {
		return nil, fmt.Errorf("%w: recon needs %d bytes, got %d", ErrBufferTooSmall, need, len(dst))
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	hdr := &bufferHeader{
		size:      uint32(bufferHeaderSize),
		pBuffer:   pinPlane(&pinner, dst),
		nAllocLen: uint32(len(dst)),
	}
	if err := statusErr("get_recon", e.core.getRecon(e.handle.ptr, hdr)); err != nil {
		return nil, err
	}
	return &ReconFrame{
		Data:        dst[:hdr.nFilledLen],
		PTS:         hdr.pts,
		PictureType: hdr.picType,
		Flags:       PacketFlags(hdr.flags),
	}, nil
}

// FirstPassStats returns a copy of the first-pass statistics of a two-pass
// encode. Call it after the stream is drained.
func (e *Encoder) FirstPassStats() ([]byte, error) {
	if e.closed() {
		return nil, ErrEncoderClosed
	}
	var buf fixedBuf
	st := e.core.getStreamInfo(e.handle.ptr, streamInfoFirstPassStatsOut, unsafe.Pointer(&buf))
	if err := statusErr("get_stream_info", st); err != nil {
		return nil, err
	}
	if buf.buf == nil || buf.sz == 0 {
		return nil, nil
	}
	out := make([]byte, buf.sz)
	copy(out, unsafe.Slice((*byte)(buf.buf), buf.sz))
	return out, nil
}

// Close releases outstanding packets, then deinitializes the encoder and
// frees the handle. It is safe to call more than once and in any state.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed() {
		return nil
	}
	outstanding := len(e.packets)
	for p := range e.packets {
		e.releaseLocked(p)
	}
	err := e.handle.teardown()
	e.state = StateClosed
	if e.statsPin != nil {
		e.statsPin.Unpin()
		e.statsPin = nil
	}

	e.log.WithFields(logrus.Fields{
		"frames":      e.stats.FramesSent,
		"packets":     e.stats.PacketsReceived,
		"outstanding": outstanding,
	}).Debug("svtav1: encoder closed")
	return err
}

// releaseLocked returns p's buffer to the library. e.mu must be held.
func (e *Encoder) releaseLocked(p *Packet) {
	if p.hdr == nil {
		return
	}
	switch p.kind {
	case kindStreamHeader:
		if st := e.core.releaseStreamHeader(p.hdr); st != StatusNone {
			e.log.WithField("status", st).Warn("svtav1: stream header release failed")
		}
	default:
		e.core.releaseOutBuffer(p.hdr)
	}
	p.hdr = nil
	delete(e.packets, p)
}
