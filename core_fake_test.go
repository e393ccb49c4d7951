package svtav1

import (
	"bytes"
	"strconv"
	"sync"
	"unsafe"
)

// fakeHandle stands in for EbComponentType.
type fakeHandle struct {
	id int
}

type sentPicture struct {
	luma, cb, cr                []byte
	yStride, cbStride, crStride uint32
	size                        uint32
	pts                         int64
	picType                     PictureType
}

// fakeCore is an in-memory encoder core. Each picture becomes one packet
// whose payload is the picture's first luma byte repeated size/64 times.
type fakeCore struct {
	mu sync.Mutex

	calls []string

	initHandleStatus Status
	nilHandle        bool
	setParamStatus   Status
	initStatus       Status
	sendStatus       Status
	deinitStatus     Status

	nextID   int
	live     map[*fakeHandle]bool
	deinits  map[*fakeHandle]int
	handleDe map[*fakeHandle]int

	sent     []sentPicture
	queue    []*bufferHeader
	eosSent  bool
	eosTaken bool

	outstanding    map[*bufferHeader]bool
	released       int
	doubleReleases int
	headerReleased int

	recon []byte
	stats []byte
	// statsIn is the second-pass buffer seen by set_parameter.
	statsIn []byte
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		live:        make(map[*fakeHandle]bool),
		deinits:     make(map[*fakeHandle]int),
		handleDe:    make(map[*fakeHandle]int),
		outstanding: make(map[*bufferHeader]bool),
	}
}

func (f *fakeCore) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeCore) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeCore) initHandle(cfg *Configuration) (unsafe.Pointer, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("init_handle")
	if f.initHandleStatus != StatusNone {
		return nil, f.initHandleStatus
	}
	if f.nilHandle {
		return nil, StatusNone
	}
	*cfg = Configuration{
		EncMode:              DefaultPreset,
		IntraPeriodLength:    -2,
		PredStructure:        PredRandomAccess,
		FrameRateNumerator:   60000,
		FrameRateDenominator: 1000,
		EncoderBitDepth:      BitDepth8,
		EncoderColorFormat:   ColorFormatYUV420,
		QP:                   35,
		MaxQPAllowed:         63,
		MinQPAllowed:         1,
	}
	f.nextID++
	h := &fakeHandle{id: f.nextID}
	f.live[h] = true
	return unsafe.Pointer(h), StatusNone
}

func (f *fakeCore) setParameter(h unsafe.Pointer, cfg *Configuration) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_parameter")
	if cfg.rcStatsBuffer.buf != nil {
		f.statsIn = bytes.Clone(unsafe.Slice((*byte)(cfg.rcStatsBuffer.buf), cfg.rcStatsBuffer.sz))
	}
	return f.setParamStatus
}

func (f *fakeCore) parseParameter(cfg *Configuration, name, value []byte) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("parse_parameter")
	n := string(bytes.TrimSuffix(name, []byte{0}))
	v := string(bytes.TrimSuffix(value, []byte{0}))
	switch n {
	case "qp":
		q, err := strconv.ParseUint(v, 10, 32)
		if err != nil || q > 63 {
			return StatusBadParameter
		}
		cfg.QP = uint32(q)
	case "preset":
		p, err := strconv.ParseInt(v, 10, 8)
		if err != nil {
			return StatusBadParameter
		}
		cfg.EncMode = int8(p)
	case "keyint":
		k, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return StatusBadParameter
		}
		cfg.IntraPeriodLength = int32(k)
	case "pred-struct":
		p, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return StatusBadParameter
		}
		cfg.PredStructure = PredStructure(p)
	case "recon":
		cfg.ReconEnabled = 1
	default:
		return StatusBadParameter
	}
	return StatusNone
}

func (f *fakeCore) initEncoder(h unsafe.Pointer) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("init")
	return f.initStatus
}

func (f *fakeCore) streamHeader(h unsafe.Pointer) (*bufferHeader, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stream_header")
	data := []byte{0x0A, 0x0B, 0x00, 0x00, 0x00, 0x24, 0xC4, 0xFF, 0xDF, 0x00, 0x68, 0x02, 0x10}
	hdr := &bufferHeader{pBuffer: unsafe.Pointer(&data[0]), nFilledLen: uint32(len(data))}
	f.outstanding[hdr] = true
	return hdr, StatusNone
}

func (f *fakeCore) releaseStreamHeader(hdr *bufferHeader) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stream_header_release")
	if !f.outstanding[hdr] {
		f.doubleReleases++
		return StatusBadParameter
	}
	delete(f.outstanding, hdr)
	f.headerReleased++
	return StatusNone
}

func (f *fakeCore) sendPicture(h unsafe.Pointer, hdr *bufferHeader) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("send_picture")
	if f.sendStatus != StatusNone {
		return f.sendStatus
	}
	if PacketFlags(hdr.flags).Has(FlagEOS) {
		f.eosSent = true
		if n := len(f.queue); n > 0 {
			f.queue[n-1].flags |= uint32(FlagEOS)
		} else {
			f.queue = append(f.queue, &bufferHeader{flags: uint32(FlagEOS), picType: PictureInvalid})
		}
		return StatusNone
	}

	in := (*ioFormat)(hdr.pBuffer)
	pic := sentPicture{
		yStride:  in.yStride,
		cbStride: in.cbStride,
		crStride: in.crStride,
		size:     hdr.nFilledLen,
		pts:      hdr.pts,
		picType:  hdr.picType,
	}
	pic.luma = copyPlane(in.luma, int(in.yStride))
	pic.cb = copyPlane(in.cb, int(in.cbStride))
	pic.cr = copyPlane(in.cr, int(in.crStride))
	f.sent = append(f.sent, pic)

	picType := PictureInter
	if hdr.picType == PictureKey || len(f.sent) == 1 {
		picType = PictureKey
	}
	n := int(hdr.nFilledLen)/64 + 1
	var fill byte
	if len(pic.luma) > 0 {
		fill = pic.luma[0]
	}
	data := bytes.Repeat([]byte{fill}, n)
	f.queue = append(f.queue, &bufferHeader{
		pBuffer:    unsafe.Pointer(&data[0]),
		nFilledLen: uint32(n),
		pts:        hdr.pts,
		dts:        int64(len(f.sent) - 1),
		picType:    picType,
		qp:         30,
		flags:      uint32(FlagHasTD),
	})
	f.recon = bytes.Repeat([]byte{fill}, 16)
	return StatusNone
}

// copyPlane copies the first row of a plane.
func copyPlane(p unsafe.Pointer, n int) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return bytes.Clone(unsafe.Slice((*byte)(p), n))
}

func (f *fakeCore) getPacket(h unsafe.Pointer, picSendDone uint8) (*bufferHeader, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_packet")
	if len(f.queue) > 0 {
		hdr := f.queue[0]
		f.queue = f.queue[1:]
		if PacketFlags(hdr.flags).Has(FlagEOS) {
			f.eosTaken = true
		}
		f.outstanding[hdr] = true
		return hdr, StatusNone
	}
	if f.eosTaken {
		return nil, StatusFifoShutdown
	}
	return nil, StatusEmptyQueue
}

func (f *fakeCore) releaseOutBuffer(hdr *bufferHeader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("release_out_buffer")
	if !f.outstanding[hdr] {
		f.doubleReleases++
		return
	}
	delete(f.outstanding, hdr)
	f.released++
}

func (f *fakeCore) getRecon(h unsafe.Pointer, hdr *bufferHeader) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_recon")
	if f.recon == nil {
		return StatusEmptyQueue
	}
	n := copy(unsafe.Slice((*byte)(hdr.pBuffer), hdr.nAllocLen), f.recon)
	hdr.nFilledLen = uint32(n)
	hdr.picType = PictureKey
	f.recon = nil
	return StatusNone
}

func (f *fakeCore) getStreamInfo(h unsafe.Pointer, id uint32, info unsafe.Pointer) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_stream_info")
	if id != streamInfoFirstPassStatsOut {
		return StatusBadParameter
	}
	fb := (*fixedBuf)(info)
	if len(f.stats) > 0 {
		fb.buf = unsafe.Pointer(&f.stats[0])
		fb.sz = uint64(len(f.stats))
	}
	return StatusNone
}

func (f *fakeCore) deinit(h unsafe.Pointer) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("deinit")
	f.deinits[(*fakeHandle)(h)]++
	return f.deinitStatus
}

func (f *fakeCore) deinitHandle(h unsafe.Pointer) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("deinit_handle")
	fh := (*fakeHandle)(h)
	f.handleDe[fh]++
	delete(f.live, fh)
	return StatusNone
}

func (f *fakeCore) version() string { return "v2.3.0-fake" }

func (f *fakeCore) printVersion() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("print_version")
}

// liveHandles is the number of handles not yet freed.
func (f *fakeCore) liveHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// maxTeardowns is the largest number of deinit_handle calls seen for a single handle.
func (f *fakeCore) maxTeardowns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := 0
	for _, n := range f.handleDe {
		m = max(m, n)
	}
	return m
}

func (f *fakeCore) outstandingBuffers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outstanding)
}
