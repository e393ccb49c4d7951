package svtav1

import (
	"sync"
	"unsafe"
)

// core is the native boundary: one method per SVT-AV1 encoder entry point.
// The cgo and purego builds provide real implementations; tests substitute a
// fake. Handles and output headers returned by a core point to memory owned
// by the library.
type core interface {
	initHandle(cfg *Configuration) (unsafe.Pointer, Status)
	setParameter(h unsafe.Pointer, cfg *Configuration) Status
	// parseParameter expects NUL-terminated name and value.
	parseParameter(cfg *Configuration, name, value []byte) Status
	initEncoder(h unsafe.Pointer) Status
	streamHeader(h unsafe.Pointer) (*bufferHeader, Status)
	releaseStreamHeader(hdr *bufferHeader) Status
	sendPicture(h unsafe.Pointer, hdr *bufferHeader) Status
	getPacket(h unsafe.Pointer, picSendDone uint8) (*bufferHeader, Status)
	releaseOutBuffer(hdr *bufferHeader)
	getRecon(h unsafe.Pointer, hdr *bufferHeader) Status
	getStreamInfo(h unsafe.Pointer, id uint32, info unsafe.Pointer) Status
	deinit(h unsafe.Pointer) Status
	deinitHandle(h unsafe.Pointer) Status
	version() string
	printVersion()
}

// bufferHeader mirrors EbBufferHeaderType.
type bufferHeader struct {
	size        uint32
	pBuffer     unsafe.Pointer
	nFilledLen  uint32
	nAllocLen   uint32
	pAppPrivate unsafe.Pointer
	wrapperPtr  unsafe.Pointer
	nTickCount  uint32
	dts         int64
	pts         int64
	qp          uint32
	picType     PictureType
	lumaSSE     uint64
	crSSE       uint64
	cbSSE       uint64
	flags       uint32
	lumaSSIM    float64
	crSSIM      float64
	cbSSIM      float64
	metadata    unsafe.Pointer
}

// ioFormat mirrors EbSvtIOFormat.
type ioFormat struct {
	luma     unsafe.Pointer
	cb       unsafe.Pointer
	cr       unsafe.Pointer
	yStride  uint32
	crStride uint32
	cbStride uint32
	width    uint32
	height   uint32
	orgX     uint32
	orgY     uint32
	colorFmt ColorFormat
	bitDepth BitDepth
}

const bufferHeaderSize = unsafe.Sizeof(bufferHeader{})

// Stream info identifiers for get-stream-info.
const streamInfoFirstPassStatsOut uint32 = 1

var (
	coreOnce sync.Once
	coreImpl core
	coreErr  error
)

// loadCore returns the process-wide native core, loading it on first use.
func loadCore() (core, error) {
	coreOnce.Do(func() {
		coreImpl, coreErr = openCore()
	})
	return coreImpl, coreErr
}

// Available reports whether the SvtAv1Enc library could be loaded.
func Available() bool {
	_, err := loadCore()
	return err == nil
}

// LoadError returns the reason the library is unavailable, or nil.
func LoadError() error {
	_, err := loadCore()
	return err
}

// Version returns the library version string, or "" if it is unavailable.
func Version() string {
	c, err := loadCore()
	if err != nil {
		return ""
	}
	return c.version()
}

// PrintVersion writes the library version banner to the library's log
// destination (SVT_LOG_FILE or stderr).
func PrintVersion() {
	if c, err := loadCore(); err == nil {
		c.printVersion()
	}
}
