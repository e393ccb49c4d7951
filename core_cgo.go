//go:build cgo && !nosvtav1

// SvtAv1Enc bindings using CGO.

package svtav1

/*
#cgo pkg-config: SvtAv1Enc

#include <stdlib.h>
#include <svt-av1/EbSvtAv1Enc.h>

static size_t svtav1_config_size(void) { return sizeof(EbSvtAv1EncConfiguration); }
static size_t svtav1_header_size(void) { return sizeof(EbBufferHeaderType); }
*/
import "C"

import (
	"fmt"
	"unsafe"
)

type cgoCore struct{}

func openCore() (core, error) {
	if got := uintptr(C.svtav1_config_size()); got != configurationSize {
		return nil, fmt.Errorf("%w: EbSvtAv1EncConfiguration is %d bytes, bindings expect %d",
			ErrLayoutMismatch, got, configurationSize)
	}
	if got := uintptr(C.svtav1_header_size()); got != bufferHeaderSize {
		return nil, fmt.Errorf("%w: EbBufferHeaderType is %d bytes, bindings expect %d",
			ErrLayoutMismatch, got, bufferHeaderSize)
	}
	return cgoCore{}, nil
}

func cConfig(cfg *Configuration) *C.EbSvtAv1EncConfiguration {
	return (*C.EbSvtAv1EncConfiguration)(unsafe.Pointer(cfg))
}

func cHeader(hdr *bufferHeader) *C.EbBufferHeaderType {
	return (*C.EbBufferHeaderType)(unsafe.Pointer(hdr))
}

func cHandle(h unsafe.Pointer) *C.EbComponentType {
	return (*C.EbComponentType)(h)
}

func (cgoCore) initHandle(cfg *Configuration) (unsafe.Pointer, Status) {
	var h *C.EbComponentType
	res := C.svt_av1_enc_init_handle(&h, nil, cConfig(cfg))
	return unsafe.Pointer(h), Status(res)
}

func (cgoCore) setParameter(h unsafe.Pointer, cfg *Configuration) Status {
	return Status(C.svt_av1_enc_set_parameter(cHandle(h), cConfig(cfg)))
}

func (cgoCore) parseParameter(cfg *Configuration, name, value []byte) Status {
	return Status(C.svt_av1_enc_parse_parameter(
		cConfig(cfg),
		(*C.char)(unsafe.Pointer(&name[0])),
		(*C.char)(unsafe.Pointer(&value[0])),
	))
}

func (cgoCore) initEncoder(h unsafe.Pointer) Status {
	return Status(C.svt_av1_enc_init(cHandle(h)))
}

func (cgoCore) streamHeader(h unsafe.Pointer) (*bufferHeader, Status) {
	var out *C.EbBufferHeaderType
	res := C.svt_av1_enc_stream_header(cHandle(h), &out)
	return (*bufferHeader)(unsafe.Pointer(out)), Status(res)
}

func (cgoCore) releaseStreamHeader(hdr *bufferHeader) Status {
	return Status(C.svt_av1_enc_stream_header_release(cHeader(hdr)))
}

func (cgoCore) sendPicture(h unsafe.Pointer, hdr *bufferHeader) Status {
	return Status(C.svt_av1_enc_send_picture(cHandle(h), cHeader(hdr)))
}

func (cgoCore) getPacket(h unsafe.Pointer, picSendDone uint8) (*bufferHeader, Status) {
	var out *C.EbBufferHeaderType
	res := C.svt_av1_enc_get_packet(cHandle(h), &out, C.uint8_t(picSendDone))
	return (*bufferHeader)(unsafe.Pointer(out)), Status(res)
}

func (cgoCore) releaseOutBuffer(hdr *bufferHeader) {
	p := cHeader(hdr)
	C.svt_av1_enc_release_out_buffer(&p)
}

func (cgoCore) getRecon(h unsafe.Pointer, hdr *bufferHeader) Status {
	return Status(C.svt_av1_get_recon(cHandle(h), cHeader(hdr)))
}

func (cgoCore) getStreamInfo(h unsafe.Pointer, id uint32, info unsafe.Pointer) Status {
	return Status(C.svt_av1_enc_get_stream_info(cHandle(h), C.uint32_t(id), info))
}

func (cgoCore) deinit(h unsafe.Pointer) Status {
	return Status(C.svt_av1_enc_deinit(cHandle(h)))
}

func (cgoCore) deinitHandle(h unsafe.Pointer) Status {
	return Status(C.svt_av1_enc_deinit_handle(cHandle(h)))
}

func (cgoCore) version() string {
	cstr := C.svt_av1_get_version()
	if cstr == nil {
		return ""
	}
	return C.GoString(cstr)
}

func (cgoCore) printVersion() {
	C.svt_av1_print_version()
}
