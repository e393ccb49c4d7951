//go:build cgo && aom

package verify

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_err_t verify_dec_init(aom_codec_ctx_t *ctx) {
    return aom_codec_dec_init(ctx, aom_codec_av1_dx(), NULL, 0);
}

static unsigned char *verify_plane(aom_image_t *img, int plane) { return img->planes[plane]; }
static int verify_stride(aom_image_t *img, int plane) { return img->stride[plane]; }
static unsigned int verify_width(aom_image_t *img) { return img->d_w; }
static unsigned int verify_height(aom_image_t *img) { return img->d_h; }
static int verify_high_depth(aom_image_t *img) { return (img->fmt & AOM_IMG_FMT_HIGHBITDEPTH) != 0; }
static int verify_is_i420(aom_image_t *img) {
    return (img->fmt & ~AOM_IMG_FMT_HIGHBITDEPTH) == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// Available reports whether a decoder is compiled in.
const Available = true

// Decoder decodes AV1 temporal units with libaom.
type Decoder struct {
	ctx    *C.aom_codec_ctx_t
	frames int
}

// NewDecoder initializes a libaom AV1 decoder.
func NewDecoder() (*Decoder, error) {
	ctx := (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if ctx == nil {
		return nil, errors.New("verify: failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(ctx), 0, C.sizeof_aom_codec_ctx_t)
	if res := C.verify_dec_init(ctx); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(ctx))
		return nil, fmt.Errorf("verify: decoder init failed: %s", C.GoString(C.aom_codec_err_to_string(res)))
	}
	return &Decoder{ctx: ctx}, nil
}

// Decode decodes one temporal unit and returns the pictures it shows,
// usually one.
func (d *Decoder) Decode(data []byte) ([]Picture, error) {
	if d.ctx == nil {
		return nil, errors.New("verify: decoder closed")
	}
	if len(data) == 0 {
		return nil, errors.New("verify: empty temporal unit")
	}

	cdata := C.CBytes(data)
	defer C.free(cdata)
	if res := C.aom_codec_decode(d.ctx, (*C.uint8_t)(cdata), C.size_t(len(data)), nil); res != C.AOM_CODEC_OK {
		detail := C.aom_codec_error_detail(d.ctx)
		msg := C.GoString(C.aom_codec_err_to_string(res))
		if detail != nil {
			msg += ": " + C.GoString(detail)
		}
		return nil, fmt.Errorf("verify: decode: %s", msg)
	}

	var pics []Picture
	var iter C.aom_codec_iter_t
	for img := C.aom_codec_get_frame(d.ctx, &iter); img != nil; img = C.aom_codec_get_frame(d.ctx, &iter) {
		pic, err := copyImage(img)
		if err != nil {
			return pics, err
		}
		pics = append(pics, pic)
		d.frames++
	}
	return pics, nil
}

// Frames is the number of pictures decoded so far.
func (d *Decoder) Frames() int { return d.frames }

// Close releases the decoder. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d.ctx != nil {
		C.aom_codec_destroy(d.ctx)
		C.free(unsafe.Pointer(d.ctx))
		d.ctx = nil
	}
	return nil
}

func copyImage(img *C.aom_image_t) (Picture, error) {
	if C.verify_is_i420(img) == 0 || C.verify_high_depth(img) != 0 {
		return Picture{}, errors.New("verify: only 8-bit 4:2:0 output is supported")
	}
	w, h := int(C.verify_width(img)), int(C.verify_height(img))
	cw, ch := (w+1)/2, (h+1)/2

	pic := Picture{Width: w, Height: h, Data: make([]byte, w*h+2*cw*ch)}
	off := 0
	for plane, dims := range [3][2]int{{w, h}, {cw, ch}, {cw, ch}} {
		base := unsafe.Pointer(C.verify_plane(img, C.int(plane)))
		stride := int(C.verify_stride(img, C.int(plane)))
		for row := 0; row < dims[1]; row++ {
			src := unsafe.Slice((*byte)(unsafe.Add(base, row*stride)), dims[0])
			off += copy(pic.Data[off:], src)
		}
	}
	return pic, nil
}
