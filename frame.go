package svtav1

import "fmt"

// Frame describes one raw picture for SendFrame. It borrows the caller's
// planes: nothing is copied, and the encoder keeps no reference to them once
// SendFrame returns.
//
// Strides are in samples, as the library expects. For 10-bit input each
// sample occupies two bytes.
type Frame struct {
	Luma []byte
	Cb   []byte
	Cr   []byte

	YStride  uint32
	CbStride uint32
	CrStride uint32

	// Size is the total payload size in bytes reported to the library.
	Size uint32
}

// NewFrame builds a Frame from three planes and their strides.
func NewFrame(luma, cb, cr []byte, yStride, cbStride, crStride, size uint32) *Frame {
	return &Frame{
		Luma:     luma,
		Cb:       cb,
		Cr:       cr,
		YStride:  yStride,
		CbStride: cbStride,
		CrStride: crStride,
		Size:     size,
	}
}

// NewI420Frame slices a contiguous 8-bit I420 buffer (Y, then U, then V)
// into a Frame with tight strides.
func NewI420Frame(buf []byte, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("svtav1: invalid I420 dimensions %dx%d", width, height)
	}
	need := I420Size(width, height)
	if len(buf) < need {
		return nil, fmt.Errorf("svtav1: I420 buffer is %d bytes, need %d", len(buf), need)
	}
	cw, ch := chromaDims(width, height)
	ySize := width * height
	cSize := cw * ch
	return &Frame{
		Luma:     buf[:ySize:ySize],
		Cb:       buf[ySize : ySize+cSize : ySize+cSize],
		Cr:       buf[ySize+cSize : need : need],
		YStride:  uint32(width),
		CbStride: uint32(cw),
		CrStride: uint32(cw),
		Size:     uint32(need),
	}, nil
}

// Validate checks that each plane holds at least stride × rows samples for a
// 4:2:0 picture of the given size. SendFrame does not call it.
func (f *Frame) Validate(width, height uint32, depth BitDepth) error {
	if f == nil || len(f.Luma) == 0 {
		return ErrEmptyFrame
	}
	if f.YStride < width {
		return fmt.Errorf("svtav1: luma stride %d below width %d", f.YStride, width)
	}
	cw, ch := chromaDims(int(width), int(height))
	if f.CbStride < uint32(cw) || f.CrStride < uint32(cw) {
		return fmt.Errorf("svtav1: chroma strides %d/%d below width %d", f.CbStride, f.CrStride, cw)
	}

	bps := depth.BytesPerSample()
	planes := []struct {
		name   string
		data   []byte
		stride uint32
		rows   int
	}{
		{"luma", f.Luma, f.YStride, int(height)},
		{"cb", f.Cb, f.CbStride, ch},
		{"cr", f.Cr, f.CrStride, ch},
	}
	for _, p := range planes {
		need := int(p.stride) * p.rows * bps
		if len(p.data) < need {
			return fmt.Errorf("svtav1: %s plane is %d bytes, need %d", p.name, len(p.data), need)
		}
	}
	return nil
}

// I420Size returns the total buffer size needed for an 8-bit I420 frame.
// Odd dimensions round the chroma planes up.
func I420Size(width, height int) int {
	cw, ch := chromaDims(width, height)
	return width*height + 2*cw*ch
}

func chromaDims(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}
