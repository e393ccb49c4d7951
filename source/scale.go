package source

import (
	"fmt"
	"strings"
)

// ScaleMode defines how scaling handles aspect ratio mismatches.
type ScaleMode int

const (
	// ScaleModeStretch scales to exactly match target dimensions (may distort).
	ScaleModeStretch ScaleMode = iota
	// ScaleModeFit scales to fit within target dimensions, preserving aspect ratio (letterbox).
	ScaleModeFit
	// ScaleModeFill scales to fill target dimensions, preserving aspect ratio (crop).
	ScaleModeFill
)

func (m ScaleMode) String() string {
	switch m {
	case ScaleModeFit:
		return "fit"
	case ScaleModeFill:
		return "fill"
	default:
		return "stretch"
	}
}

// ParseScaleMode accepts stretch, fit or fill.
func ParseScaleMode(s string) (ScaleMode, error) {
	for m := ScaleModeStretch; m <= ScaleModeFill; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown scale mode %q", s)
}

type rect struct{ x, y, w, h int }

// Scaler resizes the pictures of another Reader with bilinear filtering.
type Scaler struct {
	src  Reader
	in   Info
	out  Info
	mode ScaleMode

	srcRect rect // region of the source that is sampled
	dstRect rect // region of the output that is written

	frame []byte
}

var _ Reader = (*Scaler)(nil)

// NewScaler wraps r so every picture comes out width x height.
func NewScaler(r Reader, width, height int, mode ScaleMode) (*Scaler, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scale: invalid size %dx%d", width, height)
	}
	in := r.Info()
	out := in
	out.Width, out.Height = width, height

	s := &Scaler{
		src:     r,
		in:      in,
		out:     out,
		mode:    mode,
		srcRect: rect{0, 0, in.Width, in.Height},
		dstRect: rect{0, 0, width, height},
		frame:   make([]byte, out.FrameSize()),
	}
	switch mode {
	case ScaleModeFill:
		s.srcRect = cropRect(in.Width, in.Height, width, height)
	case ScaleModeFit:
		w, h := ScaledSize(in.Width, in.Height, width, height, ScaleModeFit)
		s.dstRect = rect{(width - w) / 2 &^ 1, (height - h) / 2 &^ 1, w, h}
	}
	return s, nil
}

func (s *Scaler) Info() Info { return s.out }

// ReadFrame reads the next source picture and returns it scaled. The
// returned slice is reused by the next call.
func (s *Scaler) ReadFrame() ([]byte, error) {
	f, err := s.src.ReadFrame()
	if err != nil {
		return nil, err
	}
	if s.in.Width == s.out.Width && s.in.Height == s.out.Height {
		return f, nil
	}
	if len(f) < s.in.FrameSize() {
		return nil, fmt.Errorf("scale: short frame: %d bytes, want %d", len(f), s.in.FrameSize())
	}

	if s.mode == ScaleModeFit {
		s.clear()
	}
	srcPlanes := planes(f, s.in.Width, s.in.Height)
	dstPlanes := planes(s.frame, s.out.Width, s.out.Height)
	for i := range srcPlanes {
		sr, dr := s.srcRect, s.dstRect
		if i > 0 {
			sr, dr = halve(sr), halve(dr)
		}
		scalePlane(srcPlanes[i].data, srcPlanes[i].stride, sr, dstPlanes[i].data, dstPlanes[i].stride, dr)
	}
	return s.frame, nil
}

// clear paints the letterbox black.
func (s *Scaler) clear() {
	ySize := s.out.Width * s.out.Height
	for i := range s.frame {
		if i < ySize {
			s.frame[i] = 16
		} else {
			s.frame[i] = 128
		}
	}
}

type plane struct {
	data   []byte
	stride int
}

func planes(f []byte, w, h int) [3]plane {
	cw, ch := (w+1)/2, (h+1)/2
	ySize, cSize := w*h, cw*ch
	return [3]plane{
		{f[:ySize], w},
		{f[ySize : ySize+cSize], cw},
		{f[ySize+cSize : ySize+2*cSize], cw},
	}
}

func halve(r rect) rect {
	return rect{r.x / 2, r.y / 2, max((r.w+1)/2, 1), max((r.h+1)/2, 1)}
}

// cropRect returns the centered region of a srcW x srcH picture that has
// the dstW:dstH aspect ratio.
func cropRect(srcW, srcH, dstW, dstH int) rect {
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)
	switch {
	case srcAspect > dstAspect:
		// Source is wider, crop horizontally
		w := int(float64(srcH) * dstAspect)
		return rect{(srcW - w) / 2 &^ 1, 0, w, srcH}
	case srcAspect < dstAspect:
		// Source is taller, crop vertically
		h := int(float64(srcW) / dstAspect)
		return rect{0, (srcH - h) / 2 &^ 1, srcW, h}
	}
	return rect{0, 0, srcW, srcH}
}

// scalePlane scales the sr region of src into the dr region of dst using
// bilinear interpolation in 16.16 fixed point.
func scalePlane(src []byte, srcStride int, sr rect, dst []byte, dstStride int, dr rect) {
	if sr.w <= 0 || sr.h <= 0 || dr.w <= 0 || dr.h <= 0 {
		return
	}

	xRatio := (sr.w << 16) / dr.w
	yRatio := (sr.h << 16) / dr.h

	for y := 0; y < dr.h; y++ {
		srcYFP := y * yRatio
		y0 := srcYFP>>16 + sr.y
		y1 := y0 + 1
		if y1 >= sr.y+sr.h {
			y1 = y0
		}
		yWeight := srcYFP & 0xFFFF

		row := dst[(dr.y+y)*dstStride+dr.x:]
		for x := 0; x < dr.w; x++ {
			srcXFP := x * xRatio
			x0 := srcXFP>>16 + sr.x
			x1 := x0 + 1
			if x1 >= sr.x+sr.w {
				x1 = x0
			}
			xWeight := srcXFP & 0xFFFF

			p00 := int(src[y0*srcStride+x0])
			p10 := int(src[y0*srcStride+x1])
			p01 := int(src[y1*srcStride+x0])
			p11 := int(src[y1*srcStride+x1])

			top := (p00*(0x10000-xWeight) + p10*xWeight) >> 16
			bottom := (p01*(0x10000-xWeight) + p11*xWeight) >> 16
			row[x] = byte((top*(0x10000-yWeight) + bottom*yWeight) >> 16)
		}
	}
}

// ScaledSize returns the picture size a mode produces inside maxW x maxH.
// Only ScaleModeFit differs from the target; its result is rounded to even.
func ScaledSize(srcW, srcH, maxW, maxH int, mode ScaleMode) (w, h int) {
	if mode != ScaleModeFit {
		return maxW, maxH
	}
	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(maxW) / float64(maxH)
	if srcAspect > dstAspect {
		w = maxW
		h = int(float64(maxW) / srcAspect)
	} else {
		h = maxH
		w = int(float64(maxH) * srcAspect)
	}
	w = min((w+1)&^1, maxW)
	h = min((h+1)&^1, maxH)
	return w, h
}
