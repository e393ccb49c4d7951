// Package source produces raw 8-bit I420 pictures for the encoder: a
// synthetic test pattern generator and a YUV4MPEG2 reader.
package source

import "fmt"

// Info describes the pictures a Reader produces.
type Info struct {
	Width  int
	Height int
	FPSNum uint32
	FPSDen uint32
}

// FrameSize is the size in bytes of one I420 picture.
func (i Info) FrameSize() int {
	cw, ch := (i.Width+1)/2, (i.Height+1)/2
	return i.Width*i.Height + 2*cw*ch
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d@%d/%d", i.Width, i.Height, i.FPSNum, i.FPSDen)
}

// Reader yields contiguous I420 pictures (Y, then Cb, then Cr, tightly
// packed). ReadFrame returns io.EOF at the end of input. The returned slice
// is reused by the next call.
type Reader interface {
	Info() Info
	ReadFrame() ([]byte, error)
}
