// Package verify reads encoder output back out of its container and,
// when built with the aom tag and cgo, decodes it with libaom.
//
// It exists for tests and for the encode command's self-check; it is not a
// general purpose demuxer.
package verify

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoDecoder is returned by NewDecoder when the package was built
// without cgo or the aom tag.
var ErrNoDecoder = errors.New("verify: built without libaom (use -tags aom)")

// Picture is a decoded 8-bit I420 picture with tightly packed planes.
type Picture struct {
	Width, Height int
	Data          []byte
}

// Result summarizes DecodeAll.
type Result struct {
	Units    int // temporal units fed to the decoder
	Pictures []Picture
}

// DecodeAll decodes samples in order and collects every shown picture.
func DecodeAll(samples []Sample) (Result, error) {
	dec, err := NewDecoder()
	if err != nil {
		return Result{}, err
	}
	defer dec.Close()

	var res Result
	for i, s := range samples {
		pics, err := dec.Decode(s.Data)
		if err != nil {
			return res, fmt.Errorf("unit %d (pts %d): %w", i, s.PTS, err)
		}
		res.Units++
		res.Pictures = append(res.Pictures, pics...)
	}
	return res, nil
}

// PSNR compares two I420 pictures of the same size and returns the luma
// PSNR in dB. Identical pictures give +Inf.
func PSNR(a, b []byte, width, height int) (float64, error) {
	n := width * height
	if width <= 0 || height <= 0 || len(a) < n || len(b) < n {
		return 0, errors.New("verify: picture smaller than its dimensions")
	}
	var sse float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sse += d * d
	}
	if sse == 0 {
		return math.Inf(1), nil
	}
	mse := sse / float64(n)
	return 10 * math.Log10(255*255/mse), nil
}
