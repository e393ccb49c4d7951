package svtav1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI420Size(t *testing.T) {
	tests := []struct {
		width, height int
		want          int
	}{
		{1920, 1080, 1920*1080 + 2*(960*540)},
		{1280, 720, 1280*720 + 2*(640*360)},
		{640, 480, 640*480 + 2*(320*240)},
		{65, 65, 65*65 + 2*(33*33)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, I420Size(tt.width, tt.height), "%dx%d", tt.width, tt.height)
	}
}

func TestNewI420Frame(t *testing.T) {
	buf := make([]byte, I420Size(64, 48))
	for i := range buf {
		buf[i] = byte(i)
	}

	f, err := NewI420Frame(buf, 64, 48)
	require.NoError(t, err)
	assert.Len(t, f.Luma, 64*48)
	assert.Len(t, f.Cb, 32*24)
	assert.Len(t, f.Cr, 32*24)
	assert.Equal(t, uint32(64), f.YStride)
	assert.Equal(t, uint32(32), f.CbStride)
	assert.Equal(t, uint32(32), f.CrStride)
	assert.Equal(t, uint32(len(buf)), f.Size)
	assert.Equal(t, buf[64*48], f.Cb[0])
	assert.Equal(t, buf[64*48+32*24], f.Cr[0])

	// Planes are capped so appends cannot overwrite the next plane.
	assert.Equal(t, len(f.Luma), cap(f.Luma))
	assert.Equal(t, len(f.Cb), cap(f.Cb))

	require.NoError(t, f.Validate(64, 48, BitDepth8))
}

func TestNewI420Frame_Errors(t *testing.T) {
	_, err := NewI420Frame(make([]byte, 10), 64, 48)
	assert.Error(t, err)

	_, err = NewI420Frame(nil, 0, 48)
	assert.Error(t, err)
}

func TestFrame_Validate(t *testing.T) {
	luma := make([]byte, 64*64)
	chroma := make([]byte, 32*32)

	tests := []struct {
		name    string
		frame   *Frame
		depth   BitDepth
		wantErr bool
	}{
		{"ok", NewFrame(luma, chroma, chroma, 64, 32, 32, 0), BitDepth8, false},
		{"nil", nil, BitDepth8, true},
		{"empty luma", NewFrame(nil, chroma, chroma, 64, 32, 32, 0), BitDepth8, true},
		{"short luma stride", NewFrame(luma, chroma, chroma, 32, 32, 32, 0), BitDepth8, true},
		{"short chroma stride", NewFrame(luma, chroma, chroma, 64, 16, 32, 0), BitDepth8, true},
		{"short cr plane", NewFrame(luma, chroma, chroma[:10], 64, 32, 32, 0), BitDepth8, true},
		{"10-bit needs two bytes", NewFrame(luma, chroma, chroma, 64, 32, 32, 0), BitDepth10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate(64, 64, tt.depth)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
