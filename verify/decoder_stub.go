//go:build !cgo || !aom

package verify

// Available reports whether a decoder is compiled in.
const Available = false

// Decoder is a placeholder that never decodes.
type Decoder struct{}

func NewDecoder() (*Decoder, error) { return nil, ErrNoDecoder }

func (d *Decoder) Decode([]byte) ([]Picture, error) { return nil, ErrNoDecoder }

func (d *Decoder) Frames() int { return 0 }

func (d *Decoder) Close() error { return nil }
