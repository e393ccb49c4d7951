// Package obu walks AV1 low-overhead bitstreams (Section 5 of the AV1
// specification): sequences of OBUs that each carry a size field.
//
// Header and LEB128 decoding come from pion's codecs/av1/obu; this package
// adds buffer walking, temporal unit handling and sequence header parsing.
package obu

import (
	"errors"
	"fmt"

	av1obu "github.com/pion/rtp/codecs/av1/obu"
)

// Type is the obu_type field of an OBU header.
type Type = av1obu.Type

const (
	TypeSequenceHeader       = av1obu.OBUSequenceHeader
	TypeTemporalDelimiter    = av1obu.OBUTemporalDelimiter
	TypeFrameHeader          = av1obu.OBUFrameHeader
	TypeTileGroup            = av1obu.OBUTileGroup
	TypeMetadata             = av1obu.OBUMetadata
	TypeFrame                = av1obu.OBUFrame
	TypeRedundantFrameHeader = av1obu.OBURedundantFrameHeader
	TypeTileList             = av1obu.OBUTileList
	TypePadding              = av1obu.OBUPadding
)

// ErrTruncated reports an OBU or sequence header that ends early.
var ErrTruncated = errors.New("obu: truncated")

// TemporalDelimiter is an empty temporal delimiter OBU with a size field.
var TemporalDelimiter = (&av1obu.OBU{
	Header: av1obu.Header{Type: TypeTemporalDelimiter, HasSizeField: true},
}).Marshal()

// Unit is one OBU within a buffer.
type Unit struct {
	Type       Type
	Extension  bool
	TemporalID uint8
	SpatialID  uint8
	// Raw is the complete OBU: header, size field and payload.
	Raw []byte
	// Payload excludes the header and size field.
	Payload []byte
}

// Parse splits data into OBUs. An OBU without a size field extends to the
// end of data.
func Parse(data []byte) ([]Unit, error) {
	var units []Unit
	err := Walk(data, func(u Unit) error {
		units = append(units, u)
		return nil
	})
	return units, err
}

// Walk calls fn for each OBU in data, in order.
func Walk(data []byte, fn func(Unit) error) error {
	for off := 0; off < len(data); {
		u, n, err := next(data[off:])
		if err != nil {
			return fmt.Errorf("at offset %d: %w", off, err)
		}
		if err := fn(u); err != nil {
			return err
		}
		off += n
	}
	return nil
}

func next(data []byte) (Unit, int, error) {
	h, err := av1obu.ParseOBUHeader(data)
	if err != nil {
		return Unit{}, 0, err
	}
	u := Unit{Type: h.Type}
	if h.ExtensionHeader != nil {
		u.Extension = true
		u.TemporalID = h.ExtensionHeader.TemporalID
		u.SpatialID = h.ExtensionHeader.SpatialID
	}

	hdrLen := h.Size()
	if !h.HasSizeField {
		u.Raw = data
		u.Payload = data[hdrLen:]
		return u, len(data), nil
	}

	size, n, err := av1obu.ReadLeb128(data[hdrLen:])
	if err != nil {
		return Unit{}, 0, err
	}
	start := hdrLen + int(n)
	if size > uint(len(data)-start) {
		return Unit{}, 0, ErrTruncated
	}
	end := start + int(size)
	u.Raw = data[:end]
	u.Payload = data[start:end]
	return u, end, nil
}

// SequenceHeader returns the first sequence header OBU in data, or nil.
func SequenceHeader(data []byte) []byte {
	var seq []byte
	_ = Walk(data, func(u Unit) error {
		if u.Type == TypeSequenceHeader {
			seq = u.Raw
			return errStop
		}
		return nil
	})
	return seq
}

var errStop = errors.New("stop")

// StripTemporalDelimiters returns data without temporal delimiter and
// padding OBUs, as ISOBMFF samples require. Unparseable input is returned
// unchanged.
func StripTemporalDelimiters(data []byte) []byte {
	units, err := Parse(data)
	if err != nil {
		return data
	}
	out := make([]byte, 0, len(data))
	for _, u := range units {
		if u.Type == TypeTemporalDelimiter || u.Type == TypePadding {
			continue
		}
		out = append(out, u.Raw...)
	}
	return out
}

// CountTemporalUnits counts temporal delimiters in data.
func CountTemporalUnits(data []byte) (int, error) {
	var n int
	err := Walk(data, func(u Unit) error {
		if u.Type == TypeTemporalDelimiter {
			n++
		}
		return nil
	})
	return n, err
}

// EnsureSize returns the OBU with its size field present, rewriting the
// header if necessary. Input that does not start with a valid header is
// returned unchanged.
func EnsureSize(raw []byte) []byte {
	h, err := av1obu.ParseOBUHeader(raw)
	if err != nil || h.HasSizeField {
		return raw
	}
	h.HasSizeField = true
	o := av1obu.OBU{Header: *h, Payload: raw[h.Size():]}
	return o.Marshal()
}
