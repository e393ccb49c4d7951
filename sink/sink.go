// Package sink writes encoder output to containers and transports.
//
// An Assembler groups encoder packets into temporal units (one shown frame
// each) and hands them to a Sink. Sinks own their destination and close it
// when it implements io.Closer.
package sink

import (
	"github.com/sirupsen/logrus"

	"github.com/thesyncim/svtav1"
)

// Unit is one temporal unit in low-overhead bitstream format.
type Unit struct {
	Data     []byte
	PTS      int64
	Keyframe bool
}

// Sink consumes temporal units in presentation order.
type Sink interface {
	WriteUnit(u Unit) error
	Close() error
}

// Assembler turns encoder packets into units. A packet flagged HasTD starts
// a new unit; packets without it are appended to the current one.
type Assembler struct {
	sink    Sink
	log     logrus.FieldLogger
	pending Unit
	have    bool
	units   int
}

var _ svtav1.PacketSink = (*Assembler)(nil)

// NewAssembler returns an Assembler feeding s. A nil logger uses the
// standard logrus logger.
func NewAssembler(s Sink, log logrus.FieldLogger) *Assembler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assembler{sink: s, log: log}
}

// WritePacket copies the packet payload; the caller keeps ownership of p.
func (a *Assembler) WritePacket(p *svtav1.Packet) error {
	if p.Released() {
		return svtav1.ErrPacketReleased
	}
	return a.add(p.Data(), p.Flags, p.PTS, p.IsKeyframe())
}

func (a *Assembler) add(data []byte, flags svtav1.PacketFlags, pts int64, key bool) error {
	if flags.Has(svtav1.FlagHasTD) || !a.have {
		if err := a.Flush(); err != nil {
			return err
		}
		if len(data) > 0 {
			a.pending = Unit{
				Data:     append([]byte(nil), data...),
				PTS:      pts,
				Keyframe: key,
			}
			a.have = true
		}
	} else {
		a.pending.Data = append(a.pending.Data, data...)
	}

	if flags.Has(svtav1.FlagEOS) {
		return a.Flush()
	}
	return nil
}

// Flush writes any pending unit.
func (a *Assembler) Flush() error {
	if !a.have {
		return nil
	}
	u := a.pending
	a.pending = Unit{}
	a.have = false
	a.units++
	return a.sink.WriteUnit(u)
}

// Units reports how many units have been written.
func (a *Assembler) Units() int { return a.units }

// Close flushes and closes the sink.
func (a *Assembler) Close() error {
	err := a.Flush()
	if cerr := a.sink.Close(); err == nil {
		err = cerr
	}
	a.log.WithFields(logrus.Fields{"units": a.units}).Debug("sink closed")
	return err
}
