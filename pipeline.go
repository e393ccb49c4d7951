package svtav1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// FrameSource supplies raw pictures. NextFrame returns io.EOF when the input
// is exhausted. The returned frame only needs to stay valid until the next
// call.
type FrameSource interface {
	NextFrame() (*Frame, error)
}

// PacketSink consumes encoder packets. The pipeline releases each packet
// after WritePacket returns.
type PacketSink interface {
	WritePacket(p *Packet) error
}

// I420Source adapts a reader of contiguous I420 buffers.
type I420Source struct {
	Read          func() ([]byte, error)
	Width, Height int
}

func (s I420Source) NextFrame() (*Frame, error) {
	buf, err := s.Read()
	if err != nil {
		return nil, err
	}
	return NewI420Frame(buf, s.Width, s.Height)
}

// PipelineStats counts pipeline progress.
type PipelineStats struct {
	FramesRead       uint64
	PacketsWritten   uint64
	BytesWritten     uint64
	KeyframesWritten uint64
	SendTime         time.Duration
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMaxFrames stops reading after n frames. Zero means until EOF.
func WithMaxFrames(n int) PipelineOption {
	return func(p *Pipeline) { p.maxFrames = n }
}

// WithProgress calls fn after every frame sent.
func WithProgress(fn func(PipelineStats)) PipelineOption {
	return func(p *Pipeline) { p.onProgress = fn }
}

// Pipeline drives one encoder session: it reads frames, sends them with
// increasing PTS, forwards packets as they appear, then signals end of
// stream and drains. It runs on the caller's goroutine.
type Pipeline struct {
	enc        *Encoder
	source     FrameSource
	sink       PacketSink
	log        logrus.FieldLogger
	maxFrames  int
	onProgress func(PipelineStats)
	stats      PipelineStats
}

func NewPipeline(enc *Encoder, source FrameSource, sink PacketSink, opts ...PipelineOption) (*Pipeline, error) {
	if enc == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	p := &Pipeline{enc: enc, source: source, sink: sink, log: enc.log}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RequestKeyframe forces the next frame sent to be a key frame.
func (p *Pipeline) RequestKeyframe() {
	p.enc.RequestKeyframe()
}

func (p *Pipeline) Stats() PipelineStats {
	return p.stats
}

// Run encodes until the source is exhausted or ctx is cancelled. On
// cancellation the session is left as is; closing the Encoder releases it.
func (p *Pipeline) Run(ctx context.Context) error {
	lowDelay := p.enc.config.LowDelay()

	for pts := int64(0); p.maxFrames == 0 || pts < int64(p.maxFrames); pts++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := p.source.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", pts, err)
		}
		p.stats.FramesRead++

		start := time.Now()
		if err := p.enc.SendFrame(f, WithPTS(pts)); err != nil {
			return fmt.Errorf("send frame %d: %w", pts, err)
		}
		p.stats.SendTime += time.Since(start)

		if err := p.poll(lowDelay); err != nil {
			return err
		}
		if p.onProgress != nil {
			p.onProgress(p.stats)
		}
	}

	if err := p.enc.SendEOS(); err != nil {
		return err
	}
	if err := p.enc.Drain(p.write); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"frames":  p.stats.FramesRead,
		"packets": p.stats.PacketsWritten,
		"bytes":   p.stats.BytesWritten,
	}).Debug("pipeline finished")
	return nil
}

// poll forwards packets that are ready. In low-delay mode the receive call
// blocks and each picture yields one packet, so it is called once.
func (p *Pipeline) poll(lowDelay bool) error {
	for {
		pkt, err := p.enc.GetPacket(false)
		if IsEmptyQueue(err) {
			return nil
		}
		if err != nil {
			return err
		}
		err = p.write(pkt)
		pkt.Release()
		if err != nil || lowDelay {
			return err
		}
	}
}

func (p *Pipeline) write(pkt *Packet) error {
	if err := p.sink.WritePacket(pkt); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	p.stats.PacketsWritten++
	p.stats.BytesWritten += uint64(pkt.Len())
	if pkt.IsKeyframe() {
		p.stats.KeyframesWritten++
	}
	return nil
}
