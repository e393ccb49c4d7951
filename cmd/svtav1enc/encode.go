package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/thesyncim/svtav1"
	"github.com/thesyncim/svtav1/internal/config"
	"github.com/thesyncim/svtav1/profile"
	"github.com/thesyncim/svtav1/sink"
	"github.com/thesyncim/svtav1/source"
	"github.com/thesyncim/svtav1/verify"
)

func runEncode(ctx context.Context, cfg *config.Config) error {
	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()
	info := src.Info()

	encCfg, err := newEncoderConfig(cfg, info)
	if err != nil {
		return err
	}
	defer encCfg.Close()

	enc, err := encCfg.NewEncoder()
	if err != nil {
		return err
	}
	defer enc.Close()

	out, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}
	s, err := openSink(cfg, out, info, enc)
	if err != nil {
		out.Close()
		return err
	}
	asm := sink.NewAssembler(s, log)

	var packets svtav1.PacketSink = asm
	if cfg.Recon != "" {
		rf, err := os.Create(cfg.Recon)
		if err != nil {
			asm.Close()
			return err
		}
		defer rf.Close()
		packets = &reconTap{next: asm, enc: enc, out: rf, buf: make([]byte, enc.ReconSize())}
	}

	frameSrc := svtav1.I420Source{Read: src.ReadFrame, Width: info.Width, Height: info.Height}
	p, err := svtav1.NewPipeline(enc, frameSrc, packets,
		svtav1.WithMaxFrames(cfg.Frames),
		svtav1.WithProgress(func(st svtav1.PipelineStats) {
			if st.FramesRead%100 == 0 {
				log.WithFields(logrus.Fields{
					"frames":  st.FramesRead,
					"packets": st.PacketsWritten,
					"bytes":   st.BytesWritten,
				}).Info("progress")
			}
		}))
	if err != nil {
		asm.Close()
		return err
	}

	log.WithFields(logrus.Fields{
		"input":  cfg.Input,
		"output": cfg.Output,
		"source": info.String(),
		"preset": enc.Config().EncMode,
	}).Info("encoding")

	runErr := p.Run(ctx)
	if err := asm.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Stats != "" {
		if err := writeStats(enc, cfg.Stats); err != nil {
			return err
		}
	}

	st := p.Stats()
	if cfg.Verify {
		if err := verifyOutput(cfg, int(st.FramesRead)); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{
		"frames":    st.FramesRead,
		"units":     asm.Units(),
		"keyframes": st.KeyframesWritten,
		"bytes":     st.BytesWritten,
		"elapsed":   st.SendTime,
	}).Info("done")
	return nil
}

func openSource(cfg *config.Config) (source.Reader, func(), error) {
	src, done, err := openInput(cfg)
	if err != nil {
		return nil, nil, err
	}
	w, h, ok, err := cfg.ScaleSize()
	if err != nil || !ok {
		return src, done, err
	}
	mode, err := source.ParseScaleMode(cfg.ScaleMode)
	if err != nil {
		done()
		return nil, nil, err
	}
	scaled, err := source.NewScaler(src, w, h, mode)
	if err != nil {
		done()
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{
		"from": src.Info().String(),
		"to":   scaled.Info().String(),
		"mode": mode,
	}).Debug("scaling input")
	return scaled, done, nil
}

func openInput(cfg *config.Config) (source.Reader, func(), error) {
	if name, ok := cfg.PatternName(); ok {
		pt, err := source.ParsePatternType(name)
		if err != nil {
			return nil, nil, err
		}
		num, den, err := cfg.FrameRate()
		if err != nil {
			return nil, nil, err
		}
		return source.NewPattern(source.PatternConfig{
			Width:   cfg.Width,
			Height:  cfg.Height,
			FPSNum:  num,
			FPSDen:  den,
			Pattern: pt,
			Frames:  cfg.Frames,
		}), func() {}, nil
	}

	var r io.ReadCloser = os.Stdin
	if cfg.Input != "-" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return nil, nil, err
		}
		r = f
	}
	y, err := source.NewY4MReader(r)
	if err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("%s: %w", cfg.Input, err)
	}
	return y, func() { r.Close() }, nil
}

// newEncoderConfig applies settings in increasing precedence: the preset,
// the profile, the dedicated flags, then --param entries.
func newEncoderConfig(cfg *config.Config, info source.Info) (*svtav1.EncoderConfig, error) {
	var opts []svtav1.ConfigOption
	opts = append(opts, svtav1.WithLogger(log))
	if cfg.PresetSet {
		opts = append(opts, svtav1.WithPreset(int8(cfg.Preset)))
	}
	encCfg, err := svtav1.NewEncoderConfig(uint32(info.Width), uint32(info.Height), opts...)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*svtav1.EncoderConfig, error) {
		encCfg.Close()
		return nil, err
	}

	encCfg.Config().SetFrameRate(info.FPSNum, info.FPSDen)
	if cfg.Recon != "" {
		encCfg.Config().ReconEnabled = 1
	}
	if cfg.StatsIn != "" {
		stats, err := os.ReadFile(cfg.StatsIn)
		if err != nil {
			return fail(err)
		}
		if err := encCfg.SetStatsBuffer(stats); err != nil {
			return fail(err)
		}
		encCfg.Config().Pass = 2
		log.WithField("bytes", len(stats)).Debug("loaded first-pass statistics")
	}

	if cfg.Profile != "" {
		prof, err := profile.Load(cfg.Profile)
		if err != nil {
			return fail(err)
		}
		if cfg.PresetSet {
			prof.Preset = nil
		}
		if err := prof.Apply(encCfg); err != nil {
			return fail(err)
		}
		log.WithField("profile", prof.Name).Debug("applied profile")
	}

	if cfg.QP > 0 {
		if err := encCfg.SetParameter("qp", strconv.Itoa(cfg.QP)); err != nil {
			return fail(err)
		}
	}
	if cfg.Keyint != 0 {
		if err := encCfg.SetParameter("keyint", strconv.Itoa(cfg.Keyint)); err != nil {
			return fail(err)
		}
	}
	params := make([]svtav1.Param, 0, len(cfg.Params))
	for _, s := range cfg.Params {
		prm, err := svtav1.ParseParam(s)
		if err != nil {
			return fail(err)
		}
		params = append(params, prm)
	}
	if err := encCfg.SetParameters(params); err != nil {
		return fail(err)
	}
	return encCfg, nil
}

func openSink(cfg *config.Config, out *os.File, info source.Info, enc *svtav1.Encoder) (sink.Sink, error) {
	format, err := cfg.OutputFormat()
	if err != nil {
		return nil, err
	}
	switch format {
	case config.FormatIVF:
		return sink.NewIVFSink(out, info.Width, info.Height, info.FPSNum, info.FPSDen)
	case config.FormatMP4:
		s, err := sink.NewMP4Sink(out, info.Width, info.Height, info.FPSNum, info.FPSDen)
		if err != nil {
			return nil, err
		}
		hdr, err := enc.StreamHeader()
		if err != nil {
			return nil, err
		}
		s.SetSequenceHeader(hdr.Bytes())
		hdr.Release()
		return s, nil
	default:
		return sink.NewOBUSink(out), nil
	}
}

// reconTap writes reconstructed pictures as packets pass through. Pictures
// arrive in decode order, so each lands at its PTS offset in the file.
type reconTap struct {
	next svtav1.PacketSink
	enc  *svtav1.Encoder
	out  io.WriterAt
	buf  []byte
}

func (r *reconTap) WritePacket(p *svtav1.Packet) error {
	eos := p.IsEOS()
	if err := r.next.WritePacket(p); err != nil {
		return err
	}
	if eos {
		return nil
	}
	for {
		rec, err := r.enc.GetRecon(r.buf)
		if svtav1.IsEmptyQueue(err) || svtav1.IsShutdown(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := r.out.WriteAt(rec.Data, rec.PTS*int64(len(rec.Data))); err != nil {
			return err
		}
	}
}

func writeStats(enc *svtav1.Encoder, path string) error {
	stats, err := enc.FirstPassStats()
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return errors.New("encoder produced no first-pass statistics; set -p pass=1")
	}
	log.WithField("bytes", len(stats)).Debug("writing first-pass statistics")
	return os.WriteFile(path, stats, 0o644)
}

func readOutput(cfg *config.Config) ([]verify.Sample, error) {
	format, err := cfg.OutputFormat()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Output)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch format {
	case config.FormatIVF:
		_, samples, err := verify.ReadIVF(f)
		return samples, err
	case config.FormatMP4:
		_, samples, err := verify.ReadMP4(f)
		return samples, err
	default:
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		return verify.SplitTemporalUnits(data)
	}
}

// verifyOutput checks that the output holds one temporal unit per input
// picture and, with libaom built in, that each decodes to one picture.
func verifyOutput(cfg *config.Config, frames int) error {
	samples, err := readOutput(cfg)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(samples) != frames {
		return fmt.Errorf("verify: %d temporal units for %d pictures", len(samples), frames)
	}
	if !verify.Available {
		log.Warn("verify: decoder not built in, checked container only")
		return nil
	}
	res, err := verify.DecodeAll(samples)
	if err != nil {
		return err
	}
	if len(res.Pictures) != frames {
		return fmt.Errorf("verify: decoded %d pictures, want %d", len(res.Pictures), frames)
	}
	log.WithField("pictures", len(res.Pictures)).Info("verify: output decodes")
	return nil
}
