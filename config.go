package svtav1

import (
	"bytes"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// Dimension and preset bounds accepted by NewEncoderConfig.
const (
	minWidth  = 64
	maxWidth  = 16384
	minHeight = 64
	maxHeight = 8704
	minPreset = -2
	maxPreset = 13
)

// DefaultPreset is the preset the library selects when none is given.
const DefaultPreset int8 = 10

type configOptions struct {
	preset *int8
	logger logrus.FieldLogger
	core   core
}

// ConfigOption customizes NewEncoderConfig.
type ConfigOption func(*configOptions)

// WithPreset overrides the library's default preset. Valid presets are -2
// to 13; lower is slower and higher quality.
func WithPreset(preset int8) ConfigOption {
	return func(o *configOptions) {
		p := preset
		o.preset = &p
	}
}

// WithLogger sets the logger for the configuration and the encoder it
// produces. The default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) ConfigOption {
	return func(o *configOptions) {
		o.logger = l
	}
}

func withCore(c core) ConfigOption {
	return func(o *configOptions) {
		o.core = c
	}
}

// EncoderConfig is the configuration stage of an encoder session. It owns a
// native handle and a library-initialized Configuration until NewEncoder
// moves both into an Encoder.
//
// An EncoderConfig that is never finalized must be closed. After a
// successful NewEncoder, Close is a no-op, so the usual pattern is:
//
//	cfg, err := svtav1.NewEncoderConfig(1920, 1080, svtav1.WithPreset(8))
//	if err != nil { ... }
//	defer cfg.Close()
//	enc, err := cfg.NewEncoder()
type EncoderConfig struct {
	core     core
	handle   *componentHandle
	config   *Configuration
	log      logrus.FieldLogger
	consumed bool

	// statsPin keeps the second-pass statistics in place for the library.
	statsPin *runtime.Pinner
}

// NewEncoderConfig validates the dimensions and preset, then acquires a
// native handle whose Configuration holds the library defaults plus width,
// height and the preset when one is given.
//
// Invalid arguments are returned as errors before the library is touched.
// If the library is unavailable or refuses to create a handle,
// NewEncoderConfig panics with a *FatalError.
func NewEncoderConfig(width, height uint32, opts ...ConfigOption) (*EncoderConfig, error) {
	var o configOptions
	for _, opt := range opts {
		opt(&o)
	}

	if width < minWidth || width > maxWidth {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWidth, width)
	}
	if height < minHeight || height > maxHeight {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidHeight, height)
	}
	if o.preset != nil && (*o.preset < minPreset || *o.preset > maxPreset) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPreset, *o.preset)
	}

	log := o.logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := o.core
	if c == nil {
		var err error
		if c, err = loadCore(); err != nil {
			panic(&FatalError{Op: "load", Err: err})
		}
	}

	cfg := new(Configuration)
	h, err := newComponentHandle(c, cfg)
	if err != nil {
		panic(&FatalError{Op: "init_handle", Err: err})
	}

	cfg.SourceWidth = width
	cfg.SourceHeight = height
	if o.preset != nil {
		cfg.EncMode = *o.preset
	}

	log.WithFields(logrus.Fields{
		"width":  width,
		"height": height,
		"preset": cfg.EncMode,
	}).Debug("svtav1: handle acquired")

	return &EncoderConfig{
		core:   c,
		handle: h,
		config: cfg,
		log:    log,
	}, nil
}

// Config returns the configuration record for direct mutation. Changes take
// effect when NewEncoder is called.
func (c *EncoderConfig) Config() *Configuration {
	return c.config
}

// SetParameter applies a named parameter using the library's own parser,
// exactly as the SvtAv1EncApp command line would. Names follow the
// library's parameter list ("qp", "keyint", "tune", ...), not the field
// names of Configuration.
func (c *EncoderConfig) SetParameter(name, value string) error {
	if c.consumed || !c.handle.valid() {
		return ErrConfigConsumed
	}
	cname, err := cString(name)
	if err != nil {
		return &ParameterError{Name: name, Value: value, Err: err}
	}
	cvalue, err := cString(value)
	if err != nil {
		return &ParameterError{Name: name, Value: value, Err: err}
	}

	if st := c.core.parseParameter(c.config, cname, cvalue); st != StatusNone {
		c.log.WithFields(logrus.Fields{
			"name":   name,
			"value":  value,
			"status": st,
		}).Warn("svtav1: parameter rejected")
		return &ParameterError{Name: name, Value: value, Err: st}
	}
	return nil
}

// SetStatsBuffer supplies the statistics of a first pass (FirstPassStats)
// to a later pass. The data is copied and stays pinned until the encoder is
// closed. The pass itself is selected with the Pass field or the "pass"
// parameter. An empty stats clears a previous buffer.
func (c *EncoderConfig) SetStatsBuffer(stats []byte) error {
	if c.consumed || !c.handle.valid() {
		return ErrConfigConsumed
	}
	c.unpinStats()
	if len(stats) == 0 {
		return nil
	}
	buf := bytes.Clone(stats)
	c.statsPin = new(runtime.Pinner)
	c.statsPin.Pin(&buf[0])
	c.config.rcStatsBuffer = fixedBuf{buf: unsafe.Pointer(&buf[0]), sz: uint64(len(buf))}
	return nil
}

func (c *EncoderConfig) unpinStats() {
	c.config.rcStatsBuffer = fixedBuf{}
	if c.statsPin != nil {
		c.statsPin.Unpin()
		c.statsPin = nil
	}
}

// NewEncoder applies the configuration to the handle and initializes the
// encoder. On success the handle moves into the returned Encoder and c can
// no longer be used. On failure c keeps the handle and must still be closed.
func (c *EncoderConfig) NewEncoder() (*Encoder, error) {
	if c.consumed || !c.handle.valid() {
		return nil, ErrConfigConsumed
	}

	if err := statusErr("set_parameter", c.core.setParameter(c.handle.ptr, c.config)); err != nil {
		c.log.WithError(err).Warn("svtav1: configuration rejected")
		return nil, err
	}
	c.handle.initialized = true
	if err := statusErr("init", c.core.initEncoder(c.handle.ptr)); err != nil {
		c.log.WithError(err).Warn("svtav1: encoder init failed")
		return nil, err
	}

	enc := newEncoder(c.core, c.handle.release(), *c.config, c.log)
	enc.statsPin, c.statsPin = c.statsPin, nil
	c.consumed = true

	c.log.WithFields(logrus.Fields{
		"width":  c.config.SourceWidth,
		"height": c.config.SourceHeight,
		"preset": c.config.EncMode,
	}).Debug("svtav1: encoder initialized")
	return enc, nil
}

// Close releases the handle of a configuration that was never finalized.
// It is safe to call more than once, and after NewEncoder succeeded.
func (c *EncoderConfig) Close() error {
	if c.consumed || !c.handle.valid() {
		return nil
	}
	err := c.handle.teardown()
	c.unpinStats()
	c.log.Debug("svtav1: unfinalized handle released")
	return err
}
