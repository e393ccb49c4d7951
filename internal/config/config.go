// Package config holds the svtav1enc command settings.
//
// Values come from, lowest precedence first: built-in defaults, an optional
// YAML config file, SVTAV1_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SVTAV1_PRESET.
const EnvPrefix = "SVTAV1"

// Config is the resolved command configuration.
type Config struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
	Recon  string `mapstructure:"recon"`
	Stats  string `mapstructure:"stats"`
	Verify bool   `mapstructure:"verify"`

	// StatsIn feeds first-pass statistics to a second pass.
	StatsIn string `mapstructure:"stats_in"`

	// Pattern input geometry; ignored for Y4M input.
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	FPS    string `mapstructure:"fps"`

	// Scale resizes the input to "WxH" before encoding.
	Scale     string `mapstructure:"scale"`
	ScaleMode string `mapstructure:"scale_mode"`

	Preset  int      `mapstructure:"preset"`
	QP      int      `mapstructure:"qp"`
	Keyint  int      `mapstructure:"keyint"`
	Frames  int      `mapstructure:"frames"`
	Profile string   `mapstructure:"profile"`
	Params  []string `mapstructure:"params"`

	LogLevel string `mapstructure:"log_level"`

	// PresetSet reports whether Preset came from a file, the environment or a
	// flag rather than the default.
	PresetSet bool `mapstructure:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Input:     "pattern:colorbars",
		Width:     1280,
		Height:    720,
		FPS:       "30/1",
		ScaleMode: "fit",
		Preset:    10,
		LogLevel:  "info",
	}
}

// BindFlags registers the command-line flags that mirror Config.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.StringP("input", "i", d.Input, "input .y4m file, - for stdin, or pattern:<name>")
	fs.StringP("output", "o", d.Output, "output file (.ivf, .mp4 or .obu)")
	fs.String("recon", d.Recon, "write reconstructed pictures as raw I420 to this file")
	fs.String("stats", d.Stats, "write first-pass statistics to this file")
	fs.String("stats-in", d.StatsIn, "run a second pass using first-pass statistics from this file")
	fs.Bool("verify", d.Verify, "read the output back and decode it when libaom is built in")
	fs.Int("width", d.Width, "pattern width")
	fs.Int("height", d.Height, "pattern height")
	fs.String("fps", d.FPS, "pattern frame rate as num/den")
	fs.String("scale", d.Scale, "resize the input to WxH")
	fs.String("scale-mode", d.ScaleMode, "aspect handling when scaling: stretch, fit or fill")
	fs.Int("preset", d.Preset, "encoder preset [-2, 13]")
	fs.Int("qp", d.QP, "constant quantizer, 0 keeps the encoder default")
	fs.Int("keyint", d.Keyint, "keyframe interval in frames, 0 keeps the encoder default")
	fs.IntP("frames", "n", d.Frames, "stop after this many frames, 0 encodes the whole input")
	fs.String("profile", d.Profile, "YAML parameter profile")
	fs.StringArrayP("param", "p", nil, "encoder parameter as name=value, repeatable")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"param":      "params",
	"log-level":  "log_level",
	"scale-mode": "scale_mode",
	"stats-in":   "stats_in",
}

// Load resolves the configuration. cfgFile may be empty, in which case
// svtav1enc.yaml is looked up in the working directory and is optional.
// fs may be nil.
func Load(cfgFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("input", d.Input)
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("scale_mode", d.ScaleMode)
	v.SetDefault("preset", d.Preset)
	v.SetDefault("log_level", d.LogLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("svtav1enc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, k := range []string{"output", "recon", "stats", "stats_in", "verify", "scale", "qp", "keyint", "frames", "profile"} {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := f.Name
			if k, ok := flagKeys[key]; ok {
				key = k
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.PresetSet = v.InConfig("preset") || presetOverridden(fs)
	return cfg, cfg.Validate()
}

func presetOverridden(fs *pflag.FlagSet) bool {
	if fs != nil {
		if f := fs.Lookup("preset"); f != nil && f.Changed {
			return true
		}
	}
	_, ok := os.LookupEnv(EnvPrefix + "_PRESET")
	return ok
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if _, err := c.OutputFormat(); err != nil {
		return err
	}
	if c.Preset < -2 || c.Preset > 13 {
		return fmt.Errorf("config: preset %d out of range [-2, 13]", c.Preset)
	}
	if c.QP < 0 || c.QP > 63 {
		return fmt.Errorf("config: qp %d out of range [0, 63]", c.QP)
	}
	if c.Frames < 0 {
		return fmt.Errorf("config: frames must not be negative")
	}
	if _, _, err := c.FrameRate(); err != nil {
		return err
	}
	if _, _, _, err := c.ScaleSize(); err != nil {
		return err
	}
	return nil
}

// Format is an output container.
type Format string

const (
	FormatIVF Format = "ivf"
	FormatMP4 Format = "mp4"
	FormatOBU Format = "obu"
)

// OutputFormat derives the container from the output extension.
func (c *Config) OutputFormat() (Format, error) {
	switch strings.ToLower(filepath.Ext(c.Output)) {
	case ".ivf":
		return FormatIVF, nil
	case ".mp4", ".m4v":
		return FormatMP4, nil
	case ".obu", ".av1":
		return FormatOBU, nil
	}
	return "", fmt.Errorf("config: cannot infer container from %q", c.Output)
}

// FrameRate parses FPS as "num/den" or a plain integer.
func (c *Config) FrameRate() (num, den uint32, err error) {
	n, d, ok := strings.Cut(c.FPS, "/")
	if !ok {
		d = "1"
	}
	nv, err := strconv.ParseUint(strings.TrimSpace(n), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("config: fps %q: %w", c.FPS, err)
	}
	dv, err := strconv.ParseUint(strings.TrimSpace(d), 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("config: fps %q: %w", c.FPS, err)
	}
	if nv == 0 || dv == 0 {
		return 0, 0, fmt.Errorf("config: fps %q has a zero term", c.FPS)
	}
	return uint32(nv), uint32(dv), nil
}

// PatternName returns the pattern for "pattern:<name>" inputs.
func (c *Config) PatternName() (string, bool) {
	name, ok := strings.CutPrefix(c.Input, "pattern:")
	return name, ok
}

// ScaleSize parses Scale. ok is false when no scaling was asked for.
func (c *Config) ScaleSize() (w, h int, ok bool, err error) {
	if c.Scale == "" {
		return 0, 0, false, nil
	}
	ws, hs, found := strings.Cut(strings.ToLower(c.Scale), "x")
	if found {
		w, err = strconv.Atoi(ws)
		if err == nil {
			h, err = strconv.Atoi(hs)
		}
	}
	if !found || err != nil || w <= 0 || h <= 0 {
		return 0, 0, false, fmt.Errorf("config: scale %q is not WxH", c.Scale)
	}
	return w, h, true, nil
}
