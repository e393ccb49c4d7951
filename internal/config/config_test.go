package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", newFlags(t, "-o", "out.ivf"))
	require.NoError(t, err)

	assert.Equal(t, "pattern:colorbars", cfg.Input)
	assert.Equal(t, "out.ivf", cfg.Output)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.Equal(t, 10, cfg.Preset)
	assert.False(t, cfg.PresetSet)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Params)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load("", newFlags(t,
		"-i", "clip.y4m", "-o", "out.mp4", "--preset", "8", "--qp", "30",
		"-p", "tune=0", "-p", "enable-tf=0", "-n", "12", "--log-level", "debug"))
	require.NoError(t, err)

	assert.Equal(t, "clip.y4m", cfg.Input)
	assert.Equal(t, 8, cfg.Preset)
	assert.True(t, cfg.PresetSet)
	assert.Equal(t, 30, cfg.QP)
	assert.Equal(t, 12, cfg.Frames)
	assert.Equal(t, []string{"tune=0", "enable-tf=0"}, cfg.Params)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_StatsIn(t *testing.T) {
	cfg, err := Load("", newFlags(t, "-o", "out.ivf", "--stats-in", "pass1.stat"))
	require.NoError(t, err)
	assert.Equal(t, "pass1.stat", cfg.StatsIn)

	t.Setenv("SVTAV1_STATS_IN", "env.stat")
	cfg, err = Load("", newFlags(t, "-o", "out.ivf"))
	require.NoError(t, err)
	assert.Equal(t, "env.stat", cfg.StatsIn)
}

func TestLoad_FileEnvFlagPrecedence(t *testing.T) {
	path := writeFile(t, "enc.yaml", `
output: file.ivf
preset: 4
qp: 20
keyint: 120
params:
  - scd=1
`)
	t.Setenv("SVTAV1_QP", "25")

	cfg, err := Load(path, newFlags(t, "--keyint", "60"))
	require.NoError(t, err)

	assert.Equal(t, "file.ivf", cfg.Output)
	assert.Equal(t, 4, cfg.Preset)
	assert.True(t, cfg.PresetSet, "preset from file")
	assert.Equal(t, 25, cfg.QP, "env beats file")
	assert.Equal(t, 60, cfg.Keyint, "flag beats file")
	assert.Equal(t, []string{"scd=1"}, cfg.Params)
}

func TestLoad_EnvPreset(t *testing.T) {
	t.Setenv("SVTAV1_PRESET", "12")
	t.Setenv("SVTAV1_OUTPUT", "env.obu")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Preset)
	assert.True(t, cfg.PresetSet)
	assert.Equal(t, "env.obu", cfg.Output)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), newFlags(t, "-o", "x.ivf"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no output", func(c *Config) { c.Output = "" }},
		{"unknown container", func(c *Config) { c.Output = "out.webm" }},
		{"preset high", func(c *Config) { c.Preset = 14 }},
		{"preset low", func(c *Config) { c.Preset = -3 }},
		{"qp", func(c *Config) { c.QP = 64 }},
		{"frames", func(c *Config) { c.Frames = -1 }},
		{"fps", func(c *Config) { c.FPS = "30/0" }},
		{"fps text", func(c *Config) { c.FPS = "fast" }},
		{"scale", func(c *Config) { c.Scale = "640" }},
		{"scale zero", func(c *Config) { c.Scale = "0x480" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Output = "out.ivf"
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOutputFormat(t *testing.T) {
	for out, want := range map[string]Format{
		"a.ivf": FormatIVF,
		"b.MP4": FormatMP4,
		"c.m4v": FormatMP4,
		"d.obu": FormatOBU,
		"e.av1": FormatOBU,
	} {
		cfg := &Config{Output: out}
		got, err := cfg.OutputFormat()
		require.NoError(t, err, out)
		assert.Equal(t, want, got, out)
	}
}

func TestFrameRate(t *testing.T) {
	cfg := &Config{FPS: "30000/1001"}
	n, d, err := cfg.FrameRate()
	require.NoError(t, err)
	assert.Equal(t, uint32(30000), n)
	assert.Equal(t, uint32(1001), d)

	cfg.FPS = "25"
	n, d, err = cfg.FrameRate()
	require.NoError(t, err)
	assert.Equal(t, uint32(25), n)
	assert.Equal(t, uint32(1), d)
}

func TestPatternName(t *testing.T) {
	name, ok := (&Config{Input: "pattern:movingbox"}).PatternName()
	assert.True(t, ok)
	assert.Equal(t, "movingbox", name)

	_, ok = (&Config{Input: "clip.y4m"}).PatternName()
	assert.False(t, ok)
}

func TestScaleSize(t *testing.T) {
	_, _, ok, err := (&Config{}).ScaleSize()
	require.NoError(t, err)
	assert.False(t, ok)

	w, h, ok, err := (&Config{Scale: "640X360"}).ScaleSize()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)
}
