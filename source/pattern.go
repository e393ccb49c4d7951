package source

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// PatternType selects the picture a Pattern draws.
type PatternType int

const (
	PatternColorBars    PatternType = iota // SMPTE color bars
	PatternGradient                        // Horizontal gradient
	PatternCheckerboard                    // Checkerboard pattern
	PatternSolidColor                      // Solid color
	PatternNoise                           // Random noise
	PatternMovingBox                       // Moving box (animated)
)

func (p PatternType) String() string {
	switch p {
	case PatternColorBars:
		return "ColorBars"
	case PatternGradient:
		return "Gradient"
	case PatternCheckerboard:
		return "Checkerboard"
	case PatternSolidColor:
		return "SolidColor"
	case PatternNoise:
		return "Noise"
	case PatternMovingBox:
		return "MovingBox"
	default:
		return "Unknown"
	}
}

// ParsePatternType accepts the String form, case-insensitively.
func ParsePatternType(s string) (PatternType, error) {
	for p := PatternColorBars; p <= PatternMovingBox; p++ {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// PatternConfig configures a Pattern.
type PatternConfig struct {
	Width   int         // Frame width (default: 1280)
	Height  int         // Frame height (default: 720)
	FPSNum  uint32      // Frame rate numerator (default: 30)
	FPSDen  uint32      // Frame rate denominator (default: 1)
	Pattern PatternType // Pattern type (default: ColorBars)
	Frames  int         // Frames before io.EOF; 0 means unlimited
	// Animated redraws static patterns every frame, shifted by the frame
	// number. MovingBox and Noise always animate.
	Animated bool

	// For SolidColor pattern
	SolidR, SolidG, SolidB uint8

	// For Checkerboard pattern
	CheckerSize int // Size of each checker square (default: 32)

	// Seed for the noise generator; 0 picks a fixed default.
	Seed uint64
}

// DefaultPatternConfig returns a 720p30 color bar configuration.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		Width:       1280,
		Height:      720,
		FPSNum:      30,
		FPSDen:      1,
		Pattern:     PatternColorBars,
		CheckerSize: 32,
	}
}

// Pattern generates synthetic pictures on demand.
type Pattern struct {
	config PatternConfig

	frameData []byte
	yPlane    []byte
	uPlane    []byte
	vPlane    []byte
	cw, ch    int

	frameCount int
	rngState   uint64
}

var _ Reader = (*Pattern)(nil)

// NewPattern creates a pattern source, applying defaults for unset fields.
func NewPattern(config PatternConfig) *Pattern {
	if config.Width <= 0 {
		config.Width = 1280
	}
	if config.Height <= 0 {
		config.Height = 720
	}
	if config.FPSNum == 0 || config.FPSDen == 0 {
		config.FPSNum, config.FPSDen = 30, 1
	}
	if config.CheckerSize <= 0 {
		config.CheckerSize = 32
	}
	if config.Seed == 0 {
		config.Seed = 0x9E3779B97F4A7C15
	}

	ySize := config.Width * config.Height
	cw, ch := (config.Width+1)/2, (config.Height+1)/2
	uvSize := cw * ch
	frameData := make([]byte, ySize+2*uvSize)

	p := &Pattern{
		config:    config,
		frameData: frameData,
		yPlane:    frameData[:ySize],
		uPlane:    frameData[ySize : ySize+uvSize],
		vPlane:    frameData[ySize+uvSize:],
		cw:        cw,
		ch:        ch,
		rngState:  config.Seed,
	}
	p.generate(0)
	return p
}

func (p *Pattern) Info() Info {
	return Info{
		Width:  p.config.Width,
		Height: p.config.Height,
		FPSNum: p.config.FPSNum,
		FPSDen: p.config.FPSDen,
	}
}

// ReadFrame returns the next picture, or io.EOF after config.Frames
// pictures.
func (p *Pattern) ReadFrame() ([]byte, error) {
	if p.config.Frames > 0 && p.frameCount >= p.config.Frames {
		return nil, io.EOF
	}
	if p.frameCount > 0 && p.animates() {
		p.generate(p.frameCount)
	}
	p.frameCount++
	return p.frameData, nil
}

func (p *Pattern) animates() bool {
	return p.config.Animated || p.config.Pattern == PatternMovingBox || p.config.Pattern == PatternNoise
}

func (p *Pattern) generate(frameNum int) {
	shift := 0
	if p.config.Animated {
		shift = frameNum * 4
	}
	switch p.config.Pattern {
	case PatternGradient:
		p.generateGradient(shift)
	case PatternCheckerboard:
		p.generateCheckerboard(shift)
	case PatternSolidColor:
		p.generateSolidColor(p.config.SolidR, p.config.SolidG, p.config.SolidB)
	case PatternNoise:
		p.generateNoise()
	case PatternMovingBox:
		p.generateMovingBox(frameNum)
	default:
		p.generateColorBars(shift)
	}
}

// SMPTE color bars (simplified 8-bar pattern)
var colorBarsRGB = [][3]uint8{
	{192, 192, 192}, // White (75%)
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
	{16, 16, 16},    // Black
}

func (p *Pattern) setChroma(x, y int, u, v uint8) {
	if x%2 == 0 && y%2 == 0 {
		idx := (y/2)*p.cw + x/2
		p.uPlane[idx] = u
		p.vPlane[idx] = v
	}
}

func (p *Pattern) generateColorBars(shift int) {
	w, h := p.config.Width, p.config.Height
	barWidth := max(w/8, 1)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			barIdx := ((x + shift) % w) / barWidth
			if barIdx >= 8 {
				barIdx = 7
			}
			rgb := colorBarsRGB[barIdx]
			yVal, u, v := rgbToYUV(rgb[0], rgb[1], rgb[2])
			p.yPlane[y*w+x] = yVal
			p.setChroma(x, y, u, v)
		}
	}
}

func (p *Pattern) generateGradient(shift int) {
	w, h := p.config.Width, p.config.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.yPlane[y*w+x] = uint8(16 + (((x+shift)%w)*219)/w)
			p.setChroma(x, y, 128, 128)
		}
	}
}

func (p *Pattern) generateCheckerboard(shift int) {
	w, h := p.config.Width, p.config.Height
	size := p.config.CheckerSize

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			yVal := uint8(16)
			if (((x+shift)/size)+(y/size))%2 == 0 {
				yVal = 235
			}
			p.yPlane[y*w+x] = yVal
			p.setChroma(x, y, 128, 128)
		}
	}
}

func (p *Pattern) generateSolidColor(r, g, b uint8) {
	yVal, u, v := rgbToYUV(r, g, b)
	for i := range p.yPlane {
		p.yPlane[i] = yVal
	}
	for i := range p.uPlane {
		p.uPlane[i] = u
		p.vPlane[i] = v
	}
}

func (p *Pattern) generateNoise() {
	// xorshift64
	for i := range p.yPlane {
		p.rngState ^= p.rngState << 13
		p.rngState ^= p.rngState >> 7
		p.rngState ^= p.rngState << 17
		p.yPlane[i] = uint8(p.rngState)
	}
	for i := range p.uPlane {
		p.uPlane[i] = 128
		p.vPlane[i] = 128
	}
}

func (p *Pattern) generateMovingBox(frameNum int) {
	w, h := p.config.Width, p.config.Height

	for i := range p.yPlane {
		p.yPlane[i] = 16
	}
	for i := range p.uPlane {
		p.uPlane[i] = 128
		p.vPlane[i] = 128
	}

	// The box circles the center.
	boxSize := max(min(w, h)/8, 2)
	radius := float64(min(w, h)) / 4
	angle := float64(frameNum) * 0.05
	boxX := w/2 + int(radius*math.Cos(angle)) - boxSize/2
	boxY := h/2 + int(radius*math.Sin(angle)) - boxSize/2

	for y := max(boxY, 0); y < boxY+boxSize && y < h; y++ {
		for x := max(boxX, 0); x < boxX+boxSize && x < w; x++ {
			p.yPlane[y*w+x] = 235
		}
	}
}

// rgbToYUV converts RGB to studio-range YUV (BT.601).
func rgbToYUV(r, g, b uint8) (y, u, v uint8) {
	yf := 16.0 + 65.481*float64(r)/255.0 + 128.553*float64(g)/255.0 + 24.966*float64(b)/255.0
	uf := 128.0 - 37.797*float64(r)/255.0 - 74.203*float64(g)/255.0 + 112.0*float64(b)/255.0
	vf := 128.0 + 112.0*float64(r)/255.0 - 93.786*float64(g)/255.0 - 18.214*float64(b)/255.0

	y = uint8(clamp(yf, 16, 235))
	u = uint8(clamp(uf, 16, 240))
	v = uint8(clamp(vf, 16, 240))
	return
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
