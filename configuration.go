package svtav1

import (
	"fmt"
	"unsafe"
)

// Configuration mirrors EbSvtAv1EncConfiguration from SVT-AV1 2.3.
//
// Field order and sizes follow the C declaration exactly; the struct is
// passed to the library by address. Fields are written directly, without
// validation. The library checks the record as a whole when the encoder is
// finalized. See Validate for an optional early check of a few bounds.
type Configuration struct {
	// EncMode is the preset, -2 (slowest) to 13 (fastest).
	EncMode            int8
	IntraPeriodLength  int32
	IntraRefreshType   IntraRefreshType
	HierarchicalLevels uint32
	PredStructure      PredStructure

	SourceWidth           uint32
	SourceHeight          uint32
	ForcedMaxFrameWidth   uint32
	ForcedMaxFrameHeight  uint32
	FrameRateNumerator    uint32
	FrameRateDenominator  uint32
	EncoderBitDepth       BitDepth
	EncoderColorFormat    ColorFormat
	HighDynamicRangeInput uint8
	Profile               SeqProfile
	Tier                  uint32
	Level                 uint32

	ColorDescriptionPresentFlag uint8
	ColorPrimaries              ColorPrimaries
	TransferCharacteristics     TransferCharacteristics
	MatrixCoefficients          MatrixCoefficients
	ColorRange                  ColorRange
	MasteringDisplay            MasteringDisplayInfo
	ContentLightLevel           ContentLightLevel
	ChromaSamplePosition        ChromaSamplePosition

	RateControlMode       RateControlMode
	QP                    uint32
	UseQPFile             uint8
	TargetBitRate         uint32
	MaxBitRate            uint32
	MaxQPAllowed          uint32
	MinQPAllowed          uint32
	VBRMinSectionPct      uint32
	VBRMaxSectionPct      uint32
	UnderShootPct         uint32
	OverShootPct          uint32
	MBROverShootPct       uint32
	StartingBufferLevelMs int64
	OptimalBufferLevelMs  int64
	MaximumBufferSizeMs   int64

	rcStatsBuffer fixedBuf
	Pass          int32

	UseFixedQIndexOffsets      uint8
	QIndexOffsets              [6]int32
	KeyFrameChromaQIndexOffset int32
	KeyFrameQIndexOffset       int32
	ChromaQIndexOffsets        [6]int32
	LumaYDCQIndexOffset        int32
	ChromaUDCQIndexOffset      int32
	ChromaUACQIndexOffset      int32
	ChromaVDCQIndexOffset      int32
	ChromaVACQIndexOffset      int32

	EnableDLFFlag              uint8
	FilmGrainDenoiseStrength   uint32
	FilmGrainDenoiseApply      uint8
	CDEFLevel                  int32
	EnableRestorationFiltering int32
	EnableMFMV                 int32
	SceneChangeDetection       uint32
	RestrictedMotionVector     uint8
	TileColumns                int32
	TileRows                   int32
	LookAheadDistance          uint32
	EnableTPLLA                uint8
	RecodeLoop                 uint32
	ScreenContentMode          uint32
	EnableAdaptiveQuantization uint8
	EnableTF                   uint8
	EnableOverlays             uint8
	Tune                       uint8

	SuperresMode           uint8
	SuperresDenom          uint8
	SuperresKfDenom        uint8
	SuperresQthres         uint8
	SuperresKfQthres       uint8
	SuperresAutoSearchType uint8
	FastDecode             uint8

	SFrameDist int32
	SFrameMode SFrameMode

	ChannelID          uint32
	ActiveChannelCount uint32
	LogicalProcessors  uint32
	LevelOfParallelism uint32
	PinThreads         uint32
	TargetSocket       int32
	UseCPUFlags        uint64
	StatReport         uint32
	ReconEnabled       uint8
	ForceKeyFrames     uint8
	MultiplyKeyint     uint8
	ResizeMode         uint8
	ResizeDenom        uint8
	ResizeKfDenom      uint8
	EnableQM           uint8
	MinQMLevel         uint8
	MaxQMLevel         uint8
	GOPConstraintRC    uint8
	LambdaScaleFactors [7]int32
	EnableDG           uint8
	StartupMGSize      uint8

	frameScaleEvts frameScaleEvts
	EnableROIMap   uint8
	fgsTable       unsafe.Pointer

	EnableVarianceBoost   uint8
	VarianceBoostStrength uint8
	VarianceOctile        uint8

	padding [121]uint8
}

// MasteringDisplayInfo is SvtAv1MasteringDisplayInfo.
type MasteringDisplayInfo struct {
	R, G, B, WhitePoint ChromaPoint
	MaxLuma             uint32
	MinLuma             uint32
}

// ChromaPoint is a CIE 1931 coordinate in 0.16 fixed point.
type ChromaPoint struct {
	X, Y uint16
}

// ContentLightLevel holds MaxCLL and MaxFALL in cd/m².
type ContentLightLevel struct {
	MaxCLL  uint16
	MaxFALL uint16
}

type fixedBuf struct {
	buf unsafe.Pointer
	sz  uint64
}

type frameScaleEvts struct {
	evtNum         uint32
	startFrameNums unsafe.Pointer
	resizeKfDenoms unsafe.Pointer
	resizeDenoms   unsafe.Pointer
}

// configurationSize is the byte size the C library expects.
const configurationSize = unsafe.Sizeof(Configuration{})

// SetFrameRate sets the frame rate as a rational number.
func (c *Configuration) SetFrameRate(num, den uint32) {
	c.FrameRateNumerator = num
	c.FrameRateDenominator = den
}

// FrameRate returns the configured frame rate, or 0 if the denominator is unset.
func (c Configuration) FrameRate() float64 {
	if c.FrameRateDenominator == 0 {
		return 0
	}
	return float64(c.FrameRateNumerator) / float64(c.FrameRateDenominator)
}

// LowDelay reports whether the prediction structure makes GetPacket block.
func (c Configuration) LowDelay() bool {
	return c.PredStructure == PredLowDelayB
}

// Validate checks a handful of bounds the library would otherwise reject at
// finalization. It is never called implicitly.
func (c *Configuration) Validate() error {
	if c.SourceWidth < minWidth || c.SourceWidth > maxWidth {
		return ErrInvalidWidth
	}
	if c.SourceHeight < minHeight || c.SourceHeight > maxHeight {
		return ErrInvalidHeight
	}
	if c.EncMode < minPreset || c.EncMode > maxPreset {
		return ErrInvalidPreset
	}
	if c.QP > 63 {
		return fmt.Errorf("svtav1: qp %d out of range [0, 63]", c.QP)
	}
	if c.MaxQPAllowed > 63 || c.MinQPAllowed > 63 {
		return fmt.Errorf("svtav1: qp bounds [%d, %d] out of range [0, 63]", c.MinQPAllowed, c.MaxQPAllowed)
	}
	if c.MinQPAllowed > c.MaxQPAllowed && c.MaxQPAllowed != 0 {
		return fmt.Errorf("svtav1: min qp %d above max qp %d", c.MinQPAllowed, c.MaxQPAllowed)
	}
	if c.MinQMLevel > 15 || c.MaxQMLevel > 15 || c.MinQMLevel > c.MaxQMLevel {
		return fmt.Errorf("svtav1: qm levels [%d, %d] invalid", c.MinQMLevel, c.MaxQMLevel)
	}
	if c.TileColumns < 0 || c.TileColumns > 6 || c.TileRows < 0 || c.TileRows > 6 {
		return fmt.Errorf("svtav1: tile log2 (%d, %d) out of range [0, 6]", c.TileColumns, c.TileRows)
	}
	if c.FrameRateNumerator != 0 && c.FrameRateDenominator == 0 {
		return fmt.Errorf("svtav1: frame rate denominator is zero")
	}
	return nil
}

// IntraRefreshType selects how intra periods are refreshed.
type IntraRefreshType uint32

const (
	RefreshFwdKey IntraRefreshType = 1
	RefreshKey    IntraRefreshType = 2
)

func (t IntraRefreshType) String() string {
	switch t {
	case RefreshFwdKey:
		return "FwdKF"
	case RefreshKey:
		return "KF"
	default:
		return fmt.Sprintf("IntraRefreshType(%d)", uint32(t))
	}
}

// PredStructure is the prediction structure. Low delay makes packet
// retrieval blocking.
type PredStructure uint8

const (
	PredLowDelayP    PredStructure = 0
	PredLowDelayB    PredStructure = 1
	PredRandomAccess PredStructure = 2
)

func (p PredStructure) String() string {
	switch p {
	case PredLowDelayP:
		return "LowDelayP"
	case PredLowDelayB:
		return "LowDelayB"
	case PredRandomAccess:
		return "RandomAccess"
	default:
		return fmt.Sprintf("PredStructure(%d)", uint8(p))
	}
}

// RateControlMode selects the rate control algorithm.
type RateControlMode uint32

const (
	RateControlCQP RateControlMode = 0
	RateControlVBR RateControlMode = 1
	RateControlCBR RateControlMode = 2
)

func (m RateControlMode) String() string {
	switch m {
	case RateControlCQP:
		return "CQP/CRF"
	case RateControlVBR:
		return "VBR"
	case RateControlCBR:
		return "CBR"
	default:
		return fmt.Sprintf("RateControlMode(%d)", uint32(m))
	}
}

// BitDepth is the sample bit depth.
type BitDepth uint32

const (
	BitDepth8  BitDepth = 8
	BitDepth10 BitDepth = 10
	BitDepth12 BitDepth = 12
	BitDepth14 BitDepth = 14
	BitDepth16 BitDepth = 16
	BitDepth32 BitDepth = 32
)

func (b BitDepth) String() string {
	return fmt.Sprintf("%d-bit", uint32(b))
}

// BytesPerSample is 1 for 8-bit content and 2 otherwise.
func (b BitDepth) BytesPerSample() int {
	if b <= BitDepth8 {
		return 1
	}
	return 2
}

// ColorFormat is the chroma subsampling.
type ColorFormat uint32

const (
	ColorFormatYUV400 ColorFormat = 0
	ColorFormatYUV420 ColorFormat = 1
	ColorFormatYUV422 ColorFormat = 2
	ColorFormatYUV444 ColorFormat = 3
)

func (f ColorFormat) String() string {
	switch f {
	case ColorFormatYUV400:
		return "YUV400"
	case ColorFormatYUV420:
		return "YUV420"
	case ColorFormatYUV422:
		return "YUV422"
	case ColorFormatYUV444:
		return "YUV444"
	default:
		return fmt.Sprintf("ColorFormat(%d)", uint32(f))
	}
}

// SeqProfile is the AV1 sequence profile.
type SeqProfile uint32

const (
	ProfileMain         SeqProfile = 0
	ProfileHigh         SeqProfile = 1
	ProfileProfessional SeqProfile = 2
)

func (p SeqProfile) String() string {
	switch p {
	case ProfileMain:
		return "Main"
	case ProfileHigh:
		return "High"
	case ProfileProfessional:
		return "Professional"
	default:
		return fmt.Sprintf("SeqProfile(%d)", uint32(p))
	}
}

// SFrameMode controls S-frame placement.
type SFrameMode uint32

const (
	SFrameStrictBase  SFrameMode = 1
	SFrameNearestBase SFrameMode = 2
)

func (m SFrameMode) String() string {
	switch m {
	case SFrameStrictBase:
		return "StrictBase"
	case SFrameNearestBase:
		return "NearestBase"
	default:
		return fmt.Sprintf("SFrameMode(%d)", uint32(m))
	}
}

// ColorRange is the CICP video range.
type ColorRange uint32

const (
	ColorRangeStudio ColorRange = 0
	ColorRangeFull   ColorRange = 1
)

func (r ColorRange) String() string {
	switch r {
	case ColorRangeStudio:
		return "Studio"
	case ColorRangeFull:
		return "Full"
	default:
		return fmt.Sprintf("ColorRange(%d)", uint32(r))
	}
}

// ChromaSamplePosition is the location of chroma samples relative to luma.
type ChromaSamplePosition uint32

const (
	ChromaSampleUnknown   ChromaSamplePosition = 0
	ChromaSampleVertical  ChromaSamplePosition = 1
	ChromaSampleColocated ChromaSamplePosition = 2
	ChromaSampleReserved  ChromaSamplePosition = 3
)

func (p ChromaSamplePosition) String() string {
	switch p {
	case ChromaSampleUnknown:
		return "Unknown"
	case ChromaSampleVertical:
		return "Vertical"
	case ChromaSampleColocated:
		return "Colocated"
	case ChromaSampleReserved:
		return "Reserved"
	default:
		return fmt.Sprintf("ChromaSamplePosition(%d)", uint32(p))
	}
}

// ColorPrimaries are CICP colour primaries (ISO/IEC 23091-4).
type ColorPrimaries uint32

const (
	PrimariesBT709       ColorPrimaries = 1
	PrimariesUnspecified ColorPrimaries = 2
	PrimariesBT470M      ColorPrimaries = 4
	PrimariesBT470BG     ColorPrimaries = 5
	PrimariesBT601       ColorPrimaries = 6
	PrimariesSMPTE240    ColorPrimaries = 7
	PrimariesGenericFilm ColorPrimaries = 8
	PrimariesBT2020      ColorPrimaries = 9
	PrimariesXYZ         ColorPrimaries = 10
	PrimariesSMPTE431    ColorPrimaries = 11
	PrimariesSMPTE432    ColorPrimaries = 12
	PrimariesEBU3213     ColorPrimaries = 22
)

var colorPrimariesNames = map[ColorPrimaries]string{
	PrimariesBT709:       "BT.709",
	PrimariesUnspecified: "Unspecified",
	PrimariesBT470M:      "BT.470M",
	PrimariesBT470BG:     "BT.470BG",
	PrimariesBT601:       "BT.601",
	PrimariesSMPTE240:    "SMPTE240",
	PrimariesGenericFilm: "GenericFilm",
	PrimariesBT2020:      "BT.2020",
	PrimariesXYZ:         "XYZ",
	PrimariesSMPTE431:    "SMPTE431",
	PrimariesSMPTE432:    "SMPTE432",
	PrimariesEBU3213:     "EBU3213",
}

func (p ColorPrimaries) String() string {
	if s, ok := colorPrimariesNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Reserved(%d)", uint32(p))
}

// TransferCharacteristics are CICP transfer functions.
type TransferCharacteristics uint32

const (
	TransferBT709        TransferCharacteristics = 1
	TransferUnspecified  TransferCharacteristics = 2
	TransferBT470M       TransferCharacteristics = 4
	TransferBT470BG      TransferCharacteristics = 5
	TransferBT601        TransferCharacteristics = 6
	TransferSMPTE240     TransferCharacteristics = 7
	TransferLinear       TransferCharacteristics = 8
	TransferLog100       TransferCharacteristics = 9
	TransferLog100Sqrt10 TransferCharacteristics = 10
	TransferIEC61966     TransferCharacteristics = 11
	TransferBT1361       TransferCharacteristics = 12
	TransferSRGB         TransferCharacteristics = 13
	TransferBT2020_10Bit TransferCharacteristics = 14
	TransferBT2020_12Bit TransferCharacteristics = 15
	TransferSMPTE2084    TransferCharacteristics = 16
	TransferSMPTE428     TransferCharacteristics = 17
	TransferHLG          TransferCharacteristics = 18
)

var transferNames = map[TransferCharacteristics]string{
	TransferBT709:        "BT.709",
	TransferUnspecified:  "Unspecified",
	TransferBT470M:       "BT.470M",
	TransferBT470BG:      "BT.470BG",
	TransferBT601:        "BT.601",
	TransferSMPTE240:     "SMPTE240",
	TransferLinear:       "Linear",
	TransferLog100:       "Log100",
	TransferLog100Sqrt10: "Log100Sqrt10",
	TransferIEC61966:     "IEC61966",
	TransferBT1361:       "BT.1361",
	TransferSRGB:         "sRGB",
	TransferBT2020_10Bit: "BT.2020-10",
	TransferBT2020_12Bit: "BT.2020-12",
	TransferSMPTE2084:    "PQ",
	TransferSMPTE428:     "SMPTE428",
	TransferHLG:          "HLG",
}

func (t TransferCharacteristics) String() string {
	if s, ok := transferNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Reserved(%d)", uint32(t))
}

// MatrixCoefficients are CICP matrix coefficients.
type MatrixCoefficients uint32

const (
	MatrixIdentity    MatrixCoefficients = 0
	MatrixBT709       MatrixCoefficients = 1
	MatrixUnspecified MatrixCoefficients = 2
	MatrixFCC         MatrixCoefficients = 4
	MatrixBT470BG     MatrixCoefficients = 5
	MatrixBT601       MatrixCoefficients = 6
	MatrixSMPTE240    MatrixCoefficients = 7
	MatrixYCgCo       MatrixCoefficients = 8
	MatrixBT2020NCL   MatrixCoefficients = 9
	MatrixBT2020CL    MatrixCoefficients = 10
	MatrixSMPTE2085   MatrixCoefficients = 11
	MatrixChromatNCL  MatrixCoefficients = 12
	MatrixChromatCL   MatrixCoefficients = 13
	MatrixICtCp       MatrixCoefficients = 14
)

var matrixNames = map[MatrixCoefficients]string{
	MatrixIdentity:    "Identity",
	MatrixBT709:       "BT.709",
	MatrixUnspecified: "Unspecified",
	MatrixFCC:         "FCC",
	MatrixBT470BG:     "BT.470BG",
	MatrixBT601:       "BT.601",
	MatrixSMPTE240:    "SMPTE240",
	MatrixYCgCo:       "YCgCo",
	MatrixBT2020NCL:   "BT.2020-NCL",
	MatrixBT2020CL:    "BT.2020-CL",
	MatrixSMPTE2085:   "SMPTE2085",
	MatrixChromatNCL:  "ChromatNCL",
	MatrixChromatCL:   "ChromatCL",
	MatrixICtCp:       "ICtCp",
}

func (m MatrixCoefficients) String() string {
	if s, ok := matrixNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Reserved(%d)", uint32(m))
}
