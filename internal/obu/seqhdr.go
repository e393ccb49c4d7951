package obu

import "fmt"

// SequenceInfo is the subset of a sequence header needed to describe a
// stream in a container (av1C, SDP).
type SequenceInfo struct {
	Profile                 uint8
	StillPicture            bool
	Level                   uint8 // seq_level_idx of operating point 0
	Tier                    uint8
	MaxWidth                uint32
	MaxHeight               uint32
	BitDepth                uint8
	MonoChrome              bool
	SubsamplingX            uint8
	SubsamplingY            uint8
	ChromaSamplePosition    uint8
	ColorRange              uint8
	ColorPrimaries          uint8
	TransferCharacteristics uint8
	MatrixCoefficients      uint8
}

type bitReader struct {
	data []byte
	pos  int // in bits
}

func (r *bitReader) bits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		byteIdx := r.pos >> 3
		if byteIdx >= len(r.data) {
			return 0, ErrTruncated
		}
		bit := (r.data[byteIdx] >> (7 - uint(r.pos&7))) & 1
		v = v<<1 | uint32(bit)
		r.pos++
	}
	return v, nil
}

func (r *bitReader) flag() (bool, error) {
	v, err := r.bits(1)
	return v == 1, err
}

func (r *bitReader) uvlc() (uint32, error) {
	leading := 0
	for {
		done, err := r.flag()
		if err != nil {
			return 0, err
		}
		if done {
			break
		}
		leading++
		if leading >= 32 {
			return 1<<32 - 1, nil
		}
	}
	v, err := r.bits(leading)
	return v + (1<<leading - 1), err
}

// ParseSequenceHeader decodes a sequence header OBU (header included).
func ParseSequenceHeader(raw []byte) (*SequenceInfo, error) {
	units, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 || units[0].Type != TypeSequenceHeader {
		return nil, fmt.Errorf("obu: not a sequence header")
	}
	info, err := parseSequenceHeader(&bitReader{data: units[0].Payload})
	if err != nil {
		return nil, fmt.Errorf("obu: sequence header: %w", err)
	}
	return info, nil
}

func parseSequenceHeader(r *bitReader) (*SequenceInfo, error) {
	// err is sticky; reads after the first failure return 0.
	var err error
	read := func(n int) uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = r.bits(n)
		return v
	}
	flag := func() bool { return read(1) == 1 }

	info := &SequenceInfo{}
	info.Profile = uint8(read(3))
	info.StillPicture = flag()
	reduced := flag()

	if reduced {
		info.Level = uint8(read(5))
	} else {
		var decoderModelInfo bool
		var bufferDelayLen int
		if flag() { // timing_info_present_flag
			read(32) // num_units_in_display_tick
			read(32) // time_scale
			if flag() {
				if err == nil {
					_, err = r.uvlc()
				}
			}
			decoderModelInfo = flag()
			if decoderModelInfo {
				bufferDelayLen = int(read(5)) + 1
				read(32)
				read(5)
				read(5)
			}
		}
		initialDisplayDelay := flag()
		opCount := int(read(5)) + 1
		for i := 0; i < opCount && err == nil; i++ {
			read(12) // operating_point_idc
			level := uint8(read(5))
			var tier uint8
			if level > 7 {
				tier = uint8(read(1))
			}
			if decoderModelInfo && flag() {
				read(bufferDelayLen)
				read(bufferDelayLen)
				read(1)
			}
			if initialDisplayDelay && flag() {
				read(4)
			}
			if i == 0 {
				info.Level = level
				info.Tier = tier
			}
		}
	}
	if err != nil {
		return nil, err
	}

	wBits := int(read(4)) + 1
	hBits := int(read(4)) + 1
	info.MaxWidth = read(wBits) + 1
	info.MaxHeight = read(hBits) + 1
	if !reduced && flag() { // frame_id_numbers_present_flag
		read(4)
		read(3)
	}
	read(3) // use_128x128_superblock, enable_filter_intra, enable_intra_edge_filter
	if !reduced {
		read(4) // interintra, masked compound, warped motion, dual filter
		orderHint := flag()
		if orderHint {
			read(2) // jnt_comp, ref_frame_mvs
		}
		forceScreenContent := uint32(2)
		if !flag() { // seq_choose_screen_content_tools
			forceScreenContent = read(1)
		}
		if forceScreenContent > 0 && !flag() { // seq_choose_integer_mv
			read(1)
		}
		if orderHint {
			read(3)
		}
	}
	read(3) // superres, cdef, restoration
	if err != nil {
		return nil, err
	}

	if err := parseColorConfig(r, info); err != nil {
		return nil, err
	}
	return info, nil
}

func parseColorConfig(r *bitReader, info *SequenceInfo) error {
	var err error
	read := func(n int) uint32 {
		if err != nil {
			return 0
		}
		var v uint32
		v, err = r.bits(n)
		return v
	}
	flag := func() bool { return read(1) == 1 }

	info.BitDepth = 8
	highBitDepth := flag()
	if info.Profile == 2 && highBitDepth {
		if flag() {
			info.BitDepth = 12
		} else {
			info.BitDepth = 10
		}
	} else if highBitDepth {
		info.BitDepth = 10
	}

	if info.Profile != 1 {
		info.MonoChrome = flag()
	}

	info.ColorPrimaries, info.TransferCharacteristics, info.MatrixCoefficients = 2, 2, 2
	if flag() { // color_description_present_flag
		info.ColorPrimaries = uint8(read(8))
		info.TransferCharacteristics = uint8(read(8))
		info.MatrixCoefficients = uint8(read(8))
	}

	switch {
	case info.MonoChrome:
		info.ColorRange = uint8(read(1))
		info.SubsamplingX, info.SubsamplingY = 1, 1
		return err
	case info.ColorPrimaries == 1 && info.TransferCharacteristics == 13 && info.MatrixCoefficients == 0:
		info.ColorRange = 1
	default:
		info.ColorRange = uint8(read(1))
		switch info.Profile {
		case 0:
			info.SubsamplingX, info.SubsamplingY = 1, 1
		case 1:
		default:
			if info.BitDepth == 12 {
				info.SubsamplingX = uint8(read(1))
				if info.SubsamplingX == 1 {
					info.SubsamplingY = uint8(read(1))
				}
			} else {
				info.SubsamplingX = 1
			}
		}
		if info.SubsamplingX == 1 && info.SubsamplingY == 1 {
			info.ChromaSamplePosition = uint8(read(2))
		}
	}
	return err
}
