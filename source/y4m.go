package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	y4mMagic       = "YUV4MPEG2"
	y4mFrameMarker = "FRAME"
	y4mMaxHeader   = 1024
)

// ErrUnsupportedY4M is returned for streams that are not 8-bit 4:2:0.
var ErrUnsupportedY4M = errors.New("y4m: unsupported colorspace")

// Y4MReader reads 8-bit 4:2:0 YUV4MPEG2 streams.
type Y4MReader struct {
	r     *bufio.Reader
	info  Info
	frame []byte
}

var _ Reader = (*Y4MReader)(nil)

// NewY4MReader parses the stream header. A missing frame rate defaults to
// 25/1, the YUV4MPEG2 convention.
func NewY4MReader(r io.Reader) (*Y4MReader, error) {
	br := bufio.NewReader(r)
	line, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("y4m: header: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != y4mMagic {
		return nil, fmt.Errorf("y4m: bad magic")
	}

	info := Info{FPSNum: 25, FPSDen: 1}
	for _, f := range fields[1:] {
		val := f[1:]
		switch f[0] {
		case 'W':
			info.Width, err = strconv.Atoi(val)
		case 'H':
			info.Height, err = strconv.Atoi(val)
		case 'F':
			info.FPSNum, info.FPSDen, err = parseRatio(val)
		case 'C':
			switch val {
			case "420", "420jpeg", "420paldv", "420mpeg2":
			default:
				return nil, fmt.Errorf("%w: C%s", ErrUnsupportedY4M, val)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("y4m: field %q: %w", f, err)
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("y4m: missing dimensions")
	}

	return &Y4MReader{r: br, info: info, frame: make([]byte, info.FrameSize())}, nil
}

func parseRatio(s string) (uint32, uint32, error) {
	num, den, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("want n:d")
	}
	n, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	d, err := strconv.ParseUint(den, 10, 32)
	if err != nil {
		return 0, 0, err
	}
	if n == 0 || d == 0 {
		return 0, 0, fmt.Errorf("zero in ratio")
	}
	return uint32(n), uint32(d), nil
}

func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", err
		}
		line = append(line, chunk...)
		if len(line) > y4mMaxHeader {
			return "", fmt.Errorf("line too long")
		}
		if !isPrefix {
			return string(line), nil
		}
	}
}

func (y *Y4MReader) Info() Info { return y.info }

// ReadFrame returns io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF for a truncated frame.
func (y *Y4MReader) ReadFrame() ([]byte, error) {
	line, err := readLine(y.r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, y4mFrameMarker) {
		return nil, fmt.Errorf("y4m: expected FRAME, got %q", truncate(line, 16))
	}
	if _, err := io.ReadFull(y.r, y.frame); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("y4m: frame: %w", err)
	}
	return y.frame, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Y4MWriter writes 8-bit 4:2:0 pictures as YUV4MPEG2.
type Y4MWriter struct {
	w           io.Writer
	info        Info
	wroteHeader bool
}

func NewY4MWriter(w io.Writer, info Info) *Y4MWriter {
	return &Y4MWriter{w: w, info: info}
}

// WriteFrame writes one I420 picture of Info().FrameSize() bytes.
func (y *Y4MWriter) WriteFrame(frame []byte) error {
	if len(frame) != y.info.FrameSize() {
		return fmt.Errorf("y4m: frame is %d bytes, want %d", len(frame), y.info.FrameSize())
	}
	var buf bytes.Buffer
	if !y.wroteHeader {
		fmt.Fprintf(&buf, "%s W%d H%d F%d:%d Ip A1:1 C420jpeg\n",
			y4mMagic, y.info.Width, y.info.Height, y.info.FPSNum, y.info.FPSDen)
		y.wroteHeader = true
	}
	buf.WriteString(y4mFrameMarker + "\n")
	if _, err := y.w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := y.w.Write(frame)
	return err
}
