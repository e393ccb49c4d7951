//go:build !cgo && (linux || darwin) && !nosvtav1

// SvtAv1Enc bindings using purego.

package svtav1

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// libSvtAv1Enc function pointers
var (
	svtGetVersion          func() uintptr
	svtPrintVersion        func()
	svtInitHandle          func(pHandle, appData, cfg unsafe.Pointer) int32
	svtSetParameter        func(h, cfg unsafe.Pointer) int32
	svtParseParameter      func(cfg, name, value unsafe.Pointer) int32
	svtInit                func(h unsafe.Pointer) int32
	svtStreamHeader        func(h, out unsafe.Pointer) int32
	svtStreamHeaderRelease func(hdr unsafe.Pointer) int32
	svtSendPicture         func(h, hdr unsafe.Pointer) int32
	svtGetPacket           func(h, out unsafe.Pointer, picSendDone uint8) int32
	svtReleaseOutBuffer    func(hdr unsafe.Pointer)
	svtGetRecon            func(h, hdr unsafe.Pointer) int32
	svtGetStreamInfo       func(h unsafe.Pointer, id uint32, info unsafe.Pointer) int32
	svtDeinit              func(h unsafe.Pointer) int32
	svtDeinitHandle        func(h unsafe.Pointer) int32
)

type puregoCore struct {
	lib uintptr
}

func openCore() (core, error) {
	paths := svtLibPaths()

	var lastErr error
	for _, path := range paths {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			lastErr = err
			continue
		}
		if err := loadSvtSymbols(handle); err != nil {
			purego.Dlclose(handle)
			lastErr = err
			continue
		}
		return puregoCore{lib: handle}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotAvailable, lastErr)
	}
	return nil, fmt.Errorf("%w: not found in any standard location", ErrNotAvailable)
}

func svtLibNames() []string {
	if runtime.GOOS == "darwin" {
		return []string{"libSvtAv1Enc.dylib", "libSvtAv1Enc.3.dylib", "libSvtAv1Enc.2.dylib"}
	}
	return []string{"libSvtAv1Enc.so", "libSvtAv1Enc.so.3", "libSvtAv1Enc.so.2"}
}

func svtLibPaths() []string {
	var dirs []string

	// SVT_AV1_LIB may name the library file itself or its directory.
	var paths []string
	if env := os.Getenv("SVT_AV1_LIB"); env != "" {
		if fi, err := os.Stat(env); err == nil && !fi.IsDir() {
			paths = append(paths, env)
		} else {
			dirs = append(dirs, env)
		}
	}
	if env := os.Getenv("SVT_AV1_LIB_PATH"); env != "" {
		dirs = append(dirs, env)
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Join(exeDir, "..", "lib"))
	}

	if root := findSourceRoot(); root != "" {
		dirs = append(dirs, filepath.Join(root, "build"), filepath.Join(root, "build", "lib"))
	}
	if root := findModuleRoot(); root != "" {
		dirs = append(dirs, filepath.Join(root, "build"), filepath.Join(root, "build", "lib"))
	}

	switch runtime.GOOS {
	case "darwin":
		dirs = append(dirs, "/usr/local/lib", "/opt/homebrew/lib")
	case "linux":
		dirs = append(dirs, "/usr/local/lib", "/usr/lib", "/usr/lib/x86_64-linux-gnu", "/usr/lib/aarch64-linux-gnu")
	}

	names := svtLibNames()
	for _, dir := range dirs {
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	// Bare names last, resolved by the dynamic loader.
	return append(paths, names...)
}

func loadSvtSymbols(lib uintptr) (err error) {
	// RegisterLibFunc panics on a missing symbol.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load SvtAv1Enc symbols: %v", r)
		}
	}()

	purego.RegisterLibFunc(&svtGetVersion, lib, "svt_av1_get_version")
	purego.RegisterLibFunc(&svtPrintVersion, lib, "svt_av1_print_version")
	purego.RegisterLibFunc(&svtInitHandle, lib, "svt_av1_enc_init_handle")
	purego.RegisterLibFunc(&svtSetParameter, lib, "svt_av1_enc_set_parameter")
	purego.RegisterLibFunc(&svtParseParameter, lib, "svt_av1_enc_parse_parameter")
	purego.RegisterLibFunc(&svtInit, lib, "svt_av1_enc_init")
	purego.RegisterLibFunc(&svtStreamHeader, lib, "svt_av1_enc_stream_header")
	purego.RegisterLibFunc(&svtStreamHeaderRelease, lib, "svt_av1_enc_stream_header_release")
	purego.RegisterLibFunc(&svtSendPicture, lib, "svt_av1_enc_send_picture")
	purego.RegisterLibFunc(&svtGetPacket, lib, "svt_av1_enc_get_packet")
	purego.RegisterLibFunc(&svtReleaseOutBuffer, lib, "svt_av1_enc_release_out_buffer")
	purego.RegisterLibFunc(&svtGetRecon, lib, "svt_av1_get_recon")
	purego.RegisterLibFunc(&svtGetStreamInfo, lib, "svt_av1_enc_get_stream_info")
	purego.RegisterLibFunc(&svtDeinit, lib, "svt_av1_enc_deinit")
	purego.RegisterLibFunc(&svtDeinitHandle, lib, "svt_av1_enc_deinit_handle")

	if svtGetVersion == nil {
		return errors.New("svt_av1_get_version not resolved")
	}
	return nil
}

func (puregoCore) initHandle(cfg *Configuration) (unsafe.Pointer, Status) {
	var h unsafe.Pointer
	res := svtInitHandle(unsafe.Pointer(&h), nil, unsafe.Pointer(cfg))
	return h, Status(res)
}

func (puregoCore) setParameter(h unsafe.Pointer, cfg *Configuration) Status {
	return Status(svtSetParameter(h, unsafe.Pointer(cfg)))
}

func (puregoCore) parseParameter(cfg *Configuration, name, value []byte) Status {
	return Status(svtParseParameter(unsafe.Pointer(cfg), unsafe.Pointer(&name[0]), unsafe.Pointer(&value[0])))
}

func (puregoCore) initEncoder(h unsafe.Pointer) Status {
	return Status(svtInit(h))
}

func (puregoCore) streamHeader(h unsafe.Pointer) (*bufferHeader, Status) {
	var out *bufferHeader
	res := svtStreamHeader(h, unsafe.Pointer(&out))
	return out, Status(res)
}

func (puregoCore) releaseStreamHeader(hdr *bufferHeader) Status {
	return Status(svtStreamHeaderRelease(unsafe.Pointer(hdr)))
}

func (puregoCore) sendPicture(h unsafe.Pointer, hdr *bufferHeader) Status {
	return Status(svtSendPicture(h, unsafe.Pointer(hdr)))
}

func (puregoCore) getPacket(h unsafe.Pointer, picSendDone uint8) (*bufferHeader, Status) {
	var out *bufferHeader
	res := svtGetPacket(h, unsafe.Pointer(&out), picSendDone)
	return out, Status(res)
}

func (puregoCore) releaseOutBuffer(hdr *bufferHeader) {
	p := hdr
	svtReleaseOutBuffer(unsafe.Pointer(&p))
}

func (puregoCore) getRecon(h unsafe.Pointer, hdr *bufferHeader) Status {
	return Status(svtGetRecon(h, unsafe.Pointer(hdr)))
}

func (puregoCore) getStreamInfo(h unsafe.Pointer, id uint32, info unsafe.Pointer) Status {
	return Status(svtGetStreamInfo(h, id, info))
}

func (puregoCore) deinit(h unsafe.Pointer) Status {
	return Status(svtDeinit(h))
}

func (puregoCore) deinitHandle(h unsafe.Pointer) Status {
	return Status(svtDeinitHandle(h))
}

func (puregoCore) version() string {
	return goStringFromPtr(svtGetVersion())
}

func (puregoCore) printVersion() {
	svtPrintVersion()
}
