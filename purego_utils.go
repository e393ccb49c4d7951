//go:build !cgo && (linux || darwin) && !nosvtav1

// Helpers for the purego build.

package svtav1

import (
	"os"
	"path/filepath"
	"runtime"
	"unsafe"
)

// goStringFromPtr copies a NUL-terminated C string. Strings longer than 1024
// bytes are truncated.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	var length int
	for length < 1024 && *(*byte)(unsafe.Add(p, length)) != 0 {
		length++
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), length))
}

// findModuleRoot walks up from the working directory to the first directory
// containing go.mod.
func findModuleRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findGoMod(wd)
}

// findSourceRoot locates the module root from this file's compile-time path,
// which works under `go test` and IDE runners regardless of working directory.
func findSourceRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return findGoMod(filepath.Dir(file))
}

func findGoMod(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
