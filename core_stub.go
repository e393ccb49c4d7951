//go:build nosvtav1 || (!cgo && !linux && !darwin)

package svtav1

func openCore() (core, error) {
	return nil, ErrNotAvailable
}
