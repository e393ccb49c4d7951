package svtav1

import (
	"errors"
	"unsafe"
)

// componentHandle owns one native EbComponentType. It is not safe for
// concurrent use; callers serialize access.
type componentHandle struct {
	core core
	ptr  unsafe.Pointer
	// initialized is set once initialize has been attempted, successful or not.
	initialized bool
}

// newComponentHandle acquires a handle and fills cfg with library defaults.
func newComponentHandle(c core, cfg *Configuration) (*componentHandle, error) {
	ptr, st := c.initHandle(cfg)
	// On failure the library frees the partial handle itself.
	if err := statusErr("init_handle", st); err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, &CallError{Op: "init_handle", Status: StatusInvalidComponent}
	}
	return &componentHandle{core: c, ptr: ptr}, nil
}

func (h *componentHandle) valid() bool {
	return h != nil && h.ptr != nil
}

// release moves ownership of the native handle into a new value and leaves h
// empty. Teardown of h afterwards is a no-op.
func (h *componentHandle) release() *componentHandle {
	moved := &componentHandle{core: h.core, ptr: h.ptr, initialized: h.initialized}
	h.ptr = nil
	return moved
}

// teardown deinitializes (when initialize was attempted) and then frees the
// handle. Only the first call has any effect.
func (h *componentHandle) teardown() error {
	if !h.valid() {
		return nil
	}
	ptr := h.ptr
	h.ptr = nil

	var errs []error
	if h.initialized {
		errs = append(errs, statusErr("deinit", h.core.deinit(ptr)))
	}
	errs = append(errs, statusErr("deinit_handle", h.core.deinitHandle(ptr)))
	return errors.Join(errs...)
}
