// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package extmem wraps the OS-native handles exchanged through Vulkan
// external memory, semaphores and fences.
//
// A NativeHandle owns at most one handle at a time. Owned handles are
// released by Close; Disown forgets a handle whose ownership moved
// elsewhere, typically to a successful import.
package extmem

import (
	"github.com/pkg/errors"

	"github.com/gogpu/floatctl/fault"
)

// Kind is the kind of handle a NativeHandle holds.
type Kind uint8

const (
	KindNone Kind = iota
	KindFd
	KindWin32
	KindZircon
	KindAHB
	KindMetal
	KindHostPtr
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindFd:
		return "fd"
	case KindWin32:
		return "win32"
	case KindZircon:
		return "zircon"
	case KindAHB:
		return "ahb"
	case KindMetal:
		return "metal"
	case KindHostPtr:
		return "host_ptr"
	}
	return "unknown"
}

// Win32Kind distinguishes NT handles, which are reference counted by the
// kernel and owned, from KMT handles, which are global names and never
// closed.
type Win32Kind uint8

const (
	Win32None Win32Kind = iota
	Win32NT
	Win32KMT
)

// AHBFunctions acquires and releases Android hardware buffer references.
// The functions come from the platform and are injected so the package
// builds everywhere.
type AHBFunctions struct {
	Acquire func(buffer uintptr)
	Release func(buffer uintptr)
}

func (f *AHBFunctions) valid() bool {
	return f != nil && f.Acquire != nil && f.Release != nil
}

// NativeHandle owns one OS-native handle.
type NativeHandle struct {
	kind      Kind
	fd        int
	win32     uintptr
	win32Kind Win32Kind
	zircon    uint32
	ptr       uintptr // AHB, Metal resource or host pointer
	ahb       *AHBFunctions
}

// NewFd returns a handle owning fd.
func NewFd(fd int) *NativeHandle {
	h := &NativeHandle{}
	h.SetFd(fd)
	return h
}

// NewWin32 returns a handle holding a Win32 handle of the given kind.
func NewWin32(kind Win32Kind, handle uintptr) *NativeHandle {
	h := &NativeHandle{}
	h.SetWin32(kind, handle)
	return h
}

func (h *NativeHandle) claim(k Kind) {
	fault.Assert(h.kind == KindNone, "native handle already holds a %s, cannot take a %s", h.kind, k)
	h.kind = k
}

// SetFd takes ownership of fd.
func (h *NativeHandle) SetFd(fd int) {
	fault.Assert(fd >= 0, "invalid fd %d", fd)
	h.claim(KindFd)
	h.fd = fd
}

// SetWin32 stores a Win32 handle. NT handles are owned.
func (h *NativeHandle) SetWin32(kind Win32Kind, handle uintptr) {
	fault.Assert(kind != Win32None, "win32 handle without a kind")
	h.claim(KindWin32)
	h.win32, h.win32Kind = handle, kind
}

// SetZircon takes ownership of a Zircon handle.
func (h *NativeHandle) SetZircon(handle uint32) {
	h.claim(KindZircon)
	h.zircon = handle
}

// SetAHB acquires a reference to an Android hardware buffer.
func (h *NativeHandle) SetAHB(buffer uintptr, fns *AHBFunctions) {
	fault.Assert(fns.valid(), "android hardware buffer functions missing")
	fault.Assert(buffer != 0, "null android hardware buffer")
	h.claim(KindAHB)
	fns.Acquire(buffer)
	h.ptr, h.ahb = buffer, fns
}

// SetMetal stores a Metal resource. The resource is not retained.
func (h *NativeHandle) SetMetal(resource uintptr) {
	h.claim(KindMetal)
	h.ptr = resource
}

// SetHostPtr stores a host allocation. The memory is not owned.
func (h *NativeHandle) SetHostPtr(p uintptr) {
	h.claim(KindHostPtr)
	h.ptr = p
}

// Kind returns the kind of the held handle.
func (h *NativeHandle) Kind() Kind { return h.kind }

// Fd returns the held fd, or -1.
func (h *NativeHandle) Fd() int {
	if h.kind != KindFd {
		return -1
	}
	return h.fd
}

// Win32 returns the held Win32 handle and its kind.
func (h *NativeHandle) Win32() (uintptr, Win32Kind) {
	if h.kind != KindWin32 {
		return 0, Win32None
	}
	return h.win32, h.win32Kind
}

// Zircon returns the held Zircon handle, or 0.
func (h *NativeHandle) Zircon() uint32 {
	if h.kind != KindZircon {
		return 0
	}
	return h.zircon
}

// AHB returns the held Android hardware buffer, or 0.
func (h *NativeHandle) AHB() uintptr { return h.pointer(KindAHB) }

// Metal returns the held Metal resource, or 0.
func (h *NativeHandle) Metal() uintptr { return h.pointer(KindMetal) }

// HostPtr returns the held host pointer, or 0.
func (h *NativeHandle) HostPtr() uintptr { return h.pointer(KindHostPtr) }

func (h *NativeHandle) pointer(k Kind) uintptr {
	if h.kind != k {
		return 0
	}
	return h.ptr
}

// Disown forgets the held handle without releasing it.
func (h *NativeHandle) Disown() {
	*h = NativeHandle{}
}

// Close releases the held handle and leaves h empty. Closing an empty
// handle is a no-op.
func (h *NativeHandle) Close() error {
	var err error
	switch h.kind {
	case KindFd:
		err = closeFd(h.fd)
	case KindWin32:
		if h.win32Kind == Win32NT {
			err = closeWin32(h.win32)
		}
	case KindZircon:
		err = fault.NotSupported("zircon handles are not supported on this platform")
	case KindAHB:
		h.ahb.Release(h.ptr)
	}
	kind := h.kind
	h.Disown()
	return errors.Wrapf(err, "extmem: close %s", kind)
}

// Dup returns an independent handle referring to the same object. Owned
// OS handles are duplicated, Android hardware buffers gain a reference
// and unowned pointers are copied.
func (h *NativeHandle) Dup() (*NativeHandle, error) {
	out := &NativeHandle{}
	switch h.kind {
	case KindNone:
	case KindFd:
		fd, err := dupFd(h.fd)
		if err != nil {
			return nil, errors.Wrap(err, "extmem: dup fd")
		}
		out.SetFd(fd)
	case KindWin32:
		if h.win32Kind == Win32KMT {
			out.SetWin32(Win32KMT, h.win32)
			break
		}
		dup, err := dupWin32(h.win32)
		if err != nil {
			return nil, errors.Wrap(err, "extmem: duplicate handle")
		}
		out.SetWin32(Win32NT, dup)
	case KindZircon:
		return nil, fault.NotSupported("zircon handles are not supported on this platform")
	case KindAHB:
		out.SetAHB(h.ptr, h.ahb)
	case KindMetal:
		out.SetMetal(h.ptr)
	case KindHostPtr:
		out.SetHostPtr(h.ptr)
	}
	return out, nil
}

// ForImport returns the handle to pass to an import that takes ownership
// of it on success. h keeps its own handle; the caller disowns the
// returned handle once the import succeeded and closes it otherwise.
func (h *NativeHandle) ForImport() (*NativeHandle, error) {
	fault.Assert(h.kind != KindNone, "importing an empty native handle")
	return h.Dup()
}
