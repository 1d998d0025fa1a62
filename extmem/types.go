// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package extmem

import (
	"sort"
	"strings"
)

// Transference tells whether importing a payload copies it or makes the
// importer reference the exporter's object.
type Transference uint8

const (
	TransferenceReference Transference = iota
	TransferenceCopy
)

func (t Transference) String() string {
	if t == TransferenceCopy {
		return "copy"
	}
	return "reference"
}

// MemoryHandleType mirrors VkExternalMemoryHandleTypeFlagBits.
type MemoryHandleType uint32

const (
	MemoryOpaqueFd                MemoryHandleType = 0x00000001
	MemoryOpaqueWin32             MemoryHandleType = 0x00000002
	MemoryOpaqueWin32KMT          MemoryHandleType = 0x00000004
	MemoryD3D11Texture            MemoryHandleType = 0x00000008
	MemoryD3D11TextureKMT         MemoryHandleType = 0x00000010
	MemoryD3D12Heap               MemoryHandleType = 0x00000020
	MemoryD3D12Resource           MemoryHandleType = 0x00000040
	MemoryHostAllocation          MemoryHandleType = 0x00000080
	MemoryHostMappedForeignMemory MemoryHandleType = 0x00000100
	MemoryDmaBuf                  MemoryHandleType = 0x00000200
	MemoryAndroidHardwareBuffer   MemoryHandleType = 0x00000400
	MemoryZirconVMO               MemoryHandleType = 0x00000800
	MemoryMTLBuffer               MemoryHandleType = 0x00010000
	MemoryMTLTexture              MemoryHandleType = 0x00020000
	MemoryMTLHeap                 MemoryHandleType = 0x00040000
)

// SemaphoreHandleType mirrors VkExternalSemaphoreHandleTypeFlagBits.
type SemaphoreHandleType uint32

const (
	SemaphoreOpaqueFd       SemaphoreHandleType = 0x00000001
	SemaphoreOpaqueWin32    SemaphoreHandleType = 0x00000002
	SemaphoreOpaqueWin32KMT SemaphoreHandleType = 0x00000004
	SemaphoreD3D12Fence     SemaphoreHandleType = 0x00000008
	SemaphoreSyncFd         SemaphoreHandleType = 0x00000010
	SemaphoreZirconEvent    SemaphoreHandleType = 0x00000080
)

// FenceHandleType mirrors VkExternalFenceHandleTypeFlagBits.
type FenceHandleType uint32

const (
	FenceOpaqueFd       FenceHandleType = 0x00000001
	FenceOpaqueWin32    FenceHandleType = 0x00000002
	FenceOpaqueWin32KMT FenceHandleType = 0x00000004
	FenceSyncFd         FenceHandleType = 0x00000008
)

// handleInfo describes one handle type.
type handleInfo struct {
	name         string
	native       Kind
	win32        Win32Kind
	transference Transference
}

var memoryHandles = map[MemoryHandleType]handleInfo{
	MemoryOpaqueFd:                {"opaque_fd", KindFd, Win32None, TransferenceReference},
	MemoryOpaqueWin32:             {"opaque_win32", KindWin32, Win32NT, TransferenceReference},
	MemoryOpaqueWin32KMT:          {"opaque_win32_kmt", KindWin32, Win32KMT, TransferenceReference},
	MemoryD3D11Texture:            {"d3d11_texture", KindWin32, Win32NT, TransferenceReference},
	MemoryD3D11TextureKMT:         {"d3d11_texture_kmt", KindWin32, Win32KMT, TransferenceReference},
	MemoryD3D12Heap:               {"d3d12_heap", KindWin32, Win32NT, TransferenceReference},
	MemoryD3D12Resource:           {"d3d12_resource", KindWin32, Win32NT, TransferenceReference},
	MemoryHostAllocation:          {"host_allocation", KindHostPtr, Win32None, TransferenceReference},
	MemoryHostMappedForeignMemory: {"host_mapped_foreign_memory", KindHostPtr, Win32None, TransferenceReference},
	MemoryDmaBuf:                  {"dma_buf", KindFd, Win32None, TransferenceReference},
	MemoryAndroidHardwareBuffer:   {"android_hardware_buffer", KindAHB, Win32None, TransferenceReference},
	MemoryZirconVMO:               {"zircon_vmo", KindZircon, Win32None, TransferenceReference},
	MemoryMTLBuffer:               {"mtl_buffer", KindMetal, Win32None, TransferenceReference},
	MemoryMTLTexture:              {"mtl_texture", KindMetal, Win32None, TransferenceReference},
	MemoryMTLHeap:                 {"mtl_heap", KindMetal, Win32None, TransferenceReference},
}

var semaphoreHandles = map[SemaphoreHandleType]handleInfo{
	SemaphoreOpaqueFd:       {"opaque_fd", KindFd, Win32None, TransferenceReference},
	SemaphoreOpaqueWin32:    {"opaque_win32", KindWin32, Win32NT, TransferenceReference},
	SemaphoreOpaqueWin32KMT: {"opaque_win32_kmt", KindWin32, Win32KMT, TransferenceReference},
	SemaphoreD3D12Fence:     {"d3d12_fence", KindWin32, Win32NT, TransferenceReference},
	SemaphoreSyncFd:         {"sync_fd", KindFd, Win32None, TransferenceCopy},
	SemaphoreZirconEvent:    {"zircon_event", KindZircon, Win32None, TransferenceReference},
}

var fenceHandles = map[FenceHandleType]handleInfo{
	FenceOpaqueFd:       {"opaque_fd", KindFd, Win32None, TransferenceReference},
	FenceOpaqueWin32:    {"opaque_win32", KindWin32, Win32NT, TransferenceReference},
	FenceOpaqueWin32KMT: {"opaque_win32_kmt", KindWin32, Win32KMT, TransferenceReference},
	FenceSyncFd:         {"sync_fd", KindFd, Win32None, TransferenceCopy},
}

func lookupInfo[K ~uint32](m map[K]handleInfo, k K) handleInfo {
	if info, ok := m[k]; ok {
		return info
	}
	return handleInfo{name: "unknown"}
}

func (t MemoryHandleType) String() string { return lookupInfo(memoryHandles, t).name }

// Native returns the kind of native handle carrying t.
func (t MemoryHandleType) Native() (Kind, Win32Kind) {
	info := lookupInfo(memoryHandles, t)
	return info.native, info.win32
}

// Transference of memory payloads is always by reference.
func (t MemoryHandleType) Transference() Transference {
	return lookupInfo(memoryHandles, t).transference
}

func (t SemaphoreHandleType) String() string { return lookupInfo(semaphoreHandles, t).name }

// Native returns the kind of native handle carrying t.
func (t SemaphoreHandleType) Native() (Kind, Win32Kind) {
	info := lookupInfo(semaphoreHandles, t)
	return info.native, info.win32
}

// Transference reports whether importing t copies the payload.
func (t SemaphoreHandleType) Transference() Transference {
	return lookupInfo(semaphoreHandles, t).transference
}

func (t FenceHandleType) String() string { return lookupInfo(fenceHandles, t).name }

// Native returns the kind of native handle carrying t.
func (t FenceHandleType) Native() (Kind, Win32Kind) {
	info := lookupInfo(fenceHandles, t)
	return info.native, info.win32
}

// Transference reports whether importing t copies the payload.
func (t FenceHandleType) Transference() Transference {
	return lookupInfo(fenceHandles, t).transference
}

// MemoryHandleTypes returns the names of the bits set in mask, e.g.
// "dma_buf|opaque_fd".
func MemoryHandleTypes(mask MemoryHandleType) string {
	var names []string
	for t, info := range memoryHandles {
		if mask&t != 0 {
			names = append(names, info.name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// Matches reports whether h carries a handle usable as t.
func (h *NativeHandle) Matches(native Kind, win32 Win32Kind) bool {
	if h.kind != native {
		return false
	}
	return native != KindWin32 || h.win32Kind == win32
}
