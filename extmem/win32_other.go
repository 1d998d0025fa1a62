// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build !windows

package extmem

import "github.com/gogpu/floatctl/fault"

func dupWin32(uintptr) (uintptr, error) {
	return 0, fault.NotSupported("win32 handles are not supported on this platform")
}

func closeWin32(uintptr) error {
	return fault.NotSupported("win32 handles are not supported on this platform")
}
