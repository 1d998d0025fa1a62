// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build windows

package extmem

import "golang.org/x/sys/windows"

func dupWin32(h uintptr) (uintptr, error) {
	self := windows.CurrentProcess()
	var dup windows.Handle
	err := windows.DuplicateHandle(self, windows.Handle(h), self, &dup, 0, false, windows.DUPLICATE_SAME_ACCESS)
	return uintptr(dup), err
}

func closeWin32(h uintptr) error {
	return windows.CloseHandle(windows.Handle(h))
}
