// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

//go:build !unix

package extmem

import "github.com/gogpu/floatctl/fault"

func dupFd(int) (int, error) {
	return -1, fault.NotSupported("file descriptors are not supported on this platform")
}

func closeFd(int) error {
	return fault.NotSupported("file descriptors are not supported on this platform")
}
