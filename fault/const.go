// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package fault

// Const is the type for constant error values.
type Const string

// Error implements error for Const returning the string value of the const.
func (e Const) Error() string { return string(e) }

const (
	// ErrUnknownOperation is returned when an operation name does not
	// resolve to a catalog entry.
	ErrUnknownOperation = Const("unknown operation")

	// ErrUnknownCase is returned when a case path is not part of a suite.
	ErrUnknownCase = Const("unknown test case")

	// ErrShortBuffer is returned when an output buffer is smaller than the
	// value it should hold.
	ErrShortBuffer = Const("output buffer too short")
)
