// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package fault defines the error taxonomy shared by the float-controls
// generator: unsupported configurations, violated test preconditions,
// internal generator defects and verification failures.
package fault

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind categorizes suite errors.
type Kind uint8

const (
	// KindNotSupported means the device or platform lacks a required
	// capability. Harnesses report it as a skip.
	KindNotSupported Kind = iota

	// KindTestError means a precondition for the test to be meaningful was
	// violated by the device.
	KindTestError

	// KindInternal means the generator is inconsistent with itself.
	KindInternal

	// KindVerification means the device output did not satisfy the
	// expectation.
	KindVerification
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNotSupported:
		return "NotSupported"
	case KindTestError:
		return "TestError"
	case KindInternal:
		return "Internal"
	case KindVerification:
		return "Verification"
	default:
		return "Unknown"
	}
}

// Error is a categorized suite error.
type Error struct {
	// Kind categorizes the error.
	Kind Kind

	// Message provides details about the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotSupported creates a KindNotSupported error.
func NotSupported(format string, args ...any) *Error {
	return New(KindNotSupported, format, args...)
}

// TestError creates a KindTestError error.
func TestError(format string, args ...any) *Error {
	return New(KindTestError, format, args...)
}

// Internal creates a KindInternal error.
func Internal(format string, args ...any) *Error {
	return New(KindInternal, format, args...)
}

// Verification creates a KindVerification error.
func Verification(format string, args ...any) *Error {
	return New(KindVerification, format, args...)
}

// Assert panics with an internal error when cond is false.
// Internal errors are generator defects and are never recovered from.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(Internal(format, args...))
	}
}

// KindOf returns the kind of the first *Error found by unwrapping err
// through both pkg/errors causes and %w chains.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if stderrors.As(errors.Cause(err), &fe) {
		return fe.Kind, true
	}
	if stderrors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsNotSupported reports whether err is a skip condition.
func IsNotSupported(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotSupported
}

// IsInternal reports whether err is a generator defect.
func IsInternal(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindInternal
}

// IsVerification reports whether err is an ordinary test failure.
func IsVerification(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindVerification
}
