// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every kind except InvalidArgument is
// fatal for a benchmark run.
type Kind int

const (
	KindNoPlatformFound Kind = iota
	KindNoDeviceFound
	KindAllocationFailed
	KindBuildError
	KindDispatchError
	KindSourceReadError
	KindDeviceError
	KindInvalidArgument
)

// String returns the kind as a string
func (k Kind) String() string {
	switch k {
	case KindNoPlatformFound:
		return "NoPlatformFound"
	case KindNoDeviceFound:
		return "NoDeviceFound"
	case KindAllocationFailed:
		return "AllocationFailed"
	case KindBuildError:
		return "BuildError"
	case KindDispatchError:
		return "DispatchError"
	case KindSourceReadError:
		return "SourceReadError"
	case KindDeviceError:
		return "DeviceError"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error is a structured pipeline error with the stage that produced it.
type Error struct {
	Kind    Kind
	Op      string // Operation that failed
	Message string // Human-readable message
	Err     error  // Underlying driver error if any
	Log     string // Full compiler or validator log for BuildError
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s in %s: %s", e.Kind, e.Op, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

// Unwrap allows error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This makes the
// package sentinels usable with errors.Is regardless of Op and Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates an error of the given kind.
func NewError(kind Kind, op, message string, err error) error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// NewBuildError creates a BuildError carrying the full build log.
func NewBuildError(op, message, log string, err error) error {
	return &Error{Kind: KindBuildError, Op: op, Message: message, Log: log, Err: err}
}

// Sentinels for errors.Is checks.
var (
	ErrNoPlatformFound  = &Error{Kind: KindNoPlatformFound, Op: "Discover", Message: "no compute platform found"}
	ErrNoDeviceFound    = &Error{Kind: KindNoDeviceFound, Op: "Discover", Message: "no compute device found"}
	ErrAllocationFailed = &Error{Kind: KindAllocationFailed, Op: "Allocate", Message: "allocation failed"}
	ErrBuildError       = &Error{Kind: KindBuildError, Op: "Build", Message: "kernel build failed"}
	ErrDispatchError    = &Error{Kind: KindDispatchError, Op: "Dispatch", Message: "kernel dispatch failed"}
	ErrSourceReadError  = &Error{Kind: KindSourceReadError, Op: "ReadSource", Message: "kernel source unreadable"}
	ErrDeviceError      = &Error{Kind: KindDeviceError, Op: "Device", Message: "device runtime failure"}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument, Op: "Config", Message: "invalid argument"}
)

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
