// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package session

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for session operations.
var (
	// ErrModelLoad indicates the model bytes could not be decoded or bound.
	ErrModelLoad = errors.New("model load failed")

	// ErrTensorAllocation indicates the arena could not hold the model's tensors.
	ErrTensorAllocation = errors.New("tensor allocation failed")

	// ErrTensorResolution indicates the input or output tensor is missing.
	ErrTensorResolution = errors.New("tensor resolution failed")

	// ErrNotInitialized indicates Infer was called before a successful Initialize.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrInvocation indicates the forward pass failed.
	ErrInvocation = errors.New("invocation failed")

	// ErrInvalidInputSize indicates the model's tensors do not match the
	// caller's buffers.
	ErrInvalidInputSize = errors.New("invalid input size")

	// ErrAlreadyInitialized indicates Initialize was called on a ready session.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrClosed indicates the session was closed.
	ErrClosed = errors.New("session closed")
)

// UnsupportedOperationError is returned by Initialize when the model uses
// operations outside the session's kernel set. It wraps ErrModelLoad.
type UnsupportedOperationError struct {
	OpTypes []string // every unsupported op type, in graph order
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation(s): %s", strings.Join(e.OpTypes, ", "))
}

// Unwrap returns ErrModelLoad.
func (e *UnsupportedOperationError) Unwrap() error {
	return ErrModelLoad
}

// Status codes returned by StatusCode.
const (
	StatusOK                 = 0
	StatusModelLoad          = -1
	StatusNotInitialized     = -1
	StatusTensorAllocation   = -2
	StatusInvocation         = -2
	StatusTensorResolution   = -3
	StatusInvalidInputSize   = -3
	StatusAlreadyInitialized = -4
	StatusClosed             = -5
	StatusUnknown            = -128
)

// StatusCode maps an error returned by this package to its numeric status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrAlreadyInitialized):
		return StatusAlreadyInitialized
	case errors.Is(err, ErrClosed):
		return StatusClosed
	case errors.Is(err, ErrModelLoad):
		return StatusModelLoad
	case errors.Is(err, ErrNotInitialized):
		return StatusNotInitialized
	case errors.Is(err, ErrTensorAllocation):
		return StatusTensorAllocation
	case errors.Is(err, ErrInvocation):
		return StatusInvocation
	case errors.Is(err, ErrTensorResolution):
		return StatusTensorResolution
	case errors.Is(err, ErrInvalidInputSize):
		return StatusInvalidInputSize
	default:
		return StatusUnknown
	}
}
