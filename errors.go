// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by renderq.
var (
	// ErrClosed is returned once the render actor has shut down and no more
	// frames will be opened.
	ErrClosed = errors.New("renderq: render actor closed")

	// ErrSizeExceeded is matched by *SizeError.
	ErrSizeExceeded = errors.New("renderq: data exceeds allocation size")

	// ErrAlreadyDestroyed is returned by a second Destroy on the same resource.
	ErrAlreadyDestroyed = errors.New("renderq: resource already destroyed")

	// ErrEmptyData is returned when a texture is created without texel data.
	ErrEmptyData = errors.New("renderq: empty data")

	// ErrNotHostVisible is returned when CPU access is attempted on GPU-only memory.
	ErrNotHostVisible = errors.New("renderq: memory is not host visible")

	// ErrTooManyWrites is returned when an update carries more writes than
	// the descriptor layout has bindings.
	ErrTooManyWrites = errors.New("renderq: too many descriptor writes")

	// ErrInvalidOption is returned by New for out-of-range options.
	ErrInvalidOption = errors.New("renderq: invalid option")

	// ErrNilDevice is returned by New when a collaborator is missing.
	ErrNilDevice = errors.New("renderq: nil device, allocator or swapchain")
)

// SizeError reports an overwrite larger than the resource's allocation.
// The resource is left untouched.
type SizeError struct {
	Label string
	Size  uint64
	Want  uint64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("renderq: %s: %d bytes exceeds allocation of %d bytes", e.Label, e.Want, e.Size)
}

// Is reports whether target is ErrSizeExceeded.
func (e *SizeError) Is(target error) bool {
	return target == ErrSizeExceeded
}

// FatalError is an unrecoverable allocation or device failure. It is passed
// to the fatal handler configured with WithFatalHandler.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("renderq: fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// defaultFatalHandler logs err and panics, terminating the process with a
// diagnostic unless the caller recovers.
func defaultFatalHandler(err error) {
	Logger().Error("renderq: fatal error", "err", err)
	panic(err)
}
