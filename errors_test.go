// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSizeErrorIs(t *testing.T) {
	err := error(&SizeError{Label: "vb", Size: 16, Want: 32})
	if !errors.Is(err, ErrSizeExceeded) {
		t.Error("errors.Is(SizeError, ErrSizeExceeded) = false, want true")
	}
	if errors.Is(err, ErrClosed) {
		t.Error("errors.Is(SizeError, ErrClosed) = true, want false")
	}

	wrapped := fmt.Errorf("overwrite: %w", err)
	var se *SizeError
	if !errors.As(wrapped, &se) {
		t.Fatal("errors.As did not find *SizeError")
	}
	if se.Size != 16 || se.Want != 32 {
		t.Errorf("SizeError = %+v, want Size=16 Want=32", se)
	}
	if !strings.Contains(err.Error(), "vb") {
		t.Errorf("Error() = %q, want label in message", err.Error())
	}
}

func TestFatalErrorUnwrap(t *testing.T) {
	err := error(&FatalError{Op: "enqueue", Err: ErrClosed})
	if !errors.Is(err, ErrClosed) {
		t.Error("errors.Is(FatalError{ErrClosed}, ErrClosed) = false")
	}
	if !strings.Contains(err.Error(), "enqueue") {
		t.Errorf("Error() = %q, want op in message", err.Error())
	}
}

func TestDefaultFatalHandlerPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("defaultFatalHandler did not panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrClosed) {
			t.Errorf("panic value = %v, want error wrapping ErrClosed", r)
		}
	}()
	defaultFatalHandler(&FatalError{Op: "test", Err: ErrClosed})
}
