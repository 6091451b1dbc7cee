// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"context"
	"sync"
)

// frameTokens counts frames opened by the actor and not yet taken by a Sync.
// The actor never blocks on it: put only increments the count and wakes one
// waiter. After close every take returns ErrClosed.
type frameTokens struct {
	mu     sync.Mutex
	n      int
	closed bool

	// wake has room for one pending signal. It is closed by close.
	wake chan struct{}
}

func newFrameTokens() *frameTokens {
	return &frameTokens{wake: make(chan struct{}, 1)}
}

// put records one opened frame. Only the actor calls put and close.
func (t *frameTokens) put() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.n++
	t.signal()
	t.mu.Unlock()
}

// signal wakes one waiter. The caller holds t.mu, so wake is still open.
func (t *frameTokens) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// close releases every pending and future take with ErrClosed.
func (t *frameTokens) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	close(t.wake)
}

// pending is the number of untaken tokens.
func (t *frameTokens) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// take blocks until a token is available, the tokens are closed or ctx ends.
func (t *frameTokens) take(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return ErrClosed
		}
		if t.n > 0 {
			t.n--
			if t.n > 0 {
				// Pass the wakeup on to another waiter.
				t.signal()
			}
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		select {
		case <-t.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
