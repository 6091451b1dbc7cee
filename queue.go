package renderq

import (
	"sync"
	"sync/atomic"
)

// defaultQueueCapacity is the command channel buffer size used when
// WithQueueCapacity is not given. Producers only block once this many
// commands are waiting for the actor.
const defaultQueueCapacity = 4096

// commandQueue is the multi-producer, single-consumer FIFO between handles
// and the render actor. Commands from one goroutine are executed in the
// order they were pushed; commands from different goroutines interleave in
// arrival order.
type commandQueue struct {
	ch chan Command

	// mu orders pushes against Shutdown: ordinary pushes share it, the
	// Shutdown push holds it exclusively, so nothing is accepted behind an
	// accepted Shutdown.
	mu sync.RWMutex

	// stopping is set once a ShutdownCommand has been accepted. Later
	// pushes are rejected because the actor would never execute them.
	stopping atomic.Bool

	// done is closed when the actor has exited.
	done      chan struct{}
	closeOnce sync.Once
}

func newCommandQueue(capacity int) *commandQueue {
	return &commandQueue{
		ch:   make(chan Command, capacity),
		done: make(chan struct{}),
	}
}

// push appends cmd. It returns ErrClosed after shutdown, and for a command
// that landed in the channel after the actor had exited.
func (q *commandQueue) push(cmd Command) error {
	if cmd.Type() == CmdShutdown {
		q.mu.Lock()
		defer q.mu.Unlock()
	} else {
		q.mu.RLock()
		defer q.mu.RUnlock()
	}
	if q.stopping.Load() {
		return ErrClosed
	}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- cmd:
	case <-q.done:
		return ErrClosed
	}
	// Both cases may be ready once done is closed.
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	if cmd.Type() == CmdShutdown {
		q.stopping.Store(true)
	}
	return nil
}

// pop blocks until the next command is available.
func (q *commandQueue) pop() Command {
	return <-q.ch
}

// depth is the number of commands waiting for the actor.
func (q *commandQueue) depth() int {
	return len(q.ch)
}

// close marks the queue as finished. Safe to call more than once.
func (q *commandQueue) close() {
	q.closeOnce.Do(func() {
		q.stopping.Store(true)
		close(q.done)
	})
}
