package renderq

import (
	"errors"
	"sync"
	"testing"
)

func TestCommandQueueFIFO(t *testing.T) {
	q := newCommandQueue(16)
	for i := range 10 {
		if err := q.push(DrawCommand{VertexCount: uint32(i)}); err != nil {
			t.Fatalf("push(%d) = %v", i, err)
		}
	}
	if q.depth() != 10 {
		t.Errorf("depth() = %d, want 10", q.depth())
	}
	for i := range 10 {
		got := q.pop().(DrawCommand)
		if got.VertexCount != uint32(i) {
			t.Fatalf("pop() = %d, want %d", got.VertexCount, i)
		}
	}
}

func TestCommandQueuePerProducerOrder(t *testing.T) {
	const producers, perProducer = 4, 100
	q := newCommandQueue(producers * perProducer)

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				_ = q.push(BindPipelineCommand{Pipeline: PipelineID(p*1000 + i)})
			}
		}()
	}
	wg.Wait()

	last := make(map[int]int)
	for range producers * perProducer {
		c := q.pop().(BindPipelineCommand)
		p, i := int(c.Pipeline)/1000, int(c.Pipeline)%1000
		if prev, ok := last[p]; ok && i <= prev {
			t.Fatalf("producer %d: command %d after %d", p, i, prev)
		}
		last[p] = i
	}
}

func TestCommandQueueRejectsAfterShutdown(t *testing.T) {
	q := newCommandQueue(4)
	if err := q.push(ShutdownCommand{}); err != nil {
		t.Fatalf("push(Shutdown) = %v", err)
	}
	if err := q.push(DrawCommand{}); !errors.Is(err, ErrClosed) {
		t.Errorf("push after Shutdown = %v, want ErrClosed", err)
	}

	q2 := newCommandQueue(1)
	q2.close()
	q2.close()
	if err := q2.push(OpenFrameCommand{}); !errors.Is(err, ErrClosed) {
		t.Errorf("push after close = %v, want ErrClosed", err)
	}
}

func TestCommandQueueCloseUnblocksPush(t *testing.T) {
	q := newCommandQueue(1)
	if err := q.push(DrawCommand{}); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- q.push(DrawCommand{}) }()
	q.close()
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("blocked push = %v, want ErrClosed", err)
	}
}

func TestCommandQueuePushAfterCloseWithRoom(t *testing.T) {
	q := newCommandQueue(64)
	q.close()
	for i := range 64 {
		if err := q.push(DrawCommand{VertexCount: uint32(i)}); !errors.Is(err, ErrClosed) {
			t.Fatalf("push %d after close = %v, want ErrClosed", i, err)
		}
	}
}

// Every push that succeeds must be popped before the Shutdown command.
func TestCommandQueueNothingAcceptedBehindShutdown(t *testing.T) {
	const producers, perProducer = 8, 200
	q := newCommandQueue(producers*perProducer + 1)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				if q.push(DrawCommand{}) == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}()
	}
	if err := q.push(ShutdownCommand{}); err != nil {
		t.Fatalf("push(Shutdown) = %v", err)
	}
	wg.Wait()

	before := 0
	for q.pop().Type() != CmdShutdown {
		before++
	}
	if q.depth() != 0 {
		t.Errorf("%d commands queued behind Shutdown", q.depth())
	}
	if before != accepted {
		t.Errorf("popped %d commands before Shutdown, %d pushes succeeded", before, accepted)
	}
}
