// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderq

import (
	"fmt"
	"runtime"
	"time"
)

// actor is the single owner of the device's recording and submission state.
// Every field is used only from the actor goroutine.
type actor struct {
	dev       Device
	swapchain Swapchain
	queue     *commandQueue
	tokens    *frameTokens
	shared    *shared
	clear     ClearValues
	log       *rendererLogger

	ring  *frameRing
	state frameState
}

// run executes commands until Shutdown or a fatal error. Device calls must
// happen on a single OS thread, so the initialization result is passed back
// through ready.
func (a *actor) run(ready chan<- error) {
	defer close(a.shared.exited)
	runtime.LockOSThread()
	// Don't UnlockOSThread so the thread is not reused by the Go runtime.

	ring, err := newFrameRing(a.dev, a.shared.framesInFlight)
	if err != nil {
		a.queue.close()
		a.tokens.close()
		ready <- err
		return
	}
	a.ring = ring
	ready <- nil

	a.log.get().Info("renderq: render actor started", "frames_in_flight", ring.len())

	for {
		cmd := a.queue.pop()
		if cmd.Type() == CmdShutdown {
			a.shared.metrics.commandExecuted(CmdShutdown, a.queue.depth())
			a.teardown()
			return
		}
		if err := a.execute(cmd); err != nil {
			a.log.get().Error("renderq: command failed",
				"command", cmd.Type(), "slot", a.ring.current, "err", err)
			a.shared.report(cmd.Type().String(), err)
			// A handler that returns stops the actor.
			a.teardown()
			return
		}
		a.shared.metrics.commandExecuted(cmd.Type(), a.queue.depth())
	}
}

// execute performs the device calls for one command.
func (a *actor) execute(cmd Command) error {
	log := a.log.get()
	log.Debug("renderq: execute",
		"command", cmd.Type(), "slot", a.ring.current, "state", a.state)

	cb := a.ring.slot().commandBuffer
	switch c := cmd.(type) {
	case OpenFrameCommand:
		return a.openFrame()

	case SubmitFrameCommand:
		return a.submitFrame()

	case BindPipelineCommand:
		a.dev.BindPipeline(cb, c.Pipeline)
		a.state = frameBound

	case BindViewportCommand:
		a.dev.SetViewport(cb, c.Viewport)

	case BindScissorCommand:
		a.dev.SetScissor(cb, c.Scissor)

	case BindDescriptorSetCommand:
		a.dev.BindDescriptorSet(cb, c.Layout, c.Descriptor.Set(a.ring.current))

	case BindVertexBufferCommand:
		a.dev.BindVertexBuffer(cb, c.Buffer, 0)

	case BindIndexBufferCommand:
		a.dev.BindIndexBuffer(cb, c.Buffer, 0, c.Format)

	case DrawCommand:
		a.dev.Draw(cb, c.VertexCount, 1, 0, 0)

	case DrawIndexedCommand:
		a.dev.DrawIndexed(cb, c.IndexCount, 1, 0, 0, 0)

	case UpdateDescriptorSetCommand:
		writes := c.Descriptor.resolve(a.ring.current, c.Writes)
		if err := a.dev.UpdateDescriptorSets(writes); err != nil {
			return fmt.Errorf("update descriptor %q: %w", c.Descriptor.label, err)
		}

	case DestroyBufferCommand:
		if err := a.shared.guard.Free(c.Allocation); err != nil {
			return fmt.Errorf("destroy buffer %q: %w", c.Label, err)
		}
		a.dev.DestroyBuffer(c.Buffer)
		a.shared.metrics.resourceDestroyed(kindBuffer)
		a.shared.leaks.release(c.Resource)
		log.Debug("renderq: buffer destroyed", "label", c.Label, "buffer", c.Buffer)

	case DestroyTextureCommand:
		a.dev.DestroySampler(c.Sampler)
		a.dev.DestroyImageView(c.View)
		if err := a.shared.guard.Free(c.Allocation); err != nil {
			return fmt.Errorf("destroy texture %q: %w", c.Label, err)
		}
		a.dev.DestroyImage(c.Image)
		a.shared.metrics.resourceDestroyed(kindTexture)
		a.shared.leaks.release(c.Resource)
		log.Debug("renderq: texture destroyed", "label", c.Label, "image", c.Image)

	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

// openFrame waits for the current slot to retire, acquires the next image
// and begins recording. One token is counted once recording has begun;
// counting never blocks the actor.
func (a *actor) openFrame() error {
	s := a.ring.slot()
	slot := a.ring.current
	start := time.Now()

	if err := a.dev.WaitFence(s.inFlight); err != nil {
		return fmt.Errorf("open frame slot %d: wait fence: %w", slot, err)
	}
	if err := a.dev.ResetFence(s.inFlight); err != nil {
		return fmt.Errorf("open frame slot %d: reset fence: %w", slot, err)
	}
	if err := a.dev.ResetCommandBuffer(s.commandBuffer); err != nil {
		return fmt.Errorf("open frame slot %d: reset command buffer: %w", slot, err)
	}
	target, err := a.swapchain.Acquire(slot, s.imageAvailable)
	if err != nil {
		return fmt.Errorf("open frame slot %d: acquire image: %w", slot, err)
	}
	a.shared.metrics.openFrameWaited(time.Since(start))
	s.target = target

	if err := a.dev.BeginCommandBuffer(s.commandBuffer); err != nil {
		return fmt.Errorf("open frame slot %d: begin command buffer: %w", slot, err)
	}
	a.dev.BeginRenderPass(s.commandBuffer, target, a.clear)
	a.state = frameRecording

	a.tokens.put()
	return nil
}

// submitFrame ends recording, submits, presents and advances the ring.
func (a *actor) submitFrame() error {
	s := a.ring.slot()
	slot := a.ring.current

	a.dev.EndRenderPass(s.commandBuffer)
	if err := a.dev.EndCommandBuffer(s.commandBuffer); err != nil {
		return fmt.Errorf("submit frame slot %d: end command buffer: %w", slot, err)
	}
	if err := a.dev.Submit(s.commandBuffer, s.imageAvailable, s.renderFinished, s.inFlight); err != nil {
		return fmt.Errorf("submit frame slot %d: submit: %w", slot, err)
	}
	a.state = frameSubmitted
	if err := a.swapchain.Present(slot, s.target, s.renderFinished); err != nil {
		return fmt.Errorf("submit frame slot %d: present: %w", slot, err)
	}
	a.ring.advance()
	a.state = frameIdle
	a.shared.metrics.frameSubmitted()
	return nil
}

// teardown waits for the GPU, releases descriptor pools and frame slots,
// and closes the frame tokens so pending Syncs return ErrClosed.
func (a *actor) teardown() {
	a.queue.close()
	log := a.log.get()
	if err := a.dev.WaitIdle(); err != nil {
		log.Error("renderq: wait idle", "err", err)
	}
	for _, pool := range a.shared.takePools() {
		a.dev.DestroyDescriptorPool(pool)
	}
	a.ring.destroy(a.dev)
	a.tokens.close()

	leaked := a.shared.leaks.Report()
	log.Info("renderq: render actor stopped", "leaked", leaked)
}
