package renderq

import (
	"github.com/gogpu/gputypes"
	"github.com/google/uuid"
)

// CommandType identifies the type of a command.
// Each command type corresponds to one device operation the render actor
// performs.
type CommandType uint8

const (
	// Frame commands
	CmdOpenFrame   CommandType = iota // Wait, acquire, begin recording
	CmdSubmitFrame                    // End recording, submit, present

	// Recording commands
	CmdBindPipeline      // Bind a graphics pipeline
	CmdBindViewport      // Set the dynamic viewport
	CmdBindScissor       // Set the dynamic scissor
	CmdBindDescriptorSet // Bind the current slot's set instance
	CmdBindVertexBuffer  // Bind vertex buffer at binding 0
	CmdBindIndexBuffer   // Bind index buffer
	CmdDraw              // Non-indexed draw
	CmdDrawIndexed       // Indexed draw

	// Resource commands
	CmdUpdateDescriptorSet // Write the current slot's set instance
	CmdDestroyBuffer       // Free a buffer and its allocation
	CmdDestroyTexture      // Free a texture, its view, sampler and allocation

	// Lifecycle
	CmdShutdown // Drain and exit
)

// commandTypeNames maps CommandType values to their string representation.
var commandTypeNames = [...]string{
	CmdOpenFrame:           "OpenFrame",
	CmdSubmitFrame:         "SubmitFrame",
	CmdBindPipeline:        "BindPipeline",
	CmdBindViewport:        "BindViewport",
	CmdBindScissor:         "BindScissor",
	CmdBindDescriptorSet:   "BindDescriptorSet",
	CmdBindVertexBuffer:    "BindVertexBuffer",
	CmdBindIndexBuffer:     "BindIndexBuffer",
	CmdDraw:                "Draw",
	CmdDrawIndexed:         "DrawIndexed",
	CmdUpdateDescriptorSet: "UpdateDescriptorSet",
	CmdDestroyBuffer:       "DestroyBuffer",
	CmdDestroyTexture:      "DestroyTexture",
	CmdShutdown:            "Shutdown",
}

// String returns the string representation of a CommandType.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is the interface implemented by all command types.
// Commands carry object IDs and plain values only, so they can be built on
// any goroutine and executed later on the render actor's thread.
type Command interface {
	// Type returns the CommandType for this command.
	Type() CommandType
}

// --------------------------------------------------------------------------
// Frame Commands
// --------------------------------------------------------------------------

// OpenFrameCommand waits for the current slot's previous work, acquires the
// next swapchain image and begins the render pass.
type OpenFrameCommand struct{}

// Type implements Command.
func (OpenFrameCommand) Type() CommandType { return CmdOpenFrame }

// SubmitFrameCommand ends the render pass, submits the slot's command buffer,
// presents and advances to the next slot.
type SubmitFrameCommand struct{}

// Type implements Command.
func (SubmitFrameCommand) Type() CommandType { return CmdSubmitFrame }

// --------------------------------------------------------------------------
// Recording Commands
// --------------------------------------------------------------------------

// BindPipelineCommand binds a graphics pipeline.
type BindPipelineCommand struct {
	Pipeline PipelineID
}

// Type implements Command.
func (BindPipelineCommand) Type() CommandType { return CmdBindPipeline }

// BindViewportCommand sets the dynamic viewport.
type BindViewportCommand struct {
	Viewport Viewport
}

// Type implements Command.
func (BindViewportCommand) Type() CommandType { return CmdBindViewport }

// BindScissorCommand sets the dynamic scissor rectangle.
type BindScissorCommand struct {
	Scissor Rect
}

// Type implements Command.
func (BindScissorCommand) Type() CommandType { return CmdBindScissor }

// BindDescriptorSetCommand binds the descriptor's set instance for the slot
// that is current when the command executes.
type BindDescriptorSetCommand struct {
	Layout     PipelineLayoutID
	Descriptor *Descriptor
}

// Type implements Command.
func (BindDescriptorSetCommand) Type() CommandType { return CmdBindDescriptorSet }

// BindVertexBufferCommand binds a vertex buffer at binding 0, offset 0.
type BindVertexBufferCommand struct {
	Buffer BufferID
}

// Type implements Command.
func (BindVertexBufferCommand) Type() CommandType { return CmdBindVertexBuffer }

// BindIndexBufferCommand binds an index buffer at offset 0.
type BindIndexBufferCommand struct {
	Buffer BufferID
	Format gputypes.IndexFormat
}

// Type implements Command.
func (BindIndexBufferCommand) Type() CommandType { return CmdBindIndexBuffer }

// DrawCommand records a non-indexed draw of one instance.
type DrawCommand struct {
	VertexCount uint32
}

// Type implements Command.
func (DrawCommand) Type() CommandType { return CmdDraw }

// DrawIndexedCommand records an indexed draw of one instance.
type DrawIndexedCommand struct {
	IndexCount uint32
}

// Type implements Command.
func (DrawIndexedCommand) Type() CommandType { return CmdDrawIndexed }

// --------------------------------------------------------------------------
// Resource Commands
// --------------------------------------------------------------------------

// UpdateDescriptorSetCommand writes the descriptor's set instance for the
// slot that is current when the command executes. Writes is owned by the
// command.
type UpdateDescriptorSetCommand struct {
	Descriptor *Descriptor
	Writes     []DescriptorWrite
}

// Type implements Command.
func (UpdateDescriptorSetCommand) Type() CommandType { return CmdUpdateDescriptorSet }

// DestroyBufferCommand frees a buffer's allocation and destroys the buffer.
type DestroyBufferCommand struct {
	Resource   uuid.UUID
	Label      string
	Buffer     BufferID
	Allocation Allocation
}

// Type implements Command.
func (DestroyBufferCommand) Type() CommandType { return CmdDestroyBuffer }

// DestroyTextureCommand destroys a texture's sampler and view, frees its
// allocation and destroys the image.
type DestroyTextureCommand struct {
	Resource   uuid.UUID
	Label      string
	Image      ImageID
	View       ImageViewID
	Sampler    SamplerID
	Allocation Allocation
}

// Type implements Command.
func (DestroyTextureCommand) Type() CommandType { return CmdDestroyTexture }

// ShutdownCommand stops the render actor. Commands queued behind it are
// never executed.
type ShutdownCommand struct{}

// Type implements Command.
func (ShutdownCommand) Type() CommandType { return CmdShutdown }
