package gpu

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlab/shader"
)

// ResourceState is the usage a texture is in between commands.
type ResourceState uint8

const (
	StateCommon ResourceState = iota
	StateRenderTarget
	StateCopySource
	StateCopyDest
)

func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "common"
	case StateRenderTarget:
		return "render-target"
	case StateCopySource:
		return "copy-source"
	case StateCopyDest:
		return "copy-dest"
	default:
		return fmt.Sprintf("ResourceState(%d)", uint8(s))
	}
}

// Capabilities describes the adapter a device runs on.
type Capabilities struct {
	AdapterName string
	Vendor      string
	VendorID    uint32
	DeviceID    uint32
	DeviceType  string
	Backend     string
	Driver      string
	Features    []string

	// Lane counts in the shape D3D12 reports them: the smallest and largest
	// SIMD width a wave can run with, and the lane total of the GPU.
	WaveLaneCountMin uint32
	WaveLaneCountMax uint32
	TotalLaneCount   uint32
}

// TargetDescriptor describes a 2D render target. The target starts in
// InitialState.
type TargetDescriptor struct {
	Label        string
	Width        uint32
	Height       uint32
	Format       gputypes.TextureFormat
	InitialState ResourceState
}

// PipelineDescriptor describes a render pipeline built from a vertex and a
// pixel blob. Topology is a triangle list; there is no culling, depth or
// blending, and every color channel is written.
type PipelineDescriptor struct {
	Label  string
	Vertex *shader.Blob
	Pixel  *shader.Blob
	Format gputypes.TextureFormat
}

// Viewport is a float viewport with a depth range.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// FullViewport covers a w by h target with depth 0 to 1.
func FullViewport(w, h uint32) Viewport {
	return Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1}
}

// Rect is an integer scissor rectangle.
type Rect struct {
	X, Y, Width, Height uint32
}

// Device creates resources and command lists.
type Device interface {
	Capabilities() Capabilities
	CreateRenderTarget(desc TargetDescriptor) (Texture, error)
	// CopyableFootprint reports the layout a texture has once copied into a
	// buffer.
	CopyableFootprint(t Texture) Footprint
	CreateReadbackBuffer(label string, size uint64) (Buffer, error)
	CreatePipeline(desc PipelineDescriptor) (Pipeline, error)
	CreateCommandList(label string) (CommandList, error)
	CreateFence(initial uint64) (Fence, error)
	Queue() Queue
	Close() error
}

// Queue executes closed command lists in submission order.
type Queue interface {
	Submit(lists ...CommandList) error
	// Signal sets f to value once all previously submitted work completes.
	Signal(f Fence, value uint64) error
}

// CommandList records GPU work. Recording errors are kept and returned by
// Close; later commands are ignored once an error is recorded. Barriers
// take effect on the textures when the list is submitted.
type CommandList interface {
	SetViewport(v Viewport)
	SetScissor(r Rect)
	SetRenderTarget(t Texture)
	SetPipeline(p Pipeline)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	Barrier(t Texture, before, after ResourceState)
	CopyTextureToBuffer(src Texture, dst Buffer, fp Footprint)
	Close() error
	// Reset reopens a submitted or closed list for recording. Textures
	// keep the states of the last submitted list.
	Reset() error
	Release()
}

// Fence is a monotonic counter advanced by the queue.
type Fence interface {
	Completed() uint64
	// Wait blocks until Completed reaches value or ctx ends.
	Wait(ctx context.Context, value uint64) error
	Release()
}

// Texture is a GPU texture with a tracked state.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat
	State() ResourceState
	Release()
}

// Buffer is a CPU-readable buffer.
type Buffer interface {
	Size() uint64
	// Map returns the buffer contents. The slice is valid until Unmap.
	Map(ctx context.Context) ([]byte, error)
	Unmap() error
	Release()
}

// Pipeline is a compiled render pipeline.
type Pipeline interface {
	Label() string
	Release()
}
