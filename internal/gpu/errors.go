package gpu

import "errors"

var (
	// ErrNoGPU is returned by Open when no adapter could be acquired.
	ErrNoGPU = errors.New("gpu: no GPU adapter available")

	// ErrClosed is returned when a released device or resource is used.
	ErrClosed = errors.New("gpu: device is closed")

	// ErrInvalidSize is returned for zero-sized targets or buffers.
	ErrInvalidSize = errors.New("gpu: invalid size")

	// ErrStateMismatch is recorded when a barrier's before-state differs
	// from the tracked state, or a command needs a state the resource is
	// not in.
	ErrStateMismatch = errors.New("gpu: resource state mismatch")

	// ErrNoRenderTarget is recorded when a draw has no bound target.
	ErrNoRenderTarget = errors.New("gpu: no render target bound")

	// ErrNoPipeline is recorded when a draw has no pipeline set.
	ErrNoPipeline = errors.New("gpu: no pipeline set")

	// ErrListClosed is returned when recording into a closed command list.
	ErrListClosed = errors.New("gpu: command list is closed")

	// ErrListOpen is returned when an open command list is submitted.
	ErrListOpen = errors.New("gpu: command list is not closed")

	// ErrFenceValue is returned when a fence value does not increase.
	ErrFenceValue = errors.New("gpu: fence value must increase")

	// ErrNeverSignaled is returned by Fence.Wait for a value no queue has
	// been asked to signal.
	ErrNeverSignaled = errors.New("gpu: fence value was never signaled")

	// ErrBufferBusy is returned when a buffer is mapped while the GPU may
	// still be writing it, or mapped twice.
	ErrBufferBusy = errors.New("gpu: buffer is in use")

	// ErrBadBytecode is returned when a blob's bytecode cannot be loaded
	// into a shader module.
	ErrBadBytecode = errors.New("gpu: malformed shader bytecode")

	// ErrForeignResource is returned when a resource from another device is
	// passed in.
	ErrForeignResource = errors.New("gpu: resource belongs to another device")
)
