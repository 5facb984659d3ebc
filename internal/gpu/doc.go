// Package gpu is the device layer of shaderlab.
//
// It describes the small slice of an explicit graphics API the playground
// needs: a render target, a readback buffer, render pipelines, command lists
// with resource-state barriers, a queue and a monotonic fence. The
// interfaces mirror the way the work is recorded so that a frame reads the
// same against every implementation.
//
// Two implementations exist:
//
//   - WGPUDevice runs on gogpu/wgpu (Vulkan, Metal, DX12, GLES or the
//     software rasterizer, selected at Open).
//   - gputest.Device is an in-memory fake that shades pixels with Go
//     functions and enforces the same ordering rules with explicit errors.
//
// # Resource states
//
// Textures carry a tracked ResourceState. A barrier names the state it
// expects to leave; a mismatch is recorded on the command list and returned
// by Close, so a bad frame fails before it is submitted. A list tracks the
// states its barriers produce and hands them to the textures only when it
// is submitted, so a list that never runs leaves its textures as they were.
//
// # Fences
//
// A Fence holds the highest completed value. Queue.Signal enqueues a value
// behind all previously submitted work; Fence.Wait blocks until that value
// completes or the context ends. There is no timeout.
package gpu
