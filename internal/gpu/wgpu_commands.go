//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
)

// wgpuCommandList maps the explicit command model onto wgpu encoders.
// A render pass is opened lazily on the first draw and ended by any copy,
// barrier, target change or Close. The first pass on a target within a
// list clears it to transparent black; later passes load.
//
// Barriers move textures in the list's PendingStates; the textures take
// those states when the list is submitted.
type wgpuCommandList struct {
	dev   *WGPUDevice
	label string

	enc  *wgpu.CommandEncoder
	pass *wgpu.RenderPassEncoder
	cmd  *wgpu.CommandBuffer

	viewport    Viewport
	hasViewport bool
	scissor     Rect
	hasScissor  bool
	target      *wgpuTexture
	pipeline    *wgpuPipeline
	passPipe    *wgpuPipeline
	cleared     map[*wgpuTexture]bool
	writes      []*wgpuBuffer
	states      PendingStates[*wgpuTexture]

	closed   bool
	released bool
	err      error
}

func (l *wgpuCommandList) begin() error {
	enc, err := l.dev.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: l.label})
	if err != nil {
		return fmt.Errorf("gpu: command list %q: %w", l.label, err)
	}
	if l.cmd != nil {
		l.cmd.Release()
	}
	l.enc = enc
	l.pass = nil
	l.cmd = nil
	l.hasViewport = false
	l.hasScissor = false
	l.target = nil
	l.pipeline = nil
	l.passPipe = nil
	l.cleared = make(map[*wgpuTexture]bool)
	l.writes = nil
	l.states.Reset()
	l.closed = false
	l.err = nil
	return nil
}

func (l *wgpuCommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *wgpuCommandList) recording() bool {
	if l.closed {
		l.fail(ErrListClosed)
		return false
	}
	return l.err == nil
}

func (l *wgpuCommandList) texture(t Texture) *wgpuTexture {
	wt, ok := t.(*wgpuTexture)
	if !ok || wt.dev != l.dev {
		l.fail(fmt.Errorf("%w: texture %T", ErrForeignResource, t))
		return nil
	}
	return wt
}

func (l *wgpuCommandList) SetViewport(v Viewport) {
	if !l.recording() {
		return
	}
	l.viewport, l.hasViewport = v, true
	if l.pass != nil {
		l.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
}

func (l *wgpuCommandList) SetScissor(r Rect) {
	if !l.recording() {
		return
	}
	l.scissor, l.hasScissor = r, true
	if l.pass != nil {
		l.pass.SetScissorRect(r.X, r.Y, r.Width, r.Height)
	}
}

func (l *wgpuCommandList) SetRenderTarget(t Texture) {
	if !l.recording() {
		return
	}
	wt := l.texture(t)
	if wt == nil {
		return
	}
	if wt != l.target {
		l.endPass()
	}
	l.target = wt
}

func (l *wgpuCommandList) SetPipeline(p Pipeline) {
	if !l.recording() {
		return
	}
	wp, ok := p.(*wgpuPipeline)
	if !ok || wp.pipeline == nil {
		l.fail(fmt.Errorf("%w: pipeline %T", ErrForeignResource, p))
		return
	}
	l.pipeline = wp
	if l.pass != nil && l.passPipe != wp {
		l.pass.SetPipeline(wp.pipeline)
		l.passPipe = wp
	}
}

func (l *wgpuCommandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !l.recording() {
		return
	}
	switch {
	case l.target == nil:
		l.fail(ErrNoRenderTarget)
		return
	case l.pipeline == nil:
		l.fail(ErrNoPipeline)
		return
	}
	if st := l.states.State(l.target, l.target.state); st != StateRenderTarget {
		l.fail(fmt.Errorf("%w: draw into target in %s state", ErrStateMismatch, st))
		return
	}
	if l.pass == nil {
		if err := l.beginPass(); err != nil {
			l.fail(err)
			return
		}
	}
	if l.passPipe != l.pipeline {
		l.pass.SetPipeline(l.pipeline.pipeline)
		l.passPipe = l.pipeline
	}
	l.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (l *wgpuCommandList) beginPass() error {
	load := gputypes.LoadOpLoad
	if !l.cleared[l.target] {
		load = gputypes.LoadOpClear
		l.cleared[l.target] = true
	}
	pass, err := l.enc.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: l.label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       l.target.view,
				LoadOp:     load,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: begin render pass: %w", err)
	}
	l.pass = pass
	l.passPipe = nil
	if l.hasViewport {
		v := l.viewport
		pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	}
	if l.hasScissor {
		r := l.scissor
		pass.SetScissorRect(r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

func (l *wgpuCommandList) endPass() {
	if l.pass == nil {
		return
	}
	if err := l.pass.End(); err != nil {
		l.fail(fmt.Errorf("gpu: end render pass: %w", err))
	}
	l.pass = nil
	l.passPipe = nil
}

func textureUsage(s ResourceState) wgpu.TextureUsage {
	switch s {
	case StateRenderTarget:
		return wgpu.TextureUsageRenderAttachment
	case StateCopySource:
		return wgpu.TextureUsageCopySrc
	case StateCopyDest:
		return wgpu.TextureUsageCopyDst
	default:
		return 0
	}
}

func (l *wgpuCommandList) Barrier(t Texture, before, after ResourceState) {
	if !l.recording() {
		return
	}
	wt := l.texture(t)
	if wt == nil {
		return
	}
	if st := l.states.State(wt, wt.state); st != before {
		l.fail(fmt.Errorf("%w: barrier from %s, texture is %s", ErrStateMismatch, before, st))
		return
	}
	l.endPass()
	l.enc.TransitionTextures([]wgpu.TextureBarrier{
		{
			Texture: wt.tex,
			Range: wgpu.TextureRange{
				Aspect:          gputypes.TextureAspectAll,
				MipLevelCount:   1,
				ArrayLayerCount: 1,
			},
			Usage: wgpu.TextureUsageTransition{
				OldUsage: textureUsage(before),
				NewUsage: textureUsage(after),
			},
		},
	})
	l.states.Set(wt, after)
}

func (l *wgpuCommandList) CopyTextureToBuffer(src Texture, dst Buffer, fp Footprint) {
	if !l.recording() {
		return
	}
	wt := l.texture(src)
	if wt == nil {
		return
	}
	wb, ok := dst.(*wgpuBuffer)
	if !ok || wb.dev != l.dev {
		l.fail(fmt.Errorf("%w: buffer %T", ErrForeignResource, dst))
		return
	}
	if st := l.states.State(wt, wt.state); st != StateCopySource {
		l.fail(fmt.Errorf("%w: copy from texture in %s state", ErrStateMismatch, st))
		return
	}
	if fp.Offset+fp.TotalBytes > wb.size {
		l.fail(fmt.Errorf("%w: footprint needs %d bytes, buffer has %d", ErrInvalidSize, fp.Offset+fp.TotalBytes, wb.size))
		return
	}
	l.endPass()
	l.enc.CopyTextureToBuffer(wt.tex, wb.buf, []wgpu.BufferTextureCopy{
		{
			BufferLayout: wgpu.ImageDataLayout{
				Offset:       fp.Offset,
				BytesPerRow:  uint32(fp.RowPitch),
				RowsPerImage: fp.Height,
			},
			TextureBase: wgpu.ImageCopyTexture{
				Texture: wt.tex,
			},
			Size: wgpu.Extent3D{
				Width:              fp.Width,
				Height:             fp.Height,
				DepthOrArrayLayers: 1,
			},
		},
	})
	l.writes = append(l.writes, wb)
}

func (l *wgpuCommandList) Close() error {
	if l.closed {
		return ErrListClosed
	}
	l.endPass()
	l.closed = true
	if l.err != nil {
		l.enc.DiscardEncoding()
		l.enc = nil
		return fmt.Errorf("gpu: command list %q: %w", l.label, l.err)
	}
	cmd, err := l.enc.Finish()
	l.enc = nil
	if err != nil {
		l.err = err
		return fmt.Errorf("gpu: command list %q: finish: %w", l.label, err)
	}
	l.cmd = cmd
	return nil
}

func (l *wgpuCommandList) Reset() error {
	if l.released {
		return ErrClosed
	}
	if !l.closed {
		l.endPass()
		if l.enc != nil {
			l.enc.DiscardEncoding()
		}
	}
	return l.begin()
}

// Release discards an open encoding and a command buffer that was never
// submitted. The list cannot be reset afterwards.
func (l *wgpuCommandList) Release() {
	if l.released {
		return
	}
	if !l.closed {
		l.endPass()
		if l.enc != nil {
			l.enc.DiscardEncoding()
			l.enc = nil
		}
	}
	if l.cmd != nil {
		l.cmd.Release()
		l.cmd = nil
	}
	l.states.Reset()
	l.writes = nil
	l.closed = true
	l.released = true
}

// submissions reports queue progress in wgpu submission indices.
type submissions interface {
	completedIndex() uint64
	waitIdle() error
}

func (d *WGPUDevice) completedIndex() uint64 { return d.device.Queue().Poll() }

func (d *WGPUDevice) waitIdle() error { return d.device.WaitIdle() }

type fenceSignal struct {
	value uint64
	index uint64
}

type wgpuQueue struct {
	dev  *WGPUDevice
	mu   sync.Mutex
	last uint64
}

// Submit submits the closed lists as one batch.
func (q *wgpuQueue) Submit(lists ...CommandList) error {
	if err := q.dev.live(); err != nil {
		return err
	}
	cmds := make([]*wgpu.CommandBuffer, 0, len(lists))
	var writes []*wgpuBuffer
	for _, cl := range lists {
		l, ok := cl.(*wgpuCommandList)
		if !ok || l.dev != q.dev {
			return fmt.Errorf("%w: command list %T", ErrForeignResource, cl)
		}
		if !l.closed {
			return fmt.Errorf("%w: %q", ErrListOpen, l.label)
		}
		if l.err != nil {
			return fmt.Errorf("gpu: submit %q: %w", l.label, l.err)
		}
		if l.cmd == nil {
			return fmt.Errorf("gpu: submit %q: already submitted", l.label)
		}
		cmds = append(cmds, l.cmd)
		writes = append(writes, l.writes...)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	idx, err := q.dev.device.Queue().Submit(cmds...)
	if err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}
	q.last = idx
	for _, cl := range lists {
		l := cl.(*wgpuCommandList)
		l.cmd = nil
		l.writes = nil
		l.states.Commit(func(t *wgpuTexture, s ResourceState) { t.state = s })
	}
	for _, b := range writes {
		b.mu.Lock()
		b.writtenBy = idx
		b.mu.Unlock()
	}
	slogger().Debug("gpu: submitted", "lists", len(lists), "index", idx)
	return nil
}

// Signal records value against the most recent submission.
func (q *wgpuQueue) Signal(f Fence, value uint64) error {
	wf, ok := f.(*wgpuFence)
	if !ok || wf.dev != q.dev {
		return fmt.Errorf("%w: fence %T", ErrForeignResource, f)
	}
	q.mu.Lock()
	idx := q.last
	q.mu.Unlock()

	wf.mu.Lock()
	defer wf.mu.Unlock()
	if wf.released {
		return ErrClosed
	}
	if value <= wf.signaled {
		return fmt.Errorf("%w: %d after %d", ErrFenceValue, value, wf.signaled)
	}
	wf.signaled = value
	wf.pending = append(wf.pending, fenceSignal{value: value, index: idx})
	return nil
}

// wgpuFence emulates a D3D12-style fence on top of wgpu submission indices.
type wgpuFence struct {
	dev       *WGPUDevice
	track     submissions
	mu        sync.Mutex
	completed uint64
	signaled  uint64
	pending   []fenceSignal
	released  bool
}

func (f *wgpuFence) Completed() uint64 {
	done := f.track.completedIndex()
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) > 0 && f.pending[0].index <= done {
		f.completed = f.pending[0].value
		f.pending = f.pending[1:]
	}
	return f.completed
}

func (f *wgpuFence) Wait(ctx context.Context, value uint64) error {
	if f.Completed() >= value {
		return nil
	}
	f.mu.Lock()
	signaled, released := f.signaled, f.released
	f.mu.Unlock()
	if released {
		return ErrClosed
	}
	if value > signaled {
		return fmt.Errorf("%w: %d (highest is %d)", ErrNeverSignaled, value, signaled)
	}

	done := make(chan error, 1)
	go func() {
		done <- f.track.waitIdle()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("gpu: wait for fence value %d: %w", value, err)
		}
	}
	if got := f.Completed(); got < value {
		return fmt.Errorf("gpu: fence at %d after idle, want %d", got, value)
	}
	return nil
}

// Release drops the pending signals. Values already completed stay
// readable.
func (f *wgpuFence) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
	f.pending = nil
}

type wgpuBuffer struct {
	dev   *WGPUDevice
	track submissions
	buf   *wgpu.Buffer
	size  uint64
	alloc uint64

	mu        sync.Mutex
	writtenBy uint64
	mapped    bool
}

func (b *wgpuBuffer) Size() uint64 { return b.size }

// Map maps the buffer for reading. The submission that last wrote it must
// have completed.
func (b *wgpuBuffer) Map(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mapped {
		return nil, fmt.Errorf("%w: already mapped", ErrBufferBusy)
	}
	if done := b.track.completedIndex(); b.writtenBy > done {
		return nil, fmt.Errorf("%w: submission %d has not completed", ErrBufferBusy, b.writtenBy)
	}
	if err := b.buf.Map(ctx, wgpu.MapModeRead, 0, b.alloc); err != nil {
		return nil, fmt.Errorf("gpu: map readback buffer: %w", err)
	}
	rng, err := b.buf.MappedRange(0, b.alloc)
	if err != nil {
		_ = b.buf.Unmap()
		return nil, fmt.Errorf("gpu: mapped range: %w", err)
	}
	b.mapped = true
	return rng.Bytes()[:b.size], nil
}

func (b *wgpuBuffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mapped {
		return nil
	}
	b.mapped = false
	if err := b.buf.Unmap(); err != nil {
		return fmt.Errorf("gpu: unmap: %w", err)
	}
	return nil
}

func (b *wgpuBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}
