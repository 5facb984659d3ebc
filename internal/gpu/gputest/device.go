// Package gputest provides an in-memory gpu.Device for tests.
//
// The fake executes command lists on the CPU when they are submitted. Pixel
// shaders are Go functions keyed by pixel entry point name; a draw shades
// every pixel inside the viewport, the scissor and the target. Every call
// is appended to an event log so tests can assert ordering.
package gputest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlab/internal/gpu"
)

// PixelFunc shades pixel (x, y) of a w by h target and returns RGBA.
type PixelFunc func(x, y, w, h uint32) [4]float32

// Solid returns a PixelFunc that writes one color everywhere.
func Solid(r, g, b, a float32) PixelFunc {
	return func(_, _, _, _ uint32) [4]float32 { return [4]float32{r, g, b, a} }
}

// PaddingByte fills the bytes between RowSize and RowPitch of a copy.
const PaddingByte = 0xCD

// Option configures a Device.
type Option func(*Device)

// WithCapabilities sets what Capabilities reports.
func WithCapabilities(c gpu.Capabilities) Option {
	return func(d *Device) { d.caps = c }
}

// WithShader registers the function run for a pixel entry point.
func WithShader(entry string, fn PixelFunc) Option {
	return func(d *Device) { d.shaders[entry] = fn }
}

// WithManualFences makes submissions complete only when the test calls
// Complete. Fence.Wait blocks until then.
func WithManualFences() Option {
	return func(d *Device) { d.manual = true }
}

// WithFailure makes the named operation ("CreateRenderTarget",
// "CreateReadbackBuffer", "CreatePipeline", "CreateCommandList",
// "CreateFence", "Submit", "Map") return err.
func WithFailure(op string, err error) Option {
	return func(d *Device) { d.failures[op] = err }
}

// Device is a fake gpu.Device.
type Device struct {
	mu       sync.Mutex
	cond     *sync.Cond
	caps     gpu.Capabilities
	shaders  map[string]PixelFunc
	failures map[string]error
	manual   bool
	closed   bool
	events   []string

	submitted uint64
	completed uint64
	fences    []*Fence

	queue *Queue
}

var _ gpu.Device = (*Device)(nil)

// DefaultCapabilities are reported when WithCapabilities is not used.
var DefaultCapabilities = gpu.Capabilities{
	AdapterName:      "gputest",
	Vendor:           "shaderlab",
	DeviceType:       "CPU",
	Backend:          "Empty",
	WaveLaneCountMin: 4,
	WaveLaneCountMax: 4,
	TotalLaneCount:   4,
}

// New returns a fake device.
func New(opts ...Option) *Device {
	d := &Device{
		caps:     DefaultCapabilities,
		shaders:  make(map[string]PixelFunc),
		failures: make(map[string]error),
	}
	d.cond = sync.NewCond(&d.mu)
	d.queue = &Queue{dev: d}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) logf(format string, args ...any) {
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the event log.
func (d *Device) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

// ResetEvents clears the event log.
func (d *Device) ResetEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

// Fail makes the named operation return err from now on; a nil err
// clears the failure.
func (d *Device) Fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

func (d *Device) check(op string) error {
	if d.closed {
		return gpu.ErrClosed
	}
	if err := d.failures[op]; err != nil {
		return err
	}
	return nil
}

func (d *Device) Capabilities() gpu.Capabilities { return d.caps }

func (d *Device) Queue() gpu.Queue { return d.queue }

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.logf("Close")
	d.cond.Broadcast()
	return nil
}

func (d *Device) CreateRenderTarget(desc gpu.TargetDescriptor) (gpu.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateRenderTarget"); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: target %dx%d", gpu.ErrInvalidSize, desc.Width, desc.Height)
	}
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA32Float
	}
	if format != gputypes.TextureFormatRGBA32Float {
		return nil, fmt.Errorf("gputest: only RGBA32Float targets are supported, got %s", format)
	}
	d.logf("CreateRenderTarget %s %dx%d", desc.Label, desc.Width, desc.Height)
	return &Texture{
		dev:    d,
		width:  desc.Width,
		height: desc.Height,
		format: format,
		state:  desc.InitialState,
		texels: make([]float32, int(desc.Width)*int(desc.Height)*4),
	}, nil
}

func (d *Device) CopyableFootprint(t gpu.Texture) gpu.Footprint {
	return gpu.ComputeFootprint(t.Width(), t.Height(), t.Format())
}

func (d *Device) CreateReadbackBuffer(label string, size uint64) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateReadbackBuffer"); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: readback buffer of 0 bytes", gpu.ErrInvalidSize)
	}
	d.logf("CreateReadbackBuffer %s %d", label, size)
	return &Buffer{dev: d, data: make([]byte, size)}, nil
}

func (d *Device) CreatePipeline(desc gpu.PipelineDescriptor) (gpu.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreatePipeline"); err != nil {
		return nil, err
	}
	if desc.Vertex == nil || desc.Pixel == nil {
		return nil, fmt.Errorf("gputest: pipeline %q needs a vertex and a pixel blob", desc.Label)
	}
	fn, ok := d.shaders[desc.Pixel.EntryPoint]
	if !ok {
		return nil, fmt.Errorf("gputest: no shader registered for %q", desc.Pixel.EntryPoint)
	}
	d.logf("CreatePipeline %s %s/%s", desc.Label, desc.Vertex.EntryPoint, desc.Pixel.EntryPoint)
	return &Pipeline{label: desc.Label, entry: desc.Pixel.EntryPoint, shade: fn}, nil
}

func (d *Device) CreateCommandList(label string) (gpu.CommandList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateCommandList"); err != nil {
		return nil, err
	}
	d.logf("CreateCommandList %s", label)
	return &CommandList{dev: d, label: label}, nil
}

func (d *Device) CreateFence(initial uint64) (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateFence"); err != nil {
		return nil, err
	}
	d.logf("CreateFence %d", initial)
	f := &Fence{dev: d, completed: initial, signaled: initial}
	d.fences = append(d.fences, f)
	return f, nil
}

// Complete finishes every submission up to the one value was signaled
// after, advancing f. It is a no-op unless WithManualFences is set.
func (d *Device) Complete(f gpu.Fence, value uint64) {
	ff, ok := f.(*Fence)
	if !ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range ff.pending {
		if s.value <= value && s.index > d.completed {
			d.completed = s.index
		}
	}
	d.retire()
	d.cond.Broadcast()
}

// retire advances every fence whose signals are covered by completed.
// Called with d.mu held.
func (d *Device) retire() {
	for _, f := range d.fences {
		for len(f.pending) > 0 && f.pending[0].index <= d.completed {
			f.completed = f.pending[0].value
			f.pending = f.pending[1:]
		}
	}
}

type signal struct {
	value uint64
	index uint64
}

// Queue is the fake queue. Submitted lists execute immediately; completion
// follows the fence mode.
type Queue struct {
	dev *Device
}

func (q *Queue) Submit(lists ...gpu.CommandList) error {
	d := q.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("Submit"); err != nil {
		return err
	}
	for _, cl := range lists {
		l, ok := cl.(*CommandList)
		if !ok || l.dev != d {
			return fmt.Errorf("%w: command list %T", gpu.ErrForeignResource, cl)
		}
		if !l.closed {
			return fmt.Errorf("%w: %q", gpu.ErrListOpen, l.label)
		}
		if l.err != nil {
			return fmt.Errorf("gputest: submit %q: %w", l.label, l.err)
		}
	}
	d.submitted++
	for _, cl := range lists {
		l := cl.(*CommandList)
		for _, op := range l.ops {
			op(d.submitted)
		}
		l.ops = nil
		l.states.Commit(func(t *Texture, s gpu.ResourceState) { t.state = s })
	}
	if !d.manual {
		d.completed = d.submitted
		d.retire()
		d.cond.Broadcast()
	}
	d.logf("Submit %d", len(lists))
	return nil
}

func (q *Queue) Signal(f gpu.Fence, value uint64) error {
	d := q.dev
	ff, ok := f.(*Fence)
	if !ok || ff.dev != d {
		return fmt.Errorf("%w: fence %T", gpu.ErrForeignResource, f)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if ff.released {
		return gpu.ErrClosed
	}
	if value <= ff.signaled {
		return fmt.Errorf("%w: %d after %d", gpu.ErrFenceValue, value, ff.signaled)
	}
	ff.signaled = value
	ff.pending = append(ff.pending, signal{value: value, index: d.submitted})
	d.logf("Signal %d", value)
	d.retire()
	d.cond.Broadcast()
	return nil
}

// Fence is the fake fence.
type Fence struct {
	dev       *Device
	completed uint64
	signaled  uint64
	pending   []signal
	released  bool
}

func (f *Fence) Completed() uint64 {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	return f.completed
}

func (f *Fence) Wait(ctx context.Context, value uint64) error {
	d := f.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logf("Wait %d", value)
	if f.released {
		return gpu.ErrClosed
	}
	if value > f.signaled && f.completed < value {
		return fmt.Errorf("%w: %d (highest is %d)", gpu.ErrNeverSignaled, value, f.signaled)
	}

	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.cond.Broadcast()
	})
	defer stop()

	for f.completed < value {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.closed {
			return gpu.ErrClosed
		}
		d.cond.Wait()
	}
	return nil
}

// Release drops the fence's pending signals.
func (f *Fence) Release() {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	f.released = true
	f.pending = nil
}

// Released reports whether Release was called.
func (f *Fence) Released() bool {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	return f.released
}

// Texture is a fake RGBA32F texture.
type Texture struct {
	dev    *Device
	width  uint32
	height uint32
	format gputypes.TextureFormat
	state  gpu.ResourceState
	texels []float32
}

func (t *Texture) Width() uint32                  { return t.width }
func (t *Texture) Height() uint32                 { return t.height }
func (t *Texture) Format() gputypes.TextureFormat { return t.format }
func (t *Texture) State() gpu.ResourceState       { return t.state }
func (t *Texture) Release()                       {}

// Pixel returns the stored texel at (x, y).
func (t *Texture) Pixel(x, y uint32) [4]float32 {
	i := (int(y)*int(t.width) + int(x)) * 4
	return [4]float32{t.texels[i], t.texels[i+1], t.texels[i+2], t.texels[i+3]}
}

// Buffer is a fake readback buffer.
type Buffer struct {
	dev       *Device
	data      []byte
	writtenBy uint64
	mapped    bool
	released  bool
}

func (b *Buffer) Size() uint64 { return uint64(len(b.data)) }

func (b *Buffer) Map(ctx context.Context) ([]byte, error) {
	d := b.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.check("Map"); err != nil {
		return nil, err
	}
	if b.mapped {
		return nil, fmt.Errorf("%w: already mapped", gpu.ErrBufferBusy)
	}
	if b.writtenBy > d.completed {
		return nil, fmt.Errorf("%w: submission %d has not completed", gpu.ErrBufferBusy, b.writtenBy)
	}
	b.mapped = true
	d.logf("Map")
	return b.data, nil
}

func (b *Buffer) Unmap() error {
	d := b.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !b.mapped {
		return errors.New("gputest: unmap of a buffer that is not mapped")
	}
	b.mapped = false
	d.logf("Unmap")
	return nil
}

func (b *Buffer) Release() { b.released = true }

// Pipeline is a fake pipeline.
type Pipeline struct {
	label    string
	entry    string
	shade    PixelFunc
	released bool
}

func (p *Pipeline) Label() string { return p.label }

// Entry returns the pixel entry point the pipeline runs.
func (p *Pipeline) Entry() string { return p.entry }

func (p *Pipeline) Release() { p.released = true }

// Released reports whether Release was called.
func (p *Pipeline) Released() bool { return p.released }

// CommandList records operations and validates states at record time.
// Texture states change when the list is submitted.
type CommandList struct {
	dev   *Device
	label string

	viewport    gpu.Viewport
	hasViewport bool
	scissor     gpu.Rect
	hasScissor  bool
	target      *Texture
	pipeline    *Pipeline
	states      gpu.PendingStates[*Texture]

	ops      []func(submission uint64)
	closed   bool
	released bool
	err      error
}

func (l *CommandList) event(format string, args ...any) {
	l.dev.mu.Lock()
	defer l.dev.mu.Unlock()
	l.dev.logf(format, args...)
}

func (l *CommandList) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

func (l *CommandList) recording() bool {
	if l.closed {
		l.fail(gpu.ErrListClosed)
		return false
	}
	return l.err == nil
}

func (l *CommandList) SetViewport(v gpu.Viewport) {
	if !l.recording() {
		return
	}
	l.event("SetViewport %g,%g %gx%g", v.X, v.Y, v.Width, v.Height)
	l.viewport, l.hasViewport = v, true
}

func (l *CommandList) SetScissor(r gpu.Rect) {
	if !l.recording() {
		return
	}
	l.event("SetScissor %d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
	l.scissor, l.hasScissor = r, true
}

func (l *CommandList) SetRenderTarget(t gpu.Texture) {
	if !l.recording() {
		return
	}
	ft, ok := t.(*Texture)
	if !ok || ft.dev != l.dev {
		l.fail(fmt.Errorf("%w: texture %T", gpu.ErrForeignResource, t))
		return
	}
	l.event("SetRenderTarget")
	l.target = ft
}

func (l *CommandList) SetPipeline(p gpu.Pipeline) {
	if !l.recording() {
		return
	}
	fp, ok := p.(*Pipeline)
	if !ok {
		l.fail(fmt.Errorf("%w: pipeline %T", gpu.ErrForeignResource, p))
		return
	}
	l.event("SetPipeline %s", fp.label)
	l.pipeline = fp
}

func (l *CommandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !l.recording() {
		return
	}
	l.event("Draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance)
	switch {
	case l.target == nil:
		l.fail(gpu.ErrNoRenderTarget)
		return
	case l.pipeline == nil:
		l.fail(gpu.ErrNoPipeline)
		return
	case !l.hasViewport || !l.hasScissor:
		l.fail(errors.New("gputest: draw without viewport and scissor"))
		return
	}
	if st := l.states.State(l.target, l.target.state); st != gpu.StateRenderTarget {
		l.fail(fmt.Errorf("%w: draw into target in %s state", gpu.ErrStateMismatch, st))
		return
	}
	if vertexCount < 3 || instanceCount == 0 {
		return
	}
	t, shade := l.target, l.pipeline.shade
	x0, y0, x1, y1 := l.coverage()
	l.ops = append(l.ops, func(uint64) {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				c := shade(x, y, t.width, t.height)
				i := (int(y)*int(t.width) + int(x)) * 4
				copy(t.texels[i:i+4], c[:])
			}
		}
	})
}

// coverage intersects the viewport, scissor and target.
func (l *CommandList) coverage() (x0, y0, x1, y1 uint32) {
	v, s, t := l.viewport, l.scissor, l.target
	clamp := func(f float32, hi uint32) uint32 {
		if f <= 0 {
			return 0
		}
		n := uint32(math.Ceil(float64(f) - 0.5))
		if n > hi {
			return hi
		}
		return n
	}
	x0 = max(clamp(v.X, t.width), s.X)
	y0 = max(clamp(v.Y, t.height), s.Y)
	x1 = min(clamp(v.X+v.Width, t.width), s.X+s.Width, t.width)
	y1 = min(clamp(v.Y+v.Height, t.height), s.Y+s.Height, t.height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return x0, y0, x1, y1
}

func (l *CommandList) Barrier(t gpu.Texture, before, after gpu.ResourceState) {
	if !l.recording() {
		return
	}
	l.event("Barrier %s->%s", before, after)
	ft, ok := t.(*Texture)
	if !ok || ft.dev != l.dev {
		l.fail(fmt.Errorf("%w: texture %T", gpu.ErrForeignResource, t))
		return
	}
	if st := l.states.State(ft, ft.state); st != before {
		l.fail(fmt.Errorf("%w: barrier from %s, texture is %s", gpu.ErrStateMismatch, before, st))
		return
	}
	l.states.Set(ft, after)
}

func (l *CommandList) CopyTextureToBuffer(src gpu.Texture, dst gpu.Buffer, fp gpu.Footprint) {
	if !l.recording() {
		return
	}
	l.event("CopyTextureToBuffer %d", fp.RowPitch)
	t, ok := src.(*Texture)
	if !ok || t.dev != l.dev {
		l.fail(fmt.Errorf("%w: texture %T", gpu.ErrForeignResource, src))
		return
	}
	b, ok := dst.(*Buffer)
	if !ok || b.dev != l.dev {
		l.fail(fmt.Errorf("%w: buffer %T", gpu.ErrForeignResource, dst))
		return
	}
	if st := l.states.State(t, t.state); st != gpu.StateCopySource {
		l.fail(fmt.Errorf("%w: copy from texture in %s state", gpu.ErrStateMismatch, st))
		return
	}
	if fp.Offset+fp.TotalBytes > uint64(len(b.data)) {
		l.fail(fmt.Errorf("%w: footprint needs %d bytes, buffer has %d", gpu.ErrInvalidSize, fp.Offset+fp.TotalBytes, len(b.data)))
		return
	}
	if fp.RowSize < uint64(fp.Width)*16 || fp.RowPitch < fp.RowSize {
		l.fail(fmt.Errorf("%w: footprint %v", gpu.ErrInvalidSize, fp))
		return
	}
	l.ops = append(l.ops, func(submission uint64) {
		for i := range b.data {
			b.data[i] = PaddingByte
		}
		for y := uint32(0); y < fp.Height && y < t.height; y++ {
			row := b.data[fp.RowOffset(y):]
			for x := uint32(0); x < fp.Width && x < t.width; x++ {
				c := t.Pixel(x, y)
				for k, v := range c {
					binary.LittleEndian.PutUint32(row[x*16+uint32(k)*4:], math.Float32bits(v))
				}
			}
		}
		b.writtenBy = submission
	})
}

func (l *CommandList) Close() error {
	if l.closed {
		return gpu.ErrListClosed
	}
	l.closed = true
	l.event("Close")
	if l.err != nil {
		return fmt.Errorf("gputest: command list %q: %w", l.label, l.err)
	}
	return nil
}

func (l *CommandList) Reset() error {
	if l.released {
		return gpu.ErrClosed
	}
	l.event("Reset")
	l.ops = nil
	l.states.Reset()
	l.closed = false
	l.err = nil
	l.hasViewport = false
	l.hasScissor = false
	l.target = nil
	l.pipeline = nil
	return nil
}

// Release drops any recorded work. The list cannot be reset afterwards.
func (l *CommandList) Release() {
	l.ops = nil
	l.states.Reset()
	l.closed = true
	l.released = true
}

// Released reports whether Release was called.
func (l *CommandList) Released() bool { return l.released }
