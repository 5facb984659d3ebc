//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/shaderlab/shader"
)

// ParseBackends maps a backend name to a wgpu backend mask.
func ParseBackends(name string) (wgpu.Backends, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto", "all":
		return wgpu.BackendsAll, nil
	case "vulkan", "vk":
		return wgpu.BackendsVulkan, nil
	case "dx12", "d3d12":
		return wgpu.BackendsDX12, nil
	case "metal":
		return wgpu.BackendsMetal, nil
	case "gl", "gles":
		return wgpu.BackendsGL, nil
	default:
		return 0, fmt.Errorf("gpu: unknown backend %q", name)
	}
}

func parsePowerPreference(name string) (wgpu.PowerPreference, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "high", "high-performance":
		return wgpu.PowerPreferenceHighPerformance, nil
	case "low", "low-power":
		return wgpu.PowerPreferenceLowPower, nil
	case "none":
		return wgpu.PowerPreferenceNone, nil
	default:
		return 0, fmt.Errorf("gpu: unknown power preference %q", name)
	}
}

// WGPUDevice is a Device backed by gogpu/wgpu.
type WGPUDevice struct {
	mu     sync.Mutex
	closed bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpuQueue
	caps     Capabilities
	backend  gputypes.Backend
}

var _ Device = (*WGPUDevice)(nil)

// Open creates an instance, requests an adapter and opens a device on it.
func Open(ctx context.Context, cfg DeviceConfig) (*WGPUDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	backends, err := ParseBackends(cfg.Backend)
	if err != nil {
		return nil, err
	}
	power, err := parsePowerPreference(cfg.PowerPreference)
	if err != nil {
		return nil, err
	}

	desc := &wgpu.InstanceDescriptor{Backends: backends}
	if cfg.Debug {
		desc.Flags = gputypes.InstanceFlagsDebug
	}
	instance, err := wgpu.CreateInstance(desc)
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      power,
		ForceFallbackAdapter: cfg.ForceFallback,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: %w", ErrNoGPU, err)
	}

	label := cfg.Label
	if label == "" {
		label = "shaderlab-device"
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: label})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	if device.Queue() == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: device has no queue", ErrNoGPU)
	}

	d := &WGPUDevice{
		instance: instance,
		adapter:  adapter,
		device:   device,
		backend:  adapter.Info().Backend,
	}
	d.queue = &wgpuQueue{dev: d}
	d.caps = capabilities(adapter.Info(), adapter.Features(), cfg.Lanes)

	slogger().Info("gpu: adapter selected",
		"name", d.caps.AdapterName,
		"backend", d.caps.Backend,
		"type", d.caps.DeviceType,
		"lanes_min", d.caps.WaveLaneCountMin,
		"lanes_max", d.caps.WaveLaneCountMax)
	return d, nil
}

func capabilities(info gputypes.AdapterInfo, features gputypes.Features, lanes LaneCounts) Capabilities {
	lc := LookupLanes(info, lanes)
	caps := Capabilities{
		AdapterName:      info.Name,
		Vendor:           info.Vendor,
		VendorID:         info.VendorID,
		DeviceID:         info.DeviceID,
		DeviceType:       info.DeviceType.String(),
		Backend:          info.Backend.String(),
		Driver:           strings.TrimSpace(info.Driver + " " + info.DriverInfo),
		WaveLaneCountMin: lc.Min,
		WaveLaneCountMax: lc.Max,
		TotalLaneCount:   lc.Total,
	}
	for i := 0; i < 64; i++ {
		f := gputypes.Feature(1) << i
		if features.Contains(f) && f.String() != "Unknown" {
			caps.Features = append(caps.Features, f.String())
		}
	}
	return caps
}

// Capabilities returns the adapter description captured at Open.
func (d *WGPUDevice) Capabilities() Capabilities { return d.caps }

// Queue returns the device queue.
func (d *WGPUDevice) Queue() Queue { return d.queue }

// Close waits for the GPU and releases the device, adapter and instance.
func (d *WGPUDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if werr := d.device.WaitIdle(); werr != nil {
		slogger().Warn("gpu: wait idle on close", "err", werr)
		err = fmt.Errorf("gpu: wait idle: %w", werr)
	}
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	slogger().Debug("gpu: device closed")
	return err
}

func (d *WGPUDevice) live() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// CreateRenderTarget creates a 2D texture usable as a color attachment and
// as a copy source.
func (d *WGPUDevice) CreateRenderTarget(desc TargetDescriptor) (Texture, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: target %dx%d", ErrInvalidSize, desc.Width, desc.Height)
	}
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA32Float
	}
	if BytesPerPixel(format) == 0 {
		return nil, fmt.Errorf("gpu: unsupported target format %s", format)
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create render target: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("gpu: create render target view: %w", err)
	}
	slogger().Debug("gpu: render target created",
		"label", desc.Label, "width", desc.Width, "height", desc.Height, "format", format.String())
	return &wgpuTexture{
		dev:    d,
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: format,
		state:  desc.InitialState,
	}, nil
}

// CopyableFootprint reports the buffer layout of t.
func (d *WGPUDevice) CopyableFootprint(t Texture) Footprint {
	return ComputeFootprint(t.Width(), t.Height(), t.Format())
}

// CreateReadbackBuffer creates a mappable copy destination of size bytes.
func (d *WGPUDevice) CreateReadbackBuffer(label string, size uint64) (Buffer, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: readback buffer of 0 bytes", ErrInvalidSize)
	}
	// Copy destinations are sized in whole words.
	alloc := alignUp(size, 4)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  alloc,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create readback buffer: %w", err)
	}
	slogger().Debug("gpu: readback buffer created", "label", label, "size", size)
	return &wgpuBuffer{dev: d, track: d, buf: buf, size: size, alloc: alloc}, nil
}

// CreatePipeline builds a render pipeline from a vertex and a pixel blob.
// SPIR-V blobs are loaded as bytecode on backends that take SPIR-V; other
// blobs are built from the WGSL they were compiled from.
func (d *WGPUDevice) CreatePipeline(desc PipelineDescriptor) (Pipeline, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	if desc.Vertex == nil || desc.Pixel == nil {
		return nil, fmt.Errorf("gpu: pipeline %q needs a vertex and a pixel blob", desc.Label)
	}
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA32Float
	}

	p := &wgpuPipeline{label: desc.Label}
	vs, err := d.shaderModule(desc.Label+"-vs", desc.Vertex)
	if err != nil {
		return nil, fmt.Errorf("gpu: pipeline %q: vertex module: %w", desc.Label, err)
	}
	p.modules = append(p.modules, vs)
	ps, err := d.shaderModule(desc.Label+"-ps", desc.Pixel)
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("gpu: pipeline %q: pixel module: %w", desc.Label, err)
	}
	p.modules = append(p.modules, ps)

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: desc.Label + "-layout",
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("gpu: pipeline %q: layout: %w", desc.Label, err)
	}

	p.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     ps,
			EntryPoint: desc.Pixel.EntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("gpu: pipeline %q: %w", desc.Label, err)
	}
	slogger().Debug("gpu: pipeline created",
		"label", desc.Label, "vs", desc.Vertex.EntryPoint, "ps", desc.Pixel.EntryPoint)
	return p, nil
}

// SPIRVNative reports whether the backend loads SPIR-V bytecode directly.
// Vulkan and the software rasterizer do; Metal, DX12 and GLES translate
// WGSL themselves.
func (d *WGPUDevice) SPIRVNative() bool {
	return d.backend == gputypes.BackendVulkan || d.backend == gputypes.BackendEmpty
}

func (d *WGPUDevice) shaderModule(label string, b *shader.Blob) (*wgpu.ShaderModule, error) {
	desc := &wgpu.ShaderModuleDescriptor{Label: label}
	if b.Target == shader.TargetSPIRV && d.SPIRVNative() {
		words, err := SPIRVWords(b.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", b.Profile, b.EntryPoint, err)
		}
		desc.SPIRV = words
	} else {
		if b.Source == "" {
			return nil, fmt.Errorf("%w: %s %s has no WGSL source", ErrBadBytecode, b.Profile, b.EntryPoint)
		}
		desc.WGSL = b.Source
	}
	slogger().Debug("gpu: shader module",
		"label", label, "entry", b.EntryPoint, "spirv_words", len(desc.SPIRV))
	return d.device.CreateShaderModule(desc)
}

// CreateCommandList opens a command list for recording.
func (d *WGPUDevice) CreateCommandList(label string) (CommandList, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	l := &wgpuCommandList{dev: d, label: label}
	if err := l.begin(); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateFence creates a fence whose completed value starts at initial.
func (d *WGPUDevice) CreateFence(initial uint64) (Fence, error) {
	if err := d.live(); err != nil {
		return nil, err
	}
	return &wgpuFence{dev: d, track: d, completed: initial, signaled: initial}, nil
}

type wgpuTexture struct {
	dev    *WGPUDevice
	tex    *wgpu.Texture
	view   *wgpu.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
	state  ResourceState
}

func (t *wgpuTexture) Width() uint32                  { return t.width }
func (t *wgpuTexture) Height() uint32                 { return t.height }
func (t *wgpuTexture) Format() gputypes.TextureFormat { return t.format }
func (t *wgpuTexture) State() ResourceState           { return t.state }

func (t *wgpuTexture) Release() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

type wgpuPipeline struct {
	label    string
	modules  []*wgpu.ShaderModule
	layout   *wgpu.PipelineLayout
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuPipeline) Label() string { return p.label }

func (p *wgpuPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for _, m := range p.modules {
		m.Release()
	}
	p.modules = nil
}
