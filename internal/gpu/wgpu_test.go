//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/shaderlab/shader"
)

const fillWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    if (idx == 0u) { return vec4<f32>(-1.0, -1.0, 0.0, 1.0); }
    if (idx == 1u) { return vec4<f32>(3.0, -1.0, 0.0, 1.0); }
    return vec4<f32>(-1.0, 3.0, 0.0, 1.0);
}

@fragment
fn ps_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

// openTestDevice opens a device on whatever backend is registered (the
// noop backend in tests) and skips when none is usable.
func openTestDevice(t *testing.T) *WGPUDevice {
	t.Helper()
	d, err := Open(context.Background(), DeviceConfig{Label: "test"})
	if err != nil {
		t.Skipf("skipping: no wgpu device: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestParseBackends(t *testing.T) {
	for _, name := range []string{"", "auto", "vulkan", "dx12", "metal", "gl"} {
		if _, err := ParseBackends(name); err != nil {
			t.Errorf("ParseBackends(%q): %v", name, err)
		}
	}
	if _, err := ParseBackends("glide"); err == nil {
		t.Error("ParseBackends(glide) should fail")
	}
}

func TestOpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Open(ctx, DeviceConfig{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Open(cancelled) = %v, want context.Canceled", err)
	}
}

func TestCapabilitiesFromAdapter(t *testing.T) {
	var features gputypes.Features
	features.Insert(gputypes.FeatureShaderF16)
	features.Insert(gputypes.FeatureSubgroupOperations)
	caps := capabilities(gputypes.AdapterInfo{
		Name:       "Test GPU",
		VendorID:   VendorAMD,
		DeviceType: gputypes.DeviceTypeDiscreteGPU,
		Backend:    gputypes.BackendVulkan,
		Driver:     "1.2",
	}, features, LaneCounts{})

	if caps.WaveLaneCountMin != 32 || caps.WaveLaneCountMax != 64 || caps.TotalLaneCount != 64 {
		t.Errorf("lanes = %d/%d/%d", caps.WaveLaneCountMin, caps.WaveLaneCountMax, caps.TotalLaneCount)
	}
	if caps.DeviceType != "DiscreteGPU" {
		t.Errorf("DeviceType = %q", caps.DeviceType)
	}
	if len(caps.Features) != 2 || caps.Features[0] != "ShaderF16" || caps.Features[1] != "SubgroupOperations" {
		t.Errorf("Features = %v", caps.Features)
	}
	if caps.Driver != "1.2" {
		t.Errorf("Driver = %q", caps.Driver)
	}
}

func TestWGPUResources(t *testing.T) {
	d := openTestDevice(t)

	if _, err := d.CreateRenderTarget(TargetDescriptor{Width: 0, Height: 4}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width target: %v", err)
	}
	if _, err := d.CreateReadbackBuffer("empty", 0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero buffer: %v", err)
	}

	rt, err := d.CreateRenderTarget(TargetDescriptor{Label: "rt", Width: 8, Height: 4, InitialState: StateRenderTarget})
	if err != nil {
		t.Skipf("skipping: backend cannot create targets: %v", err)
	}
	defer rt.Release()
	if rt.Format() != gputypes.TextureFormatRGBA32Float {
		t.Errorf("default format = %v", rt.Format())
	}
	fp := d.CopyableFootprint(rt)
	if fp.RowPitch != 256 || fp.TotalBytes != 256*3+128 {
		t.Errorf("footprint = %v", fp)
	}
}

func TestWGPUFrame(t *testing.T) {
	d := openTestDevice(t)
	ctx := context.Background()

	src := shader.Source{Name: "fill.wgsl", Text: fillWGSL}
	vs, err := shader.Compile(src, "vs_main", shader.StageVertex)
	if err != nil {
		t.Fatalf("compile vs: %v", err)
	}
	ps, err := shader.Compile(src, "ps_main", shader.StagePixel)
	if err != nil {
		t.Fatalf("compile ps: %v", err)
	}

	rt, err := d.CreateRenderTarget(TargetDescriptor{Label: "rt", Width: 8, Height: 4, InitialState: StateRenderTarget})
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	defer rt.Release()
	fp := d.CopyableFootprint(rt)
	buf, err := d.CreateReadbackBuffer("readback", fp.TotalBytes)
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	defer buf.Release()
	pipe, err := d.CreatePipeline(PipelineDescriptor{Label: "fill", Vertex: vs, Pixel: ps})
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	defer pipe.Release()
	fence, err := d.CreateFence(0)
	if err != nil {
		t.Fatalf("CreateFence: %v", err)
	}

	list, err := d.CreateCommandList("frame")
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	list.SetViewport(FullViewport(8, 4))
	list.SetScissor(Rect{Width: 8, Height: 4})
	list.SetRenderTarget(rt)
	list.SetPipeline(pipe)
	list.Draw(3, 1, 0, 0)
	list.Barrier(rt, StateRenderTarget, StateCopySource)
	list.CopyTextureToBuffer(rt, buf, fp)
	list.Barrier(rt, StateCopySource, StateRenderTarget)
	if err := list.Close(); err != nil {
		t.Skipf("skipping: backend rejected recording: %v", err)
	}

	if err := d.Queue().Submit(list); err != nil {
		t.Skipf("skipping: backend rejected submit: %v", err)
	}
	if err := d.Queue().Signal(fence, 1); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := d.Queue().Signal(fence, 1); !errors.Is(err, ErrFenceValue) {
		t.Errorf("repeated Signal = %v, want ErrFenceValue", err)
	}
	if err := fence.Wait(ctx, 1); err != nil {
		t.Skipf("skipping: backend did not complete the submission: %v", err)
	}
	if got := fence.Completed(); got != 1 {
		t.Errorf("Completed = %d, want 1", got)
	}
	if err := fence.Wait(ctx, 2); !errors.Is(err, ErrNeverSignaled) {
		t.Errorf("Wait(2) = %v, want ErrNeverSignaled", err)
	}

	data, err := buf.Map(ctx)
	if err != nil {
		t.Skipf("skipping: backend cannot map buffers: %v", err)
	}
	if uint64(len(data)) != fp.TotalBytes {
		t.Errorf("mapped %d bytes, want %d", len(data), fp.TotalBytes)
	}
	if _, err := buf.Map(ctx); !errors.Is(err, ErrBufferBusy) {
		t.Errorf("second Map = %v, want ErrBufferBusy", err)
	}
	if err := buf.Unmap(); err != nil {
		t.Errorf("Unmap: %v", err)
	}
	if rt.State() != StateRenderTarget {
		t.Errorf("state after frame = %v", rt.State())
	}
}

func TestWGPUBarrierMismatch(t *testing.T) {
	d := openTestDevice(t)
	rt, err := d.CreateRenderTarget(TargetDescriptor{Width: 4, Height: 4, InitialState: StateRenderTarget})
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	defer rt.Release()
	list, err := d.CreateCommandList("bad")
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	list.Barrier(rt, StateCopySource, StateRenderTarget)
	if err := list.Close(); !errors.Is(err, ErrStateMismatch) {
		t.Errorf("Close = %v, want ErrStateMismatch", err)
	}
	if err := d.Queue().Submit(list); err == nil {
		t.Error("submitting a failed list should fail")
	}

	if err := list.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	list.Draw(3, 1, 0, 0)
	if err := list.Close(); !errors.Is(err, ErrNoRenderTarget) {
		t.Errorf("Close = %v, want ErrNoRenderTarget", err)
	}
}

func TestWGPUPipelineCorruptBytecode(t *testing.T) {
	d := openTestDevice(t)
	if !d.SPIRVNative() {
		t.Skipf("skipping: %s builds modules from WGSL", d.Capabilities().Backend)
	}
	src := shader.Source{Name: "fill.wgsl", Text: fillWGSL}
	vs, err := shader.Compile(src, "vs_main", shader.StageVertex)
	if err != nil {
		t.Fatalf("compile vs: %v", err)
	}
	ps, err := shader.Compile(src, "ps_main", shader.StagePixel)
	if err != nil {
		t.Fatalf("compile ps: %v", err)
	}

	bad := *ps
	bad.Bytes = append([]byte(nil), ps.Bytes...)
	bad.Bytes[0] ^= 0xFF
	if _, err := d.CreatePipeline(PipelineDescriptor{Label: "bad", Vertex: vs, Pixel: &bad}); !errors.Is(err, ErrBadBytecode) {
		t.Errorf("CreatePipeline(corrupt magic) = %v, want ErrBadBytecode", err)
	}

	bad.Bytes = nil
	if _, err := d.CreatePipeline(PipelineDescriptor{Label: "empty", Vertex: vs, Pixel: &bad}); !errors.Is(err, ErrBadBytecode) {
		t.Errorf("CreatePipeline(no bytes) = %v, want ErrBadBytecode", err)
	}
}
