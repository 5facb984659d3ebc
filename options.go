package shaderlab

import (
	"io"

	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

// Option configures a Playground.
//
// Example:
//
//	pg, err := shaderlab.New(
//	    shaderlab.WithSize(16, 8),
//	    shaderlab.WithEntryPoints("vs_main", "ps_main", "ps_main2"),
//	    shaderlab.WithDisassembly(shader.ListingHLSL),
//	)
type Option func(*options)

type options struct {
	width, height uint32
	shaderPath    string
	vertexEntry   string
	pixelEntries  []string
	target        shader.Target
	model         shader.ShaderModel
	args          string
	disassemble   bool
	listing       shader.Listing
	device        gpu.Device
	deviceConfig  gpu.DeviceConfig
	out           io.Writer
	diagnostics   io.Writer
	color         *bool
	swatches      bool
	regionW       uint32
	regionH       uint32
	strict        bool
	preview       string
	previewScale  int
	format        string
	cache         *CompileCache
}

// Defaults of a Playground.
const (
	DefaultWidth       = 8
	DefaultHeight      = 4
	DefaultShaderPath  = "Shader.wgsl"
	DefaultVertexEntry = "vs_main"
	DefaultPixelEntry  = "ps_main"
	// DefaultAltPixelEntry is the second variant of the window loop.
	DefaultAltPixelEntry = "ps_main2"
	DefaultCompilerArgs  = "-O3 -HV 2021"
)

func defaultOptions() options {
	return options{
		width:        DefaultWidth,
		height:       DefaultHeight,
		shaderPath:   DefaultShaderPath,
		vertexEntry:  DefaultVertexEntry,
		pixelEntries: []string{DefaultPixelEntry},
		target:       shader.TargetSPIRV,
		model:        shader.DefaultShaderModel,
		args:         DefaultCompilerArgs,
		previewScale: 16,
	}
}

// WithSize sets the render target size in pixels.
func WithSize(w, h uint32) Option {
	return func(o *options) { o.width, o.height = w, h }
}

// WithShaderPath sets the WGSL file to compile.
func WithShaderPath(path string) Option {
	return func(o *options) { o.shaderPath = path }
}

// WithEntryPoints sets the vertex entry point and the pixel entry points,
// one pipeline per pixel entry.
func WithEntryPoints(vertex string, pixels ...string) Option {
	return func(o *options) {
		o.vertexEntry = vertex
		o.pixelEntries = append([]string(nil), pixels...)
	}
}

// WithTarget selects the bytecode the shaders are compiled to.
func WithTarget(t shader.Target) Option {
	return func(o *options) { o.target = t }
}

// WithShaderModel sets the shader model used for DXIL and HLSL targets and
// profile labels.
func WithShaderModel(m shader.ShaderModel) Option {
	return func(o *options) { o.model = m }
}

// WithCompilerArgs sets a DXC-style argument string, e.g. "-O3 -D FOO=1".
// Arguments are applied after WithTarget and WithShaderModel.
func WithCompilerArgs(args string) Option {
	return func(o *options) { o.args = args }
}

// WithDisassembly prints a listing of every compiled pixel shader.
func WithDisassembly(l shader.Listing) Option {
	return func(o *options) { o.disassemble, o.listing = true, l }
}

// WithDevice runs on dev instead of opening a device. The caller keeps
// ownership of dev.
func WithDevice(dev gpu.Device) Option {
	return func(o *options) { o.device = dev }
}

// WithDeviceConfig configures the device Run opens.
func WithDeviceConfig(cfg gpu.DeviceConfig) Option {
	return func(o *options) { o.deviceConfig = cfg }
}

// WithOutput sets where console output goes. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithDiagnostics sets where compile failures and warnings go while
// WithFormat owns the output. They are dropped when it is not set.
func WithDiagnostics(w io.Writer) Option {
	return func(o *options) { o.diagnostics = w }
}

// WithColor forces colored output on or off.
func WithColor(on bool) Option {
	return func(o *options) { o.color = &on }
}

// WithSwatches prints a color block next to every pixel line.
func WithSwatches(on bool) Option {
	return func(o *options) { o.swatches = on }
}

// WithRegion limits the printed pixels to the top-left w by h block.
func WithRegion(w, h uint32) Option {
	return func(o *options) { o.regionW, o.regionH = w, h }
}

// WithStrict makes Run return compile failures as errors.
func WithStrict(on bool) Option {
	return func(o *options) { o.strict = on }
}

// WithPreview writes a magnified PNG of the read back target to path.
func WithPreview(path string, scale int) Option {
	return func(o *options) {
		o.preview = path
		if scale > 0 {
			o.previewScale = scale
		}
	}
}

// WithFormat replaces the console output with a "yaml" or "toml" document.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithCompileCache reuses blobs from c when the source, entry point and
// compile options match a previous compile.
func WithCompileCache(c *CompileCache) Option {
	return func(o *options) { o.cache = c }
}
