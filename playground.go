package shaderlab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gogpu/shaderlab/internal/frame"
	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/internal/report"
	"github.com/gogpu/shaderlab/shader"
)

// Playground compiles a shader file, renders one full-screen triangle per
// pixel entry point into a small RGBA32F target and prints the pixels.
type Playground struct {
	opts    options
	args    []shader.Option
	out     io.Writer
	printer *report.Printer
	// status receives compile failures and warnings. It is printer unless
	// an export format owns the output.
	status *report.Printer
}

// New returns a Playground configured by opts.
func New(opts ...Option) (*Playground, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.width == 0 || o.height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, o.width, o.height)
	}
	if len(o.pixelEntries) == 0 {
		return nil, ErrNoPixelEntry
	}
	args, err := shader.ParseArgs(o.args)
	if err != nil {
		return nil, fmt.Errorf("shaderlab: compiler arguments: %w", err)
	}

	out := o.out
	if out == nil {
		out = io.Discard
	}
	console := out
	if o.format != "" {
		console = io.Discard
	}
	var popts []report.Option
	if o.color != nil {
		popts = append(popts, report.WithColor(*o.color))
	}
	popts = append(popts, report.WithSwatches(o.swatches), report.WithRegion(o.regionW, o.regionH))

	pg := &Playground{
		opts:    o,
		args:    args,
		out:     out,
		printer: report.NewPrinter(console, popts...),
	}
	pg.status = pg.printer
	if o.format != "" && o.diagnostics != nil {
		pg.status = report.NewPrinter(o.diagnostics, popts...)
	}
	return pg, nil
}

// Size returns the render target size.
func (p *Playground) Size() (w, h uint32) { return p.opts.width, p.opts.height }

// Printer returns the console printer.
func (p *Playground) Printer() *report.Printer { return p.printer }

// Program is a compiled shader set.
type Program struct {
	Defines  shader.Defines
	Vertex   *shader.Blob
	Pixels   []*shader.Blob
	Requires shader.Requires
}

// Blobs returns the vertex blob followed by the pixel blobs.
func (pr *Program) Blobs() []*shader.Blob {
	return append([]*shader.Blob{pr.Vertex}, pr.Pixels...)
}

// Result is what Run produced. Fields are filled as far as Run got.
type Result struct {
	Defines      shader.Defines
	Capabilities Capabilities
	Blobs        []*shader.Blob
	Requires     shader.Requires
	Image        *frame.Image
	// CompileError is set when compilation failed.
	CompileError *shader.CompileError
}

// Build compiles the vertex entry point and every pixel entry point with
// the defines derived from caps, printing defines, compile status,
// required features and listings along the way.
//
// A compile failure is returned as an error wrapping both ErrCompile and
// the *shader.CompileError.
func (p *Playground) Build(caps Capabilities) (*Program, error) {
	o := p.opts
	src, err := shader.LoadSource(o.shaderPath)
	if err != nil {
		return nil, fmt.Errorf("shaderlab: %w", err)
	}

	defs := Defines(caps, o.width, o.height)
	p.printer.Defines(defs)

	copts := append([]shader.Option{
		shader.WithTarget(o.target),
		shader.WithShaderModel(o.model),
		shader.WithDefines(defs),
	}, p.args...)

	prog := &Program{Defines: defs}
	prog.Vertex, err = p.compile(src, o.vertexEntry, shader.StageVertex, defs, copts)
	if err != nil {
		var ce *shader.CompileError
		if errors.As(err, &ce) {
			p.status.VertexFailed(ce.Log)
			return nil, fmt.Errorf("%w: %w", ErrCompile, err)
		}
		return nil, err
	}
	Logger().Info("shaderlab: compiled", "entry", prog.Vertex.EntryPoint,
		"profile", prog.Vertex.Profile, "bytes", len(prog.Vertex.Bytes))

	for _, entry := range o.pixelEntries {
		ps, err := p.compile(src, entry, shader.StagePixel, defs, copts)
		if err != nil {
			var ce *shader.CompileError
			if errors.As(err, &ce) {
				p.status.PixelStatus(false, ce.Log)
				return nil, fmt.Errorf("%w: %w", ErrCompile, err)
			}
			return nil, err
		}
		if len(ps.Warnings) > 0 {
			p.status.PixelStatus(true, strings.Join(ps.Warnings, "\n")+"\n")
		}
		Logger().Info("shaderlab: compiled", "entry", ps.EntryPoint,
			"profile", ps.Profile, "bytes", len(ps.Bytes))
		prog.Pixels = append(prog.Pixels, ps)
		prog.Requires |= shader.Reflect(ps)
	}
	p.printer.Requires(prog.Requires)

	if o.disassemble {
		for _, ps := range prog.Pixels {
			if err := p.printer.Listing(ps, o.listing); err != nil {
				return nil, fmt.Errorf("shaderlab: %w", err)
			}
		}
	}
	return prog, nil
}

// Run executes the one-shot pipeline: acquire the device, compile, create
// the target, readback buffer and pipelines, draw, wait for the fence and
// print every pixel.
//
// Compile failures are reported on the console; Run then returns the
// partial result and a nil error unless WithStrict is set.
func (p *Playground) Run(ctx context.Context) (*Result, error) {
	dev, release, err := p.device(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &Result{Capabilities: dev.Capabilities()}
	res.Defines = Defines(res.Capabilities, p.opts.width, p.opts.height)

	prog, err := p.Build(res.Capabilities)
	if err != nil {
		var ce *shader.CompileError
		if errors.As(err, &ce) {
			res.CompileError = ce
			if !p.opts.strict {
				if err := p.status.Err(); err != nil {
					return res, err
				}
				return res, p.printer.Err()
			}
		}
		return res, err
	}
	res.Blobs = prog.Blobs()
	res.Requires = prog.Requires

	sess, err := frame.NewSession(dev, frame.SessionConfig{
		Width:  p.opts.width,
		Height: p.opts.height,
		Vertex: prog.Vertex,
		Pixels: prog.Pixels,
	})
	if err != nil {
		return res, fmt.Errorf("shaderlab: %w", err)
	}
	defer sess.Close()

	plan := frame.FramePlan{}
	for i := range prog.Pixels {
		plan.Draws = append(plan.Draws, i)
	}
	img, err := sess.Frame(ctx, plan, true)
	if err != nil {
		return res, fmt.Errorf("shaderlab: %w", err)
	}
	res.Image = img
	p.printer.Pixels(img)

	if p.opts.preview != "" {
		if err := report.WritePNG(p.opts.preview, img, p.opts.previewScale); err != nil {
			return res, err
		}
	}
	if p.opts.format != "" {
		doc := report.NewDocument(res.Capabilities, res.Defines, res.Blobs, res.Requires, img)
		if err := report.Export(p.out, p.opts.format, doc); err != nil {
			return res, err
		}
	}
	return res, p.printer.Err()
}

// OpenDevice returns the configured device, opening one when none was
// injected with WithDevice. The release func closes only a device opened
// here.
func (p *Playground) OpenDevice(ctx context.Context) (gpu.Device, func(), error) {
	return p.device(ctx)
}

func (p *Playground) device(ctx context.Context) (gpu.Device, func(), error) {
	if p.opts.device != nil {
		return p.opts.device, func() {}, nil
	}
	dev, err := gpu.Open(ctx, p.opts.deviceConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("shaderlab: open device: %w", err)
	}
	return dev, func() {
		if err := dev.Close(); err != nil {
			Logger().Warn("shaderlab: close device", "err", err)
		}
	}, nil
}
