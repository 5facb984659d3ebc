package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/dxil"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/naga/wgsl"
)

// Blob is the compiled form of one entry point.
type Blob struct {
	// EntryPoint is the WGSL function name.
	EntryPoint string
	Stage      Stage
	Target     Target
	// Profile is the D3D-style profile label, e.g. "ps_6_7".
	Profile string
	// Bytes is the target output: bytecode or source text.
	Bytes []byte
	// Source is the preprocessed WGSL, the exact text a device compiles
	// when it builds a pipeline from this blob.
	Source string
	// Warnings are compiler warnings in "name:line:col: warning: msg" form.
	Warnings []string
	// Skipped lists defines the shader declares itself.
	Skipped []string

	module *ir.Module
	entry  int
	model  ShaderModel
}

// Compile compiles one entry point of src for the given stage.
//
// On failure the error is a *CompileError whose Log holds the diagnostics;
// no blob is returned.
func Compile(src Source, entry string, stage Stage, opts ...Option) (*Blob, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	profile := Profile(stage, o.Target, o.ShaderModel)
	fail := func(format string, args ...any) error {
		return &CompileError{
			Source:     src.Name,
			EntryPoint: entry,
			Profile:    profile,
			Log:        strings.TrimRight(fmt.Sprintf(format, args...), "\n") + "\n",
		}
	}

	text, skipped, err := preprocess(src.Text, o.Defines)
	if err != nil {
		return nil, err
	}

	ast, err := naga.Parse(text)
	if err != nil {
		return nil, fail("%s: %v", src.Name, err)
	}
	lowered, err := wgsl.LowerWithWarnings(ast, text)
	if err != nil {
		return nil, fail("%s: %v", src.Name, err)
	}
	module := lowered.Module

	if o.Validate {
		verrs, err := naga.Validate(module)
		if err != nil {
			return nil, fail("%s: validation: %v", src.Name, err)
		}
		if len(verrs) > 0 {
			var b strings.Builder
			for i := range verrs {
				fmt.Fprintf(&b, "%s: validation: %s\n", src.Name, verrs[i].Error())
			}
			return nil, fail("%s", b.String())
		}
	}

	idx := -1
	for i := range module.EntryPoints {
		if module.EntryPoints[i].Name == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fail("%s: entry point %q not found", src.Name, entry)
	}
	if got := module.EntryPoints[idx].Stage; got != stage.irStage() {
		return nil, fail("%s: entry point %q is not a %s entry point", src.Name, entry, stageWord(stage))
	}

	out, err := emit(module, idx, o)
	if err != nil {
		return nil, fail("%s: %s: %v", src.Name, o.Target, err)
	}

	blob := &Blob{
		EntryPoint: entry,
		Stage:      stage,
		Target:     o.Target,
		Profile:    profile,
		Bytes:      out,
		Source:     text,
		Skipped:    skipped,
		module:     module,
		entry:      idx,
		model:      o.ShaderModel,
	}
	for _, w := range lowered.Warnings {
		blob.Warnings = append(blob.Warnings,
			fmt.Sprintf("%s:%d:%d: warning: %s", src.Name, w.Span.Start.Line, w.Span.Start.Column, w.Message))
	}
	return blob, nil
}

func stageWord(s Stage) string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

// single returns a shallow copy of m whose only entry point is idx.
// The DXIL writer compiles the first entry point of a module.
func single(m *ir.Module, idx int) *ir.Module {
	c := *m
	c.EntryPoints = []ir.EntryPoint{m.EntryPoints[idx]}
	return &c
}

func emit(m *ir.Module, idx int, o Options) ([]byte, error) {
	ep := m.EntryPoints[idx]
	switch o.Target {
	case TargetSPIRV:
		return naga.GenerateSPIRV(single(m, idx), spirv.Options{
			Version: spirv.Version1_3,
			Debug:   o.Debug,
		})
	case TargetDXIL:
		sm, err := o.ShaderModel.dxil()
		if err != nil {
			return nil, err
		}
		opts := dxil.DefaultOptions()
		opts.ShaderModel = sm
		return dxil.Compile(single(m, idx), opts)
	case TargetHLSL:
		src, _, err := translate(m, ep, ListingHLSL, o.ShaderModel)
		return []byte(src), err
	case TargetMSL:
		src, _, err := translate(m, ep, ListingMSL, o.ShaderModel)
		return []byte(src), err
	case TargetGLSL:
		src, _, err := translate(m, ep, ListingGLSL, o.ShaderModel)
		return []byte(src), err
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, o.Target)
	}
}

// translate renders a textual back end for one entry point. The second
// result carries the HLSL translation info when the listing is HLSL.
func translate(m *ir.Module, ep ir.EntryPoint, l Listing, model ShaderModel) (string, *hlsl.TranslationInfo, error) {
	switch l {
	case ListingHLSL:
		opts := hlsl.DefaultOptions()
		opts.ShaderModel = model.hlsl()
		opts.EntryPoint = ep.Name
		opts.FakeMissingBindings = true
		return hlsl.Compile(m, opts)
	case ListingMSL:
		src, _, err := msl.CompileWithPipeline(m, msl.DefaultOptions(), msl.PipelineOptions{
			EntryPoint: &msl.EntryPointSelector{Stage: ep.Stage, Name: ep.Name},
		})
		return src, nil, err
	case ListingGLSL:
		opts := glsl.DefaultOptions()
		opts.EntryPoint = ep.Name
		src, _, err := glsl.Compile(m, opts)
		return src, nil, err
	default:
		return "", nil, fmt.Errorf("shader: no translator for %s", l)
	}
}
