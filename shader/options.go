package shader

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Options holds compile settings. Use the With functions or ParseArgs.
type Options struct {
	Target      Target
	ShaderModel ShaderModel
	Defines     Defines
	Validate    bool
	Debug       bool
}

// Option configures a compilation.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Target:      TargetSPIRV,
		ShaderModel: DefaultShaderModel,
		Validate:    true,
	}
}

// WithTarget selects the output bytecode.
func WithTarget(t Target) Option {
	return func(o *Options) {
		o.Target = t
	}
}

// WithShaderModel sets the shader model used for profiles, DXIL and HLSL.
func WithShaderModel(m ShaderModel) Option {
	return func(o *Options) {
		o.ShaderModel = m
	}
}

// WithDefines appends definitions. Later values for a name win.
func WithDefines(defs Defines) Option {
	return func(o *Options) {
		for _, d := range defs {
			o.Defines = o.Defines.With(d.Name, d.Value)
		}
	}
}

// WithDefine sets a single definition.
func WithDefine(name, value string) Option {
	return func(o *Options) {
		o.Defines = o.Defines.With(name, value)
	}
}

// WithValidation turns IR validation on or off. It is on by default.
func WithValidation(on bool) Option {
	return func(o *Options) {
		o.Validate = on
	}
}

// WithDebugInfo emits debug names and line info where the target supports it.
func WithDebugInfo(on bool) Option {
	return func(o *Options) {
		o.Debug = on
	}
}

// ParseArgs converts a DXC-style argument string into options.
//
// Recognized arguments:
//
//	-T <profile>       profile such as ps_6_7; selects DXIL and the model
//	-D NAME[=VALUE]    define (also -DNAME=VALUE)
//	-Zi                debug info
//	-Vd, --no-validate skip IR validation
//	--target <name>    spirv, dxil, hlsl, msl or glsl
//	-O0 .. -O3, -Od    accepted and ignored; naga has one code path
//	-HV <version>      accepted; WGSL has no language revisions
func ParseArgs(s string) ([]Option, error) {
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadArgs, err)
	}
	var opts []Option
	next := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%w: %s needs a value", ErrBadArgs, flag)
		}
		*i++
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-T":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			m, err := ParseShaderModel(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadArgs, err)
			}
			opts = append(opts, WithTarget(TargetDXIL), WithShaderModel(m))
		case arg == "-D":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			opts = append(opts, defineArg(v))
		case strings.HasPrefix(arg, "-D"):
			opts = append(opts, defineArg(arg[2:]))
		case arg == "-Zi":
			opts = append(opts, WithDebugInfo(true))
		case arg == "-Vd" || arg == "--no-validate":
			opts = append(opts, WithValidation(false))
		case arg == "--target":
			v, err := next(&i, arg)
			if err != nil {
				return nil, err
			}
			t, err := ParseTarget(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadArgs, err)
			}
			opts = append(opts, WithTarget(t))
		case arg == "-O0" || arg == "-O1" || arg == "-O2" || arg == "-O3" || arg == "-Od":
		case arg == "-HV":
			if _, err := next(&i, arg); err != nil {
				return nil, err
			}
		case strings.HasPrefix(arg, "-HV"):
		default:
			return nil, fmt.Errorf("%w: unknown argument %q", ErrBadArgs, arg)
		}
	}
	return opts, nil
}

func defineArg(v string) Option {
	name, value, ok := strings.Cut(v, "=")
	if !ok {
		value = "1"
	}
	return WithDefine(name, value)
}
