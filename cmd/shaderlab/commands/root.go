// Package commands implements the shaderlab command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/internal/config"
	"github.com/gogpu/shaderlab/internal/gpu"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitCompile is returned for compile failures under --strict.
	ExitCompile = 2
)

// DeviceOpener opens the device commands render on.
type DeviceOpener func(ctx context.Context, cfg gpu.DeviceConfig) (gpu.Device, error)

// OpenWGPU opens a wgpu device.
func OpenWGPU(ctx context.Context, cfg gpu.DeviceConfig) (gpu.Device, error) {
	dev, err := gpu.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// env is the state shared by all commands of one invocation.
type env struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
	verbose bool
	noColor bool

	stdout io.Writer
	stderr io.Writer
	open   DeviceOpener
}

// Option configures the root command.
type Option func(*env)

// WithOutput redirects the console and the log.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *env) { e.stdout, e.stderr = stdout, stderr }
}

// WithDeviceOpener replaces the device the commands render on.
func WithDeviceOpener(open DeviceOpener) Option {
	return func(e *env) { e.open = open }
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	e := newEnv(opts...)
	root := e.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(e.stderr, "shaderlab: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, shaderlab.ErrCompile):
		return ExitCompile
	default:
		return ExitFailure
	}
}

// NewRootCommand builds the command tree. Running it without a subcommand
// is the same as "run".
func NewRootCommand(opts ...Option) *cobra.Command {
	return newEnv(opts...).rootCommand()
}

func newEnv(opts ...Option) *env {
	e := &env{
		v:      viper.New(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		open:   OpenWGPU,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *env) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "shaderlab",
		Short: "Pixel shader playground",
		Long: `shaderlab compiles a WGSL shader with target size and wave lane count
defines, draws one full-screen triangle per pixel entry point into a small
RGBA32F target, reads the target back and prints every pixel.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: e.setup,
		RunE:              e.runRun,
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&e.cfgFile, "config", "", "config file (default ./shaderlab.yaml or ~/.config/shaderlab/config.yaml)")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "debug logging on stderr")
	pf.BoolVar(&e.noColor, "no-color", false, "disable colored output")

	pf.StringP("shader", "s", shaderlab.DefaultShaderPath, "shader source file")
	pf.String("vs", shaderlab.DefaultVertexEntry, "vertex entry point")
	pf.StringSlice("ps", []string{shaderlab.DefaultPixelEntry}, "pixel entry points, one pipeline each")
	pf.String("target", "spirv", "compile target: spirv, dxil, hlsl, msl or glsl")
	pf.String("model", "6_7", "shader model")
	pf.String("args", shaderlab.DefaultCompilerArgs, "compiler arguments")
	pf.Uint32("width", shaderlab.DefaultWidth, "render target width")
	pf.Uint32("height", shaderlab.DefaultHeight, "render target height")
	pf.String("backend", "auto", "graphics backend")
	pf.Bool("disasm", false, "print a listing of every pixel shader")
	pf.String("listing", "auto", "listing language: auto, hlsl, msl, glsl, wgsl or hex")
	pf.Bool("strict", false, "exit with status 2 when compilation fails")
	pf.Bool("swatches", false, "print a color swatch next to every pixel")
	pf.String("format", "", "export the result as yaml or toml instead of the console listing")
	pf.String("preview", "", "write a magnified PNG of the target")

	for key, flag := range map[string]string{
		"shader.path":          "shader",
		"shader.vertex_entry":  "vs",
		"shader.pixel_entries": "ps",
		"shader.target":        "target",
		"shader.shader_model":  "model",
		"shader.args":          "args",
		"shader.disassemble":   "disasm",
		"shader.listing":       "listing",
		"target.width":         "width",
		"target.height":        "height",
		"device.backend":       "backend",
		"output.strict":        "strict",
		"output.swatches":      "swatches",
		"output.format":        "format",
		"output.preview":       "preview",
	} {
		// Lookup cannot fail for flags defined above.
		_ = e.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		e.runCommand(),
		e.windowCommand(),
		e.watchCommand(),
		e.compileCommand(),
		e.deviceCommand(),
	)
	return root
}

// setup loads the configuration and installs the logger.
func (e *env) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWith(e.v, e.cfgFile)
	if err != nil {
		return err
	}
	if e.noColor {
		cfg.Output.Color = "never"
	}
	e.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if e.verbose {
		level = slog.LevelDebug
	}
	shaderlab.SetLogger(slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level})))
	shaderlab.Logger().Debug("shaderlab: configuration loaded",
		"command", cmd.Name(), "shader", cfg.Shader.Path, "target", cfg.Shader.Target)
	return nil
}

// playgroundOptions returns the configured playground options writing to
// the command's output.
func (e *env) playgroundOptions() []shaderlab.Option {
	return append(e.cfg.PlaygroundOptions(), shaderlab.WithOutput(e.stdout), shaderlab.WithDiagnostics(e.stderr))
}

// device opens the configured device.
func (e *env) device(ctx context.Context) (gpu.Device, func(), error) {
	dev, err := e.open(ctx, e.cfg.GPU())
	if err != nil {
		return nil, nil, fmt.Errorf("open device: %w", err)
	}
	return dev, func() {
		if err := dev.Close(); err != nil {
			shaderlab.Logger().Warn("shaderlab: close device", "err", err)
		}
	}, nil
}
