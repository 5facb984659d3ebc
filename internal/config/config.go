// Package config loads shaderlab settings from defaults, a yaml file,
// SHADERLAB_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

// Config is the full tool configuration.
type Config struct {
	Shader  ShaderConfig  `mapstructure:"shader"`
	Target  TargetConfig  `mapstructure:"target"`
	Device  DeviceConfig  `mapstructure:"device"`
	Output  OutputConfig  `mapstructure:"output"`
	Window  WindowConfig  `mapstructure:"window"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ShaderConfig struct {
	Path         string   `mapstructure:"path"`
	VertexEntry  string   `mapstructure:"vertex_entry"`
	PixelEntries []string `mapstructure:"pixel_entries"`
	Target       string   `mapstructure:"target"`
	ShaderModel  string   `mapstructure:"shader_model"`
	Args         string   `mapstructure:"args"`
	Disassemble  bool     `mapstructure:"disassemble"`
	Listing      string   `mapstructure:"listing"`
}

type TargetConfig struct {
	Width  uint32 `mapstructure:"width"`
	Height uint32 `mapstructure:"height"`
}

type DeviceConfig struct {
	Backend          string `mapstructure:"backend"`
	PowerPreference  string `mapstructure:"power_preference"`
	ForceFallback    bool   `mapstructure:"force_fallback"`
	Debug            bool   `mapstructure:"debug"`
	WaveLaneCountMin uint32 `mapstructure:"wave_lane_count_min"`
	WaveLaneCountMax uint32 `mapstructure:"wave_lane_count_max"`
	TotalLaneCount   uint32 `mapstructure:"total_lane_count"`
}

type OutputConfig struct {
	// Color is "auto", "always" or "never".
	Color        string `mapstructure:"color"`
	Swatches     bool   `mapstructure:"swatches"`
	RegionWidth  uint32 `mapstructure:"region_width"`
	RegionHeight uint32 `mapstructure:"region_height"`
	Format       string `mapstructure:"format"`
	Preview      string `mapstructure:"preview"`
	PreviewScale int    `mapstructure:"preview_scale"`
	Strict       bool   `mapstructure:"strict"`
}

type WindowConfig struct {
	Title string `mapstructure:"title"`
	// PixelEntries are the variants alternated each frame.
	PixelEntries []string `mapstructure:"pixel_entries"`
	Width        int      `mapstructure:"width"`
	Height       int      `mapstructure:"height"`
	RegionWidth  uint32   `mapstructure:"region_width"`
	RegionHeight uint32   `mapstructure:"region_height"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Shader: ShaderConfig{
			Path:         shaderlab.DefaultShaderPath,
			VertexEntry:  shaderlab.DefaultVertexEntry,
			PixelEntries: []string{shaderlab.DefaultPixelEntry},
			Target:       shader.TargetSPIRV.String(),
			ShaderModel:  shader.DefaultShaderModel.String(),
			Args:         shaderlab.DefaultCompilerArgs,
			Listing:      shader.ListingAuto.String(),
		},
		Target: TargetConfig{
			Width:  shaderlab.DefaultWidth,
			Height: shaderlab.DefaultHeight,
		},
		Device: DeviceConfig{
			Backend:         "auto",
			PowerPreference: "high",
		},
		Output: OutputConfig{
			Color:        "auto",
			PreviewScale: 16,
		},
		Window: WindowConfig{
			Title:        "shaderlab",
			PixelEntries: []string{shaderlab.DefaultPixelEntry, shaderlab.DefaultAltPixelEntry},
			Width:        640,
			Height:       320,
			RegionWidth:  8,
			RegionHeight: 4,
		},
		Watch:   WatchConfig{Debounce: 100 * time.Millisecond},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Load reads configuration into a fresh viper instance.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith reads configuration through v, so flags already bound to v
// take precedence. An empty path searches ./shaderlab.yaml and
// ~/.config/shaderlab/config.yaml; a missing file is not an error.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	cfg := Default()
	setDefaults(v, cfg)

	if path != "" {
		p, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("config: expanding %q: %w", path, err)
		}
		v.SetConfigFile(p)
	} else {
		v.SetConfigName("shaderlab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "shaderlab"))
		}
	}

	v.SetEnvPrefix("SHADERLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ExpandPaths expands a leading ~ in file paths.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Shader.Path, &c.Output.Preview} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: expanding %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.Target.Width == 0 || c.Target.Height == 0 {
		return fmt.Errorf("target size must be positive, got %dx%d", c.Target.Width, c.Target.Height)
	}
	if c.Shader.Path == "" {
		return errors.New("shader.path must be set")
	}
	if len(c.Shader.PixelEntries) == 0 {
		return errors.New("shader.pixel_entries must list at least one entry point")
	}
	if _, err := shader.ParseTarget(c.Shader.Target); err != nil {
		return err
	}
	if _, err := shader.ParseShaderModel(c.Shader.ShaderModel); err != nil {
		return err
	}
	if _, err := shader.ParseListing(c.Shader.Listing); err != nil {
		return err
	}
	if _, err := shader.ParseArgs(c.Shader.Args); err != nil {
		return err
	}
	if !slices.Contains([]string{"auto", "always", "never"}, c.Output.Color) {
		return fmt.Errorf("output.color must be auto, always or never, got %q", c.Output.Color)
	}
	if f := strings.ToLower(c.Output.Format); f != "" && !slices.Contains([]string{"yaml", "yml", "toml"}, f) {
		return fmt.Errorf("output.format must be yaml or toml, got %q", c.Output.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if len(c.Window.PixelEntries) == 0 {
		return errors.New("window.pixel_entries must list at least one entry point")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch.debounce must not be negative")
	}
	if c.Device.WaveLaneCountMin != 0 && c.Device.WaveLaneCountMax != 0 && c.Device.WaveLaneCountMin > c.Device.WaveLaneCountMax {
		return errors.New("device.wave_lane_count_min must not exceed device.wave_lane_count_max")
	}
	return nil
}

// GPU returns the device settings in the form gpu.Open takes.
func (c *Config) GPU() gpu.DeviceConfig {
	return gpu.DeviceConfig{
		Backend:         c.Device.Backend,
		PowerPreference: c.Device.PowerPreference,
		ForceFallback:   c.Device.ForceFallback,
		Debug:           c.Device.Debug,
		Lanes: gpu.LaneCounts{
			Min:   c.Device.WaveLaneCountMin,
			Max:   c.Device.WaveLaneCountMax,
			Total: c.Device.TotalLaneCount,
		},
	}
}

// PlaygroundOptions converts the configuration into playground options.
// The config must have passed Validate.
func (c *Config) PlaygroundOptions() []shaderlab.Option {
	target, _ := shader.ParseTarget(c.Shader.Target)
	model, _ := shader.ParseShaderModel(c.Shader.ShaderModel)
	opts := []shaderlab.Option{
		shaderlab.WithSize(c.Target.Width, c.Target.Height),
		shaderlab.WithShaderPath(c.Shader.Path),
		shaderlab.WithEntryPoints(c.Shader.VertexEntry, c.Shader.PixelEntries...),
		shaderlab.WithTarget(target),
		shaderlab.WithShaderModel(model),
		shaderlab.WithCompilerArgs(c.Shader.Args),
		shaderlab.WithDeviceConfig(c.GPU()),
		shaderlab.WithSwatches(c.Output.Swatches),
		shaderlab.WithRegion(c.Output.RegionWidth, c.Output.RegionHeight),
		shaderlab.WithStrict(c.Output.Strict),
	}
	if c.Shader.Disassemble {
		l, _ := shader.ParseListing(c.Shader.Listing)
		opts = append(opts, shaderlab.WithDisassembly(l))
	}
	switch c.Output.Color {
	case "always":
		opts = append(opts, shaderlab.WithColor(true))
	case "never":
		opts = append(opts, shaderlab.WithColor(false))
	}
	if c.Output.Preview != "" {
		opts = append(opts, shaderlab.WithPreview(c.Output.Preview, c.Output.PreviewScale))
	}
	if c.Output.Format != "" {
		opts = append(opts, shaderlab.WithFormat(c.Output.Format))
	}
	return opts
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("shader.path", cfg.Shader.Path)
	v.SetDefault("shader.vertex_entry", cfg.Shader.VertexEntry)
	v.SetDefault("shader.pixel_entries", cfg.Shader.PixelEntries)
	v.SetDefault("shader.target", cfg.Shader.Target)
	v.SetDefault("shader.shader_model", cfg.Shader.ShaderModel)
	v.SetDefault("shader.args", cfg.Shader.Args)
	v.SetDefault("shader.disassemble", cfg.Shader.Disassemble)
	v.SetDefault("shader.listing", cfg.Shader.Listing)

	v.SetDefault("target.width", cfg.Target.Width)
	v.SetDefault("target.height", cfg.Target.Height)

	v.SetDefault("device.backend", cfg.Device.Backend)
	v.SetDefault("device.power_preference", cfg.Device.PowerPreference)
	v.SetDefault("device.force_fallback", cfg.Device.ForceFallback)
	v.SetDefault("device.debug", cfg.Device.Debug)
	v.SetDefault("device.wave_lane_count_min", cfg.Device.WaveLaneCountMin)
	v.SetDefault("device.wave_lane_count_max", cfg.Device.WaveLaneCountMax)
	v.SetDefault("device.total_lane_count", cfg.Device.TotalLaneCount)

	v.SetDefault("output.color", cfg.Output.Color)
	v.SetDefault("output.swatches", cfg.Output.Swatches)
	v.SetDefault("output.region_width", cfg.Output.RegionWidth)
	v.SetDefault("output.region_height", cfg.Output.RegionHeight)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.preview", cfg.Output.Preview)
	v.SetDefault("output.preview_scale", cfg.Output.PreviewScale)
	v.SetDefault("output.strict", cfg.Output.Strict)

	v.SetDefault("window.title", cfg.Window.Title)
	v.SetDefault("window.pixel_entries", cfg.Window.PixelEntries)
	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("window.region_width", cfg.Window.RegionWidth)
	v.SetDefault("window.region_height", cfg.Window.RegionHeight)

	v.SetDefault("watch.debounce", cfg.Watch.Debounce)

	v.SetDefault("logging.level", cfg.Logging.Level)
}
