package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shaderlab/internal/frame"
	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

// ErrUnknownFormat is returned by Export for a format it cannot write.
var ErrUnknownFormat = errors.New("report: unknown export format")

// Document is the machine-readable form of a playground run.
type Document struct {
	Adapter  AdapterDoc        `yaml:"adapter" toml:"adapter"`
	Defines  map[string]string `yaml:"defines" toml:"defines"`
	Shaders  []ShaderDoc       `yaml:"shaders" toml:"shaders"`
	Requires map[string]int    `yaml:"requires" toml:"requires"`
	Target   *TargetDoc        `yaml:"target,omitempty" toml:"target,omitempty"`
}

// AdapterDoc describes the adapter a run used.
type AdapterDoc struct {
	Name             string   `yaml:"name" toml:"name"`
	Vendor           string   `yaml:"vendor" toml:"vendor"`
	DeviceType       string   `yaml:"device_type" toml:"device_type"`
	Backend          string   `yaml:"backend" toml:"backend"`
	Features         []string `yaml:"features,omitempty" toml:"features,omitempty"`
	WaveLaneCountMin uint32   `yaml:"wave_lane_count_min" toml:"wave_lane_count_min"`
	WaveLaneCountMax uint32   `yaml:"wave_lane_count_max" toml:"wave_lane_count_max"`
	TotalLaneCount   uint32   `yaml:"total_lane_count" toml:"total_lane_count"`
}

// ShaderDoc describes one compiled entry point.
type ShaderDoc struct {
	EntryPoint string   `yaml:"entry_point" toml:"entry_point"`
	Profile    string   `yaml:"profile" toml:"profile"`
	Target     string   `yaml:"target" toml:"target"`
	Size       int      `yaml:"size" toml:"size"`
	Warnings   []string `yaml:"warnings,omitempty" toml:"warnings,omitempty"`
}

// TargetDoc holds the read back pixels, row-major, as RGBA quadruples.
type TargetDoc struct {
	Width    uint32       `yaml:"width" toml:"width"`
	Height   uint32       `yaml:"height" toml:"height"`
	RowPitch uint64       `yaml:"row_pitch" toml:"row_pitch"`
	Pixels   [][4]float32 `yaml:"pixels" toml:"pixels"`
}

// NewDocument collects the parts of a run into a Document. img may be nil.
func NewDocument(caps gpu.Capabilities, defs shader.Defines, blobs []*shader.Blob, req shader.Requires, img *frame.Image) Document {
	doc := Document{
		Adapter: AdapterDoc{
			Name:             caps.AdapterName,
			Vendor:           caps.Vendor,
			DeviceType:       caps.DeviceType,
			Backend:          caps.Backend,
			Features:         caps.Features,
			WaveLaneCountMin: caps.WaveLaneCountMin,
			WaveLaneCountMax: caps.WaveLaneCountMax,
			TotalLaneCount:   caps.TotalLaneCount,
		},
		Defines:  make(map[string]string, len(defs)),
		Requires: make(map[string]int),
	}
	for _, d := range defs {
		doc.Defines[d.Name] = d.Value
	}
	for _, b := range blobs {
		doc.Shaders = append(doc.Shaders, ShaderDoc{
			EntryPoint: b.EntryPoint,
			Profile:    b.Profile,
			Target:     b.Target.String(),
			Size:       len(b.Bytes),
			Warnings:   b.Warnings,
		})
	}
	for _, f := range shader.AllRequires() {
		doc.Requires[f.Name()] = req.Flag(f)
	}
	if img != nil {
		t := &TargetDoc{Width: img.Width, Height: img.Height, RowPitch: img.Pitch}
		for y := uint32(0); y < img.Height; y++ {
			for x := uint32(0); x < img.Width; x++ {
				px := img.Pixel(x, y)
				t.Pixels = append(t.Pixels, [4]float32{px.R, px.G, px.B, px.A})
			}
		}
		doc.Target = t
	}
	return doc
}

// Export writes doc to w as "yaml" or "toml".
func Export(w io.Writer, format string, doc Document) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("report: yaml: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("report: toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
