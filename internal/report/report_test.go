package report

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/muesli/termenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/shaderlab/internal/frame"
	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

func testImage(t *testing.T, w, h uint32) *frame.Image {
	t.Helper()
	fp := gpu.ComputeFootprint(w, h, gputypes.TextureFormatRGBA32Float)
	data := make([]byte, fp.TotalBytes)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			off := fp.RowOffset(y) + uint64(x)*16
			px := [4]float32{float32(x) / 8, float32(y) / 4, 0.5, 1}
			for k, v := range px {
				binary.LittleEndian.PutUint32(data[off+uint64(k)*4:], math.Float32bits(v))
			}
		}
	}
	img, err := frame.NewImage(data, fp)
	require.NoError(t, err)
	return img
}

func TestPrinterPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithColor(false))
	defs := shader.Defines{{Name: "TARGET_SIZE_X", Value: "8"}, {Name: "TARGET_SIZE_Y", Value: "4"}}
	p.Defines(defs)
	p.Requires(shader.RequiresWaveOps)
	p.Pixels(testImage(t, 2, 1))
	require.NoError(t, p.Err())

	want := "TARGET_SIZE_X = 8\n" +
		"TARGET_SIZE_Y = 4\n" +
		"\n" +
		"D3D_SHADER_REQUIRES_WAVE_OPS = 1\n" +
		"D3D_SHADER_REQUIRES_DOUBLES = 0\n" +
		"D3D_SHADER_REQUIRES_INT64_OPS = 0\n" +
		"D3D_SHADER_REQUIRES_NATIVE_16BIT_OPS = 0\n" +
		"\n" +
		"rtv[0, 0] = 0.000, 0.000, 0.500, 1.000\n" +
		"rtv[1, 0] = 0.125, 0.000, 0.500, 1.000\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinterCompileStatus(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithColor(false))
	p.PixelStatus(true, "")
	assert.Empty(t, buf.String())

	p.PixelStatus(true, "Shader.wgsl:3:1: warning: unused\n")
	p.PixelStatus(false, "Shader.wgsl: boom\n")
	p.VertexFailed("")
	assert.Equal(t,
		"Pixel shader compile succeed\nShader.wgsl:3:1: warning: unused\n\n"+
			"Pixel shader compile failed\nShader.wgsl: boom\n\n"+
			"Vertex shader compile failed\n",
		buf.String())
}

func TestPrinterRegion(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithColor(false), WithRegion(2, 2))
	p.Pixels(testImage(t, 8, 4))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "rtv[1, 1] = 0.125, 0.250, 0.500, 1.000", lines[3])
}

func TestPrinterSwatches(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, WithColor(true), WithSwatches(true))
	p.Pixels(testImage(t, 1, 1))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.True(t, strings.HasPrefix(buf.String(), "rtv[0, 0] = 0.000, 0.000, 0.500, 1.000 "))

	buf.Reset()
	NewPrinter(&buf, WithColor(false), WithSwatches(true)).Pixels(testImage(t, 1, 1))
	assert.Equal(t, "rtv[0, 0] = 0.000, 0.000, 0.500, 1.000\n", buf.String())
}

func TestPrinterListing(t *testing.T) {
	blob := &shader.Blob{EntryPoint: "ps_main", Target: shader.TargetSPIRV, Bytes: []byte{0x03, 0x02, 0x23, 0x07}, Source: "fn f() {}\n"}

	var buf bytes.Buffer
	p := NewPrinter(&buf, WithColor(false))
	require.NoError(t, p.Listing(blob, shader.ListingWGSL))
	assert.Equal(t, "fn f() {}\n\n", buf.String())

	buf.Reset()
	require.NoError(t, p.Listing(blob, shader.ListingAuto))
	assert.True(t, strings.HasPrefix(buf.String(), "00000000  03 02 23 07"))

	buf.Reset()
	color := NewPrinter(&buf, WithColor(true))
	require.NoError(t, color.Listing(blob, shader.ListingWGSL))
	assert.Contains(t, buf.String(), "fn")

	assert.Error(t, p.Listing(nil, shader.ListingAuto))
}

func TestPrinterCapabilities(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, WithColor(false)).Capabilities(gpu.Capabilities{
		AdapterName: "Test GPU",
		Vendor:      "AMD",
		VendorID:    0x1002,
		DeviceType:  "DiscreteGPU",
		Backend:     "Vulkan",
		Features:    []string{"ShaderF16"},
	})
	out := buf.String()
	assert.Contains(t, out, "Adapter: Test GPU\n")
	assert.Contains(t, out, "Vendor: AMD (0x1002)\n")
	assert.Contains(t, out, "Features: ShaderF16\n")
}

func TestHighlightFallback(t *testing.T) {
	assert.Equal(t, "plain", highlight("plain", "no-such-language", "no-such-style", termenv.Ascii))
	assert.Equal(t, "terminal16m", formatterFor(termenv.TrueColor))
	assert.Equal(t, "noop", formatterFor(termenv.Ascii))
}

func TestMagnifyAndWritePNG(t *testing.T) {
	img := testImage(t, 8, 4)
	big := Magnify(img, 4, 1)
	assert.Equal(t, 32, big.Bounds().Dx())
	assert.Equal(t, 16, big.Bounds().Dy())
	assert.Equal(t, big.NRGBAAt(4, 0), big.NRGBAAt(7, 3))

	path := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, WritePNG(path, img, 4))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())

	assert.Error(t, WritePNG(filepath.Join(t.TempDir(), "missing", "x.png"), img, 1))
}

func testDocument(t *testing.T) Document {
	blob := &shader.Blob{EntryPoint: "ps_main", Profile: "ps_spirv_1_3", Target: shader.TargetSPIRV, Bytes: make([]byte, 12)}
	return NewDocument(
		gpu.Capabilities{AdapterName: "gputest", WaveLaneCountMin: 4, WaveLaneCountMax: 4, TotalLaneCount: 4},
		shader.Defines{{Name: "TARGET_SIZE_X", Value: "2"}},
		[]*shader.Blob{blob},
		shader.RequiresDoubles,
		testImage(t, 2, 1),
	)
}

func TestExportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "yaml", testDocument(t)))

	var got Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "gputest", got.Adapter.Name)
	assert.Equal(t, "2", got.Defines["TARGET_SIZE_X"])
	assert.Equal(t, 1, got.Requires["D3D_SHADER_REQUIRES_DOUBLES"])
	require.Len(t, got.Shaders, 1)
	assert.Equal(t, 12, got.Shaders[0].Size)
	require.NotNil(t, got.Target)
	assert.Equal(t, [4]float32{0.125, 0, 0.5, 1}, got.Target.Pixels[1])
}

func TestExportTOML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "TOML", testDocument(t)))
	assert.Contains(t, buf.String(), "[adapter]")

	var got Document
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, uint32(256), uint32(got.Target.RowPitch))
}

func TestExportUnknown(t *testing.T) {
	err := Export(&bytes.Buffer{}, "xml", Document{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
