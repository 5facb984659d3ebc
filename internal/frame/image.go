package frame

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/gogpu/shaderlab/internal/gpu"
)

// Pixel is one RGBA32F texel as read back from the target.
type Pixel struct {
	R, G, B, A float32
}

// RGBA implements color.Color. Channels are clamped to [0, 1] and treated
// as straight alpha.
func (p Pixel) RGBA() (r, g, b, a uint32) {
	return p.NRGBA64().RGBA()
}

// NRGBA64 clamps p to 16 bits per channel.
func (p Pixel) NRGBA64() color.NRGBA64 {
	return color.NRGBA64{
		R: unit16(p.R),
		G: unit16(p.G),
		B: unit16(p.B),
		A: unit16(p.A),
	}
}

func unit16(v float32) uint16 {
	return uint16(clamp01(v)*0xffff + 0.5)
}

func clamp01(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(0, math32.Min(1, v))
}

// Image is a copy of a read back RGBA32F target. Rows start every Pitch
// bytes, as laid out by the copy.
type Image struct {
	Width  uint32
	Height uint32
	Pitch  uint64
	Data   []byte
}

var _ image.Image = (*Image)(nil)

// NewImage copies the rows described by fp out of mapped buffer memory.
func NewImage(data []byte, fp gpu.Footprint) (*Image, error) {
	if fp.Width == 0 || fp.Height == 0 {
		return nil, fmt.Errorf("frame: empty footprint %v", fp)
	}
	if fp.RowSize < uint64(fp.Width)*pixelSize || fp.RowPitch < fp.RowSize {
		return nil, fmt.Errorf("frame: footprint %v is not RGBA32F", fp)
	}
	end := fp.Offset + fp.TotalBytes
	if uint64(len(data)) < end {
		return nil, fmt.Errorf("frame: readback holds %d bytes, footprint needs %d", len(data), end)
	}
	return &Image{
		Width:  fp.Width,
		Height: fp.Height,
		Pitch:  fp.RowPitch,
		Data:   append([]byte(nil), data[fp.Offset:end]...),
	}, nil
}

const pixelSize = 16

// Pixel returns the texel at (x, y). It panics when out of range.
func (m *Image) Pixel(x, y uint32) Pixel {
	if x >= m.Width || y >= m.Height {
		panic(fmt.Sprintf("frame: pixel (%d, %d) outside %dx%d", x, y, m.Width, m.Height))
	}
	off := uint64(y)*m.Pitch + uint64(x)*pixelSize
	p := m.Data[off : off+pixelSize]
	return Pixel{
		R: math32.Float32frombits(binary.LittleEndian.Uint32(p[0:])),
		G: math32.Float32frombits(binary.LittleEndian.Uint32(p[4:])),
		B: math32.Float32frombits(binary.LittleEndian.Uint32(p[8:])),
		A: math32.Float32frombits(binary.LittleEndian.Uint32(p[12:])),
	}
}

func (m *Image) ColorModel() color.Model { return color.NRGBA64Model }

func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(m.Width), int(m.Height))
}

func (m *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}).In(m.Bounds()) {
		return color.NRGBA64{}
	}
	return m.Pixel(uint32(x), uint32(y))
}

// Rect returns the top-left w by h block of m, clamped to its bounds.
// Zero w or h means the full extent.
func (m *Image) Rect(w, h uint32) image.Rectangle {
	if w == 0 || w > m.Width {
		w = m.Width
	}
	if h == 0 || h > m.Height {
		h = m.Height
	}
	return image.Rect(0, 0, int(w), int(h))
}

// ToRGBA8 converts m to 8-bit sRGB, scaling color by exposure first.
// Alpha is kept linear.
func ToRGBA8(m *Image, exposure float32) *image.NRGBA {
	out := image.NewNRGBA(m.Bounds())
	for y := uint32(0); y < m.Height; y++ {
		for x := uint32(0); x < m.Width; x++ {
			p := m.Pixel(x, y)
			i := out.PixOffset(int(x), int(y))
			out.Pix[i+0] = unit8(encodeSRGB(p.R * exposure))
			out.Pix[i+1] = unit8(encodeSRGB(p.G * exposure))
			out.Pix[i+2] = unit8(encodeSRGB(p.B * exposure))
			out.Pix[i+3] = unit8(clamp01(p.A))
		}
	}
	return out
}

func encodeSRGB(v float32) float32 {
	v = clamp01(v)
	if v <= 0.0031308 {
		return v * 12.92
	}
	return 1.055*math32.Pow(v, 1/2.4) - 0.055
}

func unit8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
