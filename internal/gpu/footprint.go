package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// RowPitchAlignment is the alignment of a row in a texture-to-buffer copy.
const RowPitchAlignment = 256

// Footprint is the layout of a texture copied into a buffer. Rows start
// every RowPitch bytes; only the first RowSize bytes of a row are texels.
type Footprint struct {
	Offset     uint64
	Width      uint32
	Height     uint32
	RowSize    uint64
	RowPitch   uint64
	TotalBytes uint64
}

// BytesPerPixel returns the texel size of the color formats a target can
// use, or 0 for formats the device layer does not handle.
func BytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatRGBA32Float:
		return 16
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatR32Float:
		return 4
	default:
		return 0
	}
}

// ComputeFootprint lays out a width by height texture of format f.
// The last row is not padded.
func ComputeFootprint(width, height uint32, f gputypes.TextureFormat) Footprint {
	rowSize := uint64(width) * uint64(BytesPerPixel(f))
	pitch := alignUp(rowSize, RowPitchAlignment)
	fp := Footprint{
		Width:    width,
		Height:   height,
		RowSize:  rowSize,
		RowPitch: pitch,
	}
	if height > 0 {
		fp.TotalBytes = pitch*uint64(height-1) + rowSize
	}
	return fp
}

// RowOffset returns the byte offset of row y.
func (fp Footprint) RowOffset(y uint32) uint64 {
	return fp.Offset + uint64(y)*fp.RowPitch
}

func (fp Footprint) String() string {
	return fmt.Sprintf("%dx%d pitch=%d row=%d total=%d", fp.Width, fp.Height, fp.RowPitch, fp.RowSize, fp.TotalBytes)
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}
