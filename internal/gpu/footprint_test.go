package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestComputeFootprint(t *testing.T) {
	tests := []struct {
		name           string
		w, h           uint32
		format         gputypes.TextureFormat
		rowSize, pitch uint64
		total          uint64
	}{
		{"8x4 rgba32f", 8, 4, gputypes.TextureFormatRGBA32Float, 128, 256, 256*3 + 128},
		{"16x2 rgba32f", 16, 2, gputypes.TextureFormatRGBA32Float, 256, 256, 512},
		{"17x1 rgba32f", 17, 1, gputypes.TextureFormatRGBA32Float, 272, 512, 272},
		{"64x64 rgba8", 64, 64, gputypes.TextureFormatRGBA8Unorm, 256, 256, 256 * 64},
		{"1x3 rgba16f", 1, 3, gputypes.TextureFormatRGBA16Float, 8, 256, 256*2 + 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := ComputeFootprint(tt.w, tt.h, tt.format)
			if fp.RowSize != tt.rowSize {
				t.Errorf("RowSize = %d, want %d", fp.RowSize, tt.rowSize)
			}
			if fp.RowPitch != tt.pitch {
				t.Errorf("RowPitch = %d, want %d", fp.RowPitch, tt.pitch)
			}
			if fp.TotalBytes != tt.total {
				t.Errorf("TotalBytes = %d, want %d", fp.TotalBytes, tt.total)
			}
			if fp.RowPitch%RowPitchAlignment != 0 {
				t.Errorf("RowPitch %d not aligned", fp.RowPitch)
			}
		})
	}
}

func TestFootprintRowOffset(t *testing.T) {
	fp := ComputeFootprint(8, 4, gputypes.TextureFormatRGBA32Float)
	fp.Offset = 512
	if got := fp.RowOffset(0); got != 512 {
		t.Errorf("RowOffset(0) = %d", got)
	}
	if got := fp.RowOffset(3); got != 512+3*256 {
		t.Errorf("RowOffset(3) = %d", got)
	}
}

func TestBytesPerPixelUnknown(t *testing.T) {
	if got := BytesPerPixel(gputypes.TextureFormatUndefined); got != 0 {
		t.Errorf("BytesPerPixel(undefined) = %d, want 0", got)
	}
	fp := ComputeFootprint(4, 0, gputypes.TextureFormatRGBA32Float)
	if fp.TotalBytes != 0 {
		t.Errorf("zero-height TotalBytes = %d", fp.TotalBytes)
	}
}
