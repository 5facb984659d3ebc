package report

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/gogpu/shaderlab/internal/frame"
)

// Magnify scales img by an integer factor with nearest-neighbor sampling
// so single pixels stay sharp.
func Magnify(img *frame.Image, scale int, exposure float32) *image.NRGBA {
	src := frame.ToRGBA8(img, exposure)
	if scale <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// WritePNG writes a magnified sRGB preview of img to path.
func WritePNG(path string, img *frame.Image, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create preview: %w", err)
	}
	if err := png.Encode(f, Magnify(img, scale, 1)); err != nil {
		f.Close()
		return fmt.Errorf("report: encode preview: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close preview: %w", err)
	}
	return nil
}
