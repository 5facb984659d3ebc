package window

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shaderlab/internal/frame"
	"github.com/gogpu/shaderlab/internal/report"
)

// DrawsPerFrame is the number of full-screen draws issued each frame.
const DrawsPerFrame = 4

// ErrNoTextureCreator is returned when the draw context cannot create
// textures.
var ErrNoTextureCreator = errors.New("window: draw context has no texture creator")

// textureDestroyer matches gogpu textures, which are released explicitly.
type textureDestroyer interface {
	Destroy()
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithScale fixes the magnification of the displayed target. Zero fits the
// target to the window.
func WithScale(scale int) PresenterOption {
	return func(p *Presenter) { p.scale = scale }
}

// WithExposure scales displayed colors before sRGB encoding.
func WithExposure(e float32) PresenterOption {
	return func(p *Presenter) { p.exposure = e }
}

// Presenter drives the frame loop of a Session and shows the read back
// target through a gpucontext.TextureDrawer.
//
// Presenter is not safe for concurrent use; gogpu calls OnDraw from one
// goroutine.
type Presenter struct {
	session  *frame.Session
	printer  *report.Printer
	plan     frame.FramePlan
	scale    int
	exposure float32

	frames uint64
	image  *frame.Image

	pix      *image.NRGBA
	pixScale int
	dirty    bool
	tex      gpucontext.Texture
	texW     int
	texH     int
}

// NewPresenter returns a Presenter over s. The first frame's pixels are
// printed with printer.
func NewPresenter(s *frame.Session, printer *report.Printer, opts ...PresenterOption) *Presenter {
	p := &Presenter{
		session:  s,
		printer:  printer,
		plan:     frame.AlternatingPlan(DrawsPerFrame, len(s.Pipelines())),
		exposure: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Frames returns the number of completed frames.
func (p *Presenter) Frames() uint64 { return p.frames }

// Image returns the first frame's pixels, or nil before it completed.
func (p *Presenter) Image() *frame.Image { return p.image }

// Frame renders one frame and waits for it. The first frame is read back,
// printed and queued for display.
func (p *Presenter) Frame(ctx context.Context) error {
	first := p.frames == 0
	img, err := p.session.Frame(ctx, p.plan, first)
	if err != nil {
		return fmt.Errorf("window: frame %d: %w", p.frames, err)
	}
	if first {
		p.printer.Pixels(img)
		if err := p.printer.Err(); err != nil {
			return fmt.Errorf("window: print pixels: %w", err)
		}
		p.Show(img)
	}
	p.frames++
	return nil
}

// Show replaces the displayed image. The texture is updated on the next
// Draw.
func (p *Presenter) Show(img *frame.Image) {
	p.image = img
	p.pix = nil
	p.dirty = true
}

// Draw shows the current image at the top-left of a width by height
// window. Nothing is drawn before the first frame completed.
func (p *Presenter) Draw(dc gpucontext.TextureDrawer, width, height int) error {
	if p.image == nil {
		return nil
	}
	scale := p.fit(width, height)
	if p.pix == nil || scale != p.pixScale {
		p.pix = report.Magnify(p.image, scale, p.exposure)
		p.pixScale = scale
		p.dirty = true
	}
	if p.dirty {
		if err := p.upload(dc); err != nil {
			return err
		}
		p.dirty = false
	}
	return dc.DrawTexture(p.tex, 0, 0)
}

// fit returns the largest integer scale that keeps the image inside the
// window, at least 1.
func (p *Presenter) fit(width, height int) int {
	if p.scale > 0 {
		return p.scale
	}
	w, h := int(p.image.Width), int(p.image.Height)
	s := min(width/w, height/h)
	return max(s, 1)
}

// upload writes the magnified image into the texture, creating it when the
// size changed or the texture cannot be updated in place.
func (p *Presenter) upload(dc gpucontext.TextureDrawer) error {
	b := p.pix.Bounds()
	if p.tex != nil && p.texW == b.Dx() && p.texH == b.Dy() {
		if u, ok := p.tex.(gpucontext.TextureUpdater); ok {
			if err := u.UpdateData(p.pix.Pix); err != nil {
				return fmt.Errorf("window: update texture: %w", err)
			}
			return nil
		}
	}

	creator := dc.TextureCreator()
	if creator == nil {
		return ErrNoTextureCreator
	}
	tex, err := creator.NewTextureFromRGBA(b.Dx(), b.Dy(), p.pix.Pix)
	if err != nil {
		return fmt.Errorf("window: create texture: %w", err)
	}
	p.release()
	p.tex, p.texW, p.texH = tex, b.Dx(), b.Dy()
	return nil
}

func (p *Presenter) release() {
	if d, ok := p.tex.(textureDestroyer); ok {
		d.Destroy()
	}
	p.tex = nil
}

// Close releases the displayed texture. The session is owned by the caller.
func (p *Presenter) Close() {
	p.release()
}
