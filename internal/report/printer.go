// Package report renders playground results for the console and for
// files: the define list, compile status, required features, listings and
// the read back pixel grid.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/gogpu/shaderlab/internal/frame"
	"github.com/gogpu/shaderlab/internal/gpu"
	"github.com/gogpu/shaderlab/shader"
)

// Option configures a Printer.
type Option func(*Printer)

// WithColor forces color on or off. Without it the profile is detected
// from the writer and the environment.
func WithColor(on bool) Option {
	return func(p *Printer) {
		if on {
			p.profile = termenv.TrueColor
		} else {
			p.profile = termenv.Ascii
		}
	}
}

// WithRegion limits the pixel grid to the top-left w by h block. Zero
// means the whole image.
func WithRegion(w, h uint32) Option {
	return func(p *Printer) { p.regionW, p.regionH = w, h }
}

// WithSwatches appends a colored block after every pixel line when color
// is on.
func WithSwatches(on bool) Option {
	return func(p *Printer) { p.swatches = on }
}

// WithStyle selects the chroma style for listings.
func WithStyle(name string) Option {
	return func(p *Printer) { p.style = name }
}

// Printer writes playground output in the fixed console format.
type Printer struct {
	w        io.Writer
	profile  termenv.Profile
	renderer *lipgloss.Renderer
	regionW  uint32
	regionH  uint32
	swatches bool
	style    string
	err      error
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, opts ...Option) *Printer {
	p := &Printer{
		w:       w,
		profile: termenv.NewOutput(w).EnvColorProfile(),
		style:   "monokai",
	}
	for _, opt := range opts {
		opt(p)
	}
	p.renderer = lipgloss.NewRenderer(w)
	p.renderer.SetColorProfile(p.profile)
	return p
}

// Color reports whether output is colored.
func (p *Printer) Color() bool { return p.profile != termenv.Ascii }

// Err returns the first write error.
func (p *Printer) Err() error { return p.err }

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// Defines prints one "NAME = value" line per define and a blank line.
func (p *Printer) Defines(defs shader.Defines) {
	p.printf("%s\n", defs.String())
}

// VertexFailed prints the vertex compile failure and its log.
func (p *Printer) VertexFailed(log string) {
	p.printf("Vertex shader compile failed\n")
	if log != "" {
		p.printf("%s\n", log)
	}
}

// PixelStatus prints the pixel compile status when there is a log to
// show: the failure log, or the warnings of a successful compile.
func (p *Printer) PixelStatus(ok bool, log string) {
	if log == "" {
		return
	}
	status := "failed"
	if ok {
		status = "succeed"
	}
	p.printf("Pixel shader compile %s\n", status)
	p.printf("%s\n", log)
}

// Requires prints every required-feature flag as 0 or 1 and a blank line.
func (p *Printer) Requires(r shader.Requires) {
	for _, f := range shader.AllRequires() {
		p.printf("%s = %d\n", f.Name(), r.Flag(f))
	}
	p.printf("\n")
}

// Listing prints the disassembly of b, highlighted when color is on.
func (p *Printer) Listing(b *shader.Blob, l shader.Listing) error {
	text, err := shader.Disassemble(b, l)
	if err != nil {
		return err
	}
	if p.Color() {
		text = highlight(text, l.Resolve(b).Language(), p.style, p.profile)
	}
	p.printf("%s\n", strings.TrimRight(text, "\n"))
	p.printf("\n")
	return nil
}

// Capabilities prints the adapter description.
func (p *Printer) Capabilities(c gpu.Capabilities) {
	p.printf("Adapter: %s\n", c.AdapterName)
	p.printf("Vendor: %s (0x%04X)\n", c.Vendor, c.VendorID)
	p.printf("Device type: %s\n", c.DeviceType)
	p.printf("Backend: %s\n", c.Backend)
	if c.Driver != "" {
		p.printf("Driver: %s\n", c.Driver)
	}
	if len(c.Features) > 0 {
		p.printf("Features: %s\n", strings.Join(c.Features, ", "))
	}
	p.printf("\n")
}

// Pixels prints the pixel grid, row by row.
func (p *Printer) Pixels(img *frame.Image) {
	r := img.Rect(p.regionW, p.regionH)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			px := img.Pixel(uint32(x), uint32(y))
			p.printf("rtv[%d, %d] = %.3f, %.3f, %.3f, %.3f", x, y, px.R, px.G, px.B, px.A)
			if p.swatches && p.Color() {
				p.printf(" %s", p.swatch(px))
			}
			p.printf("\n")
		}
	}
}

func (p *Printer) swatch(px frame.Pixel) string {
	c := px.NRGBA64()
	hex := fmt.Sprintf("#%02X%02X%02X", c.R>>8, c.G>>8, c.B>>8)
	return p.renderer.NewStyle().Background(lipgloss.Color(hex)).Render("  ")
}

// Heading prints a bold title line.
func (p *Printer) Heading(title string) {
	p.printf("%s\n", p.renderer.NewStyle().Bold(true).Render(title))
}
