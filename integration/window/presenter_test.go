package window

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shaderlab/internal/frame"
	"github.com/gogpu/shaderlab/internal/gpu/gputest"
	"github.com/gogpu/shaderlab/internal/report"
	"github.com/gogpu/shaderlab/shader"
)

// mockTexture implements gpucontext.Texture.
type mockTexture struct {
	width     int
	height    int
	data      []byte
	destroyed bool
}

func (m *mockTexture) Width() int  { return m.width }
func (m *mockTexture) Height() int { return m.height }
func (m *mockTexture) Destroy()    { m.destroyed = true }

// mockUpdatable also implements gpucontext.TextureUpdater.
type mockUpdatable struct {
	mockTexture
	updated int
}

func (m *mockUpdatable) UpdateData(data []byte) error {
	m.data = append(m.data[:0], data...)
	m.updated++
	return nil
}

// mockDrawer implements gpucontext.TextureDrawer and TextureCreator.
type mockDrawer struct {
	updatable bool
	noCreator bool
	failNext  bool

	created []gpucontext.Texture
	drawn   gpucontext.Texture
	draws   int
}

func (m *mockDrawer) DrawTexture(tex gpucontext.Texture, x, y float32) error {
	m.drawn = tex
	m.draws++
	return nil
}

func (m *mockDrawer) TextureCreator() gpucontext.TextureCreator {
	if m.noCreator {
		return nil
	}
	return m
}

func (m *mockDrawer) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if m.failNext {
		m.failNext = false
		return nil, errors.New("mock texture creation failed")
	}
	base := mockTexture{width: width, height: height, data: append([]byte(nil), data...)}
	var tex gpucontext.Texture = &base
	if m.updatable {
		tex = &mockUpdatable{mockTexture: base}
	}
	m.created = append(m.created, tex)
	return tex, nil
}

func newPresenter(t *testing.T, dev *gputest.Device, out *bytes.Buffer, opts ...PresenterOption) *Presenter {
	t.Helper()
	vs := &shader.Blob{EntryPoint: "vs_main", Stage: shader.StageVertex}
	ps := []*shader.Blob{
		{EntryPoint: "ps_main", Stage: shader.StagePixel},
		{EntryPoint: "ps_main2", Stage: shader.StagePixel},
	}
	s, err := frame.NewSession(dev, frame.SessionConfig{Width: 8, Height: 4, Vertex: vs, Pixels: ps})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	printer := report.NewPrinter(out, report.WithColor(false), report.WithRegion(2, 1))
	p := NewPresenter(s, printer, opts...)
	t.Cleanup(p.Close)
	return p
}

func twoVariants() *gputest.Device {
	return gputest.New(
		gputest.WithShader("ps_main", gputest.Solid(1, 0, 0, 1)),
		gputest.WithShader("ps_main2", gputest.Solid(0, 0, 1, 1)),
	)
}

func count(events []string, want string) int {
	n := 0
	for _, e := range events {
		if e == want {
			n++
		}
	}
	return n
}

func TestPresenterFrames(t *testing.T) {
	dev := twoVariants()
	var out bytes.Buffer
	p := newPresenter(t, dev, &out)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dev.ResetEvents()
		if err := p.Frame(ctx); err != nil {
			t.Fatalf("Frame %d: %v", i, err)
		}
		ev := dev.Events()
		if got := count(ev, "Draw 3 1 0 0"); got != DrawsPerFrame {
			t.Errorf("frame %d: %d draws, want %d", i, got, DrawsPerFrame)
		}
		if got := count(ev, "SetPipeline pso-0-ps_main"); got != 2 {
			t.Errorf("frame %d: ps_main bound %d times, want 2", i, got)
		}
		if got := count(ev, "SetPipeline pso-1-ps_main2"); got != 2 {
			t.Errorf("frame %d: ps_main2 bound %d times, want 2", i, got)
		}
		if got := count(ev, "CopyTextureToBuffer 256"); got != 1 {
			t.Errorf("frame %d: %d copies, want 1", i, got)
		}
		wantMaps := 0
		if i == 0 {
			wantMaps = 1
		}
		if got := count(ev, "Map"); got != wantMaps {
			t.Errorf("frame %d: %d maps, want %d", i, got, wantMaps)
		}
		if got := count(ev, "Barrier copy-source->render-target"); got != 1 {
			t.Errorf("frame %d: target not returned to render-target state", i)
		}
	}
	if p.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", p.Frames())
	}

	// The last draw uses ps_main2, so the target holds its color.
	img := p.Image()
	if img == nil {
		t.Fatal("Image() = nil after the first frame")
	}
	if px := img.Pixel(0, 0); px != (frame.Pixel{R: 0, G: 0, B: 1, A: 1}) {
		t.Errorf("Pixel(0, 0) = %v, want blue", px)
	}

	want := "rtv[0, 0] = 0.000, 0.000, 1.000, 1.000\nrtv[1, 0] = 0.000, 0.000, 1.000, 1.000\n"
	if out.String() != want {
		t.Errorf("printed %q, want %q", out.String(), want)
	}
}

func TestPresenterFrameError(t *testing.T) {
	boom := errors.New("boom")
	dev := gputest.New(
		gputest.WithShader("ps_main", gputest.Solid(1, 0, 0, 1)),
		gputest.WithShader("ps_main2", gputest.Solid(0, 0, 1, 1)),
		gputest.WithFailure("Submit", boom),
	)
	var out bytes.Buffer
	p := newPresenter(t, dev, &out)
	err := p.Frame(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Frame() error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "frame 0") {
		t.Errorf("error %q does not name the frame", err)
	}
	if p.Frames() != 0 {
		t.Errorf("Frames() = %d after a failed frame", p.Frames())
	}
}

func TestPresenterDrawBeforeFirstFrame(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(t, twoVariants(), &out)
	dc := &mockDrawer{}
	if err := p.Draw(dc, 640, 320); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if dc.draws != 0 || len(dc.created) != 0 {
		t.Errorf("drew %d times and created %d textures before the first frame", dc.draws, len(dc.created))
	}
}

func TestPresenterDrawFitsWindow(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(t, twoVariants(), &out)
	if err := p.Frame(context.Background()); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	dc := &mockDrawer{}
	for i := 0; i < 2; i++ {
		if err := p.Draw(dc, 640, 320); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	if len(dc.created) != 1 {
		t.Fatalf("created %d textures, want 1", len(dc.created))
	}
	tex := dc.created[0].(*mockTexture)
	// 8x4 fits 640x320 at 80x.
	if tex.width != 640 || tex.height != 320 {
		t.Errorf("texture %dx%d, want 640x320", tex.width, tex.height)
	}
	if dc.draws != 2 || dc.drawn != gpucontext.Texture(tex) {
		t.Errorf("draws = %d, drawn = %v", dc.draws, dc.drawn)
	}
	// sRGB blue, opaque.
	if got := tex.data[:4]; !bytes.Equal(got, []byte{0, 0, 255, 255}) {
		t.Errorf("first texel = %v, want [0 0 255 255]", got)
	}

	// A smaller window recreates the texture and destroys the old one.
	if err := p.Draw(dc, 100, 100); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(dc.created) != 2 {
		t.Fatalf("created %d textures after resize, want 2", len(dc.created))
	}
	if !tex.destroyed {
		t.Error("old texture not destroyed")
	}
	small := dc.created[1].(*mockTexture)
	if small.width != 96 || small.height != 48 {
		t.Errorf("texture %dx%d, want 96x48", small.width, small.height)
	}

	// A window smaller than the target still shows it at 1x.
	if err := p.Draw(dc, 4, 4); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if one := dc.created[2].(*mockTexture); one.width != 8 || one.height != 4 {
		t.Errorf("texture %dx%d, want 8x4", one.width, one.height)
	}
}

func TestPresenterShowUpdatesInPlace(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(t, twoVariants(), &out, WithScale(2))
	if err := p.Frame(context.Background()); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	dc := &mockDrawer{updatable: true}
	if err := p.Draw(dc, 640, 320); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	tex := dc.created[0].(*mockUpdatable)
	if tex.width != 16 || tex.height != 8 {
		t.Errorf("texture %dx%d, want 16x8", tex.width, tex.height)
	}

	p.Show(p.Image())
	if err := p.Draw(dc, 640, 320); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(dc.created) != 1 {
		t.Errorf("created %d textures, want the first one updated in place", len(dc.created))
	}
	if tex.updated != 1 {
		t.Errorf("updated = %d, want 1", tex.updated)
	}
}

func TestPresenterExposure(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(t, twoVariants(), &out, WithScale(1), WithExposure(0))
	if err := p.Frame(context.Background()); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	dc := &mockDrawer{}
	if err := p.Draw(dc, 8, 4); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	tex := dc.created[0].(*mockTexture)
	if got := tex.data[:4]; !bytes.Equal(got, []byte{0, 0, 0, 255}) {
		t.Errorf("first texel = %v, want [0 0 0 255]", got)
	}
}

func TestPresenterDrawErrors(t *testing.T) {
	var out bytes.Buffer
	p := newPresenter(t, twoVariants(), &out)
	if err := p.Frame(context.Background()); err != nil {
		t.Fatalf("Frame: %v", err)
	}

	if err := p.Draw(&mockDrawer{noCreator: true}, 64, 32); !errors.Is(err, ErrNoTextureCreator) {
		t.Errorf("Draw() error = %v, want %v", err, ErrNoTextureCreator)
	}
	dc := &mockDrawer{failNext: true}
	if err := p.Draw(dc, 64, 32); err == nil {
		t.Error("Draw() succeeded with a failing texture creator")
	}
	// The failed upload is retried on the next draw.
	if err := p.Draw(dc, 64, 32); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(dc.created) != 1 || dc.draws != 1 {
		t.Errorf("created %d, drew %d; want 1 and 1", len(dc.created), dc.draws)
	}
}
