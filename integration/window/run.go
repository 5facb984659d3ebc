//go:build !nogpu

package window

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/internal/frame"
)

// Config describes the window and the playground shown in it.
type Config struct {
	Title  string
	Width  int
	Height int
	// Scale fixes the magnification; zero fits the target to the window.
	Scale int
	// Options configure the playground. Entry points should name two pixel
	// variants; one is drawn four times otherwise.
	Options []shaderlab.Option
}

// Run compiles the shader, opens the window and presents frames until the
// window is closed, Escape is pressed or ctx ends.
//
// The playground renders on its own device; the window only displays the
// read back target.
func Run(ctx context.Context, cfg Config) error {
	pg, err := shaderlab.New(cfg.Options...)
	if err != nil {
		return err
	}
	dev, release, err := pg.OpenDevice(ctx)
	if err != nil {
		return err
	}
	defer release()

	prog, err := pg.Build(dev.Capabilities())
	if err != nil {
		return err
	}
	w, h := pg.Size()
	sess, err := frame.NewSession(dev, frame.SessionConfig{
		Width:  w,
		Height: h,
		Vertex: prog.Vertex,
		Pixels: prog.Pixels,
	})
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}
	defer sess.Close()

	pres := NewPresenter(sess, pg.Printer(), WithScale(cfg.Scale))
	defer pres.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle(cfg.Title).
		WithSize(cfg.Width, cfg.Height).
		WithContinuousRender(true))

	var loopErr error
	app.OnDraw(func(dc *gogpu.Context) {
		if loopErr != nil {
			return
		}
		if err := ctx.Err(); err != nil {
			app.Quit()
			return
		}
		if err := pres.Frame(ctx); err != nil {
			loopErr = err
			app.Quit()
			return
		}
		if err := pres.Draw(dc.AsTextureDrawer(), dc.Width(), dc.Height()); err != nil {
			loopErr = err
			app.Quit()
			return
		}
		if pres.Frames() == 1 {
			shaderlab.Logger().Info("window: first frame presented",
				"width", dc.Width(), "height", dc.Height())
		}
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		if key == gpucontext.KeyEscape {
			app.Quit()
		}
	})

	app.OnClose(func() {
		cancel()
		shaderlab.Logger().Debug("window: closed", "frames", pres.Frames())
	})

	if err := app.Run(); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if errors.Is(loopErr, context.Canceled) {
		return nil
	}
	return loopErr
}
