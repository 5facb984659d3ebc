package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/integration/window"
)

func (e *env) windowCommand() *cobra.Command {
	var scale int
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Present frames in a window",
		Long: `window draws four full-screen triangles per frame, alternating two pixel
entry points (window.pixel_entries, or --ps when given), and prints the
pixels of the first frame. Close the window or press Escape to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := e.cfg
			pixels := cfg.Window.PixelEntries
			if cmd.Flags().Changed("ps") {
				pixels = cfg.Shader.PixelEntries
			}
			opts := append(e.playgroundOptions(),
				shaderlab.WithEntryPoints(cfg.Shader.VertexEntry, pixels...),
				shaderlab.WithRegion(cfg.Window.RegionWidth, cfg.Window.RegionHeight),
			)
			err := window.Run(cmd.Context(), window.Config{
				Title:   cfg.Window.Title,
				Width:   cfg.Window.Width,
				Height:  cfg.Window.Height,
				Scale:   scale,
				Options: opts,
			})
			if errors.Is(err, shaderlab.ErrCompile) && !cfg.Output.Strict {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVar(&scale, "scale", 0, "magnification of the target, 0 fits the window")
	return cmd
}
