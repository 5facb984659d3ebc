package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/internal/watch"
)

func (e *env) watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rerun whenever the shader file changes",
		Long: `watch draws one frame and prints the pixels like run, then again every
time the shader file is saved, until interrupted. Compile failures are
printed and watching continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dev, release, err := e.device(ctx)
			if err != nil {
				return err
			}
			defer release()

			opts := append(e.playgroundOptions(),
				shaderlab.WithDevice(dev),
				shaderlab.WithCompileCache(shaderlab.NewCompileCache(0)),
			)
			name := filepath.Base(e.cfg.Shader.Path)
			w := watch.New(e.cfg.Shader.Path, e.cfg.Watch.Debounce)
			return w.Run(ctx, func(ctx context.Context) error {
				pg, err := shaderlab.New(opts...)
				if err != nil {
					return err
				}
				pg.Printer().Heading(fmt.Sprintf("%s %s", name, time.Now().Format(time.TimeOnly)))
				_, err = pg.Run(ctx)
				if errors.Is(err, shaderlab.ErrCompile) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().Duration("debounce", 100*time.Millisecond, "delay between a change and the rerun")
	// Lookup cannot fail for the flag defined above.
	_ = e.v.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce"))
	return cmd
}
