package commands

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlab"
)

func (e *env) deviceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show the adapter and the defines shaders are compiled with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, release, err := e.device(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			pg, err := shaderlab.New(e.playgroundOptions()...)
			if err != nil {
				return err
			}
			caps := dev.Capabilities()
			w, h := pg.Size()
			pg.Printer().Capabilities(caps)
			pg.Printer().Defines(shaderlab.Defines(caps, w, h))
			return pg.Printer().Err()
		},
	}
}
