package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/shader"
)

func (e *env) compileCommand() *cobra.Command {
	var onDevice bool
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile without drawing and print listings",
		Long: `compile builds the vertex and pixel entry points and prints the
required features, a listing of every pixel shader and the blob sizes.
Lane count defines come from the configured overrides unless --on-device
queries the adapter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := shader.ParseListing(e.cfg.Shader.Listing)
			if err != nil {
				return err
			}
			caps := shaderlab.OfflineCapabilities(e.cfg.GPU().Lanes)
			if onDevice {
				dev, release, err := e.device(cmd.Context())
				if err != nil {
					return err
				}
				caps = dev.Capabilities()
				release()
			}

			pg, err := shaderlab.New(append(e.playgroundOptions(), shaderlab.WithDisassembly(listing))...)
			if err != nil {
				return err
			}
			prog, err := pg.Build(caps)
			if err != nil {
				if errors.Is(err, shaderlab.ErrCompile) && !e.cfg.Output.Strict {
					return pg.Printer().Err()
				}
				return err
			}
			for _, b := range prog.Blobs() {
				pg.Printer().Heading(fmt.Sprintf("%s %s: %d bytes", b.EntryPoint, b.Profile, len(b.Bytes)))
			}
			return pg.Printer().Err()
		},
	}
	cmd.Flags().BoolVar(&onDevice, "on-device", false, "query lane counts from the adapter")
	return cmd
}
