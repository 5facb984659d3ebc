package commands

import (
	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlab"
)

func (e *env) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Draw one frame and print every pixel",
		Args:  cobra.NoArgs,
		RunE:  e.runRun,
	}
}

func (e *env) runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dev, release, err := e.device(ctx)
	if err != nil {
		return err
	}
	defer release()

	pg, err := shaderlab.New(append(e.playgroundOptions(), shaderlab.WithDevice(dev))...)
	if err != nil {
		return err
	}
	_, err = pg.Run(ctx)
	return err
}
