//go:build nogpu

package window

import (
	"context"

	"github.com/gogpu/shaderlab"
	"github.com/gogpu/shaderlab/internal/gpu"
)

// Config describes the window and the playground shown in it.
type Config struct {
	Title   string
	Width   int
	Height  int
	Scale   int
	Options []shaderlab.Option
}

// Run always fails in nogpu builds.
func Run(context.Context, Config) error {
	return gpu.ErrNoGPU
}
