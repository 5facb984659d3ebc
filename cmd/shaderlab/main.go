// Command shaderlab compiles a pixel shader, draws it over a small render
// target and prints the pixels it produced.
//
// Usage:
//
//	shaderlab [run] [flags]     one frame, print every pixel
//	shaderlab window [flags]    present frames in a window
//	shaderlab watch [flags]     rerun whenever the shader changes
//	shaderlab compile [flags]   compile only and print listings
//	shaderlab device [flags]    print the adapter and the defines
package main

import (
	"context"
	"os"
	"os/signal"

	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/shaderlab/cmd/shaderlab/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := commands.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
