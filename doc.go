// Package shaderlab is a pixel-shader playground.
//
// A Playground compiles a WGSL file with a fixed set of defines (target
// size and the adapter's wave lane counts), reports the features the pixel
// shader requires, renders one full-screen triangle into a small RGBA32F
// target and prints every pixel as read back from the GPU:
//
//	TARGET_SIZE_X = 8
//	TARGET_SIZE_Y = 4
//	WAVE_LANE_COUNT_MIN = 32
//	...
//
//	D3D_SHADER_REQUIRES_WAVE_OPS = 0
//	D3D_SHADER_REQUIRES_DOUBLES = 0
//	...
//
//	rtv[0, 0] = 0.062, 0.125, 0.500, 1.000
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/shaderlab"
//	    _ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
//	pg, err := shaderlab.New(shaderlab.WithOutput(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := pg.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Synchronization
//
// Work is strictly serial. Each frame is recorded, submitted, fenced and
// waited for before the CPU touches the readback buffer or records again.
// The wait has no timeout; only the context ends it early.
//
// # Architecture
//
//   - shader: WGSL compile with defines, reflection, disassembly
//   - internal/gpu: device abstraction over gogpu/wgpu
//   - internal/frame: target, readback, recording and fence waits
//   - internal/report: console output, PNG previews, yaml/toml export
//   - integration/window: the interactive present loop
package shaderlab
