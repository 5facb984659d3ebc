package shaderlab

import "errors"

var (
	// ErrCompile wraps a *shader.CompileError returned by Run in strict
	// mode, and by Build.
	ErrCompile = errors.New("shaderlab: shader compile failed")

	// ErrNoPixelEntry is returned when no pixel entry point is configured.
	ErrNoPixelEntry = errors.New("shaderlab: no pixel entry point")

	// ErrInvalidSize is returned for a zero-sized render target.
	ErrInvalidSize = errors.New("shaderlab: invalid target size")
)
