package shader

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTarget is returned by ParseTarget for an unknown name.
	ErrUnknownTarget = errors.New("shader: unknown target")

	// ErrBadShaderModel is returned for a malformed or unsupported model.
	ErrBadShaderModel = errors.New("shader: bad shader model")

	// ErrBadDefine is returned for a define whose name is not an identifier.
	ErrBadDefine = errors.New("shader: bad define")

	// ErrBadArgs is returned by ParseArgs for an argument it cannot apply.
	ErrBadArgs = errors.New("shader: bad compiler arguments")

	// ErrEncoding is returned when a source file is not valid text.
	ErrEncoding = errors.New("shader: source is not valid UTF-8 or UTF-16")

	// ErrNoModule is returned when a blob carries no compiled module.
	ErrNoModule = errors.New("shader: blob has no module")
)

// CompileError reports a failed compilation. Log holds the compiler
// diagnostics the way they are shown to the user.
type CompileError struct {
	Source     string
	EntryPoint string
	Profile    string
	Log        string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader: compile %s (%s) from %s failed", e.EntryPoint, e.Profile, e.Source)
}
