package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/naga/dxil"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
)

// Stage identifies the pipeline stage an entry point runs in.
type Stage uint8

const (
	// StageVertex is a vertex shader entry point (@vertex).
	StageVertex Stage = iota
	// StagePixel is a pixel (fragment) shader entry point (@fragment).
	StagePixel
)

// String returns the D3D profile prefix of the stage.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vs"
	case StagePixel:
		return "ps"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

func (s Stage) irStage() ir.ShaderStage {
	if s == StageVertex {
		return ir.StageVertex
	}
	return ir.StageFragment
}

// Target selects the bytecode a blob carries.
type Target uint8

const (
	// TargetSPIRV emits SPIR-V 1.3 words.
	TargetSPIRV Target = iota
	// TargetDXIL emits a signed DXIL container.
	TargetDXIL
	// TargetHLSL emits HLSL source text.
	TargetHLSL
	// TargetMSL emits Metal Shading Language source text.
	TargetMSL
	// TargetGLSL emits GLSL 3.30 source text.
	TargetGLSL
)

var targetNames = [...]string{
	TargetSPIRV: "spirv",
	TargetDXIL:  "dxil",
	TargetHLSL:  "hlsl",
	TargetMSL:   "msl",
	TargetGLSL:  "glsl",
}

func (t Target) String() string {
	if int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("Target(%d)", uint8(t))
}

// Binary reports whether the target output is bytecode rather than text.
func (t Target) Binary() bool {
	return t == TargetSPIRV || t == TargetDXIL
}

// ParseTarget parses a target name as printed by Target.String.
// "spv" and "dxbc" style aliases are not accepted.
func ParseTarget(s string) (Target, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range targetNames {
		if n == name {
			return Target(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
}

// ShaderModel is a D3D shader model version. It labels every blob's
// profile and selects the DXIL and HLSL feature level.
type ShaderModel struct {
	Major uint8
	Minor uint8
}

// DefaultShaderModel is shader model 6.7.
var DefaultShaderModel = ShaderModel{Major: 6, Minor: 7}

// String returns the model as "6_7".
func (m ShaderModel) String() string {
	return fmt.Sprintf("%d_%d", m.Major, m.Minor)
}

// ParseShaderModel accepts "6_7", "6.7" or a full profile such as "ps_6_7".
func ParseShaderModel(s string) (ShaderModel, error) {
	v := strings.TrimSpace(s)
	if i := strings.IndexByte(v, '_'); i == 2 && len(v) > 3 && (v[0] < '0' || v[0] > '9') {
		v = v[3:]
	}
	v = strings.ReplaceAll(v, ".", "_")
	major, minor, ok := strings.Cut(v, "_")
	if !ok {
		return ShaderModel{}, fmt.Errorf("%w: %q", ErrBadShaderModel, s)
	}
	ma, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return ShaderModel{}, fmt.Errorf("%w: %q", ErrBadShaderModel, s)
	}
	mi, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return ShaderModel{}, fmt.Errorf("%w: %q", ErrBadShaderModel, s)
	}
	m := ShaderModel{Major: uint8(ma), Minor: uint8(mi)}
	if m.Major < 5 || m.Major > 6 || (m.Major == 5 && m.Minor > 1) || (m.Major == 6 && m.Minor > 8) {
		return ShaderModel{}, fmt.Errorf("%w: %q", ErrBadShaderModel, s)
	}
	return m, nil
}

// Profile returns the profile string recorded on a blob, e.g. "ps_6_7"
// for DXIL and HLSL or "ps_spirv_1_3" for SPIR-V.
func Profile(stage Stage, target Target, model ShaderModel) string {
	switch target {
	case TargetDXIL, TargetHLSL:
		return stage.String() + "_" + model.String()
	case TargetSPIRV:
		return stage.String() + "_spirv_1_3"
	case TargetMSL:
		return stage.String() + "_msl_2_1"
	case TargetGLSL:
		return stage.String() + "_glsl_330"
	default:
		return stage.String()
	}
}

func (m ShaderModel) hlsl() hlsl.ShaderModel {
	if m.Major < 6 {
		if m.Minor == 0 {
			return hlsl.ShaderModel5_0
		}
		return hlsl.ShaderModel5_1
	}
	minor := m.Minor
	if minor > 7 {
		minor = 7
	}
	return hlsl.ShaderModel6_0 + hlsl.ShaderModel(minor)
}

func (m ShaderModel) dxil() (dxil.ShaderModel, error) {
	if m.Major < 6 {
		return dxil.ShaderModel{}, fmt.Errorf("%w: dxil needs shader model 6.0 or newer, got %s", ErrBadShaderModel, m)
	}
	return dxil.ShaderModel{Major: uint32(m.Major), Minor: uint32(m.Minor)}, nil
}
