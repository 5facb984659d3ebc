package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func loadFill(t *testing.T) Source {
	t.Helper()
	src, err := LoadSource("testdata/fill.wgsl")
	require.NoError(t, err)
	return src
}

func TestCompileSPIRV(t *testing.T) {
	src := loadFill(t)
	b, err := Compile(src, "ps_main", StagePixel, WithDefine("WAVE_LANE_COUNT_MIN", "32"))
	require.NoError(t, err)

	assert.Equal(t, "ps_main", b.EntryPoint)
	assert.Equal(t, TargetSPIRV, b.Target)
	assert.Equal(t, "ps_spirv_1_3", b.Profile)
	require.GreaterOrEqual(t, len(b.Bytes), 20)
	magic := uint32(b.Bytes[0]) | uint32(b.Bytes[1])<<8 | uint32(b.Bytes[2])<<16 | uint32(b.Bytes[3])<<24
	assert.Equal(t, uint32(0x07230203), magic)
	assert.Contains(t, b.Source, "const WAVE_LANE_COUNT_MIN: u32 = 32u;")
	assert.Empty(t, b.Skipped)
}

func TestCompileVertex(t *testing.T) {
	src := loadFill(t)
	b, err := Compile(src, "vs_main", StageVertex, WithDefine("WAVE_LANE_COUNT_MIN", "4"))
	require.NoError(t, err)
	assert.Equal(t, StageVertex, b.Stage)
	assert.Equal(t, "vs_spirv_1_3", b.Profile)
}

func TestCompileMissingDefine(t *testing.T) {
	src := loadFill(t)
	_, err := Compile(src, "ps_main", StagePixel)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fill.wgsl", ce.Source)
	assert.Equal(t, "ps_main", ce.EntryPoint)
	assert.NotEmpty(t, ce.Log)
	assert.True(t, strings.HasSuffix(ce.Log, "\n"))
}

func TestCompileEntryPoint(t *testing.T) {
	src := loadFill(t)
	defs := WithDefine("WAVE_LANE_COUNT_MIN", "32")

	_, err := Compile(src, "nope", StagePixel, defs)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Log, `entry point "nope" not found`)

	_, err = Compile(src, "vs_main", StagePixel, defs)
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Log, "not a fragment entry point")
	assert.Equal(t, "ps_spirv_1_3", ce.Profile)
}

func TestCompileSyntaxError(t *testing.T) {
	src := Source{Name: "broken.wgsl", Text: "@fragment fn ps_main( -> {"}
	_, err := Compile(src, "ps_main", StagePixel)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Log, "broken.wgsl: ")
	assert.Contains(t, err.Error(), "ps_main")
}

func TestCompileBadDefine(t *testing.T) {
	_, err := Compile(loadFill(t), "ps_main", StagePixel, WithDefine("1BAD", "2"))
	assert.ErrorIs(t, err, ErrBadDefine)
}

func TestCompileSkipsDeclaredDefine(t *testing.T) {
	src := Source{Name: "own.wgsl", Text: `const WAVE_LANE_COUNT_MIN: u32 = 8u;
` + loadFill(t).Text}
	b, err := Compile(src, "ps_main", StagePixel, WithDefine("WAVE_LANE_COUNT_MIN", "32"))
	require.NoError(t, err)
	assert.Equal(t, []string{"WAVE_LANE_COUNT_MIN"}, b.Skipped)
	assert.NotContains(t, b.Source, "32u")
}

func TestDefineDeclaration(t *testing.T) {
	tests := []struct {
		name, value, want string
	}{
		{"A", "32", "const A: u32 = 32u;"},
		{"A", "", "const A: u32 = 1u;"},
		{"A", "0x20", "const A: u32 = 0x20u;"},
		{"A", "-4", "const A: i32 = -4i;"},
		{"A", "1.5", "const A: f32 = 1.5f;"},
		{"A", "1e3", "const A: f32 = 1e3f;"},
		{"A", "5000000000", "const A: f32 = 5000000000.0f;"},
		{"A", "true", "const A: bool = true;"},
		{"A", "vec2<f32>(1.0, 2.0)", "const A = vec2<f32>(1.0, 2.0);"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := Define{Name: tt.name, Value: tt.value}.declaration()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "_", "9A", "A-B"} {
		_, err := Define{Name: bad, Value: "1"}.declaration()
		assert.ErrorIs(t, err, ErrBadDefine, "name %q", bad)
	}
}

func TestDefines(t *testing.T) {
	var d Defines
	d = d.With("WIDTH", "8").With("HEIGHT", "4")
	d2 := d.With("WIDTH", "16")

	assert.Equal(t, "WIDTH = 8\nHEIGHT = 4\n", d.String())
	assert.Equal(t, "WIDTH = 16\nHEIGHT = 4\n", d2.String())

	v, ok := d2.Lookup("HEIGHT")
	assert.True(t, ok)
	assert.Equal(t, "4", v)
	_, ok = d2.Lookup("DEPTH")
	assert.False(t, ok)
}

func TestPreprocessKeepsLines(t *testing.T) {
	text := "fn a() {}\nfn b() {}"
	out, skipped, err := preprocess(text, Defines{{Name: "N", Value: "3"}})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.True(t, strings.HasPrefix(out, text+"\n"))
	assert.True(t, strings.HasSuffix(out, "const N: u32 = 3u;\n"))

	out, _, err = preprocess(text, nil)
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestParseArgs(t *testing.T) {
	opts, err := ParseArgs(`-T ps_6_5 -D A=1 -DB="two words" -DC -Zi -O3 -HV 2021 -Vd`)
	require.NoError(t, err)

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, TargetDXIL, o.Target)
	assert.Equal(t, ShaderModel{6, 5}, o.ShaderModel)
	assert.Equal(t, Defines{{"A", "1"}, {"B", "two words"}, {"C", "1"}}, o.Defines)
	assert.True(t, o.Debug)
	assert.False(t, o.Validate)

	opts, err = ParseArgs("--target msl")
	require.NoError(t, err)
	o = defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, TargetMSL, o.Target)

	for _, level := range []string{"-O0", "-O1", "-O2", "-O3", "-Od"} {
		opts, err := ParseArgs(level)
		require.NoError(t, err, level)
		assert.Empty(t, opts, "%s has no compile setting", level)
	}

	for _, bad := range []string{"-T", "-T vs_9_9", "--target dxbc", "-Fo out.bin", `-D "unterminated`, "-O4", "-Ofast"} {
		_, err := ParseArgs(bad)
		assert.ErrorIs(t, err, ErrBadArgs, "args %q", bad)
	}
}

func TestParseShaderModel(t *testing.T) {
	for in, want := range map[string]ShaderModel{
		"6_7":    {6, 7},
		"6.0":    {6, 0},
		"ps_6_8": {6, 8},
		"vs_5_1": {5, 1},
	} {
		got, err := ParseShaderModel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "6", "7_0", "5_2", "6_9", "ps_x_y", "4_0"} {
		_, err := ParseShaderModel(bad)
		assert.ErrorIs(t, err, ErrBadShaderModel, bad)
	}
}

func TestProfile(t *testing.T) {
	assert.Equal(t, "ps_6_7", Profile(StagePixel, TargetDXIL, DefaultShaderModel))
	assert.Equal(t, "vs_6_0", Profile(StageVertex, TargetHLSL, ShaderModel{6, 0}))
	assert.Equal(t, "ps_spirv_1_3", Profile(StagePixel, TargetSPIRV, DefaultShaderModel))
	assert.Equal(t, "ps_msl_2_1", Profile(StagePixel, TargetMSL, DefaultShaderModel))
	assert.Equal(t, "vs_glsl_330", Profile(StageVertex, TargetGLSL, DefaultShaderModel))
}

func TestParseTarget(t *testing.T) {
	for _, tg := range []Target{TargetSPIRV, TargetDXIL, TargetHLSL, TargetMSL, TargetGLSL} {
		got, err := ParseTarget(strings.ToUpper(tg.String()))
		require.NoError(t, err)
		assert.Equal(t, tg, got)
	}
	_, err := ParseTarget("spv")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.True(t, TargetDXIL.Binary())
	assert.False(t, TargetMSL.Binary())
}

func TestShaderModelMapping(t *testing.T) {
	_, err := ShaderModel{5, 1}.dxil()
	assert.ErrorIs(t, err, ErrBadShaderModel)

	sm, err := ShaderModel{6, 6}.dxil()
	require.NoError(t, err)
	assert.Equal(t, uint32(6), sm.Major)
	assert.Equal(t, uint32(6), sm.Minor)
}

func TestReflectPlain(t *testing.T) {
	b, err := Compile(loadFill(t), "ps_main", StagePixel, WithDefine("WAVE_LANE_COUNT_MIN", "32"))
	require.NoError(t, err)
	r := Reflect(b)
	assert.Equal(t, Requires(0), r)
	assert.Equal(t, 0, r.Flag(RequiresWaveOps))
	assert.Equal(t, 0, r.Flag(RequiresDoubles))
	assert.Equal(t, Requires(0), Reflect(nil))
}

func TestRequires(t *testing.T) {
	r := RequiresWaveOps | RequiresInt64
	assert.True(t, r.Has(RequiresWaveOps))
	assert.False(t, r.Has(RequiresDoubles))
	assert.Equal(t, 1, r.Flag(RequiresInt64))
	assert.Equal(t, "wave_ops|int64_ops", r.String())
	assert.Equal(t, "none", Requires(0).String())
	assert.Equal(t, "D3D_SHADER_REQUIRES_WAVE_OPS", RequiresWaveOps.Name())
	assert.Equal(t, "D3D_SHADER_REQUIRES_DOUBLES", RequiresDoubles.Name())
	assert.Equal(t, "", r.Name())
	assert.Len(t, AllRequires(), 4)
}

func TestDisassemble(t *testing.T) {
	b, err := Compile(loadFill(t), "ps_main", StagePixel, WithDefine("WAVE_LANE_COUNT_MIN", "32"))
	require.NoError(t, err)

	text, err := Disassemble(b, ListingAuto)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "00000000  03 02 23 07"), text)

	text, err = Disassemble(b, ListingWGSL)
	require.NoError(t, err)
	assert.Equal(t, b.Source, text)

	_, err = Disassemble(nil, ListingAuto)
	assert.ErrorIs(t, err, ErrNoModule)
	_, err = Disassemble(&Blob{Target: TargetSPIRV}, ListingHLSL)
	assert.ErrorIs(t, err, ErrNoModule)
}

func TestListing(t *testing.T) {
	l, err := ParseListing("HLSL")
	require.NoError(t, err)
	assert.Equal(t, ListingHLSL, l)
	l, err = ParseListing("")
	require.NoError(t, err)
	assert.Equal(t, ListingAuto, l)
	_, err = ParseListing("dxbc")
	assert.Error(t, err)

	assert.Equal(t, ListingHLSL, ListingAuto.Resolve(&Blob{Target: TargetDXIL}))
	assert.Equal(t, ListingHex, ListingAuto.Resolve(&Blob{Target: TargetSPIRV}))
	assert.Equal(t, ListingGLSL, ListingAuto.Resolve(&Blob{Target: TargetGLSL}))
	assert.Equal(t, "hexdump", ListingHex.Language())
}

func TestDecodeSource(t *testing.T) {
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := utf16.Bytes([]byte("fn f() {}\n"))
	require.NoError(t, err)

	src, err := DecodeSource("wide.wgsl", data)
	require.NoError(t, err)
	assert.Equal(t, "fn f() {}\n", src.Text)
	assert.Equal(t, "wide.wgsl", src.Name)

	src, err = DecodeSource("bom.wgsl", append([]byte{0xEF, 0xBB, 0xBF}, "x"...))
	require.NoError(t, err)
	assert.Equal(t, "x", src.Text)

	_, err = DecodeSource("latin1.wgsl", []byte("// caf\xe9\nfn f() {}\n"))
	assert.ErrorIs(t, err, ErrEncoding)
	_, err = DecodeSource("bom-latin1.wgsl", append([]byte{0xEF, 0xBB, 0xBF}, 'x', 0xFF))
	assert.ErrorIs(t, err, ErrEncoding)

	_, err = LoadSource("testdata/missing.wgsl")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrEncoding))
}
