// Package shader compiles playground shaders and inspects the results.
//
// Shaders are written in WGSL and compiled with naga. The package adds the
// pieces a shader scratchpad needs on top of the compiler:
//
//   - Preprocessor defines. Each [Define] becomes a module-scope constant
//     appended after the user source, so the shader can branch on device
//     limits at compile time. WGSL declarations are order independent, so
//     diagnostics keep the line numbers of the file on disk.
//   - Compile targets. A [Blob] holds SPIR-V, DXIL, HLSL, MSL or GLSL
//     output for a single entry point, labelled with a D3D-style profile
//     such as "ps_6_7".
//   - Reflection. [Reflect] reports the hardware features a compiled entry
//     point requires (wave operations, doubles, 64-bit integers, halfs).
//   - Listings. [Disassemble] renders a blob as human-readable text.
//
// Quick start:
//
//	src, err := shader.LoadSource("Shader.wgsl")
//	if err != nil {
//	    return err
//	}
//	ps, err := shader.Compile(src, "ps_main", shader.StagePixel,
//	    shader.WithTarget(shader.TargetDXIL),
//	    shader.WithDefine("TARGET_SIZE_X", "8"),
//	)
//	var cerr *shader.CompileError
//	if errors.As(err, &cerr) {
//	    fmt.Print(cerr.Log)
//	}
package shader
