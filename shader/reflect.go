package shader

import (
	"strings"

	"github.com/gogpu/naga/ir"
)

// Requires is a set of hardware features a compiled entry point needs.
type Requires uint32

const (
	// RequiresWaveOps is set when the entry point uses subgroup (wave)
	// operations or subgroup builtins.
	RequiresWaveOps Requires = 1 << iota
	// RequiresDoubles is set when the entry point uses f64 values.
	RequiresDoubles
	// RequiresInt64 is set when the entry point uses 64-bit integers.
	RequiresInt64
	// RequiresFloat16 is set when the entry point uses f16 values.
	RequiresFloat16
)

var requiresNames = []struct {
	flag Requires
	name string
}{
	{RequiresWaveOps, "WAVE_OPS"},
	{RequiresDoubles, "DOUBLES"},
	{RequiresInt64, "INT64_OPS"},
	{RequiresFloat16, "NATIVE_16BIT_OPS"},
}

// Has reports whether all flags in f are set.
func (r Requires) Has(f Requires) bool { return r&f == f }

// Flag returns 1 when f is set and 0 otherwise.
func (r Requires) Flag(f Requires) int {
	if r.Has(f) {
		return 1
	}
	return 0
}

// Name returns the D3D name of a single flag, e.g.
// "D3D_SHADER_REQUIRES_WAVE_OPS".
func (r Requires) Name() string {
	for _, n := range requiresNames {
		if n.flag == r {
			return "D3D_SHADER_REQUIRES_" + n.name
		}
	}
	return ""
}

// AllRequires lists the flags in report order.
func AllRequires() []Requires {
	out := make([]Requires, len(requiresNames))
	for i, n := range requiresNames {
		out[i] = n.flag
	}
	return out
}

func (r Requires) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, n := range requiresNames {
		if r.Has(n.flag) {
			parts = append(parts, strings.ToLower(n.name))
		}
	}
	return strings.Join(parts, "|")
}

// Reflect reports the features the blob's entry point requires. Only code
// reachable from the entry point is considered.
func Reflect(b *Blob) Requires {
	if b == nil || b.module == nil {
		return 0
	}
	w := reflector{
		m:         b.module,
		seenTypes: make(map[ir.TypeHandle]bool),
		seenFuncs: make(map[ir.FunctionHandle]bool),
	}
	ep := &b.module.EntryPoints[b.entry]
	w.function(&ep.Function)
	return w.req
}

type reflector struct {
	m         *ir.Module
	req       Requires
	seenTypes map[ir.TypeHandle]bool
	seenFuncs map[ir.FunctionHandle]bool
}

func (w *reflector) function(f *ir.Function) {
	for _, arg := range f.Arguments {
		w.binding(arg.Binding)
		w.typ(arg.Type)
	}
	if f.Result != nil {
		w.binding(f.Result.Binding)
		w.typ(f.Result.Type)
	}
	for _, lv := range f.LocalVars {
		w.typ(lv.Type)
	}
	for _, res := range f.ExpressionTypes {
		if res.Handle != nil {
			w.typ(*res.Handle)
		} else if res.Value != nil {
			w.inner(res.Value)
		}
	}
	for _, e := range f.Expressions {
		w.expression(e)
	}
	w.block(f.Body)
}

func (w *reflector) expression(e ir.Expression) {
	switch k := e.Kind.(type) {
	case ir.Literal:
		switch k.Value.(type) {
		case ir.LiteralF64:
			w.req |= RequiresDoubles
		case ir.LiteralF16:
			w.req |= RequiresFloat16
		case ir.LiteralI64, ir.LiteralU64:
			w.req |= RequiresInt64
		}
	case ir.ExprSubgroupBallotResult, ir.ExprSubgroupOperationResult:
		w.req |= RequiresWaveOps
	}
}

func (w *reflector) block(b ir.Block) {
	for _, s := range b {
		switch k := s.Kind.(type) {
		case ir.StmtBlock:
			w.block(k.Block)
		case ir.StmtIf:
			w.block(k.Accept)
			w.block(k.Reject)
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				w.block(c.Body)
			}
		case ir.StmtLoop:
			w.block(k.Body)
			w.block(k.Continuing)
		case ir.StmtSubgroupBallot, ir.StmtSubgroupCollectiveOperation, ir.StmtSubgroupGather:
			w.req |= RequiresWaveOps
		case ir.StmtCall:
			if w.seenFuncs[k.Function] || int(k.Function) >= len(w.m.Functions) {
				continue
			}
			w.seenFuncs[k.Function] = true
			w.function(&w.m.Functions[k.Function])
		}
	}
}

func (w *reflector) binding(b *ir.Binding) {
	if b == nil {
		return
	}
	bb, ok := (*b).(ir.BuiltinBinding)
	if !ok {
		return
	}
	switch bb.Builtin {
	case ir.BuiltinSubgroupSize, ir.BuiltinSubgroupInvocationID, ir.BuiltinSubgroupID, ir.BuiltinNumSubgroups:
		w.req |= RequiresWaveOps
	}
}

func (w *reflector) typ(h ir.TypeHandle) {
	if w.seenTypes[h] || int(h) >= len(w.m.Types) {
		return
	}
	w.seenTypes[h] = true
	w.inner(w.m.Types[h].Inner)
}

func (w *reflector) inner(t ir.TypeInner) {
	switch k := t.(type) {
	case ir.ScalarType:
		w.scalar(k)
	case ir.VectorType:
		w.scalar(k.Scalar)
	case ir.MatrixType:
		w.scalar(k.Scalar)
	case ir.AtomicType:
		w.scalar(k.Scalar)
	case ir.ArrayType:
		w.typ(k.Base)
	case ir.BindingArrayType:
		w.typ(k.Base)
	case ir.PointerType:
		w.typ(k.Base)
	case ir.StructType:
		for _, m := range k.Members {
			w.binding(m.Binding)
			w.typ(m.Type)
		}
	}
}

func (w *reflector) scalar(s ir.ScalarType) {
	switch {
	case s.Kind == ir.ScalarFloat && s.Width == 8:
		w.req |= RequiresDoubles
	case s.Kind == ir.ScalarFloat && s.Width == 2:
		w.req |= RequiresFloat16
	case (s.Kind == ir.ScalarSint || s.Kind == ir.ScalarUint) && s.Width == 8:
		w.req |= RequiresInt64
	}
}
