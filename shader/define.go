package shader

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Define is a preprocessor definition injected into the shader.
type Define struct {
	Name  string
	Value string
}

// Defines is an ordered list of definitions.
type Defines []Define

// String renders one "NAME = value" line per define.
func (d Defines) String() string {
	var b strings.Builder
	for _, def := range d {
		fmt.Fprintf(&b, "%s = %s\n", def.Name, def.Value)
	}
	return b.String()
}

// Lookup returns the value of the named define.
func (d Defines) Lookup(name string) (string, bool) {
	for _, def := range d {
		if def.Name == name {
			return def.Value, true
		}
	}
	return "", false
}

// With returns a copy of d with name set to value. An existing entry keeps
// its position.
func (d Defines) With(name, value string) Defines {
	out := make(Defines, len(d), len(d)+1)
	copy(out, d)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Define{Name: name, Value: value})
}

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	floatRe = regexp.MustCompile(`^-?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][+-]?\d+)?$`)
)

func isHex(v string) bool {
	if len(v) < 3 || (v[:2] != "0x" && v[:2] != "0X") {
		return false
	}
	_, err := strconv.ParseUint(v[2:], 16, 32)
	return err == nil
}

// declaration renders a define as a WGSL module-scope constant.
func (d Define) declaration() (string, error) {
	if !identRe.MatchString(d.Name) || d.Name == "_" {
		return "", fmt.Errorf("%w: %q is not an identifier", ErrBadDefine, d.Name)
	}
	v := strings.TrimSpace(d.Value)
	if v == "" {
		v = "1"
	}
	if isHex(v) {
		return fmt.Sprintf("const %s: u32 = %su;", d.Name, v), nil
	}
	if _, err := strconv.ParseUint(v, 10, 32); err == nil {
		return fmt.Sprintf("const %s: u32 = %su;", d.Name, v), nil
	}
	if _, err := strconv.ParseInt(v, 10, 32); err == nil {
		return fmt.Sprintf("const %s: i32 = %si;", d.Name, v), nil
	}
	if floatRe.MatchString(v) {
		if !strings.ContainsAny(v, ".eE") {
			v += ".0"
		}
		return fmt.Sprintf("const %s: f32 = %sf;", d.Name, v), nil
	}
	if v == "true" || v == "false" {
		return fmt.Sprintf("const %s: bool = %s;", d.Name, v), nil
	}
	return fmt.Sprintf("const %s = %s;", d.Name, v), nil
}

// preprocess appends the defines the source does not declare itself.
// It returns the text handed to the compiler and the names it skipped.
func preprocess(text string, defines Defines) (string, []string, error) {
	if len(defines) == 0 {
		return text, nil, nil
	}
	var b strings.Builder
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	var skipped []string
	for _, def := range defines {
		decl, err := def.declaration()
		if err != nil {
			return "", nil, err
		}
		if declares(text, def.Name) {
			skipped = append(skipped, def.Name)
			continue
		}
		b.WriteString(decl)
		b.WriteByte('\n')
	}
	return b.String(), skipped, nil
}

func declares(text, name string) bool {
	re := regexp.MustCompile(`(?m)^\s*(?:const|override)\s+` + regexp.QuoteMeta(name) + `\b`)
	return re.MatchString(text)
}
