package shader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Source is shader text together with the name used in diagnostics.
type Source struct {
	Name string
	Text string
}

// LoadSource reads a shader file. A UTF-8 or UTF-16 byte order mark is
// honored and stripped; text without a mark must be UTF-8.
func LoadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("shader: read source: %w", err)
	}
	return DecodeSource(filepath.Base(path), data)
}

// DecodeSource decodes raw file bytes into a Source. Bytes without a
// UTF-16 byte order mark must be valid UTF-8.
func DecodeSource(name string, data []byte) (Source, error) {
	if !hasUTF16BOM(data) && !utf8.Valid(data) {
		return Source{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrEncoding, name)
	}
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, _, err := transform.Bytes(dec, data)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %s: %w", ErrEncoding, name, err)
	}
	return Source{Name: name, Text: string(text)}, nil
}

func hasUTF16BOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xFE, 0xFF}) || bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}
