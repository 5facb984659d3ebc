package shader

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Listing selects the text Disassemble produces.
type Listing uint8

const (
	// ListingAuto picks a listing from the blob's target: the text itself
	// for textual targets, HLSL for DXIL and a hex dump for SPIR-V.
	ListingAuto Listing = iota
	ListingHLSL
	ListingMSL
	ListingGLSL
	// ListingWGSL is the preprocessed source, defines included.
	ListingWGSL
	// ListingHex is a hex dump of the blob bytes.
	ListingHex
)

var listingNames = [...]string{
	ListingAuto: "auto",
	ListingHLSL: "hlsl",
	ListingMSL:  "msl",
	ListingGLSL: "glsl",
	ListingWGSL: "wgsl",
	ListingHex:  "hex",
}

func (l Listing) String() string {
	if int(l) < len(listingNames) {
		return listingNames[l]
	}
	return fmt.Sprintf("Listing(%d)", uint8(l))
}

// Language returns the name a syntax highlighter knows the listing by.
func (l Listing) Language() string {
	switch l {
	case ListingHex:
		return "hexdump"
	case ListingAuto:
		return "text"
	default:
		return l.String()
	}
}

// ParseListing parses a listing name as printed by Listing.String.
func ParseListing(s string) (Listing, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ListingAuto, nil
	}
	for i, n := range listingNames {
		if n == name {
			return Listing(i), nil
		}
	}
	return 0, fmt.Errorf("shader: unknown listing %q", s)
}

// Resolve returns the concrete listing ListingAuto stands for on b.
func (l Listing) Resolve(b *Blob) Listing {
	if l != ListingAuto {
		return l
	}
	switch b.Target {
	case TargetDXIL, TargetHLSL:
		return ListingHLSL
	case TargetMSL:
		return ListingMSL
	case TargetGLSL:
		return ListingGLSL
	default:
		return ListingHex
	}
}

// Disassemble renders b as human-readable text.
func Disassemble(b *Blob, l Listing) (string, error) {
	if b == nil {
		return "", ErrNoModule
	}
	l = l.Resolve(b)
	switch l {
	case ListingWGSL:
		return b.Source, nil
	case ListingHex:
		return hex.Dump(b.Bytes), nil
	}
	if !b.Target.Binary() && l == l.Resolve(&Blob{Target: b.Target}) {
		return string(b.Bytes), nil
	}
	if b.module == nil {
		return "", ErrNoModule
	}
	src, _, err := translate(b.module, b.module.EntryPoints[b.entry], l, b.model)
	if err != nil {
		return "", fmt.Errorf("shader: disassemble %s as %s: %w", b.EntryPoint, l, err)
	}
	return src, nil
}
