package gpu

import (
	"encoding/binary"
	"fmt"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// spirvHeaderWords is the length of the SPIR-V module header.
const spirvHeaderWords = 5

// SPIRVWords decodes little-endian SPIR-V bytecode into words. The input
// must be whole words, hold at least a module header and start with the
// SPIR-V magic number.
func SPIRVWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of words", ErrBadBytecode, len(b))
	}
	if len(b) < spirvHeaderWords*4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than a module header", ErrBadBytecode, len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("%w: magic %#08x", ErrBadBytecode, words[0])
	}
	return words, nil
}
