package cpu

import (
	"encoding/binary"
	"iter"
)

// Program is an assembled listing: the load origin plus the opcodes
// produced for each source line.
type Program struct {
	Origin  uint16
	Opcodes []Opcode
}

// Opcode is one assembled source line.
type Opcode struct {
	LineNo int      // Source line number, 1 based.
	Addr   uint16   // Address of the line's first word.
	Words  []string // Source tokens.
	Codes  []uint16 // Assembled machine words.
}

// Size returns the number of assembled words.
func (prog *Program) Size() (size int) {
	for _, op := range prog.Opcodes {
		size += len(op.Codes)
	}

	return
}

// Words iterates the assembled words with their load addresses.
func (prog *Program) Words() iter.Seq2[uint16, uint16] {
	return func(yield func(addr uint16, word uint16) bool) {
		for _, op := range prog.Opcodes {
			for n, word := range op.Codes {
				if !yield(op.Addr+uint16(n), word) {
					return
				}
			}
		}
	}
}

// Binary serializes the program into the object image format consumed by
// the loader: big-endian 16-bit words, the load origin first.
func (prog *Program) Binary() (image []byte) {
	image = binary.BigEndian.AppendUint16(image, prog.Origin)
	for _, word := range prog.Words() {
		image = binary.BigEndian.AppendUint16(image, word)
	}

	return
}

// Debug returns the opcode covering an address, for mapping a runtime
// fault back to its source line. Returns nil when no line covers addr.
func (prog *Program) Debug(addr uint16) (op *Opcode) {
	for n := range prog.Opcodes {
		candidate := &prog.Opcodes[n]
		if addr >= candidate.Addr && addr < candidate.Addr+uint16(len(candidate.Codes)) {
			op = candidate
			break
		}
	}

	return
}
