package cpu

// OpCode is the 4-bit instruction family selector occupying bits 12-15 of
// an instruction word. The constant values equal the field values, so
// twelve right shifts on a word leave its opcode.
type OpCode uint16

const (
	OP_BR     OpCode = iota // conditional branch
	OP_ADD                  // add register or immediate
	OP_LD                   // load
	OP_ST                   // store
	OP_JSR                  // jump to subroutine
	OP_AND                  // bitwise and register or immediate
	OP_LDR                  // load base+offset
	OP_STR                  // store base+offset
	OP_UNUSED               // unused, never produced
	OP_NOT                  // bitwise complement
	OP_LDI                  // load indirect
	OP_STI                  // store indirect
	OP_JMP                  // jump
	OP_RES                  // reserved, never produced
	OP_LEA                  // load effective address
	OP_TRAP                 // trap to a service routine
)

// CondFlag is the condition code register: a 3-bit set recording whether
// the last register write was positive, zero, or negative. Exactly one
// bit is set after every register write; Branch instructions carry a
// 3-bit mask of the same shape and test it by intersection.
type CondFlag uint16

const (
	FLAG_POS  CondFlag = 1 << 0
	FLAG_ZERO CondFlag = 1 << 1
	FLAG_NEG  CondFlag = 1 << 2

	FLAG_ANY = FLAG_POS | FLAG_ZERO | FLAG_NEG
)

// condFor derives the condition flag for a freshly written register value.
func condFor(value uint16) CondFlag {
	if value == 0 {
		return FLAG_ZERO
	}
	if value>>15 == 1 {
		return FLAG_NEG
	}
	return FLAG_POS
}

// Test reports whether the current flag is within the mask.
func (flag CondFlag) Test(mask CondFlag) bool {
	return flag&mask != 0
}

// String returns the branch-suffix form of the flag set, e.g. "nzp".
func (flag CondFlag) String() (text string) {
	if flag&FLAG_NEG != 0 {
		text += "n"
	}
	if flag&FLAG_ZERO != 0 {
		text += "z"
	}
	if flag&FLAG_POS != 0 {
		text += "p"
	}
	return
}

// TrapCode identifies one of the six console service routines, by its
// 8-bit trap vector.
type TrapCode uint16

const (
	TRAP_GETC  TrapCode = 0x20 // read one byte into R0, no echo
	TRAP_OUT   TrapCode = 0x21 // write the low byte of R0
	TRAP_PUTS  TrapCode = 0x22 // write a NUL-terminated word string at R0
	TRAP_IN    TrapCode = 0x23 // prompt, then read one byte into R0
	TRAP_PUTSP TrapCode = 0x24 // write a NUL-terminated packed byte string at R0
	TRAP_HALT  TrapCode = 0x25 // print a notice and stop the machine
)

var trapNames = map[TrapCode]string{
	TRAP_GETC:  "GETC",
	TRAP_OUT:   "OUT",
	TRAP_PUTS:  "PUTS",
	TRAP_IN:    "IN",
	TRAP_PUTSP: "PUTSP",
	TRAP_HALT:  "HALT",
}

// String returns the assembler alias for the trap code.
func (code TrapCode) String() string {
	name, ok := trapNames[code]
	if !ok {
		name = f("TRAP x%02X", uint16(code))
	}
	return name
}

// trapCodeOf maps a trap vector byte to its TrapCode.
func trapCodeOf(vect8 uint16) (code TrapCode, err error) {
	code = TrapCode(vect8)
	if _, ok := trapNames[code]; !ok {
		err = ErrUnknownTrapCode(vect8)
	}
	return
}

// getBitField returns bits [start, end) of a word.
//
// Bits are 0 indexed. start is inclusive and end is exclusive.
func getBitField(word uint16, start, end uint) uint16 {
	return (word >> start) & ^(uint16(0xFFFF) << (end - start))
}

// setBitField ORs the least significant bits of field into word at start.
//
// Bits are 0 indexed. start is inclusive.
func setBitField(word uint16, field uint16, start uint) uint16 {
	return word | (field << start)
}

// signExtend widens a two's-complement field of the given bit width to 16
// bits: if the field's most significant bit is set, all higher-order bits
// of the result are set.
func signExtend(value uint16, width uint) uint16 {
	if (value>>(width-1))&0x1 == 1 {
		value |= 0xFFFF << width
	}
	return value
}
