package cpu

import (
	"fmt"
)

// Instruction is one decoded machine instruction. The set of variants is
// closed: every instruction the architecture defines is one of the
// seventeen types in this package. Instructions are transient values
// produced by Decode and consumed by the engine; they hold no state.
type Instruction interface {
	// Encode packs the instruction back into its 16-bit word form.
	Encode() uint16
	// String renders the instruction in assembly form.
	String() string

	instruction()
}

func (AddImmediate) instruction()           {}
func (AddRegister) instruction()            {}
func (AndImmediate) instruction()           {}
func (AndRegister) instruction()            {}
func (Branch) instruction()                 {}
func (Jump) instruction()                   {}
func (JumpSubRoutineOffset) instruction()   {}
func (JumpSubRoutineRegister) instruction() {}
func (Load) instruction()                   {}
func (LoadBaseOffset) instruction()         {}
func (LoadEffectiveAddress) instruction()   {}
func (LoadIndirect) instruction()           {}
func (Not) instruction()                    {}
func (Store) instruction()                  {}
func (StoreBaseOffset) instruction()        {}
func (StoreIndirect) instruction()          {}
func (Trap) instruction()                   {}

// Decode converts a raw memory word into its typed instruction.
//
// Words carrying the unused (8) or reserved (13) opcode families fail
// with ErrUnknownOpcode; a trap word with an undefined vector byte fails
// with ErrUnknownTrapCode. Decode is all-or-nothing per word.
func Decode(word uint16) (instr Instruction, err error) {
	switch getOpCode(word) {
	case OP_ADD:
		if getImmediateMode(word) == 1 {
			instr = AddImmediate{Dr: getDr(word), Sr1: getSr1(word), Imm5: getImm5(word)}
		} else {
			instr = AddRegister{Dr: getDr(word), Sr1: getSr1(word), Sr2: getSr2(word)}
		}
	case OP_AND:
		if getImmediateMode(word) == 1 {
			instr = AndImmediate{Dr: getDr(word), Sr1: getSr1(word), Imm5: getImm5(word)}
		} else {
			instr = AndRegister{Dr: getDr(word), Sr1: getSr1(word), Sr2: getSr2(word)}
		}
	case OP_BR:
		instr = Branch{Nzp: getNzp(word), PcOffset9: getPcOffset9(word)}
	case OP_JMP:
		instr = Jump{BaseR: getBaseR(word)}
	case OP_JSR:
		if getOffsetMode(word) == 1 {
			instr = JumpSubRoutineOffset{PcOffset11: getPcOffset11(word)}
		} else {
			instr = JumpSubRoutineRegister{BaseR: getBaseR(word)}
		}
	case OP_LD:
		instr = Load{Dr: getDr(word), PcOffset9: getPcOffset9(word)}
	case OP_LDR:
		instr = LoadBaseOffset{Dr: getDr(word), BaseR: getBaseR(word), Offset6: getOffset6(word)}
	case OP_LEA:
		instr = LoadEffectiveAddress{Dr: getDr(word), PcOffset9: getPcOffset9(word)}
	case OP_LDI:
		instr = LoadIndirect{Dr: getDr(word), PcOffset9: getPcOffset9(word)}
	case OP_NOT:
		instr = Not{Dr: getDr(word), Sr1: getSr1(word)}
	case OP_ST:
		instr = Store{Sr: getSr(word), PcOffset9: getPcOffset9(word)}
	case OP_STR:
		instr = StoreBaseOffset{Sr: getSr(word), BaseR: getBaseR(word), Offset6: getOffset6(word)}
	case OP_STI:
		instr = StoreIndirect{Sr: getSr(word), PcOffset9: getPcOffset9(word)}
	case OP_TRAP:
		var code TrapCode
		code, err = trapCodeOf(getBitField(word, 0, 8))
		if err != nil {
			return
		}
		instr = Trap{Vect8: code}
	default:
		err = ErrUnknownOpcode(word)
	}

	return
}

// AddImmediate adds a sign-extended 5-bit constant to sr1.
type AddImmediate struct {
	Dr   uint16
	Sr1  uint16
	Imm5 uint16
}

func (op AddImmediate) Encode() uint16 {
	word := setOpCode(0, OP_ADD)
	word = setDr(word, op.Dr)
	word = setSr1(word, op.Sr1)
	return setImm5(word, op.Imm5)
}

func (op AddImmediate) String() string {
	return fmt.Sprintf("ADD R%d, R%d, #%d", op.Dr, op.Sr1, int16(op.Imm5))
}

// AddRegister adds sr2 to sr1.
type AddRegister struct {
	Dr  uint16
	Sr1 uint16
	Sr2 uint16
}

func (op AddRegister) Encode() uint16 {
	word := setOpCode(0, OP_ADD)
	word = setDr(word, op.Dr)
	word = setSr1(word, op.Sr1)
	return setSr2(word, op.Sr2)
}

func (op AddRegister) String() string {
	return fmt.Sprintf("ADD R%d, R%d, R%d", op.Dr, op.Sr1, op.Sr2)
}

// AndImmediate ANDs sr1 with a sign-extended 5-bit constant.
type AndImmediate struct {
	Dr   uint16
	Sr1  uint16
	Imm5 uint16
}

func (op AndImmediate) Encode() uint16 {
	word := setOpCode(0, OP_AND)
	word = setDr(word, op.Dr)
	word = setSr1(word, op.Sr1)
	return setImm5(word, op.Imm5)
}

func (op AndImmediate) String() string {
	return fmt.Sprintf("AND R%d, R%d, #%d", op.Dr, op.Sr1, int16(op.Imm5))
}

// AndRegister ANDs sr1 with sr2.
type AndRegister struct {
	Dr  uint16
	Sr1 uint16
	Sr2 uint16
}

func (op AndRegister) Encode() uint16 {
	word := setOpCode(0, OP_AND)
	word = setDr(word, op.Dr)
	word = setSr1(word, op.Sr1)
	return setSr2(word, op.Sr2)
}

func (op AndRegister) String() string {
	return fmt.Sprintf("AND R%d, R%d, R%d", op.Dr, op.Sr1, op.Sr2)
}

// Branch adds a PC-relative offset to the program counter when the
// current condition flag intersects the instruction's nzp mask.
type Branch struct {
	Nzp       CondFlag
	PcOffset9 uint16
}

func (op Branch) Encode() uint16 {
	word := setOpCode(0, OP_BR)
	word = setNzp(word, op.Nzp)
	return setPcOffset9(word, op.PcOffset9)
}

func (op Branch) String() string {
	return fmt.Sprintf("BR%v #%d", op.Nzp, int16(op.PcOffset9))
}

// Jump sets the program counter to the base register.
type Jump struct {
	BaseR uint16
}

func (op Jump) Encode() uint16 {
	return setBaseR(setOpCode(0, OP_JMP), op.BaseR)
}

func (op Jump) String() string {
	if op.BaseR == 7 {
		return "RET"
	}
	return fmt.Sprintf("JMP R%d", op.BaseR)
}

// JumpSubRoutineOffset links the incremented PC into R7, then adds a
// PC-relative 11-bit offset to the program counter.
type JumpSubRoutineOffset struct {
	PcOffset11 uint16
}

func (op JumpSubRoutineOffset) Encode() uint16 {
	word := setOpCode(0, OP_JSR)
	word = setOffsetMode(word)
	return setPcOffset11(word, op.PcOffset11)
}

func (op JumpSubRoutineOffset) String() string {
	return fmt.Sprintf("JSR #%d", int16(op.PcOffset11))
}

// JumpSubRoutineRegister links the incremented PC into R7, then sets the
// program counter to the base register.
type JumpSubRoutineRegister struct {
	BaseR uint16
}

func (op JumpSubRoutineRegister) Encode() uint16 {
	return setBaseR(setOpCode(0, OP_JSR), op.BaseR)
}

func (op JumpSubRoutineRegister) String() string {
	return fmt.Sprintf("JSRR R%d", op.BaseR)
}

// Load reads memory at a PC-relative address into dr.
type Load struct {
	Dr        uint16
	PcOffset9 uint16
}

func (op Load) Encode() uint16 {
	word := setOpCode(0, OP_LD)
	word = setDr(word, op.Dr)
	return setPcOffset9(word, op.PcOffset9)
}

func (op Load) String() string {
	return fmt.Sprintf("LD R%d, #%d", op.Dr, int16(op.PcOffset9))
}

// LoadBaseOffset reads memory at base register plus a sign-extended 6-bit
// offset into dr.
type LoadBaseOffset struct {
	Dr      uint16
	BaseR   uint16
	Offset6 uint16
}

func (op LoadBaseOffset) Encode() uint16 {
	word := setOpCode(0, OP_LDR)
	word = setDr(word, op.Dr)
	word = setBaseR(word, op.BaseR)
	return setOffset6(word, op.Offset6)
}

func (op LoadBaseOffset) String() string {
	return fmt.Sprintf("LDR R%d, R%d, #%d", op.Dr, op.BaseR, int16(op.Offset6))
}

// LoadEffectiveAddress loads the PC-relative address itself into dr.
type LoadEffectiveAddress struct {
	Dr        uint16
	PcOffset9 uint16
}

func (op LoadEffectiveAddress) Encode() uint16 {
	word := setOpCode(0, OP_LEA)
	word = setDr(word, op.Dr)
	return setPcOffset9(word, op.PcOffset9)
}

func (op LoadEffectiveAddress) String() string {
	return fmt.Sprintf("LEA R%d, #%d", op.Dr, int16(op.PcOffset9))
}

// LoadIndirect reads memory at the address stored at a PC-relative
// address into dr.
type LoadIndirect struct {
	Dr        uint16
	PcOffset9 uint16
}

func (op LoadIndirect) Encode() uint16 {
	word := setOpCode(0, OP_LDI)
	word = setDr(word, op.Dr)
	return setPcOffset9(word, op.PcOffset9)
}

func (op LoadIndirect) String() string {
	return fmt.Sprintf("LDI R%d, #%d", op.Dr, int16(op.PcOffset9))
}

// Not writes the bitwise complement of sr1 into dr.
type Not struct {
	Dr  uint16
	Sr1 uint16
}

func (op Not) Encode() uint16 {
	word := setOpCode(0, OP_NOT)
	word = setDr(word, op.Dr)
	word = setSr1(word, op.Sr1)
	// The unused low field is all-1 in the canonical encoding.
	return word | 0x1F
}

func (op Not) String() string {
	return fmt.Sprintf("NOT R%d, R%d", op.Dr, op.Sr1)
}

// Store writes sr to memory at a PC-relative address.
type Store struct {
	Sr        uint16
	PcOffset9 uint16
}

func (op Store) Encode() uint16 {
	word := setOpCode(0, OP_ST)
	word = setSr(word, op.Sr)
	return setPcOffset9(word, op.PcOffset9)
}

func (op Store) String() string {
	return fmt.Sprintf("ST R%d, #%d", op.Sr, int16(op.PcOffset9))
}

// StoreBaseOffset writes sr to memory at base register plus a
// sign-extended 6-bit offset.
type StoreBaseOffset struct {
	Sr      uint16
	BaseR   uint16
	Offset6 uint16
}

func (op StoreBaseOffset) Encode() uint16 {
	word := setOpCode(0, OP_STR)
	word = setSr(word, op.Sr)
	word = setBaseR(word, op.BaseR)
	return setOffset6(word, op.Offset6)
}

func (op StoreBaseOffset) String() string {
	return fmt.Sprintf("STR R%d, R%d, #%d", op.Sr, op.BaseR, int16(op.Offset6))
}

// StoreIndirect writes sr to memory at the address stored at a
// PC-relative address.
type StoreIndirect struct {
	Sr        uint16
	PcOffset9 uint16
}

func (op StoreIndirect) Encode() uint16 {
	word := setOpCode(0, OP_STI)
	word = setSr(word, op.Sr)
	return setPcOffset9(word, op.PcOffset9)
}

func (op StoreIndirect) String() string {
	return fmt.Sprintf("STI R%d, #%d", op.Sr, int16(op.PcOffset9))
}

// Trap calls one of the six console service routines.
type Trap struct {
	Vect8 TrapCode
}

func (op Trap) Encode() uint16 {
	return setBitField(setOpCode(0, OP_TRAP), uint16(op.Vect8)&0xFF, 0)
}

func (op Trap) String() string {
	return op.Vect8.String()
}

// Field accessors. Offsets and immediates narrower than 16 bits are
// two's-complement values: get sign-extends, set masks back to the field
// width so a negative value cannot spill into neighboring fields.

func getOpCode(word uint16) OpCode {
	return OpCode(getBitField(word, 12, 16))
}

func setOpCode(word uint16, op OpCode) uint16 {
	return setBitField(word, uint16(op), 12)
}

func getDr(word uint16) uint16 {
	return getBitField(word, 9, 12)
}

func setDr(word uint16, register uint16) uint16 {
	return setBitField(word, register&0x7, 9)
}

func getSr(word uint16) uint16 {
	return getBitField(word, 9, 12)
}

func setSr(word uint16, register uint16) uint16 {
	return setBitField(word, register&0x7, 9)
}

func getSr1(word uint16) uint16 {
	return getBitField(word, 6, 9)
}

func setSr1(word uint16, register uint16) uint16 {
	return setBitField(word, register&0x7, 6)
}

func getSr2(word uint16) uint16 {
	return getBitField(word, 0, 3)
}

func setSr2(word uint16, register uint16) uint16 {
	return setBitField(word, register&0x7, 0)
}

func getBaseR(word uint16) uint16 {
	return getBitField(word, 6, 9)
}

func setBaseR(word uint16, register uint16) uint16 {
	return setBitField(word, register&0x7, 6)
}

func getImmediateMode(word uint16) uint16 {
	return getBitField(word, 5, 6)
}

func getImm5(word uint16) uint16 {
	return signExtend(getBitField(word, 0, 5), 5)
}

func setImm5(word uint16, imm5 uint16) uint16 {
	word = setBitField(word, imm5&0x1F, 0)
	return setBitField(word, 1, 5) // immediate mode
}

func getNzp(word uint16) CondFlag {
	return CondFlag(getBitField(word, 9, 12))
}

func setNzp(word uint16, mask CondFlag) uint16 {
	return setBitField(word, uint16(mask)&0x7, 9)
}

func getOffsetMode(word uint16) uint16 {
	return getBitField(word, 11, 12)
}

func setOffsetMode(word uint16) uint16 {
	return setBitField(word, 1, 11)
}

func getOffset6(word uint16) uint16 {
	return signExtend(getBitField(word, 0, 6), 6)
}

func setOffset6(word uint16, offset uint16) uint16 {
	return setBitField(word, offset&0x3F, 0)
}

func getPcOffset9(word uint16) uint16 {
	return signExtend(getBitField(word, 0, 9), 9)
}

func setPcOffset9(word uint16, offset uint16) uint16 {
	return setBitField(word, offset&0x1FF, 0)
}

func getPcOffset11(word uint16) uint16 {
	return signExtend(getBitField(word, 0, 11), 11)
}

func setPcOffset11(word uint16, offset uint16) uint16 {
	return setBitField(word, offset&0x7FF, 0)
}
