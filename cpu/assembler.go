package cpu

import (
	"bufio"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Assembler is a two-pass assembler for LC-3 assembly source. The first
// pass tokenizes each line and assigns addresses to labels; the second
// encodes each line through the instruction codec, so every word the
// assembler emits round-trips through Decode.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	Label map[string]uint16 // Map of labels to word addresses.
}

// Branch mnemonics carry their condition mask as a suffix. A bare BR
// branches unconditionally.
var branchMnemonics = map[string]CondFlag{
	"BR":    FLAG_ANY,
	"BRN":   FLAG_NEG,
	"BRZ":   FLAG_ZERO,
	"BRP":   FLAG_POS,
	"BRNZ":  FLAG_NEG | FLAG_ZERO,
	"BRNP":  FLAG_NEG | FLAG_POS,
	"BRZP":  FLAG_ZERO | FLAG_POS,
	"BRNZP": FLAG_ANY,
}

// Trap service routines are written as bare aliases.
var trapAliases = map[string]TrapCode{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

var plainMnemonics = map[string]bool{
	"ADD": true, "AND": true, "NOT": true,
	"JMP": true, "RET": true, "JSR": true, "JSRR": true,
	"LD": true, "LDI": true, "LDR": true, "LEA": true,
	"ST": true, "STI": true, "STR": true,
	"TRAP": true,
}

var (
	// Tokens are quoted strings, $( ... ) expressions, or runs of
	// anything that is not a separator.
	tokenPattern = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|\$\([^)]*\)|[^\s,]+`)
	labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

func isMnemonic(word string) bool {
	upper := strings.ToUpper(word)
	if plainMnemonics[upper] {
		return true
	}
	if _, ok := branchMnemonics[upper]; ok {
		return true
	}
	_, ok := trapAliases[upper]
	return ok
}

// stripComment removes a trailing ; comment, ignoring semicolons inside
// string literals.
func stripComment(line string) string {
	quoted := false
	for n, c := range line {
		switch {
		case c == '"' && (n == 0 || line[n-1] != '\\'):
			quoted = !quoted
		case c == ';' && !quoted:
			return line[:n]
		}
	}

	return line
}

// Parse assembles a complete source listing into a Program.
func (asm *Assembler) Parse(reader io.Reader) (prog *Program, err error) {
	asm.Label = map[string]uint16{}
	prog = &Program{}

	originSet := false
	addr := 0

	// First pass: tokenize, place lines, collect labels.
	scanner := bufio.NewScanner(reader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		words := tokenPattern.FindAllString(stripComment(line), -1)

		fail := func(cause error) error {
			return ErrSyntax{LineNo: lineNo, Line: strings.TrimSpace(line), Err: cause}
		}

		// Leading labels name the line's first word.
		for len(words) > 0 && !isMnemonic(words[0]) && !strings.HasPrefix(words[0], ".") {
			label := strings.TrimSuffix(words[0], ":")
			if !labelPattern.MatchString(label) {
				return nil, fail(ErrParseNumber(words[0]))
			}
			if _, ok := asm.Label[label]; ok {
				return nil, fail(ErrLabelDuplicate)
			}
			if !originSet {
				return nil, fail(ErrOrigMissing)
			}
			asm.Label[label] = uint16(addr)
			words = words[1:]
		}

		if len(words) == 0 {
			continue
		}

		upper := strings.ToUpper(words[0])

		if upper == ".ORIG" {
			if originSet {
				return nil, fail(ErrOrigDuplicate)
			}
			if len(words) != 2 {
				return nil, fail(ErrOperandCount)
			}
			var origin int64
			origin, err = asm.valueOf(words[1])
			if err != nil {
				return nil, fail(err)
			}
			if origin < 0 || origin > 0xFFFF {
				return nil, fail(ErrOperandRange)
			}
			prog.Origin = uint16(origin)
			addr = int(origin)
			originSet = true
			continue
		}

		if upper == ".END" {
			break
		}

		if !originSet {
			return nil, fail(ErrOrigMissing)
		}

		size, err := asm.sizeOf(words)
		if err != nil {
			return nil, fail(err)
		}

		prog.Opcodes = append(prog.Opcodes, Opcode{
			LineNo: lineNo,
			Addr:   uint16(addr),
			Words:  words,
		})

		addr += size
		if addr > MEMORY_SIZE {
			return nil, fail(ErrProgramTooBig)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}

	if !originSet {
		return nil, ErrOrigMissing
	}

	// Second pass: labels are all known, encode each line.
	for n := range prog.Opcodes {
		op := &prog.Opcodes[n]

		op.Codes, err = asm.encodeLine(op)
		if err != nil {
			return nil, ErrSyntax{
				LineNo: op.LineNo,
				Line:   strings.Join(op.Words, " "),
				Err:    err,
			}
		}

		if asm.Verbose {
			log.Printf("%04x: % -24v -> %04x", op.Addr, strings.Join(op.Words, " "), op.Codes)
		}
	}

	return
}

// sizeOf returns the number of words a tokenized line assembles to.
// Instruction lines are always one word; only directives vary.
func (asm *Assembler) sizeOf(words []string) (size int, err error) {
	switch strings.ToUpper(words[0]) {
	case ".FILL":
		size = 1
	case ".BLKW":
		if len(words) != 2 {
			err = ErrOperandCount
			return
		}
		var count int64
		count, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if count < 1 || count > MEMORY_SIZE {
			err = ErrOperandRange
			return
		}
		size = int(count)
	case ".STRINGZ":
		if len(words) != 2 {
			err = ErrOperandCount
			return
		}
		var text string
		text, err = unquote(words[1])
		if err != nil {
			return
		}
		size = len(text) + 1
	default:
		size = 1
	}

	return
}

// encodeLine assembles one tokenized line into machine words.
func (asm *Assembler) encodeLine(op *Opcode) (codes []uint16, err error) {
	words := op.Words
	upper := strings.ToUpper(words[0])

	// Relative offsets are computed from the incremented PC.
	pc := op.Addr + 1

	operands := func(count int) error {
		if len(words) != count+1 {
			return ErrOperandCount
		}
		return nil
	}

	one := func(instr Instruction, cause error) ([]uint16, error) {
		if cause != nil {
			return nil, cause
		}
		return []uint16{instr.Encode()}, nil
	}

	if mask, ok := branchMnemonics[upper]; ok {
		if err = operands(1); err != nil {
			return
		}
		offset, err := asm.offsetOf(words[1], pc, 9)
		return one(Branch{Nzp: mask, PcOffset9: offset}, err)
	}

	if code, ok := trapAliases[upper]; ok {
		if err = operands(0); err != nil {
			return
		}
		return one(Trap{Vect8: code}, nil)
	}

	switch upper {
	case ".FILL":
		if err = operands(1); err != nil {
			return
		}
		var value int64
		value, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if value < -(1<<15) || value >= 1<<16 {
			err = ErrOperandRange
			return
		}
		codes = []uint16{uint16(value)}

	case ".BLKW":
		var size int
		size, err = asm.sizeOf(words)
		if err != nil {
			return
		}
		codes = make([]uint16, size)

	case ".STRINGZ":
		if err = operands(1); err != nil {
			return
		}
		var text string
		text, err = unquote(words[1])
		if err != nil {
			return
		}
		for _, c := range []byte(text) {
			codes = append(codes, uint16(c))
		}
		codes = append(codes, 0)

	case "ADD", "AND":
		if err = operands(3); err != nil {
			return
		}
		var dr, sr1 uint16
		if dr, err = asm.registerOf(words[1]); err != nil {
			return
		}
		if sr1, err = asm.registerOf(words[2]); err != nil {
			return
		}
		if sr2, cause := asm.registerOf(words[3]); cause == nil {
			if upper == "ADD" {
				return one(AddRegister{Dr: dr, Sr1: sr1, Sr2: sr2}, nil)
			}
			return one(AndRegister{Dr: dr, Sr1: sr1, Sr2: sr2}, nil)
		}
		imm5, cause := asm.fieldOf(words[3], 5)
		if upper == "ADD" {
			return one(AddImmediate{Dr: dr, Sr1: sr1, Imm5: imm5}, cause)
		}
		return one(AndImmediate{Dr: dr, Sr1: sr1, Imm5: imm5}, cause)

	case "NOT":
		if err = operands(2); err != nil {
			return
		}
		var dr, sr1 uint16
		if dr, err = asm.registerOf(words[1]); err != nil {
			return
		}
		sr1, err = asm.registerOf(words[2])
		return one(Not{Dr: dr, Sr1: sr1}, err)

	case "JMP":
		if err = operands(1); err != nil {
			return
		}
		baseR, cause := asm.registerOf(words[1])
		return one(Jump{BaseR: baseR}, cause)

	case "RET":
		if err = operands(0); err != nil {
			return
		}
		return one(Jump{BaseR: 7}, nil)

	case "JSR":
		if err = operands(1); err != nil {
			return
		}
		offset, cause := asm.offsetOf(words[1], pc, 11)
		return one(JumpSubRoutineOffset{PcOffset11: offset}, cause)

	case "JSRR":
		if err = operands(1); err != nil {
			return
		}
		baseR, cause := asm.registerOf(words[1])
		return one(JumpSubRoutineRegister{BaseR: baseR}, cause)

	case "LD", "LDI", "LEA", "ST", "STI":
		if err = operands(2); err != nil {
			return
		}
		var reg, offset uint16
		if reg, err = asm.registerOf(words[1]); err != nil {
			return
		}
		if offset, err = asm.offsetOf(words[2], pc, 9); err != nil {
			return
		}
		switch upper {
		case "LD":
			return one(Load{Dr: reg, PcOffset9: offset}, nil)
		case "LDI":
			return one(LoadIndirect{Dr: reg, PcOffset9: offset}, nil)
		case "LEA":
			return one(LoadEffectiveAddress{Dr: reg, PcOffset9: offset}, nil)
		case "ST":
			return one(Store{Sr: reg, PcOffset9: offset}, nil)
		case "STI":
			return one(StoreIndirect{Sr: reg, PcOffset9: offset}, nil)
		}

	case "LDR", "STR":
		if err = operands(3); err != nil {
			return
		}
		var reg, baseR, offset uint16
		if reg, err = asm.registerOf(words[1]); err != nil {
			return
		}
		if baseR, err = asm.registerOf(words[2]); err != nil {
			return
		}
		if offset, err = asm.fieldOf(words[3], 6); err != nil {
			return
		}
		if upper == "LDR" {
			return one(LoadBaseOffset{Dr: reg, BaseR: baseR, Offset6: offset}, nil)
		}
		return one(StoreBaseOffset{Sr: reg, BaseR: baseR, Offset6: offset}, nil)

	case "TRAP":
		if err = operands(1); err != nil {
			return
		}
		var vect8 int64
		vect8, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if vect8 < 0 || vect8 > 0xFF {
			err = ErrOperandRange
			return
		}
		var code TrapCode
		code, err = trapCodeOf(uint16(vect8))
		return one(Trap{Vect8: code}, err)

	default:
		err = ErrOpcodeMissing
	}

	return
}

// registerOf returns the register index of an R0..R7 operand.
func (asm *Assembler) registerOf(word string) (index uint16, err error) {
	upper := strings.ToUpper(word)
	if len(upper) != 2 || upper[0] != 'R' || upper[1] < '0' || upper[1] > '7' {
		err = ErrRegisterInvalid(word)
		return
	}

	index = uint16(upper[1] - '0')
	return
}

// valueOf returns the value of a numeric operand: #n decimal, xNNNN hex,
// a plain number, a $( ... ) expression, or a label's address.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2 : len(word)-1])
	}

	if addr, ok := asm.Label[word]; ok {
		value = int64(addr)
		return
	}

	text := word
	if i := strings.IndexAny(text, "xX"); i == 0 {
		text = "0" + text
	}
	text = strings.TrimPrefix(text, "#")

	value, err = strconv.ParseInt(text, 0, 32)
	if err != nil {
		if labelPattern.MatchString(word) {
			err = ErrLabelMissing(word)
		} else {
			err = ErrParseNumber(word)
		}
	}

	return
}

// offsetOf resolves a PC-relative operand: a label becomes the distance
// from the incremented PC, a number is taken verbatim. The result must
// fit the field's signed bit width.
func (asm *Assembler) offsetOf(word string, pc uint16, width uint) (offset uint16, err error) {
	var value int64
	if addr, ok := asm.Label[word]; ok {
		// Distance wraps the same way the machine's address arithmetic does.
		value = int64(int16(addr - pc))
	} else {
		value, err = asm.valueOf(word)
		if err != nil {
			return
		}
	}

	return fitSigned(value, width)
}

// fieldOf resolves an immediate operand into a signed field of the given
// width.
func (asm *Assembler) fieldOf(word string, width uint) (field uint16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	return fitSigned(value, width)
}

// fitSigned checks a value against a signed bit width and returns it as a
// sign-extended 16-bit word, the form the instruction fields carry.
func fitSigned(value int64, width uint) (field uint16, err error) {
	limit := int64(1) << (width - 1)
	if value < -limit || value >= limit {
		err = ErrOperandRange
		return
	}

	field = uint16(value)
	return
}

// unquote parses a .STRINGZ literal.
func unquote(word string) (text string, err error) {
	text, err = strconv.Unquote(word)
	if err != nil {
		err = ErrStringInvalid
	}

	return
}

// parenEval does assemble-time $( ... ) evaluations, with every label
// predeclared as its address.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for label, addr := range asm.Label {
		pred[label] = starlark.MakeInt(int(addr))
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}

	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
	}

	return
}
