package cpu

import (
	"errors"

	"github.com/monkslc/lilc3/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrOrigMissing    = errors.New(f(".ORIG missing"))
	ErrOrigDuplicate  = errors.New(f(".ORIG duplicated"))
	ErrLabelDuplicate = errors.New(f("label duplicated"))
	ErrOpcodeMissing  = errors.New(f("opcode missing"))
	ErrOperandCount   = errors.New(f("wrong operand count"))
	ErrOperandRange   = errors.New(f("operand out of range"))
	ErrStringInvalid  = errors.New(f("invalid string literal"))
	ErrProgramTooBig  = errors.New(f("program exceeds memory"))
)

// ErrUnknownOpcode reports a fetched word whose opcode field is the
// unused or reserved encoding. Decode of that word cannot proceed.
type ErrUnknownOpcode uint16

func (eo ErrUnknownOpcode) Error() string {
	return f("unrecognized opcode %d in word 0x%04X", uint16(eo)>>12, uint16(eo))
}

func (eo ErrUnknownOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrUnknownOpcode)
	return
}

// ErrUnknownTrapCode reports a trap whose vector byte does not name one
// of the six defined service routines.
type ErrUnknownTrapCode uint16

func (et ErrUnknownTrapCode) Error() string {
	return f("unrecognized trap code 0x%02X", uint16(et))
}

func (et ErrUnknownTrapCode) Is(err error) (ok bool) {
	_, ok = err.(ErrUnknownTrapCode)
	return
}

// ErrLabelMissing reports a reference to a label no line defines.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrRegisterInvalid reports an operand that should have been R0..R7.
type ErrRegisterInvalid string

func (er ErrRegisterInvalid) Error() string {
	return f("'%v' is not a register", string(er))
}

// ErrParseNumber reports an operand that should have been numeric.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression reports a $( ... ) expression that did not evaluate
// to an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrSyntax locates an assembler error on its source line.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}
