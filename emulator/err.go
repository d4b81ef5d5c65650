package emulator

import (
	"errors"

	"github.com/monkslc/lilc3/translate"
)

var f = translate.From

var (
	ErrImageTruncated = errors.New(f("image truncated"))
	ErrImageTooBig    = errors.New(f("image exceeds memory"))
)

// ErrRuntime locates an execution fault at its PC, and at its source
// line when a listing is attached.
type ErrRuntime struct {
	Pc     uint16
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo > 0 {
		return f("pc 0x%04X (line %d) %v", err.Pc, err.LineNo, err.Err)
	}
	return f("pc 0x%04X %v", err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
