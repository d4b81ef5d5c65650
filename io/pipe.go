package io

import (
	"bufio"
	"io"
)

// Pipe is a console backed by plain reader/writer streams.
//
// A nil Input reports ErrNoInput on read; a nil Output discards writes.
// Output is buffered, so nothing reaches the underlying writer until the
// program traps an operation that flushes.
type Pipe struct {
	Input  io.Reader
	Output io.Writer

	reader *bufio.Reader
	writer *bufio.Writer
}

// ReadByte reads one byte from the input stream.
func (pc *Pipe) ReadByte() (value byte, err error) {
	if pc.Input == nil {
		err = ErrNoInput
		return
	}

	if pc.reader == nil {
		pc.reader = bufio.NewReader(pc.Input)
	}

	return pc.reader.ReadByte()
}

// WriteByte writes one byte to the output stream.
func (pc *Pipe) WriteByte(value byte) (err error) {
	if pc.Output == nil {
		return
	}

	if pc.writer == nil {
		pc.writer = bufio.NewWriter(pc.Output)
	}

	return pc.writer.WriteByte(value)
}

// Flush forces buffered output to the underlying writer.
func (pc *Pipe) Flush() (err error) {
	if pc.writer == nil {
		return
	}

	return pc.writer.Flush()
}
