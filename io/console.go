// Package io provides console devices for the lilc3 simulator.
//
// The CPU's trap handlers drive exactly one console through the narrow
// Console interface. Two devices are provided: Terminal, which owns the
// host terminal and switches it into raw mode for single-keystroke input,
// and Pipe, which is backed by arbitrary reader/writer streams and is used
// by tests and non-interactive runs.
package io

// Console is the device interface consumed by the trap handlers.
// All operations are blocking; a read with no input available waits,
// matching hardware waiting on an input device.
type Console interface {
	// ReadByte reads one byte from the input stream.
	ReadByte() (byte, error)
	// WriteByte writes one byte to the output stream.
	WriteByte(value byte) error
	// Flush forces any buffered output to the underlying stream.
	Flush() error
}
