package io

import (
	"bufio"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Terminal is the interactive console attached to the host terminal.
// Between Raw and Restore the terminal runs with canonical input and echo
// disabled, so the GetC trap sees single keystrokes without echo.
type Terminal struct {
	saved unix.Termios
	raw   bool

	reader *bufio.Reader
	writer *bufio.Writer
}

// NewTerminal creates a console attached to stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		reader: bufio.NewReader(os.Stdin),
		writer: bufio.NewWriter(os.Stdout),
	}
}

// Raw switches the terminal into raw mode, saving the current
// configuration for Restore.
func (tc *Terminal) Raw() (err error) {
	err = termios.Tcgetattr(os.Stdin.Fd(), &tc.saved)
	if err != nil {
		return
	}

	next := tc.saved
	next.Lflag &^= unix.ICANON | unix.ECHO

	err = termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &next)
	if err != nil {
		return
	}

	tc.raw = true
	return
}

// Restore flushes pending output and puts the terminal back into the
// configuration saved by Raw.
func (tc *Terminal) Restore() (err error) {
	tc.Flush()

	if !tc.raw {
		return
	}
	tc.raw = false

	return termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &tc.saved)
}

// ReadByte reads one keystroke from the terminal.
func (tc *Terminal) ReadByte() (value byte, err error) {
	return tc.reader.ReadByte()
}

// WriteByte writes one byte to the terminal.
func (tc *Terminal) WriteByte(value byte) (err error) {
	return tc.writer.WriteByte(value)
}

// Flush forces buffered output to the terminal.
func (tc *Terminal) Flush() (err error) {
	return tc.writer.Flush()
}
