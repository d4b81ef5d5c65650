// Package emulator wires a cpu.Cpu to a console device and a loaded
// program image, and drives the fetch-execute loop.
package emulator

import (
	"encoding/binary"

	"github.com/monkslc/lilc3/cpu"
	"github.com/monkslc/lilc3/io"
)

// Emulator owns one machine and its console for the lifetime of a run.
type Emulator struct {
	Verbose  bool // If set, enables instruction tracing.
	*cpu.Cpu      // The machine being simulated.

	// Program is the source listing for the loaded image, when it was
	// produced by the assembler. Used only to map faults to source lines.
	Program *cpu.Program

	Console io.Console
}

// NewEmulator creates an emulator with empty memory attached to the
// given console.
func NewEmulator(console io.Console) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(nil, console),
		Console: console,
	}

	return
}

// LoadImage copies a raw object image into memory. The image is
// big-endian 16-bit words; the first word is the load origin, the rest
// are the program. The PC stays at the program start address regardless
// of the origin.
func (emu *Emulator) LoadImage(image []byte) (err error) {
	if len(image) < 4 || len(image)%2 != 0 {
		return ErrImageTruncated
	}

	origin := binary.BigEndian.Uint16(image)
	count := (len(image) - 2) / 2
	if int(origin)+count > cpu.MEMORY_SIZE {
		return ErrImageTooBig
	}

	for n := range count {
		emu.Cpu.Memory[int(origin)+n] = binary.BigEndian.Uint16(image[2+2*n:])
	}

	return
}

// LoadProgram places an assembled program into memory and keeps its
// listing attached for fault reporting.
func (emu *Emulator) LoadProgram(prog *cpu.Program) {
	for addr, word := range prog.Words() {
		emu.Cpu.Memory[addr] = word
	}

	emu.Program = prog
}

// Step executes a single instruction, decorating any fault with the
// faulting PC and source line. done reports that the program has halted.
func (emu *Emulator) Step() (done bool, err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Running = true

	pc := emu.Cpu.Pc
	err = emu.Cpu.Step()
	if err != nil {
		err = &ErrRuntime{Pc: pc, LineNo: emu.lineNo(pc), Err: err}
		return
	}

	done = !emu.Cpu.Running
	return
}

// Run executes the loaded program until it traps Halt or faults.
func (emu *Emulator) Run() (err error) {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Running = true

	for emu.Cpu.Running {
		pc := emu.Cpu.Pc
		err = emu.Cpu.Step()
		if err != nil {
			emu.Cpu.Running = false
			return &ErrRuntime{Pc: pc, LineNo: emu.lineNo(pc), Err: err}
		}
	}

	return
}

// lineNo maps an address to its source line, when a listing is attached.
func (emu *Emulator) lineNo(addr uint16) (lineNo int) {
	if emu.Program == nil {
		return
	}

	op := emu.Program.Debug(addr)
	if op != nil {
		lineNo = op.LineNo
	}

	return
}
