package cpu

import (
	"log"

	"github.com/monkslc/lilc3/io"
)

// Console is the device driven by the trap service routines.
type Console io.Console

const (
	MEMORY_SIZE    = 1 << 16 // Words of addressable memory.
	REGISTER_COUNT = 8       // General purpose registers R0..R7.
	PROGRAM_START  = 0x3000  // Address the PC is initialized to.
)

// Cpu is the machine state for one LC-3 simulation. One machine owns its
// memory and registers exclusively; execution is single threaded and
// synchronous.
type Cpu struct {
	Verbose bool // Set to enable instruction tracing.

	Memory   [MEMORY_SIZE]uint16
	Register [REGISTER_COUNT]uint16
	Pc       uint16
	Cond     CondFlag
	Running  bool

	console Console
}

// NewCpu creates a machine with its memory loaded from the image and the
// PC at the program start address. The image is copied in once; the
// machine never re-reads external storage during execution.
func NewCpu(image []uint16, console Console) (cpu *Cpu) {
	cpu = &Cpu{console: console}
	copy(cpu.Memory[:], image)
	cpu.Pc = PROGRAM_START
	cpu.Cond = FLAG_ZERO

	return
}

// Reset clears the registers and condition flags and returns the PC to
// the program start address. Memory is left as loaded.
func (cpu *Cpu) Reset() {
	clear(cpu.Register[:])
	cpu.Pc = PROGRAM_START
	cpu.Cond = FLAG_ZERO
	cpu.Running = false
}

// setRegister is the sole path that writes a general register. Writing a
// register always recomputes the condition flags from the same value.
func (cpu *Cpu) setRegister(index uint16, value uint16) {
	cpu.Register[index] = value
	cpu.Cond = condFor(value)
}

// Step fetches, decodes, and executes a single instruction. The PC is
// incremented here, before execution, so every PC-relative address is
// computed from the already-incremented PC.
func (cpu *Cpu) Step() (err error) {
	word := cpu.Memory[cpu.Pc]
	cpu.Pc++

	instr, err := Decode(word)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Pc-1, instr)
	}

	return cpu.Execute(instr)
}

// Run executes instructions until the program traps Halt or a malformed
// word aborts execution. A program that never halts runs forever; there
// is no instruction budget or watchdog.
func (cpu *Cpu) Run() (err error) {
	cpu.Running = true

	for cpu.Running {
		err = cpu.Step()
		if err != nil {
			cpu.Running = false
			return
		}
	}

	return
}

// Execute applies the semantics of a single decoded instruction. All
// address and register arithmetic is 16-bit wraparound.
func (cpu *Cpu) Execute(instr Instruction) (err error) {
	switch op := instr.(type) {
	case AddImmediate:
		cpu.setRegister(op.Dr, cpu.Register[op.Sr1]+op.Imm5)
	case AddRegister:
		cpu.setRegister(op.Dr, cpu.Register[op.Sr1]+cpu.Register[op.Sr2])
	case AndImmediate:
		cpu.setRegister(op.Dr, cpu.Register[op.Sr1]&op.Imm5)
	case AndRegister:
		cpu.setRegister(op.Dr, cpu.Register[op.Sr1]&cpu.Register[op.Sr2])
	case Not:
		cpu.setRegister(op.Dr, ^cpu.Register[op.Sr1])
	case Branch:
		if cpu.Cond.Test(op.Nzp) {
			cpu.Pc += op.PcOffset9
		}
	case Jump:
		cpu.Pc = cpu.Register[op.BaseR]
	case JumpSubRoutineOffset:
		cpu.setRegister(7, cpu.Pc)
		cpu.Pc += op.PcOffset11
	case JumpSubRoutineRegister:
		// Read the target before linking; the base may be R7 itself.
		target := cpu.Register[op.BaseR]
		cpu.setRegister(7, cpu.Pc)
		cpu.Pc = target
	case Load:
		cpu.setRegister(op.Dr, cpu.Memory[cpu.Pc+op.PcOffset9])
	case LoadIndirect:
		cpu.setRegister(op.Dr, cpu.Memory[cpu.Memory[cpu.Pc+op.PcOffset9]])
	case LoadBaseOffset:
		cpu.setRegister(op.Dr, cpu.Memory[cpu.Register[op.BaseR]+op.Offset6])
	case LoadEffectiveAddress:
		cpu.setRegister(op.Dr, cpu.Pc+op.PcOffset9)
	case Store:
		cpu.Memory[cpu.Pc+op.PcOffset9] = cpu.Register[op.Sr]
	case StoreIndirect:
		cpu.Memory[cpu.Memory[cpu.Pc+op.PcOffset9]] = cpu.Register[op.Sr]
	case StoreBaseOffset:
		cpu.Memory[cpu.Register[op.BaseR]+op.Offset6] = cpu.Register[op.Sr]
	case Trap:
		err = cpu.trap(op.Vect8)
	}

	return
}

// trap dispatches to one of the six console service routines. Console
// reads block until a byte is available, matching hardware waiting on an
// input device.
func (cpu *Cpu) trap(code TrapCode) (err error) {
	switch code {
	case TRAP_GETC:
		var value byte
		value, err = cpu.console.ReadByte()
		if err != nil {
			return
		}
		cpu.setRegister(0, uint16(value))

	case TRAP_OUT:
		err = cpu.console.WriteByte(byte(cpu.Register[0]))
		if err != nil {
			return
		}
		err = cpu.console.Flush()

	case TRAP_IN:
		err = cpu.print("Enter a character: ")
		if err != nil {
			return
		}
		var value byte
		value, err = cpu.console.ReadByte()
		if err != nil {
			return
		}
		cpu.setRegister(0, uint16(value))

	case TRAP_PUTS:
		// R0 points at a NUL-terminated string, one character per word.
		for addr := cpu.Register[0]; cpu.Memory[addr] != 0; addr++ {
			err = cpu.console.WriteByte(byte(cpu.Memory[addr]))
			if err != nil {
				return
			}
		}
		err = cpu.console.Flush()

	case TRAP_PUTSP:
		// Like Puts, but two packed characters per word: low byte first,
		// then the high byte unless it is zero.
		for addr := cpu.Register[0]; cpu.Memory[addr] != 0; addr++ {
			word := cpu.Memory[addr]
			err = cpu.console.WriteByte(byte(word))
			if err != nil {
				return
			}
			if word>>8 != 0 {
				err = cpu.console.WriteByte(byte(word >> 8))
				if err != nil {
					return
				}
			}
		}
		err = cpu.console.Flush()

	case TRAP_HALT:
		err = cpu.print("\nHALT\n")
		cpu.Running = false
	}

	return
}

// print writes a host-side message to the console and flushes it.
func (cpu *Cpu) print(text string) (err error) {
	for _, c := range []byte(text) {
		err = cpu.console.WriteByte(c)
		if err != nil {
			return
		}
	}

	return cpu.console.Flush()
}
