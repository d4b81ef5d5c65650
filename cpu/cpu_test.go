package cpu

import (
	"bytes"
	"math/bits"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	lilcio "github.com/monkslc/lilc3/io"
)

func TestArithmeticWraparound(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Register[1] = 0xFFFF
	cpu.Register[2] = 0xFFFF
	assert.NoError(cpu.Execute(AddRegister{Dr: 0, Sr1: 1, Sr2: 2}))
	assert.Equal(uint16(0xFFFE), cpu.Register[0])
	assert.Equal(FLAG_NEG, cpu.Cond)

	cpu.Register[1] = 1
	assert.NoError(cpu.Execute(AddRegister{Dr: 0, Sr1: 1, Sr2: 2}))
	assert.Equal(uint16(0), cpu.Register[0])
	assert.Equal(FLAG_ZERO, cpu.Cond)

	cpu.Register[3] = 5
	assert.NoError(cpu.Execute(AddImmediate{Dr: 0, Sr1: 3, Imm5: 0xFFFF}))
	assert.Equal(uint16(4), cpu.Register[0])
	assert.Equal(FLAG_POS, cpu.Cond)
}

func TestBitwise(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Register[1] = 0b1100
	cpu.Register[2] = 0b1010
	assert.NoError(cpu.Execute(AndRegister{Dr: 0, Sr1: 1, Sr2: 2}))
	assert.Equal(uint16(0b1000), cpu.Register[0])
	assert.Equal(FLAG_POS, cpu.Cond)

	// AND with 0 is the idiomatic register clear.
	assert.NoError(cpu.Execute(AndImmediate{Dr: 0, Sr1: 1, Imm5: 0}))
	assert.Equal(uint16(0), cpu.Register[0])
	assert.Equal(FLAG_ZERO, cpu.Cond)

	assert.NoError(cpu.Execute(Not{Dr: 0, Sr1: 2}))
	assert.Equal(uint16(0xFFF5), cpu.Register[0])
	assert.Equal(FLAG_NEG, cpu.Cond)
}

func TestCondFlagExclusive(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	for _, value := range []uint16{0, 1, 0x7FFF, 0x8000, 0xFFFF} {
		cpu.setRegister(0, value)
		assert.Equal(1, bits.OnesCount16(uint16(cpu.Cond)), "value 0x%04X", value)
	}
}

func TestBranchGating(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Memory[PROGRAM_START] = Branch{Nzp: FLAG_POS, PcOffset9: 10}.Encode()

	cpu.Cond = FLAG_POS
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x300B), cpu.Pc)

	cpu.Reset()
	cpu.Cond = FLAG_NEG
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x3001), cpu.Pc)

	// A zero mask intersects nothing, so the branch is never taken.
	cpu.Reset()
	cpu.Memory[PROGRAM_START] = Branch{Nzp: 0, PcOffset9: 10}.Encode()
	for _, cond := range []CondFlag{FLAG_POS, FLAG_ZERO, FLAG_NEG} {
		cpu.Pc = PROGRAM_START
		cpu.Cond = cond
		assert.NoError(cpu.Step())
		assert.Equal(uint16(0x3001), cpu.Pc)
	}
}

func TestBranchBackward(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Memory[PROGRAM_START] = Branch{Nzp: FLAG_ANY, PcOffset9: 0xFFFE}.Encode()
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x2FFF), cpu.Pc)
}

func TestSubroutineLinkage(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Memory[PROGRAM_START] = JumpSubRoutineOffset{PcOffset11: 10}.Encode()
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x3001), cpu.Register[7])
	assert.Equal(uint16(0x300B), cpu.Pc)

	cpu.Reset()
	cpu.Memory[PROGRAM_START] = JumpSubRoutineRegister{BaseR: 2}.Encode()
	cpu.Register[2] = 0x4000
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x3001), cpu.Register[7])
	assert.Equal(uint16(0x4000), cpu.Pc)

	// The base may be R7 itself; the target must be read before linking.
	cpu.Reset()
	cpu.Memory[PROGRAM_START] = JumpSubRoutineRegister{BaseR: 7}.Encode()
	cpu.Register[7] = 0x5000
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x3001), cpu.Register[7])
	assert.Equal(uint16(0x5000), cpu.Pc)
}

func TestJumpAndReturn(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Memory[PROGRAM_START] = Jump{BaseR: 3}.Encode()
	cpu.Register[3] = 0x1234
	cond := cpu.Cond
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x1234), cpu.Pc)
	assert.Equal(cond, cpu.Cond) // jumps do not touch the flags
}

func TestLoads(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	// LD: PC-relative, from the already incremented PC.
	cpu.Memory[PROGRAM_START] = Load{Dr: 1, PcOffset9: 2}.Encode()
	cpu.Memory[0x3003] = 42
	assert.NoError(cpu.Step())
	assert.Equal(uint16(42), cpu.Register[1])
	assert.Equal(FLAG_POS, cpu.Cond)

	// LDI: the PC-relative word holds the address of the value.
	cpu.Reset()
	cpu.Memory[PROGRAM_START] = LoadIndirect{Dr: 2, PcOffset9: 10}.Encode()
	cpu.Memory[0x300B] = 0xFFFE
	cpu.Memory[0xFFFE] = 17
	assert.NoError(cpu.Step())
	assert.Equal(uint16(17), cpu.Register[2])

	// LDR: base register plus signed offset.
	cpu.Reset()
	cpu.Memory[PROGRAM_START] = LoadBaseOffset{Dr: 3, BaseR: 4, Offset6: 0xFFFF}.Encode()
	cpu.Register[4] = 0x4000
	cpu.Memory[0x3FFF] = 7
	assert.NoError(cpu.Step())
	assert.Equal(uint16(7), cpu.Register[3])

	// LEA: the address itself, no memory read.
	cpu.Reset()
	cpu.Memory[PROGRAM_START] = LoadEffectiveAddress{Dr: 5, PcOffset9: 0xFFFB}.Encode()
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x2FFC), cpu.Register[5])
	assert.Equal(FLAG_POS, cpu.Cond)
}

func TestStores(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Memory[PROGRAM_START] = Store{Sr: 1, PcOffset9: 4}.Encode()
	cpu.Register[1] = 0xBEEF
	cond := cpu.Cond
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0xBEEF), cpu.Memory[0x3005])
	assert.Equal(cond, cpu.Cond) // stores do not touch the flags

	cpu.Reset()
	cpu.Memory[PROGRAM_START] = StoreIndirect{Sr: 2, PcOffset9: 1}.Encode()
	cpu.Memory[0x3002] = 0x8000
	cpu.Register[2] = 0x1234
	assert.NoError(cpu.Step())
	assert.Equal(uint16(0x1234), cpu.Memory[0x8000])

	cpu.Reset()
	cpu.Memory[PROGRAM_START] = StoreBaseOffset{Sr: 3, BaseR: 4, Offset6: 2}.Encode()
	cpu.Register[3] = 9
	cpu.Register[4] = 0x5000
	assert.NoError(cpu.Step())
	assert.Equal(uint16(9), cpu.Memory[0x5002])
}

func TestStepRejectsMalformedWords(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, nil)

	cpu.Memory[PROGRAM_START] = 0x8000
	assert.ErrorIs(cpu.Step(), ErrUnknownOpcode(0))

	cpu.Reset()
	cpu.Memory[PROGRAM_START] = 0xD123
	err := cpu.Run()
	assert.ErrorIs(err, ErrUnknownOpcode(0))
	assert.False(cpu.Running)
}

func TestTrapGetC(t *testing.T) {
	assert := assert.New(t)
	console := &lilcio.Pipe{Input: strings.NewReader("A")}
	cpu := NewCpu(nil, console)

	assert.NoError(cpu.Execute(Trap{Vect8: TRAP_GETC}))
	assert.Equal(uint16('A'), cpu.Register[0])
	assert.Equal(FLAG_POS, cpu.Cond)
}

func TestTrapOut(t *testing.T) {
	assert := assert.New(t)
	var output bytes.Buffer
	cpu := NewCpu(nil, &lilcio.Pipe{Output: &output})

	cpu.Register[0] = 'x'
	assert.NoError(cpu.Execute(Trap{Vect8: TRAP_OUT}))
	assert.Equal("x", output.String())
}

func TestTrapIn(t *testing.T) {
	assert := assert.New(t)
	var output bytes.Buffer
	console := &lilcio.Pipe{Input: strings.NewReader("q"), Output: &output}
	cpu := NewCpu(nil, console)

	assert.NoError(cpu.Execute(Trap{Vect8: TRAP_IN}))
	assert.Equal(uint16('q'), cpu.Register[0])
	assert.Equal("Enter a character: ", output.String())
}

func TestTrapPuts(t *testing.T) {
	assert := assert.New(t)
	var output bytes.Buffer
	cpu := NewCpu(nil, &lilcio.Pipe{Output: &output})

	copy(cpu.Memory[0x4000:], []uint16{'H', 'i', '!', 0})
	cpu.Register[0] = 0x4000
	assert.NoError(cpu.Execute(Trap{Vect8: TRAP_PUTS}))
	assert.Equal("Hi!", output.String())
}

func TestTrapPutsP(t *testing.T) {
	assert := assert.New(t)
	var output bytes.Buffer
	cpu := NewCpu(nil, &lilcio.Pipe{Output: &output})

	// Two characters per word, low byte first. A word with a zero high
	// byte emits only its low byte.
	copy(cpu.Memory[0x4000:], []uint16{'H' | 'i'<<8, '!', 0})
	cpu.Register[0] = 0x4000
	assert.NoError(cpu.Execute(Trap{Vect8: TRAP_PUTSP}))
	assert.Equal("Hi!", output.String())
}

func TestTrapHalt(t *testing.T) {
	assert := assert.New(t)
	var output bytes.Buffer
	cpu := NewCpu(nil, &lilcio.Pipe{Output: &output})

	cpu.Memory[PROGRAM_START] = Trap{Vect8: TRAP_HALT}.Encode()
	assert.NoError(cpu.Run())
	assert.Equal("\nHALT\n", output.String())
	assert.False(cpu.Running)
	assert.Equal(uint16(0x3001), cpu.Pc)
}

func TestTrapInputExhausted(t *testing.T) {
	assert := assert.New(t)
	cpu := NewCpu(nil, &lilcio.Pipe{})

	err := cpu.Execute(Trap{Vect8: TRAP_GETC})
	assert.ErrorIs(err, lilcio.ErrNoInput)
}

func TestRunCountingLoop(t *testing.T) {
	assert := assert.New(t)

	// Count R1 up to ten, then halt.
	image := []uint16{
		AndImmediate{Dr: 1, Sr1: 1, Imm5: 0}.Encode(),
		AndImmediate{Dr: 2, Sr1: 2, Imm5: 0}.Encode(),
		AddImmediate{Dr: 2, Sr1: 2, Imm5: 10}.Encode(),
		AddImmediate{Dr: 1, Sr1: 1, Imm5: 1}.Encode(), // loop
		AddImmediate{Dr: 2, Sr1: 2, Imm5: 0xFFFF}.Encode(),
		Branch{Nzp: FLAG_POS, PcOffset9: 0xFFFD}.Encode(),
		Trap{Vect8: TRAP_HALT}.Encode(),
	}

	var output bytes.Buffer
	cpu := NewCpu(nil, &lilcio.Pipe{Output: &output})
	copy(cpu.Memory[PROGRAM_START:], image)
	assert.NoError(cpu.Run())
	assert.Equal(uint16(10), cpu.Register[1])
	assert.Equal(uint16(0), cpu.Register[2])
}
