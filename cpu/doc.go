// Package cpu implements the instruction codec, execution engine, and
// assembler for the LC-3 architecture.
//
// The machine is a 16-bit von Neumann CPU: 65,536 words of flat memory,
// eight general-purpose registers, a program counter, and a condition
// code register holding exactly one of the positive/zero/negative flags.
// Instructions are fixed 16-bit words; the top four bits select one of
// sixteen opcode families, two of which split further on a mode bit.
//
// The codec converts losslessly between words and typed Instruction
// values. The engine fetches one word per Step, decodes it, and applies
// its semantics, trapping into a console device for I/O. The assembler
// translates LC-3 assembly source into a loadable Program.
package cpu
