package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// FuzzDecode checks that every word either fails decoding or decodes to
// an instruction whose encoding decodes back to the same instruction.
func FuzzDecode(f *testing.F) {
	for op := uint16(0); op < 16; op++ {
		f.Add(op << 12)
		f.Add(op<<12 | 0x0FFF)
		f.Add(op<<12 | 0x0820) // mode bits set, middle fields mixed
	}
	f.Add(uint16(0xF025))

	f.Fuzz(func(t *testing.T, word uint16) {
		assert := assert.New(t)

		instr, err := Decode(word)
		if err != nil {
			op := getOpCode(word)
			unknown := op == OP_UNUSED || op == OP_RES || op == OP_TRAP
			assert.True(unknown, "unexpected decode failure for 0x%04X: %v", word, err)
			return
		}

		again, err := Decode(instr.Encode())
		assert.NoError(err)
		assert.Equal(instr, again, "word 0x%04X", word)
	})
}
