package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegisters_PreservesPrefixPresence(t *testing.T) {
	text := "rax = 0x1234\nrbx = abcd\nrip=0xdeadbeef\n"
	regs := ParseRegisters(text)
	require.Len(t, regs, 3)
	assert.Equal(t, "0x1234", regs["rax"])
	assert.Equal(t, "abcd", regs["rbx"])
	assert.Equal(t, "0xdeadbeef", regs["rip"])
}
