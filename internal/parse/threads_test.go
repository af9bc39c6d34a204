package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreadList(t *testing.T) {
	text := `Thread 3 (LWP 4821) "worker-pool" managed=0x2 state=Running
Thread 4 (LWP 4822) state=Waiting
`
	entries := ParseThreadList(text)
	require.Len(t, entries, 2)
	assert.Equal(t, 4821, entries[0].OSThreadIDDecimal)
	assert.Equal(t, "worker-pool", entries[0].Name)
	assert.Equal(t, "0x2", entries[0].ManagedThreadID)
	assert.Equal(t, "Running", entries[0].State)
	assert.Equal(t, 4822, entries[1].OSThreadIDDecimal)
}

func TestParseManagedThreadTable(t *testing.T) {
	text := "12 2  0x1a2b  MTA  Dead (GCSpecial)\n"
	entries := ParseManagedThreadTable(text)
	require.Len(t, entries, 1)
	assert.Equal(t, "12", entries[0].ManagedThreadID)
	assert.Equal(t, "0x1a2b", entries[0].OSThreadIDHex)
	assert.Equal(t, 0x1a2b, entries[0].OSThreadIDDec)
	assert.Equal(t, "MTA", entries[0].Apartment)
	assert.True(t, entries[0].IsDead)
}
