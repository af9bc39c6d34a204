package aianalysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/config"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	a, err := New(context.Background(), config.AIConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewReturnsNilWithoutAPIKey(t *testing.T) {
	a, err := New(context.Background(), config.AIConfig{Enabled: true})
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestParseExecExtractsCommand(t *testing.T) {
	cmd, ok := parseExec("thinking...\nEXEC: thread list\n")
	assert.True(t, ok)
	assert.Equal(t, "thread list", cmd)
}

func TestParseExecNoMatch(t *testing.T) {
	_, ok := parseExec("ROOT_CAUSE: null deref\n")
	assert.False(t, ok)
}

func TestParseRootCauseExtractsFields(t *testing.T) {
	reply := "ROOT_CAUSE: null pointer dereference in Foo.Bar\nCONFIDENCE: 0.8\nREASONING: the faulting frame dereferences a null field."
	rc, conf, reasoning, ok := parseRootCause(reply)
	assert.True(t, ok)
	assert.Equal(t, "null pointer dereference in Foo.Bar", rc)
	assert.InDelta(t, 0.8, conf, 0.001)
	assert.Contains(t, reasoning, "dereferences a null field")
}
