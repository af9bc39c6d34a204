package driver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestChannel spawns a real "cat" subprocess. Because cat echoes every
// line written to its stdin straight back to stdout, the sentinel line we
// write (which itself contains the literal "SENTINEL-<token>" text) comes
// back verbatim on its own line, letting the framing logic be exercised
// against a real subprocess without depending on a debugger binary.
func newTestChannel(t *testing.T) *channel {
	t.Helper()
	ch, err := newChannel(context.Background(), []string{"sh", "-c", "cat"}, "echo SENTINEL-%s")
	require.NoError(t, err)
	t.Cleanup(ch.dispose)
	return ch
}

func TestChannelSendReturnsTextBeforeSentinel(t *testing.T) {
	ch := newTestChannel(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := ch.send(ctx, "hello world")
	require.NoError(t, err)
	assert.Contains(t, out, "hello world")
	assert.NotContains(t, out, "SENTINEL-")
}

func TestChannelSendSerializesCalls(t *testing.T) {
	ch := newTestChannel(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out1, err := ch.send(ctx, "first")
	require.NoError(t, err)
	out2, err := ch.send(ctx, "second")
	require.NoError(t, err)

	assert.True(t, strings.Contains(out1, "first"))
	assert.True(t, strings.Contains(out2, "second"))
	assert.False(t, strings.Contains(out2, "first"))
}

func TestChannelSendTimesOutWithoutSentinel(t *testing.T) {
	// A subprocess that never echoes anything back never produces the
	// sentinel; the call must respect ctx's deadline rather than hang.
	ch, err := newChannel(context.Background(), []string{"sh", "-c", "sleep 30"}, "echo SENTINEL-%s")
	require.NoError(t, err)
	t.Cleanup(ch.dispose)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = ch.send(ctx, "hello")
	assert.ErrorIs(t, err, ErrCommandTimedOut)
}

func TestChannelDetectsSubprocessExit(t *testing.T) {
	ch, err := newChannel(context.Background(), []string{"sh", "-c", "exit 0"}, "echo SENTINEL-%s")
	require.NoError(t, err)
	t.Cleanup(ch.dispose)

	require.Eventually(t, ch.isCrashed, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = ch.send(ctx, "anything")
	assert.ErrorIs(t, err, ErrDebuggerGone)
}
