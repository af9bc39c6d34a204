package errkind

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNilCauseReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(KindInternal, "x", nil))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("plain")))
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindQuota, "too many sessions"))
	assert.True(t, Is(err, KindQuota))
	assert.False(t, Is(err, KindTimeout))
}

func TestErrorStringIncludesCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(KindBackendUnavailable, "debugger gone", cause)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BackendUnavailable")
	assert.Contains(t, err.Error(), "boom")
}
