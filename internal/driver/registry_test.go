package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectUsesOverrideWhenGiven(t *testing.T) {
	Register(Family("test-family"), func(Options) Driver { return nil })
	d, err := Detect(Options{}, Family("test-family"))
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDetectUnknownFamilyErrors(t *testing.T) {
	_, err := Detect(Options{}, Family("does-not-exist"))
	assert.Error(t, err)
}

func TestDefaultFamilyForGOOS(t *testing.T) {
	assert.Equal(t, FamilyWinDbg, defaultFamilyForGOOS("windows"))
	assert.Equal(t, FamilyLLDB, defaultFamilyForGOOS("linux"))
	assert.Equal(t, FamilyLLDB, defaultFamilyForGOOS("darwin"))
}
