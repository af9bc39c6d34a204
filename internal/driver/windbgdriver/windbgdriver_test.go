package windbgdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCommandAddsBangForExtensionVerbs(t *testing.T) {
	assert.Equal(t, "!clrstack", vocabulary{}.NormalizeCommand("clrstack"))
	assert.Equal(t, "~* k", vocabulary{}.NormalizeCommand("thread backtrace all"))
	assert.Equal(t, "~", vocabulary{}.NormalizeCommand("thread list"))
}

func TestOpenDumpCommandIncludesExecutableWhenGiven(t *testing.T) {
	cmd := vocabulary{}.OpenDumpCommand(`C:\dumps\a.dmp`, `C:\bin\myapp.exe`)
	assert.Contains(t, cmd, `a.dmp`)
	assert.Contains(t, cmd, `myapp.exe`)
}
