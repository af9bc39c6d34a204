package lldbdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCommandStripsBang(t *testing.T) {
	assert.Equal(t, "clrstack", vocabulary{}.NormalizeCommand("!clrstack"))
	assert.Equal(t, "pe", vocabulary{}.NormalizeCommand("pe"))
}

func TestNormalizeCommandTranslatesBacktraceVerbs(t *testing.T) {
	assert.Equal(t, "thread backtrace all", vocabulary{}.NormalizeCommand("bt all"))
	assert.Equal(t, "thread backtrace all", vocabulary{}.NormalizeCommand("k"))
}

func TestOpenDumpCommandIncludesExecutableWhenGiven(t *testing.T) {
	cmd := vocabulary{}.OpenDumpCommand("/dumps/a.dmp", "/bin/myapp")
	assert.Contains(t, cmd, "/dumps/a.dmp")
	assert.Contains(t, cmd, "/bin/myapp")

	cmd = vocabulary{}.OpenDumpCommand("/dumps/a.dmp", "")
	assert.Contains(t, cmd, "/dumps/a.dmp")
	assert.NotContains(t, cmd, "myapp")
}
