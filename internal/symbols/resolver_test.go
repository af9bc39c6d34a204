package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonyredondo/debugger-mcp-server-sub012/internal/driver"
)

func TestComposeLLDBOrdersLocalsBeforeRemotesAndDropsRemotes(t *testing.T) {
	out := Compose(driver.FamilyLLDB, []string{"https://symbols.example.com", "/opt/symbols"}, "/dumps/alice/.symbols_d1")
	assert.Equal(t, "/dumps/alice/.symbols_d1:/opt/symbols", out)
}

func TestComposeWinDbgWrapsRemoteURLs(t *testing.T) {
	out := Compose(driver.FamilyWinDbg, []string{"/opt/symbols", "https://msdl.example.com/download/symbols"}, "/dumps/alice/.symbols_d1")
	assert.Contains(t, out, "/dumps/alice/.symbols_d1")
	assert.Contains(t, out, "/opt/symbols")
	assert.Contains(t, out, "srv*/dumps/alice/.symbols_d1*https://msdl.example.com/download/symbols")
}

func TestComposeDedupesPreservingFirstOccurrence(t *testing.T) {
	out := Compose(driver.FamilyLLDB, []string{"/opt/symbols", "/opt/symbols"}, "")
	assert.Equal(t, "/opt/symbols", out)
}

func TestComposeOmitsEmptyCacheDir(t *testing.T) {
	out := Compose(driver.FamilyLLDB, []string{"/opt/symbols"}, "")
	assert.Equal(t, "/opt/symbols", out)
}
