package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeapStatistics(t *testing.T) {
	text := `1,024  65,536  System.String
2  128  MyApp.Widget
Total committed bytes: 4,194,304
`
	stats := ParseHeapStatistics(text)
	require.Len(t, stats.PerType, 2)
	assert.Equal(t, "System.String", stats.PerType[0].TypeName)
	assert.Equal(t, uint64(1024), stats.PerType[0].Count)
	assert.Equal(t, uint64(65536), stats.PerType[0].TotalBytes)
	require.NotNil(t, stats.CommittedBytes)
	assert.Equal(t, uint64(4194304), *stats.CommittedBytes)
}
