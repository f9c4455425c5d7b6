package browseropen

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStrategiesForOSNonEmpty(t *testing.T) {
	strategies := strategiesForOS()
	require.NotEmpty(t, strategies)
}

func TestOpenReturnsErrNoHandlerWhenNothingOnPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("strategy list is platform-specific")
	}
	t.Setenv("PATH", t.TempDir())
	err := Open("/tmp/does-not-matter.html")
	require.Error(t, err)
	var nh *ErrNoHandler
	require.ErrorAs(t, err, &nh)
}
