package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIGuardSingleEntryIsOutermost(t *testing.T) {
	var g apiGuard
	require.True(t, g.enter())
	require.True(t, g.exit())
}

func TestAPIGuardReentrantCallIsNotOutermost(t *testing.T) {
	var g apiGuard
	require.True(t, g.enter())
	require.False(t, g.enter(), "a callback re-entering the engine is not the outermost call")
	require.False(t, g.exit(), "unwinding the inner call is not the outermost exit")
	require.True(t, g.exit())
}

func TestAPIGuardDepthTracksNesting(t *testing.T) {
	var g apiGuard
	g.enter()
	g.enter()
	g.enter()
	require.Equal(t, 3, g.depth)
	g.exit()
	require.Equal(t, 2, g.depth)
}
