package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendAliasTableAllocateAndLookup(t *testing.T) {
	tbl := newSendAliasTable(5)
	alias, eerr := tbl.allocate("a/b", 3)
	require.Equal(t, ErrNone, eerr)
	require.EqualValues(t, 1, alias)

	entry, ok := tbl.lookup("a/b")
	require.True(t, ok)
	require.Equal(t, 3, entry.lowQoSRemaining)
}

func TestSendAliasTableFreeListIsLIFO(t *testing.T) {
	tbl := newSendAliasTable(5)
	a1, _ := tbl.allocate("t1", 0)
	a2, _ := tbl.allocate("t2", 0)
	tbl.free("t1")
	tbl.free("t2")

	// LIFO: last freed (t2's alias) comes back first.
	a3, eerr := tbl.allocate("t3", 0)
	require.Equal(t, ErrNone, eerr)
	require.Equal(t, a2, a3)

	a4, eerr := tbl.allocate("t4", 0)
	require.Equal(t, ErrNone, eerr)
	require.Equal(t, a1, a4)
}

func TestSendAliasTableExhaustion(t *testing.T) {
	tbl := newSendAliasTable(1)
	_, eerr := tbl.allocate("t1", 0)
	require.Equal(t, ErrNone, eerr)

	_, eerr = tbl.allocate("t2", 0)
	require.Equal(t, ErrRetryLater, eerr)
}

func TestSendAliasTableDuplicateTopicRejected(t *testing.T) {
	tbl := newSendAliasTable(5)
	_, eerr := tbl.allocate("t1", 0)
	require.Equal(t, ErrNone, eerr)

	_, eerr = tbl.allocate("t1", 0)
	require.Equal(t, ErrBadParam, eerr)
}

func TestRecvAliasTableRegisterAndResolve(t *testing.T) {
	tbl := newRecvAliasTable(10)
	require.True(t, tbl.register(3, "sensors/temp"))

	topic, ok := tbl.resolve(3)
	require.True(t, ok)
	require.Equal(t, "sensors/temp", topic)

	_, ok = tbl.resolve(4)
	require.False(t, ok, "unregistered alias must not resolve")
}

func TestRecvAliasTableRejectsOutOfRange(t *testing.T) {
	tbl := newRecvAliasTable(2)
	require.False(t, tbl.register(0, "x"), "alias 0 is never valid")
	require.False(t, tbl.register(3, "x"), "alias beyond advertised max must be rejected")
}
