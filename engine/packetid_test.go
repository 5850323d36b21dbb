package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketIDAllocatorNeverReturnsZero(t *testing.T) {
	var a packetIDAllocator
	for i := 0; i < 10; i++ {
		id, ok := a.alloc()
		require.True(t, ok)
		require.NotZero(t, id)
	}
}

func TestPacketIDAllocatorReleaseFreesSlot(t *testing.T) {
	var a packetIDAllocator
	id, ok := a.alloc()
	require.True(t, ok)
	require.True(t, a.live(id))

	a.release(id)
	require.False(t, a.live(id))
}

func TestPacketIDAllocatorScansFromLastIssued(t *testing.T) {
	var a packetIDAllocator
	first, _ := a.alloc()
	second, _ := a.alloc()
	require.Equal(t, first+1, second)

	a.release(first)
	third, _ := a.alloc()
	require.Equal(t, second+1, third, "allocation should continue forward from last_issued, not backfill released holes first")
}

func TestPacketIDAllocatorWrapsPastZero(t *testing.T) {
	var a packetIDAllocator
	a.lastIssued = 65534
	idA, ok := a.alloc() // 65535
	require.True(t, ok)
	require.EqualValues(t, 65535, idA)

	idB, ok := a.alloc() // wraps to 1
	require.True(t, ok)
	require.EqualValues(t, 1, idB)
}

func TestPacketIDAllocatorExhaustion(t *testing.T) {
	var a packetIDAllocator
	for i := 0; i < 65535; i++ {
		_, ok := a.alloc()
		require.True(t, ok)
	}
	_, ok := a.alloc()
	require.False(t, ok, "pool of 65535 live ids must refuse a 65536th allocation")
}

func TestPacketIDAllocatorUniqueness(t *testing.T) {
	var a packetIDAllocator
	seen := make(map[uint16]bool)
	for i := 0; i < 1000; i++ {
		id, ok := a.alloc()
		require.True(t, ok)
		require.False(t, seen[id], "packet id %d allocated twice while still live", id)
		seen[id] = true
	}
}
