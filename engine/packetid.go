package engine

import "sort"

// packetIDAllocator hands out 16-bit, non-zero MQTT packet identifiers.
//
// Per the component design it keeps a sorted vector of currently-allocated
// IDs rather than a map: allocation scans forward from last_issued+1 in
// sorted order, and release does a binary-search removal. This trades O(log n)
// lookups and O(n) insert/remove for predictable, allocation-free growth,
// which matters more on the embedded targets this engine also runs on than
// raw map throughput does.
type packetIDAllocator struct {
	allocated  []uint16 // sorted ascending, never contains 0
	lastIssued uint16
}

func (a *packetIDAllocator) indexOf(id uint16) (int, bool) {
	i := sort.Search(len(a.allocated), func(i int) bool { return a.allocated[i] >= id })
	return i, i < len(a.allocated) && a.allocated[i] == id
}

// alloc returns the next free, non-zero packet ID, wrapping past 0. It
// returns ok=false once all 65535 legal IDs are in use.
func (a *packetIDAllocator) alloc() (id uint16, ok bool) {
	if len(a.allocated) >= 65535 {
		return 0, false
	}
	start := a.lastIssued + 1
	if start == 0 {
		start = 1
	}
	candidate := start
	for {
		if _, found := a.indexOf(candidate); !found {
			i, _ := a.indexOf(candidate)
			a.allocated = append(a.allocated, 0)
			copy(a.allocated[i+1:], a.allocated[i:])
			a.allocated[i] = candidate
			a.lastIssued = candidate
			return candidate, true
		}
		candidate++
		if candidate == 0 {
			candidate = 1
		}
		if candidate == start {
			return 0, false
		}
	}
}

// release frees id, making it eligible for reallocation. Releasing an id that
// was never allocated is a no-op.
func (a *packetIDAllocator) release(id uint16) {
	if i, found := a.indexOf(id); found {
		a.allocated = append(a.allocated[:i], a.allocated[i+1:]...)
	}
}

// live reports whether id is currently allocated.
func (a *packetIDAllocator) live(id uint16) bool {
	_, found := a.indexOf(id)
	return found
}

func (a *packetIDAllocator) count() int { return len(a.allocated) }

func (a *packetIDAllocator) reset() {
	a.allocated = a.allocated[:0]
	a.lastIssued = 0
}
