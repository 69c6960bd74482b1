package chat

import (
	"sync"

	"github.com/cespare/xxhash"
)

// echoFilter remembers fingerprints of the last n payloads this process sent.
// Each fingerprint matches at most one incoming datagram.
type echoFilter struct {
	mu      sync.Mutex
	entries []echoEntry
	next    int
}

type echoEntry struct {
	sum  uint64
	live bool
}

func newEchoFilter(n int) *echoFilter {
	return &echoFilter{entries: make([]echoEntry, n)}
}

func (f *echoFilter) remember(payload []byte) {
	f.mu.Lock()
	f.entries[f.next] = echoEntry{sum: xxhash.Sum64(payload), live: true}
	f.next = (f.next + 1) % len(f.entries)
	f.mu.Unlock()
}

// consume reports whether payload is a pending echo and retires it if so.
func (f *echoFilter) consume(payload []byte) bool {
	sum := xxhash.Sum64(payload)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].live && f.entries[i].sum == sum {
			f.entries[i].live = false
			return true
		}
	}
	return false
}
