package tracing

import (
	"sort"
	"sync"
)

// AccessCount is the number of reads and writes seen at one location.
type AccessCount struct {
	Location string `json:"location"`
	Reads    uint64 `json:"reads"`
	Writes   uint64 `json:"writes"`
}

// CountTracer counts the accesses per location.
type CountTracer struct {
	lock   sync.Mutex
	counts map[string]*AccessCount
}

// NewCountTracer creates a new CountTracer.
func NewCountTracer() *CountTracer {
	return &CountTracer{counts: make(map[string]*AccessCount)}
}

// TraceAccess counts the access.
func (t *CountTracer) TraceAccess(a Access) {
	t.lock.Lock()
	defer t.lock.Unlock()

	c, ok := t.counts[a.Location]
	if !ok {
		c = &AccessCount{Location: a.Location}
		t.counts[a.Location] = c
	}

	if a.Kind == KindWrite {
		c.Writes++
	} else {
		c.Reads++
	}
}

// Counts returns the counts sorted by location.
func (t *CountTracer) Counts() []AccessCount {
	t.lock.Lock()
	defer t.lock.Unlock()

	counts := make([]AccessCount, 0, len(t.counts))
	for _, c := range t.counts {
		counts = append(counts, *c)
	}

	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Location < counts[j].Location
	})

	return counts
}
