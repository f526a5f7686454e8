package dataplane

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// Record is one packet's forwarding decision, kept around briefly for
// observability — the operational equivalent of the original plugin's
// packet trace, but addressable by the control plane instead of only
// through a CLI pretty-printer.
type Record struct {
	DstISDAS uint64
	SrcISDAS uint64
	Action   Action
	At       time.Time
}

// Trace is a small ring of recently validated packets' Records, evicted
// by age rather than by a fixed ring size: entries older than the
// configured TTL simply age out of go-cache's janitor.
type Trace struct {
	c    *cache.Cache
	next atomic.Uint64
}

// NewTrace returns a Trace retaining Records for up to ttl.
func NewTrace(ttl time.Duration) *Trace {
	return &Trace{c: cache.New(ttl, ttl/2)}
}

// Record stores r, assigning it a monotonically increasing key so
// Recent can return records in insertion order.
func (t *Trace) Record(r Record) {
	key := t.next.Add(1)
	t.c.Set(strconv.FormatUint(key, 36), r, cache.DefaultExpiration)
}

// Recent returns up to the n most recently recorded Records, oldest
// first. n <= 0 returns every currently retained Record. This is the
// read-only introspection call standing in for the original plugin's
// CLI-driven buffer tracer.
func (t *Trace) Recent(n int) []Record {
	items := t.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseUint(keys[i], 36, 64)
		b, _ := strconv.ParseUint(keys[j], 36, 64)
		return a < b
	})
	if n > 0 && len(keys) > n {
		keys = keys[len(keys)-n:]
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, items[k].Object.(Record))
	}
	return out
}

// Len reports how many Records are currently retained.
func (t *Trace) Len() int { return t.c.ItemCount() }
