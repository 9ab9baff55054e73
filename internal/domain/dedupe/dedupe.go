// Package dedupe tracks claimed identifiers so each one is acted on at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records claimed IDs to ensure at-most-once processing.
// Claims are never evicted; only Unrecord gives one up.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if the caller now owns it.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases an ID so a later caller may claim it again.
	// Used when the work guarded by a claim failed.
	Unrecord(ctx context.Context, id string)

	// Keys returns a snapshot of the recorded IDs, oldest first.
	Keys(ctx context.Context) []string

	Size() int64
}

// inMemoryDeduper keeps IDs in claim order.
type inMemoryDeduper struct {
	mu    sync.Mutex
	seen  map[string]*list.Element
	order *list.List // oldest at front
}

// NewInMemoryDeduper creates an empty in-memory deduper.
func NewInMemoryDeduper() Deduper {
	return &inMemoryDeduper{
		seen:  make(map[string]*list.Element),
		order: list.New(),
	}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, exists := d.seen[id]; exists {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Keys(_ context.Context) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, d.order.Len())
	for el := d.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(string))
	}
	return keys
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
