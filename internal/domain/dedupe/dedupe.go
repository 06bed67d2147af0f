// Package dedupe guards against concurrent duplicate submissions.
//
// A key is recorded when a grading request for a (player, game) pair starts and
// unrecorded when it finishes. Keys left behind by a crashed request expire after a TTL.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultMaxSize = 50_000
	defaultTTL     = 2 * time.Minute
)

// Deduper tracks in-flight keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key is in flight and records it if not.
	// Returns true if key was already in flight.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key once its request completes.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key     string
	expires time.Time
}

// inMemoryDeduper keeps keys in insertion order so the oldest can be evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	order   *list.List
	index   map[string]*list.Element
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		order:   list.New(),
		index:   make(map[string]*list.Element),
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.index[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.index[key] = d.order.PushBack(&entry{key: key, expires: now.Add(d.ttl)})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[key]; ok {
		d.remove(el)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}

// expire drops entries past their TTL. Caller holds d.mu.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if el.Value.(*entry).expires.After(now) {
			return
		}
		d.remove(el)
	}
}

func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.index, el.Value.(*entry).key)
	d.order.Remove(el)
}
