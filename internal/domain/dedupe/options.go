package dedupe

import "time"

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize caps tracked keys; the oldest key is evicted when full.
// maxSize <= 0 disables the cap.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) { d.maxSize = maxSize }
}

// WithTTL sets how long a key stays in flight without being released.
// ttl <= 0 disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) { d.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *inMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
