package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithCorpusLimit caps reference answers kept per game. When the cap is hit the
// oldest unverified player entry is dropped first. limit <= 0 disables the cap.
func WithCorpusLimit(limit int) Option {
	return func(s *MemoryStore) { s.corpusLimit = limit }
}
