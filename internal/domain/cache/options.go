package cache

// Option applies a configuration option to an LRU.
type Option func(*settings)

type settings struct {
	maxEntries int
}

// WithMaxEntries bounds the number of cached results.
// If maxEntries <= 0 caching is disabled: Put is a no-op and Get always misses.
func WithMaxEntries(maxEntries int) Option {
	return func(s *settings) {
		s.maxEntries = maxEntries
	}
}
