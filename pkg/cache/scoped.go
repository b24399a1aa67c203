package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one backend, such as a Redis instance used by several projects.
// Set through the cache_prefix configuration key.
//
//	k := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "chartforge:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// GenerationKey generates a prefixed generation key.
func (k *ScopedKeyer) GenerationKey(model string, temperature float32, prompt string) string {
	return k.prefix + k.inner.GenerationKey(model, temperature, prompt)
}
