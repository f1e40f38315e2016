package provider

import "sync"

// idempotencyCache remembers the result of a mutating call by key so a
// retried request against a backend without native compare-and-set
// semantics replays the prior result instead of duplicating the effect
// (spec §4.8: "all provider calls must be idempotent on retry").
type idempotencyCache struct {
	mu      sync.Mutex
	results map[string]BoardTask
}

func newIdempotencyCache() *idempotencyCache {
	return &idempotencyCache{results: make(map[string]BoardTask)}
}

// do returns the cached result for key if present, otherwise runs fn,
// caches its result on success, and returns it.
func (c *idempotencyCache) do(key string, fn func() (BoardTask, error)) (BoardTask, error) {
	if key == "" {
		return fn()
	}
	c.mu.Lock()
	if cached, ok := c.results[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err := fn()
	if err != nil {
		return result, err
	}

	c.mu.Lock()
	c.results[key] = result
	c.mu.Unlock()
	return result, nil
}
