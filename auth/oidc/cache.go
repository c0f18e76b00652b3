package oidc

import (
	"sync"

	"github.com/kbukum/gobexport/errors"
)

// Cache hands out one Lifecycle per identity for the life of the process.
type Cache struct {
	newProvider ProviderFunc
	opts        []Option

	mu         sync.Mutex
	lifecycles map[string]*Lifecycle
}

// NewCache creates a cache that builds providers with fn.
func NewCache(fn ProviderFunc, opts ...Option) *Cache {
	return &Cache{
		newProvider: fn,
		opts:        opts,
		lifecycles:  make(map[string]*Lifecycle),
	}
}

// Get returns the lifecycle for identity, creating it on first use.
func (c *Cache) Get(identity string) (*Lifecycle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.lifecycles[identity]; ok {
		return l, nil
	}
	if c.newProvider == nil {
		return nil, errors.ConfigurationError("no credential provider for identity %q", identity)
	}
	p, err := c.newProvider(identity)
	if err != nil {
		return nil, err
	}
	l := NewLifecycle(identity, p, c.opts...)
	c.lifecycles[identity] = l
	return l, nil
}

// Len returns the number of identities held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lifecycles)
}
