package persistence

import (
	"context"
	"fmt"
)

// Collection is a JSON encoded list of records persisted under a single key.
//
// When the key is absent or its payload cannot be decoded, Load returns the
// seed dataset without writing it back; the seed becomes durable only after
// the first successful mutation.
type Collection[T any] struct {
	store *Store
	key   string
	seed  func() []T
}

// NewCollection binds a collection to key. seed must return a fresh slice on
// every call.
func NewCollection[T any](store *Store, key string, seed func() []T) *Collection[T] {
	if seed == nil {
		seed = func() []T { return nil }
	}
	return &Collection[T]{store: store, key: key, seed: seed}
}

// Key returns the storage key backing the collection.
func (c *Collection[T]) Key() string {
	return c.key
}

// Load returns the persisted records, or the seed when nothing usable is stored.
func (c *Collection[T]) Load(ctx context.Context) []T {
	unlock := c.store.Lock(c.key)
	defer unlock()
	return c.loadLocked(ctx)
}

// Save replaces the persisted records.
func (c *Collection[T]) Save(ctx context.Context, items []T) {
	unlock := c.store.Lock(c.key)
	defer unlock()
	c.saveLocked(ctx, items)
}

// Clear removes the persisted records so the next Load yields the seed.
func (c *Collection[T]) Clear(ctx context.Context) {
	unlock := c.store.Lock(c.key)
	defer unlock()
	c.store.Remove(ctx, c.key)
}

// Update runs a read-modify-write cycle while holding the key's mutex. A
// missing or corrupt value starts from the seed, but a failed read aborts
// without writing so the stored records are never replaced by the seed. When
// fn returns an error nothing is written and the error is returned unchanged.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) ([]T, error) {
	unlock := c.store.Lock(c.key)
	defer unlock()

	var items []T
	found, err := c.store.ReadJSON(ctx, c.key, &items)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	if !found || items == nil {
		items = c.seed()
	}

	next, err := fn(items)
	if err != nil {
		return nil, err
	}
	c.saveLocked(ctx, next)
	return next, nil
}

func (c *Collection[T]) loadLocked(ctx context.Context) []T {
	var items []T
	if !c.store.LoadJSON(ctx, c.key, &items) || items == nil {
		return c.seed()
	}
	return items
}

func (c *Collection[T]) saveLocked(ctx context.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.store.SaveJSON(ctx, c.key, items)
}
