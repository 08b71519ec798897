package provider

import (
	"golang.org/x/sync/singleflight"

	"github.com/finbridge/finbridge/internal/cache"
)

// Base carries the state shared by handler implementations: the shared cache
// store and a single-flight group that collapses concurrent fetches for the
// same (kind, ticker) key, so at most one network call per key is in flight.
// Embed it in concrete handlers.
type Base struct {
	name   string
	store  *cache.Store
	flight singleflight.Group
}

// NewBase creates handler base state for the named provider.
func NewBase(name string, store *cache.Store) Base {
	return Base{name: name, store: store}
}

// Name returns the provider identifier.
func (b *Base) Name() string { return b.name }

// Store returns the shared cache store.
func (b *Base) Store() *cache.Store { return b.store }

// FetchThrough is the read path every cached operation shares:
//
//  1. filter the cached collection for the request; a non-empty result is
//     returned with no network call. Any non-empty filtered result counts as
//     a hit, even when it does not cover the whole requested range. Callers
//     accept partial coverage in exchange for never re-fetching warm keys.
//  2. otherwise run fetch once per in-flight key (concurrent duplicates wait
//     and reuse the merge), write the normalized batch into the store, and
//     return the filtered view of the merged collection.
func FetchThrough[T any](b *Base, kind cache.Kind, ticker string,
	read func() []T,
	filter func([]T) []T,
	fetch func() ([]T, error),
	write func([]T),
) ([]T, error) {
	if out := filter(read()); len(out) > 0 {
		return out, nil
	}

	key := string(kind) + "|" + ticker
	_, err, _ := b.flight.Do(key, func() (any, error) {
		batch, err := fetch()
		if err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			write(batch)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return filter(read()), nil
}

// temporal is satisfied by every domain record.
type temporal interface{ TemporalKey() string }

// FilterRange returns the records whose temporal key lies in the inclusive
// [start, end] window, preserving order. Empty start means unbounded below,
// empty end unbounded above.
func FilterRange[T temporal](rs []T, start, end string) []T {
	out := make([]T, 0, len(rs))
	for _, r := range rs {
		key := r.TemporalKey()
		if start != "" && key < start {
			continue
		}
		if end != "" && key > end {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Head returns at most n leading records; n <= 0 means no limit.
func Head[T any](rs []T, n int) []T {
	if n <= 0 || len(rs) <= n {
		return rs
	}
	return rs[:n]
}
