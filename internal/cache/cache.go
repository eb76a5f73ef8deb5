// Package cache is the revalidation cache used for category listings and
// per-date booking slots: values expire after a TTL or when one of their
// tags is invalidated.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	Delete(ctx context.Context, key string) error
	// InvalidateTag drops every key stored under tag and advances its
	// generation.
	InvalidateTag(ctx context.Context, tag string) error
	// Generation reports how many times tag has been invalidated.
	Generation(ctx context.Context, tag string) (uint64, error)
}

// Remember returns the cached value for key, or calls load and caches its
// result. Cache failures never fail the call; load errors are returned as is.
// A result loaded while one of its tags was invalidated is not kept.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, tags []string, load func(ctx context.Context) (T, error)) (T, error) {
	if c != nil {
		if raw, err := c.Get(ctx, key); err == nil {
			var v T
			if json.Unmarshal(raw, &v) == nil {
				return v, nil
			}
		}
	}

	var before []uint64
	if c != nil {
		before = generations(ctx, c, tags)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c == nil || before == nil {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if c.Set(ctx, key, raw, ttl, tags...) != nil {
		return v, nil
	}
	// An invalidation that lands after this check also removes key, since
	// key is already a member of its tags.
	if after := generations(ctx, c, tags); !slices.Equal(before, after) {
		_ = c.Delete(ctx, key)
	}
	return v, nil
}

// generations returns the current generation of each tag, or nil when any
// of them cannot be read.
func generations(ctx context.Context, c Cache, tags []string) []uint64 {
	gens := make([]uint64, len(tags))
	for i, tag := range tags {
		g, err := c.Generation(ctx, tag)
		if err != nil {
			return nil
		}
		gens[i] = g
	}
	return gens
}
