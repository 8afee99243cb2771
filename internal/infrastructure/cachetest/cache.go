// Package cachetest provides an in-memory pkg/cache.Cache for tests,
// with the same JSON marshaling behavior as the Redis implementation.
package cachetest

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"

	"physlib-backend/pkg/cache"
)

type FakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewFakeCache() *FakeCache {
	return &FakeCache{entries: map[string][]byte{}}
}

func (f *FakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	f.mu.Lock()
	data, ok := f.entries[key]
	f.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

func (f *FakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = data
	return nil
}

func (f *FakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *FakeCache) DeletePattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.entries {
		if matched, _ := path.Match(pattern, key); matched {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *FakeCache) Increment(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	if data, ok := f.entries[key]; ok {
		parsed, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
		n = parsed
	}
	n++
	f.entries[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (f *FakeCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for key := range f.entries {
		if matched, _ := path.Match(pattern, key); matched {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *FakeCache) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok, nil
}

func (f *FakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (f *FakeCache) Ping(ctx context.Context) error { return nil }

var _ cache.Cache = (*FakeCache)(nil)
