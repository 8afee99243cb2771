// Package storagetest provides an in-memory ObjectStage with failure
// injection, used wherever tests need a blob store.
package storagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"physlib-backend/internal/infrastructure/storage"
)

// FakeStage is a thread-safe in-memory ObjectStage. Failure injection is
// per-operation: FailUploads(n) makes the next n uploads fail, and the
// Fail* maps force errors for specific keys.
type FakeStage struct {
	mu      sync.Mutex
	objects map[string][]byte

	uploadFailures int
	ackLostUploads int
	failMove       map[string]bool
	failRemove     bool

	UploadCalls int
	MoveCalls   int
	RemoveCalls int
	ListCalls   int
}

func NewFakeStage() *FakeStage {
	return &FakeStage{
		objects:  map[string][]byte{},
		failMove: map[string]bool{},
	}
}

// FailUploads makes the next n Upload calls return an error.
func (f *FakeStage) FailUploads(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadFailures = n
}

// LoseUploadAcks makes the next n Upload calls store the object but
// still return an error, like a response lost after the write landed.
func (f *FakeStage) LoseUploadAcks(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ackLostUploads = n
}

// FailMove makes Move fail for the given source key.
func (f *FakeStage) FailMove(src string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMove[src] = true
}

// FailRemoves makes every Remove call return an error.
func (f *FakeStage) FailRemoves(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRemove = fail
}

func (f *FakeStage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.UploadCalls++

	if f.uploadFailures > 0 {
		f.uploadFailures--
		return fmt.Errorf("injected upload failure for %s", key)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = cp

	if f.ackLostUploads > 0 {
		f.ackLostUploads--
		return fmt.Errorf("injected lost acknowledgement for %s", key)
	}
	return nil
}

func (f *FakeStage) Download(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (f *FakeStage) Move(ctx context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MoveCalls++

	if f.failMove[src] {
		return fmt.Errorf("injected move failure for %s", src)
	}

	data, ok := f.objects[src]
	if !ok {
		return fmt.Errorf("object %s not found", src)
	}
	f.objects[dst] = data
	delete(f.objects, src)
	return nil
}

func (f *FakeStage) Remove(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemoveCalls++

	if f.failRemove {
		return fmt.Errorf("injected remove failure")
	}

	for _, key := range keys {
		delete(f.objects, key)
	}
	return nil
}

func (f *FakeStage) RemovePrefix(ctx context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemoveCalls++

	if f.failRemove {
		return fmt.Errorf("injected remove failure")
	}

	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *FakeStage) List(ctx context.Context, prefix, search string) ([]storage.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++

	var entries []storage.Entry
	for key, data := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		base := key[strings.LastIndex(key, "/")+1:]
		if search == "" || strings.Contains(base, search) {
			entries = append(entries, storage.Entry{Key: key, Size: int64(len(data))})
		}
	}
	return entries, nil
}

func (f *FakeStage) PublicURL(key string) string {
	return "http://storage.test/physlib-images/" + key
}

// Has reports whether an object exists at key.
func (f *FakeStage) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// Keys returns every stored key with the given prefix.
func (f *FakeStage) Keys(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

var _ storage.ObjectStage = (*FakeStage)(nil)
