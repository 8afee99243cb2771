package storage

import "context"

// Entry describes one stored object, as returned by List.
type Entry struct {
	Key  string
	Size int64
}

// ObjectStage is the blob-store contract the upload and save flows depend
// on. It has two logical zones inside one bucket: temp/ for staged uploads
// and books/<id>/ for permanent images. Implementations: MinIO in
// production, an in-memory fake in tests.
type ObjectStage interface {
	// Upload stores data at key.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// Download reads an object back. Used by the variant worker.
	Download(ctx context.Context, key string) ([]byte, error)

	// Move relocates an object from src to dst (copy + remove).
	Move(ctx context.Context, src, dst string) error

	// Remove deletes the given objects. Callers treat failures as
	// best-effort and only log them.
	Remove(ctx context.Context, keys []string) error

	// RemovePrefix deletes every object under a prefix, e.g. books/<id>/.
	RemovePrefix(ctx context.Context, prefix string) error

	// List returns the entries under prefix whose base name contains
	// search. Used to probe whether a retried upload already landed.
	List(ctx context.Context, prefix, search string) ([]Entry, error)

	// PublicURL derives the public URL for a key. Pure, no network.
	PublicURL(key string) string
}
