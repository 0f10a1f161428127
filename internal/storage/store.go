package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	BackendLocal     = "local"
	BackendS3        = "s3"
	BackendWorkspace = "workspace"
)

// ErrUnknownBackend is returned when an artifact names a backend that is not configured.
var ErrUnknownBackend = errors.New("storage: unknown backend")

// ObjectStore is the surface the worker uploads through and the api reads from.
type ObjectStore interface {
	Backend() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PutFile uploads the file at path under key and returns the stored key and size.
func PutFile(ctx context.Context, store ObjectStore, key, path, contentType string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	stored, err := store.Put(ctx, key, f, info.Size(), contentType)
	if err != nil {
		return "", 0, err
	}
	return stored, info.Size(), nil
}

// Backends resolves artifact backends by name.
type Backends map[string]ObjectStore

// NewBackends indexes the given stores by their backend name, skipping nils.
func NewBackends(stores ...ObjectStore) Backends {
	b := Backends{}
	for _, s := range stores {
		if s != nil {
			b[s.Backend()] = s
		}
	}
	return b
}

func (b Backends) Get(backend string) (ObjectStore, error) {
	s, ok := b[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return s, nil
}

func (b Backends) Open(ctx context.Context, backend, key string) (io.ReadCloser, error) {
	s, err := b.Get(backend)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, key)
}
