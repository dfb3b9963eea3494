package binaryset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/vecmod/blobstore"
	"github.com/hupe1980/vecmod/internal/mmap"
)

// Mapped is a Set decoded zero-copy from a memory-mapped file.
// Its blobs reference the mapping and become invalid after Close.
type Mapped struct {
	*Set
	file *mmap.File
}

// Close releases the mapping. The embedded Set must not be used afterwards.
func (m *Mapped) Close() error {
	m.Set = nil
	return m.file.Close()
}

// OpenFile memory-maps an uncompressed or compressed container file and
// decodes it. Blobs of an uncompressed container are not owned and point into
// the mapping.
func OpenFile(path string) (*Mapped, error) {
	f, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(f.Bytes())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Mapped{Set: s, file: f}, nil
}

// WriteFile encodes s to path, creating parent directories as needed.
func WriteFile(path string, s *Set, optFns ...EncodeOption) error {
	data, err := Marshal(s, optFns...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Save encodes s and writes it to store under name.
func Save(ctx context.Context, store blobstore.Store, name string, s *Set, optFns ...EncodeOption) error {
	data, err := Marshal(s, optFns...)
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Load reads and decodes the container stored under name. Store
// implementations return a private buffer, so the blobs reference memory owned
// by the returned Set alone.
func Load(ctx context.Context, store blobstore.Store, name string) (*Set, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}
