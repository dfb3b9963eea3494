// Package binaryset implements the named-blob container used to persist and
// exchange index state.
//
// A Set maps unique string keys to byte blobs. Every index implementation
// writes its state into a Set on Serialize and reads it back on Deserialize,
// so a Set produced by one process can be loaded by any implementation of the
// same type in another.
package binaryset

import (
	"slices"
	"sort"
)

// Blob is a named byte blob.
//
// Owned reports whether the Set holds a private copy of Data. A blob that is
// not owned references memory managed elsewhere (a caller buffer or a memory
// mapping) and is only valid while that memory is.
type Blob struct {
	Name  string
	Data  []byte
	Owned bool
}

// Size returns the blob length in bytes.
func (b *Blob) Size() int {
	return len(b.Data)
}

// Set is a collection of blobs with unique names.
// It is not safe for concurrent mutation.
type Set struct {
	blobs map[string]*Blob
}

// New creates an empty Set.
func New() *Set {
	return &Set{blobs: make(map[string]*Blob)}
}

// Append stores a private copy of data under name, replacing any existing blob.
func (s *Set) Append(name string, data []byte) {
	s.put(&Blob{Name: name, Data: slices.Clone(data), Owned: true})
}

// AppendRef stores data under name without copying it.
// The caller must keep data unchanged and alive for the lifetime of the Set.
func (s *Set) AppendRef(name string, data []byte) {
	s.put(&Blob{Name: name, Data: data, Owned: false})
}

func (s *Set) put(b *Blob) {
	if s.blobs == nil {
		s.blobs = make(map[string]*Blob)
	}
	s.blobs[b.Name] = b
}

// Get returns the blob stored under name.
func (s *Set) Get(name string) (*Blob, bool) {
	b, ok := s.blobs[name]
	return b, ok
}

// Has reports whether a blob is stored under name.
func (s *Set) Has(name string) bool {
	_, ok := s.blobs[name]
	return ok
}

// Remove deletes the blob stored under name.
func (s *Set) Remove(name string) {
	delete(s.blobs, name)
}

// Keys returns the blob names in ascending order.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of blobs.
func (s *Set) Len() int {
	return len(s.blobs)
}

// Size returns the total payload size of all blobs in bytes.
func (s *Set) Size() int64 {
	var n int64
	for _, b := range s.blobs {
		n += int64(len(b.Data))
	}
	return n
}

// Clone returns a deep copy in which every blob is owned.
func (s *Set) Clone() *Set {
	out := New()
	for _, b := range s.blobs {
		out.Append(b.Name, b.Data)
	}
	return out
}
