// Package memory implements an in-memory document Store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ashureev/plate-labs/internal/document"
)

type docEntry struct {
	info document.Info
	data []byte
}

// Store implements document.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	docs map[string]docEntry
}

// New returns an in-memory document store.
func New() *Store { return &Store{docs: make(map[string]docEntry)} }

// Driver returns the driver identifier.
func (s *Store) Driver() document.Driver { return document.DriverMemory }

// Put stores a new document; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts document.PutOptions) (document.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return document.Info{}, fmt.Errorf("read document %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[key]; exists {
		return document.Info{}, fmt.Errorf("%w: %s", document.ErrExists, key)
	}
	info := document.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     document.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.docs[key] = docEntry{info: info, data: b}
	return info, nil
}

// Get returns document metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (document.Info, io.ReadCloser, error) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok {
		return document.Info{}, nil, fmt.Errorf("%w: %s", document.ErrNotFound, key)
	}
	data := bytes.Clone(doc.data)
	info := doc.info
	info.Metadata = document.CloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the document, returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[key]
	delete(s.docs, key)
	return ok, nil
}
