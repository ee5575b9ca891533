// Package fs implements a document Store on the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/plate-labs/internal/document"
)

// Store maps keys to files under root. A JSON sidecar (filename + ".meta")
// keeps the content type and metadata.
type Store struct {
	root string
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// New returns a filesystem-backed store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./data/documents"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create document root: %w", err)
	}
	return &Store{root: root}, nil
}

// Driver returns the driver identifier.
func (s *Store) Driver() document.Driver { return document.DriverFilesystem }

// sanitizeKey forbids empty keys, absolute paths and traversal out of root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	return dataPath, dataPath + ".meta", nil
}

// Put writes a new document; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts document.PutOptions) (document.Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return document.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return document.Info{}, fmt.Errorf("%w: %s", document.ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return document.Info{}, err
	}

	// Write to a temp file first so readers never see a partial document.
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return document.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return document.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return document.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return document.Info{}, err
	}

	now := time.Now().UTC()
	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    document.CloneMetadata(opts.Metadata),
		Size:        size,
		CreatedAt:   now,
	}
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return document.Info{}, err
	}
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		return document.Info{}, err
	}
	return mf.info(key), nil
}

// Get opens a stored document.
func (s *Store) Get(_ context.Context, key string) (document.Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return document.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return document.Info{}, nil, fmt.Errorf("%w: %s", document.ErrNotFound, key)
	}
	if err != nil {
		return document.Info{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return document.Info{}, nil, err
	}
	return mf.info(key), file, nil
}

// Delete removes the document and its sidecar.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(dataPath); errors.Is(err, iofs.ErrNotExist) {
		return false, nil
	}
	if err := os.Remove(dataPath); err != nil {
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

func (m metaFile) info(key string) document.Info {
	return document.Info{
		Key:          key,
		Size:         m.Size,
		ContentType:  m.ContentType,
		Metadata:     document.CloneMetadata(m.Metadata),
		LastModified: m.CreatedAt,
	}
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return mf, nil
}
