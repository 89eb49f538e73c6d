// Package storage keeps uploaded file bytes. Metadata lives in the database;
// this store only knows opaque content keys.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	ErrContentNotFound = errors.New("storage: content not found")
	ErrTooLarge        = errors.New("storage: content exceeds size limit")
)

// ContentStore writes and reads file content below a root directory.
type ContentStore struct {
	fs   afero.Fs
	root string
}

// NewContentStore creates a store rooted at root on fs.
func NewContentStore(fs afero.Fs, root string) (*ContentStore, error) {
	if err := fs.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &ContentStore{fs: fs, root: root}, nil
}

// NewOsContentStore creates a store on the local filesystem.
func NewOsContentStore(root string) (*ContentStore, error) {
	return NewContentStore(afero.NewOsFs(), root)
}

// NewMemContentStore creates an in-memory store, used by tests.
func NewMemContentStore() *ContentStore {
	store, _ := NewContentStore(afero.NewMemMapFs(), "/uploads")
	return store
}

// Put copies r into a new content object and returns its key and size.
// At most limit bytes are accepted when limit > 0.
func (s *ContentStore) Put(r io.Reader, limit int64) (string, int64, error) {
	key := uuid.NewString()
	f, err := s.fs.OpenFile(s.path(key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create content: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(s.path(key))
		return "", 0, err
	}
	return key, n, nil
}

// Open returns a reader for key.
func (s *ContentStore) Open(key string) (afero.File, error) {
	f, err := s.fs.Open(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes key. Removing a missing key is not an error.
func (s *ContentStore) Delete(key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *ContentStore) path(key string) string {
	return filepath.Join(s.root, filepath.Base(key))
}
