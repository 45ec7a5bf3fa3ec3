package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coldfire85/neurolog/internal/media"
)

// ErrStorageFailure marks any directory-creation or write failure,
// distinct from validation errors.
var ErrStorageFailure = errors.New("storage failure")

// SavedFile describes a file successfully placed on disk.
type SavedFile struct {
	StoredName string
	PublicPath string
	Size       int64
}

// Store defines the interface for media storage backends.
// This allows swapping filesystem for S3 or other backends later.
type Store interface {
	Save(userID string, category media.Category, ext string, data io.Reader) (*SavedFile, error)
	Open(userID string, category media.Category, storedName string) (io.ReadCloser, error)
	Delete(userID string, category media.Category, storedName string) error
	EnsureDir() error
}

// FileSystemStore keeps uploaded media on the local filesystem, partitioned
// by user and category: {root}/{userID}/{categoryDir}/{storedName}.
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(root string) *FileSystemStore {
	return &FileSystemStore{root: root}
}

// EnsureDir creates the storage root if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.root, 0755); err != nil {
		return fmt.Errorf("%w: failed to create media root %s: %v", ErrStorageFailure, fs.root, err)
	}
	return nil
}

// Save writes data under a freshly generated stored name and returns the
// public path for it. The write is atomic from the caller's perspective:
// bytes go to a temp file in the target directory first and are renamed
// into place only after a successful write and sync. On any failure no
// path is returned and no partial file remains.
func (fs *FileSystemStore) Save(userID string, category media.Category, ext string, data io.Reader) (*SavedFile, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrStorageFailure, string(category))
	}

	storedName, err := NewStoredName(ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	dir := filepath.Join(fs.root, userID, category.DirName())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory %s: %v", ErrStorageFailure, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp file: %v", ErrStorageFailure, err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: failed to write file: %v", ErrStorageFailure, err)
	}

	finalPath := filepath.Join(dir, storedName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: failed to finalize file: %v", ErrStorageFailure, err)
	}

	return &SavedFile{
		StoredName: storedName,
		PublicPath: fmt.Sprintf("/uploads/%s/%s/%s", userID, category.DirName(), storedName),
		Size:       n,
	}, nil
}

// Open returns a reader for a stored file.
func (fs *FileSystemStore) Open(userID string, category media.Category, storedName string) (io.ReadCloser, error) {
	path, err := fs.filePath(userID, category, storedName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", storedName)
		}
		return nil, fmt.Errorf("%w: failed to open file: %v", ErrStorageFailure, err)
	}
	return f, nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (fs *FileSystemStore) Delete(userID string, category media.Category, storedName string) error {
	path, err := fs.filePath(userID, category, storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete file %s: %v", ErrStorageFailure, path, err)
	}
	return nil
}

// filePath builds the on-disk path for a stored file, rejecting any name
// that could escape the user/category directory.
func (fs *FileSystemStore) filePath(userID string, category media.Category, storedName string) (string, error) {
	for _, part := range []string{userID, storedName} {
		if part == "" || part != filepath.Base(part) || strings.Contains(part, "..") {
			return "", fmt.Errorf("invalid path component %q", part)
		}
	}
	if !category.Valid() {
		return "", fmt.Errorf("unknown category %q", string(category))
	}
	return filepath.Join(fs.root, userID, category.DirName(), storedName), nil
}

const base36Charset = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewStoredName generates a collision-improbable stored filename of the
// form {unixMillis}-{base36Random8}.{ext}. The name is never derived from
// user input.
func NewStoredName(ext string) (string, error) {
	token := make([]byte, 8)
	for i := range token {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Charset))))
		if err != nil {
			return "", fmt.Errorf("crypto/rand failure: %w", err)
		}
		token[i] = base36Charset[n.Int64()]
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return fmt.Sprintf("%d-%s.%s", time.Now().UnixMilli(), token, ext), nil
}
