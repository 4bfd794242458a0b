package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const metadataSuffix = ".meta.json"

// LocalFileStorage implements FileStorage on the local filesystem
type LocalFileStorage struct {
	basePath string
}

// NewLocalFileStorage creates the base directory when missing
func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, NewStorageError("NewLocalFileStorage", "", err, false)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, NewStorageError("NewLocalFileStorage", "", err, false)
	}

	return &LocalFileStorage{basePath: absPath}, nil
}

// Store writes to a temp file in the target directory and renames it into place
func (l *LocalFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("Store", key, err, false)
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("Store", key, err, false)
	}

	filePath := l.filePath(key)

	if opts == nil || !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fsError("Store", key, err)
	}

	if err := writeAtomic(dir, filePath, data); err != nil {
		return fsError("Store", key, err)
	}

	if opts != nil && (len(opts.Metadata) > 0 || opts.ContentType != "") {
		meta := storedMetadata{ContentType: opts.ContentType, Metadata: opts.Metadata}
		raw, err := json.Marshal(meta)
		if err != nil {
			return NewStorageError("Store", key, err, false)
		}
		if err := writeAtomic(dir, filePath+metadataSuffix, raw); err != nil {
			return fsError("Store", key, err)
		}
	}

	return nil
}

func writeAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (l *LocalFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("Retrieve", key, err, false)
	}

	data, err := os.ReadFile(l.filePath(key))
	if err != nil {
		return nil, fsError("Retrieve", key, err)
	}

	return data, nil
}

// Delete implements FileStorage.Delete
func (l *LocalFileStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("Delete", key, err, false)
	}

	filePath := l.filePath(key)
	if err := os.Remove(filePath); err != nil {
		return fsError("Delete", key, err)
	}

	_ = os.Remove(filePath + metadataSuffix)
	return nil
}

// Exists implements FileStorage.Exists
func (l *LocalFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, NewStorageError("Exists", key, err, false)
	}

	if _, err := os.Stat(l.filePath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fsError("Exists", key, err)
	}
	return true, nil
}

// GetMetadata implements FileStorage.GetMetadata
func (l *LocalFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	if err := validateKey(key); err != nil {
		return nil, NewStorageError("GetMetadata", key, err, false)
	}

	stat, err := os.Stat(l.filePath(key))
	if err != nil {
		return nil, fsError("GetMetadata", key, err)
	}

	return l.describe(key, stat), nil
}

// List walks the base directory and returns every document under prefix
func (l *LocalFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	var files []FileMetadata

	err := filepath.WalkDir(l.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, metadataSuffix) || strings.HasPrefix(name, ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, *l.describe(key, info))
		return nil
	})
	if err != nil {
		return nil, fsError("List", prefix, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close implements FileStorage.Close
func (l *LocalFileStorage) Close() error {
	return nil
}

type storedMetadata struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (l *LocalFileStorage) describe(key string, info fs.FileInfo) *FileMetadata {
	meta := &FileMetadata{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentTypeFor(key),
		LastModified: info.ModTime(),
	}

	if raw, err := os.ReadFile(l.filePath(key) + metadataSuffix); err == nil {
		var stored storedMetadata
		if json.Unmarshal(raw, &stored) == nil {
			if stored.ContentType != "" {
				meta.ContentType = stored.ContentType
			}
			meta.Metadata = stored.Metadata
		}
	}

	return meta
}

func (l *LocalFileStorage) filePath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(key))
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	if strings.HasSuffix(key, metadataSuffix) {
		return ErrInvalidKey
	}
	return nil
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
