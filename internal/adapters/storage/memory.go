package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFileStorage keeps documents in process memory. Used in serverless mode and tests.
type MemoryFileStorage struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
}

type memoryFile struct {
	data         []byte
	metadata     map[string]string
	contentType  string
	lastModified time.Time
}

// NewMemoryFileStorage creates an empty in-memory store
func NewMemoryFileStorage() *MemoryFileStorage {
	return &MemoryFileStorage{files: make(map[string]*memoryFile)}
}

// Store implements FileStorage.Store
func (m *MemoryFileStorage) Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error {
	if err := validateKey(key); err != nil {
		return NewStorageError("Store", key, err, false)
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("Store", key, err, false)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if opts == nil || !opts.Overwrite {
		if _, exists := m.files[key]; exists {
			return NewStorageError("Store", key, ErrFileAlreadyExists, false)
		}
	}

	file := &memoryFile{
		data:         append([]byte(nil), data...),
		contentType:  contentTypeFor(key),
		lastModified: time.Now().UTC(),
	}
	if opts != nil {
		if opts.ContentType != "" {
			file.contentType = opts.ContentType
		}
		if len(opts.Metadata) > 0 {
			file.metadata = make(map[string]string, len(opts.Metadata))
			for k, v := range opts.Metadata {
				file.metadata[k] = v
			}
		}
	}

	m.files[key] = file
	return nil
}

// Retrieve implements FileStorage.Retrieve
func (m *MemoryFileStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("Retrieve", key, ErrFileNotFound, false)
	}
	return append([]byte(nil), file.data...), nil
}

// Delete implements FileStorage.Delete
func (m *MemoryFileStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[key]; !ok {
		return NewStorageError("Delete", key, ErrFileNotFound, false)
	}
	delete(m.files, key)
	return nil
}

// Exists implements FileStorage.Exists
func (m *MemoryFileStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.files[key]
	return ok, nil
}

// GetMetadata implements FileStorage.GetMetadata
func (m *MemoryFileStorage) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[key]
	if !ok {
		return nil, NewStorageError("GetMetadata", key, ErrFileNotFound, false)
	}
	meta := file.describe(key)
	return &meta, nil
}

// List implements FileStorage.List
func (m *MemoryFileStorage) List(ctx context.Context, prefix string) ([]FileMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var files []FileMetadata
	for key, file := range m.files {
		if strings.HasPrefix(key, prefix) {
			files = append(files, file.describe(key))
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// Close drops every stored document
func (m *MemoryFileStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = make(map[string]*memoryFile)
	return nil
}

// Len returns the number of stored documents
func (m *MemoryFileStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

func (f *memoryFile) describe(key string) FileMetadata {
	return FileMetadata{
		Key:          key,
		Size:         int64(len(f.data)),
		ContentType:  f.contentType,
		LastModified: f.lastModified,
		Metadata:     f.metadata,
	}
}
