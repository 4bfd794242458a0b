package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metadata keys recorded next to every archived receipt
const (
	MetaServiceRecordIDs = "service_record_ids"
	MetaSnapshotID       = "snapshot_id"
	MetaFormat           = "format"
)

// ReceiptPrefix is the key prefix of all archived receipt documents
const ReceiptPrefix = "receipts/"

// FileMetadata describes an archived document
type FileMetadata struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ServiceRecordIDs returns the record ids the document was printed for
func (m FileMetadata) ServiceRecordIDs() []string {
	raw := m.Metadata[MetaServiceRecordIDs]
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// StoreOptions controls how a document is written
type StoreOptions struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Overwrite   bool              `json:"overwrite,omitempty"`
}

// ReceiptStoreOptions builds the options for archiving one rendered receipt
func ReceiptStoreOptions(contentType, format, snapshotID string, recordIDs []string) *StoreOptions {
	meta := map[string]string{
		MetaFormat:           format,
		MetaServiceRecordIDs: strings.Join(recordIDs, ","),
	}
	if snapshotID != "" {
		meta[MetaSnapshotID] = snapshotID
	}
	return &StoreOptions{ContentType: contentType, Metadata: meta}
}

// ReceiptKey returns a unique archive key for a receipt printed at the given time,
// bucketed by day: receipts/2006/01/02/<uuid>.<ext>
func ReceiptKey(printedAt time.Time, ext string) string {
	return fmt.Sprintf("%s%s/%s.%s", ReceiptPrefix, printedAt.UTC().Format("2006/01/02"), uuid.New().String(), ext)
}

// ReceiptDayPrefix lists the receipts printed on one day
func ReceiptDayPrefix(day time.Time) string {
	return ReceiptPrefix + day.UTC().Format("2006/01/02") + "/"
}

// FileStorage archives rendered receipts. Keys are slash separated relative paths.
type FileStorage interface {
	// Store saves data under key. Without Overwrite an existing key is an error.
	Store(ctx context.Context, key string, data []byte, opts *StoreOptions) error

	Retrieve(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	GetMetadata(ctx context.Context, key string) (*FileMetadata, error)

	// List returns the documents whose key starts with prefix, sorted by key
	List(ctx context.Context, prefix string) ([]FileMetadata, error)

	Close() error
}

// StorageConfig selects and configures the archive backend
type StorageConfig struct {
	Type     string `json:"type" yaml:"type"`
	BasePath string `json:"base_path" yaml:"base_path"`
}
