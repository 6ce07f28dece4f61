package services

import (
	"context"
	"io"

	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/store"
)

// SnapshotStore is a content-addressed store of snapshot bodies keyed by SHA-1 digest.
type SnapshotStore interface {
	// Put stores the data in source under digest. The digest of the data read
	// from source is recomputed and the write is rejected with
	// gerror.ErrDigestMismatch if it does not match. Storing a digest that
	// already exists is a no-op. The caller is responsible for closing the reader.
	Put(ctx context.Context, digest models.Sha1Digest, source io.Reader) error
	// Get returns a reader over the uncompressed snapshot body for digest.
	// The reader verifies the digest as it is drained and fails with
	// gerror.ErrDigestMismatch at EOF if the stored bytes are corrupt.
	// Returns gerror.ErrNotFound if the digest is not stored.
	// The caller is responsible for closing the reader.
	Get(ctx context.Context, digest models.Sha1Digest) (io.ReadCloser, error)
	// Has returns true if a snapshot body is stored for digest.
	Has(ctx context.Context, digest models.Sha1Digest) (bool, error)
	// Delete deletes the snapshot body for digest. Returns nil if it does not exist.
	Delete(ctx context.Context, digest models.Sha1Digest) error
	// List lists stored digests greater than after in ascending order.
	// Pass models.MinSha1Digest to start from the beginning and limit 0 for no limit.
	List(ctx context.Context, after models.Sha1Digest, limit int) ([]models.Sha1Digest, error)
}

// CaptureStore indexes CDX capture records.
type CaptureStore interface {
	// Upsert records a capture, returning true if it was newly indexed.
	// Re-ingesting the same (urlkey, timestamp, digest) row is a no-op.
	Upsert(ctx context.Context, txOrNil *store.Tx, capture *models.Capture) (bool, error)
	// UpsertBatch records a batch of captures in a single transaction,
	// returning the number newly indexed.
	UpsertBatch(ctx context.Context, txOrNil *store.Tx, batch []*models.Capture) (int, error)
	// ReadByDigest reads the first capture recorded for a digest, in
	// (urlkey, timestamp) order. Returns gerror.ErrNotFound if none exists.
	ReadByDigest(ctx context.Context, txOrNil *store.Tx, digest models.Digest) (*models.Capture, error)
	// ListByUrlKeyPrefix lists captures whose urlkey starts with prefix,
	// ordered by (urlkey, timestamp). Pass limit 0 for no limit.
	ListByUrlKeyPrefix(ctx context.Context, txOrNil *store.Tx, prefix string, limit uint) ([]*models.Capture, error)
	// ListStoredCaptures pages through captures whose snapshot bodies are in
	// the snapshot store, in ascending digest order.
	ListStoredCaptures(ctx context.Context, txOrNil *store.Tx, afterDigest string, limit uint) ([]*models.Capture, error)
	// ListUnstoredDigests lists distinct valid digests not yet in the
	// snapshot store. Pass limit 0 for no limit.
	ListUnstoredDigests(ctx context.Context, txOrNil *store.Tx, limit uint) ([]models.Sha1Digest, error)
	// MarkStored flags every capture with the given digest as present in the snapshot store.
	MarkStored(ctx context.Context, txOrNil *store.Tx, digest models.Sha1Digest) error
	// Count returns the total number of indexed captures.
	Count(ctx context.Context, txOrNil *store.Tx) (int64, error)
}

// IngestionStore records ingest runs as an audit trail for incremental re-ingests.
type IngestionStore interface {
	// Create records an ingest run.
	Create(ctx context.Context, txOrNil *store.Tx, ingestion *models.Ingestion) error
	// ListBySource lists ingest runs for a source, newest first.
	ListBySource(ctx context.Context, txOrNil *store.Tx, source string) ([]*models.Ingestion, error)
}
