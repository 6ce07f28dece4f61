package captures

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/store"
)

const tableName = "captures"

// CaptureStore indexes CDX records by their (urlkey, timestamp, digest)
// natural key.
type CaptureStore struct {
	db *store.DB
	logger.Log
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *CaptureStore {
	return &CaptureStore{
		db:  db,
		Log: logFactory("CaptureStore"),
	}
}

func (d *CaptureStore) dialect() goqu.DialectWrapper {
	return goqu.Dialect(d.db.DriverName())
}

// Upsert records a capture, returning true if it was newly indexed. Captures
// are immutable once indexed; re-ingesting the same row is a no-op.
func (d *CaptureStore) Upsert(ctx context.Context, txOrNil *store.Tx, capture *models.Capture) (bool, error) {
	if err := capture.Validate(); err != nil {
		return false, fmt.Errorf("error capture invalid: %w", err)
	}
	var created bool
	err := d.db.Write(txOrNil, func(db store.Writer) error {
		ds := db.Insert(tableName).Rows(capture).OnConflict(goqu.DoNothing())
		result, err := ds.Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing upsert query: %w", store.MakeStandardDBError(err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading upsert result: %w", err)
		}
		created = rows > 0
		return nil
	})
	return created, err
}

// UpsertBatch records a batch of captures in a single transaction, returning
// the number newly indexed.
func (d *CaptureStore) UpsertBatch(ctx context.Context, txOrNil *store.Tx, batch []*models.Capture) (int, error) {
	var created int
	err := d.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		for _, capture := range batch {
			wasCreated, err := d.Upsert(ctx, tx, capture)
			if err != nil {
				return err
			}
			if wasCreated {
				created++
			}
		}
		return nil
	})
	return created, err
}

// ReadByDigest reads the first capture recorded for a digest, in
// (urlkey, timestamp) order.
// Returns gerror.ErrNotFound if no capture has the digest.
func (d *CaptureStore) ReadByDigest(ctx context.Context, txOrNil *store.Tx, digest models.Digest) (*models.Capture, error) {
	capture := &models.Capture{}
	ds := d.dialect().From(tableName).
		Select(capture).
		Where(goqu.Ex{"capture_digest": digest}).
		Order(goqu.C("capture_urlkey").Asc(), goqu.C("capture_timestamp").Asc()).
		Limit(1)
	err := d.db.Read(txOrNil, func(db store.Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.Tracef("query: %s, args: %v", query, args)
		found, err := db.ScanStructContext(ctx, capture, query, args...)
		if err != nil {
			return store.MakeStandardDBError(err)
		}
		if !found {
			return gerror.NewErrNotFound("Not Found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return capture, nil
}

// ListByUrlKeyPrefix lists captures whose urlkey starts with prefix, ordered
// by (urlkey, timestamp). Pass limit 0 for no limit.
func (d *CaptureStore) ListByUrlKeyPrefix(ctx context.Context, txOrNil *store.Tx, prefix string, limit uint) ([]*models.Capture, error) {
	where := []goqu.Expression{goqu.C("capture_urlkey").Gte(prefix)}
	if end := prefixRangeEnd(prefix); end != "" {
		where = append(where, goqu.C("capture_urlkey").Lt(end))
	}
	ds := d.dialect().From(tableName).
		Select(&models.Capture{}).
		Where(where...).
		Order(goqu.C("capture_urlkey").Asc(), goqu.C("capture_timestamp").Asc())
	if limit > 0 {
		ds = ds.Limit(limit)
	}
	return d.list(ctx, txOrNil, ds)
}

// ListStoredCaptures pages through captures whose snapshot bodies are in the
// CAS, in ascending digest order. Pass an empty afterDigest to start from the
// beginning.
func (d *CaptureStore) ListStoredCaptures(ctx context.Context, txOrNil *store.Tx, afterDigest string, limit uint) ([]*models.Capture, error) {
	where := []goqu.Expression{
		goqu.C("capture_stored").IsTrue(),
	}
	if afterDigest != "" {
		where = append(where, goqu.C("capture_digest").Gt(afterDigest))
	}
	ds := d.dialect().From(tableName).
		Select(&models.Capture{}).
		Where(where...).
		Order(goqu.C("capture_digest").Asc(), goqu.C("capture_timestamp").Asc())
	if limit > 0 {
		ds = ds.Limit(limit)
	}
	return d.list(ctx, txOrNil, ds)
}

// ListUnstoredDigests lists distinct valid digests that are indexed but whose
// snapshot bodies are not yet in the CAS. Pass limit 0 for no limit.
func (d *CaptureStore) ListUnstoredDigests(ctx context.Context, txOrNil *store.Tx, limit uint) ([]models.Sha1Digest, error) {
	ds := d.dialect().From(tableName).
		Select(goqu.C("capture_digest")).
		Distinct().
		Where(
			goqu.C("capture_digest_valid").IsTrue(),
			goqu.C("capture_stored").IsFalse(),
		).
		Order(goqu.C("capture_digest").Asc())
	if limit > 0 {
		ds = ds.Limit(limit)
	}

	var digestStrs []string
	err := d.db.Read(txOrNil, func(db store.Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.Tracef("query: %s, args: %v", query, args)
		return db.ScanValsContext(ctx, &digestStrs, query, args...)
	})
	if err != nil {
		return nil, store.MakeStandardDBError(err)
	}

	digests := make([]models.Sha1Digest, 0, len(digestStrs))
	for _, str := range digestStrs {
		digest, err := models.ParseSha1Digest(str)
		if err != nil {
			return nil, fmt.Errorf("error parsing stored digest %q: %w", str, err)
		}
		digests = append(digests, digest)
	}
	return digests, nil
}

// MarkStored flags every capture with the given digest as present in the CAS.
func (d *CaptureStore) MarkStored(ctx context.Context, txOrNil *store.Tx, digest models.Sha1Digest) error {
	return d.db.Write(txOrNil, func(db store.Writer) error {
		ds := db.Update(tableName).
			Set(goqu.Record{"capture_stored": true}).
			Where(goqu.Ex{"capture_digest": digest.String()})
		_, err := ds.Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing mark stored query: %w", store.MakeStandardDBError(err))
		}
		return nil
	})
}

// Count returns the total number of indexed captures.
func (d *CaptureStore) Count(ctx context.Context, txOrNil *store.Tx) (int64, error) {
	var count int64
	err := d.db.Read(txOrNil, func(db store.Reader) error {
		ds := d.dialect().From(tableName).Select(goqu.COUNT("*"))
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		found, err := db.ScanValContext(ctx, &count, query, args...)
		if err != nil {
			return store.MakeStandardDBError(err)
		}
		if !found {
			return fmt.Errorf("error running count query; no count returned")
		}
		return nil
	})
	return count, err
}

func (d *CaptureStore) list(ctx context.Context, txOrNil *store.Tx, ds *goqu.SelectDataset) ([]*models.Capture, error) {
	var results []*models.Capture
	err := d.db.Read(txOrNil, func(db store.Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.Tracef("query: %s, args: %v", query, args)
		return db.ScanStructsContext(ctx, &results, query, args...)
	})
	if err != nil {
		return nil, store.MakeStandardDBError(err)
	}
	return results, nil
}

// prefixRangeEnd returns the smallest string greater than every string with
// the given prefix, or "" if there is none (all 0xff bytes).
func prefixRangeEnd(prefix string) string {
	end := []byte(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return string(end[:i+1])
		}
	}
	return ""
}
