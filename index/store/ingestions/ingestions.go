package ingestions

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/store"
)

const tableName = "ingestions"

// IngestionStore records ingest runs.
type IngestionStore struct {
	db *store.DB
	logger.Log
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *IngestionStore {
	return &IngestionStore{
		db:  db,
		Log: logFactory("IngestionStore"),
	}
}

func (d *IngestionStore) dialect() goqu.DialectWrapper {
	return goqu.Dialect(d.db.DriverName())
}

// Create records an ingest run.
func (d *IngestionStore) Create(ctx context.Context, txOrNil *store.Tx, ingestion *models.Ingestion) error {
	if err := ingestion.Validate(); err != nil {
		return fmt.Errorf("error ingestion invalid: %w", err)
	}
	return d.db.Write(txOrNil, func(db store.Writer) error {
		ds := db.Insert(tableName).Rows(ingestion)
		_, err := ds.Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing create query: %w", store.MakeStandardDBError(err))
		}
		return nil
	})
}

// ListBySource lists ingest runs for a source, newest first.
func (d *IngestionStore) ListBySource(ctx context.Context, txOrNil *store.Tx, source string) ([]*models.Ingestion, error) {
	ds := d.dialect().From(tableName).
		Select(&models.Ingestion{}).
		Where(goqu.Ex{"ingestion_source": source}).
		Order(goqu.C("ingestion_created_at").Desc(), goqu.C("ingestion_id").Desc())

	var results []*models.Ingestion
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
