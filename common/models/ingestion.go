package models

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Ingestion records one ingest of a CDX result file or API page into the
// capture index, as an audit trail for incremental re-ingests.
type Ingestion struct {
	ID int64 `json:"id" goqu:"skipinsert,skipupdate" db:"ingestion_id"`
	// Source is the file path or request URL the rows came from
	Source string `json:"source" db:"ingestion_source"`
	// SourceDigest is the raw SHA-1 of the source bytes, when known
	SourceDigest []byte    `json:"source_digest,omitempty" db:"ingestion_source_digest"`
	ItemCount    int       `json:"item_count" db:"ingestion_item_count"`
	CreatedAt    time.Time `json:"created_at" goqu:"skipupdate" db:"ingestion_created_at"`
}

func NewIngestion(now time.Time, source string, sourceDigest []byte, itemCount int) *Ingestion {
	return &Ingestion{
		Source:       source,
		SourceDigest: sourceDigest,
		ItemCount:    itemCount,
		CreatedAt:    now,
	}
}

func (m *Ingestion) Validate() error {
	var result *multierror.Error
	if m.Source == "" {
		result = multierror.Append(result, errors.New("error source must be set"))
	}
	if m.ItemCount < 0 {
		result = multierror.Append(result, errors.New("error item count must not be negative"))
	}
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	return result.ErrorOrNil()
}
