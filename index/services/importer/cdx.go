package importer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v2"
	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/store"
)

// IngestStats summarizes one CDX ingest.
type IngestStats struct {
	// Total is the number of rows in the source.
	Total int
	// Created is the number of rows newly added to the capture index.
	Created int
	// ResumeKey is the resume key carried by the source, if any.
	ResumeKey string
}

// FindCdxFiles finds saved CDX result files (`**/data/*.json`) under base,
// newest first by modification time.
func (s *ImporterService) FindCdxFiles(base string) ([]string, error) {
	matches, err := doublestar.Glob(filepath.Join(base, "**", "data", "*.json"))
	if err != nil {
		return nil, errors.Wrapf(err, "error globbing CDX files under %s", base)
	}
	type fileWithTime struct {
		path    string
		modTime time.Time
	}
	files := make([]fileWithTime, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, errors.Wrapf(err, "error stating CDX file %s", match)
		}
		files = append(files, fileWithTime{path: match, modTime: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	results := make([]string, len(files))
	for i, file := range files {
		results[i] = file.path
	}
	return results, nil
}

// IngestCdxFile reads a saved CDX result file and ingests its rows into the
// capture index, recording the run in the ingestions table.
func (s *ImporterService) IngestCdxFile(ctx context.Context, path string) (*IngestStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading CDX file %s", path)
	}
	now := time.Now().UTC()
	captures, resumeKey, err := parseCdxCaptures(data, now)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing CDX file %s", path)
	}
	sourceDigest := models.Sha1DigestOf(data)
	created, err := s.IngestCaptures(ctx, path, sourceDigest[:], captures)
	if err != nil {
		return nil, err
	}
	return &IngestStats{Total: len(captures), Created: created, ResumeKey: resumeKey}, nil
}

// IngestCaptures records a batch of captures and the ingest run that produced
// them in a single transaction, returning the number newly indexed.
func (s *ImporterService) IngestCaptures(ctx context.Context, source string, sourceDigest []byte, captures []*models.Capture) (int, error) {
	var created int
	err := s.db.WithTx(ctx, nil, func(tx *store.Tx) error {
		var err error
		created, err = s.captureStore.UpsertBatch(ctx, tx, captures)
		if err != nil {
			return errors.Wrap(err, "error upserting captures")
		}
		ingestion := models.NewIngestion(time.Now().UTC(), source, sourceDigest, len(captures))
		err = s.ingestionStore.Create(ctx, tx, ingestion)
		if err != nil {
			return errors.Wrap(err, "error recording ingest run")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.WithField("source", source).
		WithField("total", len(captures)).
		WithField("created", created).
		Infof("Ingested captures")
	return created, nil
}

// parseCdxCaptures decodes a CDX result body in either the 11-column extended
// form or the 7-column normal form.
func parseCdxCaptures(data []byte, now time.Time) ([]*models.Capture, string, error) {
	var extended models.CdxExtendedItemList
	extErr := json.Unmarshal(data, &extended)
	if extErr == nil {
		captures := make([]*models.Capture, len(extended.Values))
		for i := range extended.Values {
			captures[i] = models.CaptureFromCdxExtendedItem(extended.Values[i], now)
		}
		return captures, extended.ResumeKey, nil
	}

	var list models.CdxItemList
	listErr := json.Unmarshal(data, &list)
	if listErr != nil {
		return nil, "", gerror.NewErrMalformedCdx("Unrecognized CDX result format").
			Wrap(listErr).
			IDetail("extended_error", extErr)
	}
	captures := make([]*models.Capture, len(list.Values))
	for i := range list.Values {
		captures[i] = models.CaptureFromCdxItem(list.Values[i], now)
	}
	return captures, list.ResumeKey, nil
}
