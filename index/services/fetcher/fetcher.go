package fetcher

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/services"
	"github.com/archivindex/archivindex/index/services/importer"
	"github.com/archivindex/archivindex/index/services/wayback"
)

// FetcherService runs CDX searches against the Wayback Machine, ingests the
// results into the capture index, and optionally downloads snapshot bodies
// that are indexed but not yet stored.
type FetcherService struct {
	client        *wayback.Client
	importer      *importer.ImporterService
	captureStore  services.CaptureStore
	snapshotStore services.SnapshotStore
	logger.Log
}

func NewFetcherService(
	client *wayback.Client,
	importerService *importer.ImporterService,
	captureStore services.CaptureStore,
	snapshotStore services.SnapshotStore,
	logFactory logger.LogFactory) *FetcherService {

	return &FetcherService{
		client:        client,
		importer:      importerService,
		captureStore:  captureStore,
		snapshotStore: snapshotStore,
		Log:           logFactory("FetcherService"),
	}
}

type FetchOptions struct {
	Request wayback.SearchRequest
	// SavePagesDir saves raw result pages under this directory when set,
	// in the layout CDX discovery walks.
	SavePagesDir string
	// DownloadMissing downloads snapshot bodies for indexed digests not yet
	// in the snapshot store after the search completes.
	DownloadMissing bool
	// DownloadLimit caps the number of bodies downloaded; 0 means no cap.
	DownloadLimit int
}

type FetchResult struct {
	Pages      int
	Rows       int
	Created    int
	Downloaded int
	// Mismatched lists digests whose downloaded body did not match.
	Mismatched []models.Sha1Digest
}

// Fetch runs one CDX search and ingests every result page.
func (s *FetcherService) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	result := &FetchResult{}
	var saver *wayback.PageSaver
	if opts.SavePagesDir != "" {
		saver = wayback.NewPageSaver(opts.SavePagesDir)
	}
	fetchedAt := time.Now().UTC()

	err := s.client.Search(ctx, opts.Request, func(page *wayback.CdxPage) error {
		source := opts.Request.URL
		if saver != nil {
			path, err := saver.Save(opts.Request.URL, fetchedAt, page)
			if err != nil {
				return err
			}
			source = path
		}
		captures := make([]*models.Capture, len(page.Items))
		now := time.Now().UTC()
		for i, item := range page.Items {
			captures[i] = models.CaptureFromCdxItem(item, now)
		}
		sourceDigest := models.Sha1DigestOf(page.RawBody)
		created, err := s.importer.IngestCaptures(ctx, source, sourceDigest[:], captures)
		if err != nil {
			return err
		}
		result.Pages++
		result.Rows += len(captures)
		result.Created += created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.DownloadMissing {
		err = s.downloadMissing(ctx, result, opts.DownloadLimit)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// downloadMissing downloads and stores snapshot bodies for digests that are
// indexed but not in the snapshot store. A body that does not hash to its
// indexed digest is recorded and skipped.
func (s *FetcherService) downloadMissing(ctx context.Context, result *FetchResult, limit int) error {
	digests, err := s.captureStore.ListUnstoredDigests(ctx, nil, uint(limit))
	if err != nil {
		return errors.Wrap(err, "error listing unstored digests")
	}
	for _, digest := range digests {
		capture, err := s.captureStore.ReadByDigest(ctx, nil, models.DigestFromSha1(digest))
		if err != nil {
			return errors.Wrapf(err, "error reading capture for digest %s", digest)
		}
		body, err := s.client.DownloadSnapshot(ctx, capture.ItemInfo())
		if err != nil {
			if gerror.IsDigestMismatch(err) {
				s.WithField("digest", digest).Warnf("Downloaded body does not match indexed digest; skipping")
				result.Mismatched = append(result.Mismatched, digest)
				continue
			}
			return err
		}
		err = s.snapshotStore.Put(ctx, digest, bytes.NewReader(body))
		if err != nil {
			return errors.Wrapf(err, "error storing snapshot body %s", digest)
		}
		err = s.captureStore.MarkStored(ctx, nil, digest)
		if err != nil {
			return errors.Wrapf(err, "error marking captures stored for %s", digest)
		}
		result.Downloaded++
	}
	return nil
}
