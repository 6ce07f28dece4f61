package captures

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivindex/archivindex/common/gerror"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/common/models"
	"github.com/archivindex/archivindex/index/store"
	"github.com/archivindex/archivindex/index/store/migrations"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	config := store.DatabaseConfig{
		ConnectionString:   store.DatabaseConnectionString(fmt.Sprintf("file:%s?cache=shared", filepath.Join(t.TempDir(), "index.db"))),
		Driver:             store.Sqlite,
		MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
		MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
	}
	runner := migrations.NewArchivindexMigrateRunner(logger.NoOpLogFactory)
	db, cleanup, err := store.NewDatabase(context.Background(), config, runner)
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return db
}

func testCapture(t *testing.T, urlKey string, timestamp string, digest string) *models.Capture {
	t.Helper()
	key, err := models.ParseSurt(urlKey)
	require.NoError(t, err)
	ts, err := models.ParseTimestamp(timestamp)
	require.NoError(t, err)
	d, err := models.ParseDigest(digest)
	require.NoError(t, err)
	return &models.Capture{
		UrlKey:      key,
		Timestamp:   ts,
		Original:    key.CanonicalURL(),
		MimeType:    models.MimeTypeApplicationJSON,
		StatusCode:  models.StatusCodeOK,
		Digest:      d,
		DigestValid: d.IsValid(),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)
	capture := testCapture(t, "com,example)/a", "20200101000000", "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN")

	created, err := captureStore.Upsert(ctx, nil, capture)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = captureStore.Upsert(ctx, nil, capture)
	require.NoError(t, err)
	assert.False(t, created, "re-ingesting the same capture is a no-op")

	count, err := captureStore.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertRejectsInvalidCapture(t *testing.T) {
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)
	_, err := captureStore.Upsert(context.Background(), nil, &models.Capture{})
	assert.Error(t, err)
}

func TestUpsertBatch(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)
	batch := []*models.Capture{
		testCapture(t, "com,example)/a", "20200101000000", "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN"),
		testCapture(t, "com,example)/b", "20200101000001", "ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4"),
	}

	created, err := captureStore.UpsertBatch(ctx, nil, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// A second batch containing one known and one new capture creates one row.
	batch = append(batch[:1], testCapture(t, "com,example)/c", "20200101000002", "RVS5UAKXJBT4V5NWTPOY6QFH54UXPYRC"))
	created, err = captureStore.UpsertBatch(ctx, nil, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestReadByDigest(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)
	digest := "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN"

	// Two captures share the digest; the first in (urlkey, timestamp) order wins.
	_, err := captureStore.Upsert(ctx, nil, testCapture(t, "com,example)/b", "20200101000000", digest))
	require.NoError(t, err)
	_, err = captureStore.Upsert(ctx, nil, testCapture(t, "com,example)/a", "20200102000000", digest))
	require.NoError(t, err)

	parsed, err := models.ParseDigest(digest)
	require.NoError(t, err)
	capture, err := captureStore.ReadByDigest(ctx, nil, parsed)
	require.NoError(t, err)
	assert.Equal(t, "com,example)/a", capture.UrlKey.String())
	assert.Equal(t, digest, capture.Digest.String())
}

func TestReadByDigestNotFound(t *testing.T) {
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)
	digest, err := models.ParseDigest("FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN")
	require.NoError(t, err)
	_, err = captureStore.ReadByDigest(context.Background(), nil, digest)
	require.Error(t, err)
	assert.True(t, gerror.IsNotFound(err))
}

func TestListByUrlKeyPrefix(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)
	for i, urlKey := range []string{
		"com,example)/a",
		"com,example)/a/1",
		"com,example)/b",
		"com,examplez)/a",
	} {
		capture := testCapture(t, urlKey, fmt.Sprintf("2020010100000%d", i), "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN")
		_, err := captureStore.Upsert(ctx, nil, capture)
		require.NoError(t, err)
	}

	captures, err := captureStore.ListByUrlKeyPrefix(ctx, nil, "com,example)/a", 0)
	require.NoError(t, err)
	require.Len(t, captures, 2)
	assert.Equal(t, "com,example)/a", captures[0].UrlKey.String())
	assert.Equal(t, "com,example)/a/1", captures[1].UrlKey.String())

	captures, err = captureStore.ListByUrlKeyPrefix(ctx, nil, "com,example)", 0)
	require.NoError(t, err)
	assert.Len(t, captures, 3, "the prefix range must not leak into the next domain")

	captures, err = captureStore.ListByUrlKeyPrefix(ctx, nil, "com,example)", 2)
	require.NoError(t, err)
	assert.Len(t, captures, 2)
}

func TestUnstoredDigestLifecycle(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)

	// Two captures share a digest, a third has its own, a fourth is opaque.
	shared := "FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN"
	other := "ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4"
	for _, capture := range []*models.Capture{
		testCapture(t, "com,example)/a", "20200101000000", shared),
		testCapture(t, "com,example)/b", "20200101000001", shared),
		testCapture(t, "com,example)/c", "20200101000002", other),
		testCapture(t, "com,example)/d", "20200101000003", "opaque-digest"),
	} {
		_, err := captureStore.Upsert(ctx, nil, capture)
		require.NoError(t, err)
	}

	digests, err := captureStore.ListUnstoredDigests(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, digests, 2, "opaque digests are never listed for download")
	assert.Equal(t, shared, digests[0].String())
	assert.Equal(t, other, digests[1].String())

	// Marking the shared digest stored flags both captures carrying it.
	require.NoError(t, captureStore.MarkStored(ctx, nil, digests[0]))

	digests, err = captureStore.ListUnstoredDigests(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, other, digests[0].String())

	stored, err := captureStore.ListStoredCaptures(ctx, nil, "", 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].Stored)
	assert.True(t, stored[1].Stored)
}

func TestListStoredCapturesPagination(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)

	// Digest string order: "2..." sorts before "F..." before "Z...".
	digests := []string{
		"2AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN",
		"ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4",
	}
	for i, digest := range digests {
		capture := testCapture(t, fmt.Sprintf("com,example)/%d", i), "20200101000000", digest)
		_, err := captureStore.Upsert(ctx, nil, capture)
		require.NoError(t, err)
		parsed, err := models.ParseSha1Digest(digest)
		require.NoError(t, err)
		require.NoError(t, captureStore.MarkStored(ctx, nil, parsed))
	}

	page, err := captureStore.ListStoredCaptures(ctx, nil, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, digests[0], page[0].Digest.String())
	assert.Equal(t, digests[1], page[1].Digest.String())

	page, err = captureStore.ListStoredCaptures(ctx, nil, page[1].Digest.String(), 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, digests[2], page[0].Digest.String())
}

func TestCaptureRoundTripsThroughStore(t *testing.T) {
	ctx := context.Background()
	captureStore := NewStore(newTestDB(t), logger.NoOpLogFactory)

	var list models.CdxExtendedItemList
	require.NoError(t, json.Unmarshal([]byte(extendedResultPage), &list))
	require.NotEmpty(t, list.Values)
	capture := models.CaptureFromCdxExtendedItem(list.Values[0], time.Now().UTC().Truncate(time.Second))

	_, err := captureStore.Upsert(ctx, nil, capture)
	require.NoError(t, err)

	read, err := captureStore.ReadByDigest(ctx, nil, capture.Digest)
	require.NoError(t, err)
	assert.True(t, read.UrlKey.Equal(capture.UrlKey))
	assert.True(t, read.Timestamp.Equal(capture.Timestamp))
	assert.Equal(t, capture.Original, read.Original)
	assert.Equal(t, capture.MimeType, read.MimeType)
	assert.Equal(t, capture.StatusCode, read.StatusCode)
	assert.Equal(t, capture.Length, read.Length)
	assert.Equal(t, capture.Offset, read.Offset)
	assert.Equal(t, capture.FileName, read.FileName)
}

const extendedResultPage = `[
["urlkey","timestamp","original","mimetype","statuscode","digest","redirect","robotflags","length","offset","filename"],
["com,twitter)/farleftwatch/status/999825423977639936","20180524000000","https://twitter.com/FarLeftWatch/status/999825423977639936","application/json","200","ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4","-","-","1234","567890","archive-part-00001.warc.gz"]
]`
