package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/index/services/cas"
	"github.com/archivindex/archivindex/index/services/importer"
	"github.com/archivindex/archivindex/index/services/wayback"
	"github.com/archivindex/archivindex/index/store"
	"github.com/archivindex/archivindex/index/store/captures"
	"github.com/archivindex/archivindex/index/store/ingestions"
	"github.com/archivindex/archivindex/index/store/migrations"
)

const firstPage = `[
["urlkey","timestamp","original","mimetype","statuscode","digest","length"],
["com,twitter)/farleftwatch/status/999825423977639936","20180524000000","https://twitter.com/FarLeftWatch/status/999825423977639936","application/json","200","ZHYT52YPEOCHJD5FZINSDYXGQZI22WJ4","1234"],
[],
["resume-key-001"]
]`

const lastPage = `[
["urlkey","timestamp","original","mimetype","statuscode","digest","length"],
["com,twitter)/farleftwatch/status/999825423977639937","20180525000000","https://twitter.com/FarLeftWatch/status/999825423977639937","application/json","200","FKXGYNOJJ7H3IFO35FPUBC445EPOQRXN","4321"]
]`

func newTestService(t *testing.T, serverURL string) (*FetcherService, *captures.CaptureStore, *ingestions.IngestionStore) {
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

	captureStore := captures.NewStore(db, logger.NoOpLogFactory)
	ingestionStore := ingestions.NewStore(db, logger.NoOpLogFactory)
	snapshotStore := cas.NewLocalStore(cas.LocalStoreDirectory(t.TempDir()), logger.NoOpLogFactory)
	client := wayback.NewClient(wayback.ClientConfig{
		CdxSearchURL:       serverURL,
		MinRequestInterval: time.Millisecond,
	}, clock.New(), logger.NoOpLogFactory)
	importerService := importer.NewImporterService(db, captureStore, ingestionStore, snapshotStore, logger.NoOpLogFactory)
	service := NewFetcherService(client, importerService, captureStore, snapshotStore, logger.NoOpLogFactory)
	return service, captureStore, ingestionStore
}

func TestFetchIngestsEveryPage(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("resumeKey") == "" {
			w.Write([]byte(firstPage))
			return
		}
		w.Write([]byte(lastPage))
	}))
	defer server.Close()

	service, captureStore, _ := newTestService(t, server.URL)
	request := wayback.SearchRequest{URL: "https://twitter.com/FarLeftWatch/status/*", MatchType: wayback.MatchTypePrefix}

	result, err := service.Fetch(ctx, FetchOptions{Request: request})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 2, result.Created)
	assert.Zero(t, result.Downloaded)

	count, err := captureStore.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Fetching again finds the same rows already indexed.
	result, err = service.Fetch(ctx, FetchOptions{Request: request})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Zero(t, result.Created)
}

func TestFetchSavesPages(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lastPage))
	}))
	defer server.Close()

	service, _, ingestionStore := newTestService(t, server.URL)
	pagesDir := t.TempDir()

	result, err := service.Fetch(ctx, FetchOptions{
		Request:      wayback.SearchRequest{URL: "https://twitter.com/FarLeftWatch"},
		SavePagesDir: pagesDir,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pages)

	// The raw page landed on disk in the layout CDX discovery walks, and the
	// ingest run records the saved file as its source.
	var saved []string
	err = filepath.Walk(pagesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			saved = append(saved, path)
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, filepath.Base(filepath.Dir(saved[0])), "data")

	data, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	assert.Equal(t, []byte(lastPage), data)

	runs, err := ingestionStore.ListBySource(ctx, nil, saved[0])
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
