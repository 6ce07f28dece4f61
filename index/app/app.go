package app

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/index/services"
	"github.com/archivindex/archivindex/index/services/cas"
	"github.com/archivindex/archivindex/index/services/fetcher"
	"github.com/archivindex/archivindex/index/services/importer"
	"github.com/archivindex/archivindex/index/services/snapshots"
	"github.com/archivindex/archivindex/index/services/wayback"
	"github.com/archivindex/archivindex/index/store"
	"github.com/archivindex/archivindex/index/store/captures"
	"github.com/archivindex/archivindex/index/store/ingestions"
	"github.com/archivindex/archivindex/index/store/migrations"
)

// App holds the fully wired capture index toolkit.
type App struct {
	Config          *Config
	LogRegistry     *logger.LogRegistry
	LogFactory      logger.LogFactory
	DB              *store.DB
	CaptureStore    services.CaptureStore
	IngestionStore  services.IngestionStore
	SnapshotStore   services.SnapshotStore
	WaybackClient   *wayback.Client
	ImporterService *importer.ImporterService
	FetcherService  *fetcher.FetcherService
	SnapshotService *snapshots.SnapshotService
}

// New wires up the toolkit from config, running database migrations in the
// process. The returned cleanup function must be called on shutdown.
func New(ctx context.Context, config *Config) (*App, func(), error) {
	err := config.Validate()
	if err != nil {
		return nil, nil, err
	}

	logRegistry, err := logger.NewLogRegistry(config.LogLevels)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error creating log registry")
	}
	if config.Verbose {
		logRegistry.SetDefaultLogLevel(logrus.DebugLevel)
	}
	var logFactory logger.LogFactory
	if config.JSON {
		logFactory = logger.MakeLogrusLogFactoryStdErrJSON(logRegistry)
	} else {
		logFactory = logger.MakeLogrusLogFactoryStdErrPlain(logRegistry)
	}

	migrationRunner := migrations.NewArchivindexMigrateRunner(logFactory)
	db, dbCleanup, err := store.NewDatabase(ctx, config.DatabaseConfig, migrationRunner)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error initializing capture index database")
	}

	captureStore := captures.NewStore(db, logFactory)
	ingestionStore := ingestions.NewStore(db, logFactory)

	var snapshotStore services.SnapshotStore
	switch config.SnapshotStoreType {
	case cas.AWSS3StoreType:
		snapshotStore, err = cas.NewS3Store(config.S3SnapshotConfig, logFactory)
		if err != nil {
			dbCleanup()
			return nil, nil, errors.Wrap(err, "error creating S3 snapshot store")
		}
	default:
		snapshotStore = cas.NewLocalStore(config.LocalSnapshotDir, logFactory)
	}

	waybackClient := wayback.NewClient(config.WaybackConfig, clock.New(), logFactory)
	importerService := importer.NewImporterService(db, captureStore, ingestionStore, snapshotStore, logFactory)
	fetcherService := fetcher.NewFetcherService(waybackClient, importerService, captureStore, snapshotStore, logFactory)
	snapshotService := snapshots.NewSnapshotService(captureStore, snapshotStore, logFactory)

	app := &App{
		Config:          config,
		LogRegistry:     logRegistry,
		LogFactory:      logFactory,
		DB:              db,
		CaptureStore:    captureStore,
		IngestionStore:  ingestionStore,
		SnapshotStore:   snapshotStore,
		WaybackClient:   waybackClient,
		ImporterService: importerService,
		FetcherService:  fetcherService,
		SnapshotService: snapshotService,
	}
	return app, dbCleanup, nil
}
