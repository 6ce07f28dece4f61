package app

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/index/services/cas"
	"github.com/archivindex/archivindex/index/services/wayback"
	"github.com/archivindex/archivindex/index/store"
)

type JSONOutput bool
type VerboseOutput bool

type Config struct {
	LogLevels         logger.LogLevelConfig
	DatabaseConfig    store.DatabaseConfig
	SnapshotStoreType cas.StoreType
	LocalSnapshotDir  cas.LocalStoreDirectory
	S3SnapshotConfig  cas.S3StoreConfig
	WaybackConfig     wayback.ClientConfig
	// CdxPagesDir is where fetched CDX result pages are saved and where the
	// ingest command discovers them.
	CdxPagesDir string
	JSON        JSONOutput
	Verbose     VerboseOutput
}

// NewConfig returns a configuration rooted at workDir: a sqlite capture
// index, a local snapshot store, and default Wayback Machine endpoints.
func NewConfig(workDir string, verbose bool, jsonOutput bool) *Config {
	databaseFilePath := filepath.Join(workDir, "index.db")
	return &Config{
		DatabaseConfig: store.DatabaseConfig{
			ConnectionString:   store.DatabaseConnectionString(fmt.Sprintf("file:%s?cache=shared", databaseFilePath)),
			Driver:             store.Sqlite,
			MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
			MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
		},
		SnapshotStoreType: cas.LocalStoreType,
		LocalSnapshotDir:  cas.LocalStoreDirectory(filepath.Join(workDir, "snapshots")),
		WaybackConfig: wayback.ClientConfig{
			CdxSearchURL:       wayback.DefaultCdxSearchURL,
			MinRequestInterval: wayback.DefaultMinRequestInterval,
		},
		CdxPagesDir: filepath.Join(workDir, "cdx"),
		JSON:        JSONOutput(jsonOutput),
		Verbose:     VerboseOutput(verbose),
	}
}

// minWaybackInterval guards against configs that would hammer archive.org.
const minWaybackInterval = 100 * time.Millisecond

func (c *Config) Validate() error {
	if c.DatabaseConfig.ConnectionString == "" {
		return fmt.Errorf("error database connection string must be set")
	}
	switch c.SnapshotStoreType {
	case cas.LocalStoreType:
		if c.LocalSnapshotDir == "" {
			return fmt.Errorf("error local snapshot store directory must be set")
		}
	case cas.AWSS3StoreType:
		if c.S3SnapshotConfig.BucketName == "" {
			return fmt.Errorf("error S3 bucket name must be set")
		}
	default:
		return fmt.Errorf("error unsupported snapshot store type %q (supported: %v)", c.SnapshotStoreType, cas.StoreTypes())
	}
	if c.WaybackConfig.MinRequestInterval != 0 && c.WaybackConfig.MinRequestInterval < minWaybackInterval {
		return fmt.Errorf("error wayback request interval must be at least %s", minWaybackInterval)
	}
	return nil
}
