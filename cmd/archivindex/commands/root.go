package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
	"github.com/archivindex/archivindex/common/logger"
	"github.com/archivindex/archivindex/index/app"
	"github.com/archivindex/archivindex/index/services/cas"
	"github.com/archivindex/archivindex/index/store"
)

const (
	DefaultConfigDir = "~/"
	ConfigFileName   = ".archivindex"
	DefaultWorkDir   = "~/.archivindex.d"
)

var defaultConfigFilePath = fmt.Sprintf("%s%s.yml", DefaultConfigDir, ConfigFileName)

type GlobalConfig struct {
	Debug          bool
	JSON           bool
	ConfigFilePath string
	WorkDir        string
}

var Global = &GlobalConfig{}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVarP(
		&Global.ConfigFilePath,
		"config",
		"c",
		defaultConfigFilePath,
		"The config file to use when executing commands.")

	RootCmd.PersistentFlags().StringVarP(
		&Global.WorkDir,
		"workdir",
		"w",
		DefaultWorkDir,
		"The directory holding the capture index and local snapshot store.")

	RootCmd.PersistentFlags().BoolVarP(
		&Global.Debug,
		"debug",
		"d",
		false,
		"Enable verbose debug output.")

	RootCmd.PersistentFlags().BoolVarP(
		&Global.JSON,
		"json",
		"j",
		false,
		"Enable structured JSON log output.")
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cli.Exit(RootCmd.Execute())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if Global.ConfigFilePath != "" && Global.ConfigFilePath != defaultConfigFilePath {
		viper.SetConfigFile(Global.ConfigFilePath)
	} else {
		viper.SetConfigName(ConfigFileName)
		viper.AddConfigPath(DefaultConfigDir)
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("archivindex")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	err := viper.ReadInConfig()
	if err == nil {
		Global.ConfigFilePath = viper.ConfigFileUsed()
		cli.Stderr.Printf("Using config file: %s", viper.ConfigFileUsed())
	} else {
		switch err.(type) {
		case viper.ConfigFileNotFoundError:
		default:
			cli.Exit(fmt.Errorf("error loading config file (%s): %s", viper.ConfigFileUsed(), err))
		}
	}
}

var RootCmd = &cobra.Command{
	Use:   "archivindex",
	Short: "Wayback Machine capture indexing toolkit",
	Long:  "Fetch, import, validate and query Wayback Machine CDX records and archived snapshots",
}

// initApp builds the fully wired toolkit from the global flags and config file.
func initApp(ctx context.Context) (*app.App, func(), error) {
	workDir, err := homeifyPath(Global.WorkDir)
	if err != nil {
		return nil, nil, err
	}
	err = os.MkdirAll(workDir, 0770)
	if err != nil {
		return nil, nil, fmt.Errorf("error making work directory %q: %w", workDir, err)
	}
	config := app.NewConfig(workDir, Global.Debug, Global.JSON)
	applyConfigFile(config)
	return app.New(ctx, config)
}

// applyConfigFile layers settings from the viper config file over the defaults.
func applyConfigFile(config *app.Config) {
	if v := viper.GetString("log_levels"); v != "" {
		config.LogLevels = logger.LogLevelConfig(v)
	}
	if v := viper.GetString("database.driver"); v != "" {
		config.DatabaseConfig.Driver = store.DBDriver(v)
	}
	if v := viper.GetString("database.connection_string"); v != "" {
		config.DatabaseConfig.ConnectionString = store.DatabaseConnectionString(v)
	}
	if v := viper.GetString("snapshot_store.type"); v != "" {
		config.SnapshotStoreType = cas.StoreType(v)
	}
	if v := viper.GetString("snapshot_store.local_dir"); v != "" {
		config.LocalSnapshotDir = cas.LocalStoreDirectory(v)
	}
	if v := viper.GetString("snapshot_store.s3.bucket"); v != "" {
		config.S3SnapshotConfig.BucketName = v
	}
	if v := viper.GetString("snapshot_store.s3.region"); v != "" {
		config.S3SnapshotConfig.Region = v
	}
	if v := viper.GetString("snapshot_store.s3.access_key_id"); v != "" {
		config.S3SnapshotConfig.AccessKeyID = v
	}
	if v := viper.GetString("snapshot_store.s3.secret_access_key"); v != "" {
		config.S3SnapshotConfig.SecretAccessKey = v
	}
	if v := viper.GetString("snapshot_store.s3.key_prefix"); v != "" {
		config.S3SnapshotConfig.KeyPrefix = v
	}
	if v := viper.GetString("wayback.cdx_url"); v != "" {
		config.WaybackConfig.CdxSearchURL = v
	}
	if v := viper.GetDuration("wayback.min_request_interval"); v != time.Duration(0) {
		config.WaybackConfig.MinRequestInterval = v
	}
	if v := viper.GetString("cdx_pages_dir"); v != "" {
		config.CdxPagesDir = v
	}
}

func homeifyPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "$HOME") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error locating user home directory: %w", err)
	}
	prefix := "~/"
	if strings.HasPrefix(path, "$HOME") {
		prefix = "$HOME"
	}
	return filepath.Join(home, path[len(prefix):]), nil
}
