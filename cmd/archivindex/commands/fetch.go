package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
	"github.com/archivindex/archivindex/index/services/fetcher"
	"github.com/archivindex/archivindex/index/services/wayback"
)

func init() {
	fetchCmd.Flags().StringVarP(
		&fetchCmdConfig.matchType,
		"match-type",
		"m",
		"",
		"How the CDX API matches the url: exact, prefix, host or domain.")
	fetchCmd.Flags().StringArrayVarP(
		&fetchCmdConfig.filters,
		"filter",
		"f",
		nil,
		"CDX filter expression, e.g. statuscode:200. May be repeated.")
	fetchCmd.Flags().IntVarP(
		&fetchCmdConfig.limit,
		"limit",
		"l",
		0,
		"Maximum rows per result page (0 uses the server default).")
	fetchCmd.Flags().BoolVar(
		&fetchCmdConfig.savePages,
		"save-pages",
		true,
		"Save raw CDX result pages for later re-ingest.")
	fetchCmd.Flags().BoolVar(
		&fetchCmdConfig.download,
		"download",
		false,
		"Download snapshot bodies for indexed digests not yet stored.")
	fetchCmd.Flags().IntVar(
		&fetchCmdConfig.downloadLimit,
		"download-limit",
		0,
		"Maximum snapshot bodies to download (0 means no cap).")
	RootCmd.AddCommand(fetchCmd)
}

var fetchCmdConfig = struct {
	matchType     string
	filters       []string
	limit         int
	savePages     bool
	download      bool
	downloadLimit int
}{}

var fetchCmd = &cobra.Command{
	Use:           "fetch <url>",
	Short:         "Query the Wayback Machine CDX index and ingest the results",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := fetcher.FetchOptions{
			Request: wayback.SearchRequest{
				URL:       args[0],
				MatchType: wayback.MatchType(fetchCmdConfig.matchType),
				Filters:   fetchCmdConfig.filters,
				Limit:     fetchCmdConfig.limit,
			},
			DownloadMissing: fetchCmdConfig.download,
			DownloadLimit:   fetchCmdConfig.downloadLimit,
		}
		if fetchCmdConfig.savePages {
			opts.SavePagesDir = a.Config.CdxPagesDir
		}

		result, err := a.FetcherService.Fetch(ctx, opts)
		if err != nil {
			return err
		}
		cli.Stdout.Printf("Fetched %d page(s): %d row(s), %d new", result.Pages, result.Rows, result.Created)
		if fetchCmdConfig.download {
			cli.Stdout.Printf("Downloaded %d snapshot(s)", result.Downloaded)
			for _, digest := range result.Mismatched {
				cli.Stdout.Printf("Digest mismatch: %s", digest)
			}
		}
		return nil
	},
}
