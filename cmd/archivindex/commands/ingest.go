package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
)

func init() {
	RootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:           "ingest [base]",
	Short:         "Discover saved CDX result files and ingest them into the capture index",
	Long:          "Walks base (default: the saved pages directory) for **/data/*.json files, newest first, and ingests each one.",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		base := a.Config.CdxPagesDir
		if len(args) > 0 {
			base = args[0]
		}
		files, err := a.ImporterService.FindCdxFiles(base)
		if err != nil {
			return err
		}
		var total, created int
		for _, file := range files {
			stats, err := a.ImporterService.IngestCdxFile(ctx, file)
			if err != nil {
				return err
			}
			cli.Stdout.Printf("%s: %d row(s), %d new", file, stats.Total, stats.Created)
			total += stats.Total
			created += stats.Created
		}
		cli.Stdout.Printf("Ingested %d file(s): %d row(s), %d new", len(files), total, created)
		return nil
	},
}
