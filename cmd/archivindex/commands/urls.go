package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
)

func init() {
	RootCmd.AddCommand(urlsCmd)
}

var urlsCmd = &cobra.Command{
	Use:           "urls <file>",
	Short:         "Recover canonical tweet URLs for snapshot lines without a recorded URL",
	Long:          "For each snapshot line missing a URL, parses the content as an archived tweet payload and prints `digest,canonical-url`. The URL column is blank when the payload does not identify its author.",
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

		results, err := a.SnapshotService.ResolveTweetURLs(args[0])
		if err != nil {
			return err
		}
		for _, result := range results {
			cli.Stdout.Printf("%s,%s", result.Digest, result.URL)
		}
		return nil
	},
}
