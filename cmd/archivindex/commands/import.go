package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
)

func init() {
	RootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:           "import <dir>...",
	Short:         "Import digest-named snapshot files into the snapshot store",
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, cleanup, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := a.ImporterService.Import(ctx, args)
		if result != nil {
			cli.Stdout.Printf("Imported %d snapshot(s), skipped %d file(s)", result.Imported, len(result.Skipped))
			for _, mismatch := range result.Mismatched {
				cli.Stdout.Printf("Digest mismatch in %s: expected %s, found %s",
					mismatch.Path, mismatch.Expected, mismatch.Found)
			}
		}
		return err
	},
}
