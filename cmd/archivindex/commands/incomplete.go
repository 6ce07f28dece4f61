package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
)

func init() {
	RootCmd.AddCommand(incompleteCmd)
}

var incompleteCmd = &cobra.Command{
	Use:           "incomplete <file>...",
	Short:         "Print the digests of snapshot lines missing a timestamp",
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

		for _, path := range args {
			digests, err := a.SnapshotService.FindIncomplete(path)
			if err != nil {
				return err
			}
			for _, digest := range digests {
				cli.Stdout.Printf("%s", digest)
			}
		}
		return nil
	},
}
