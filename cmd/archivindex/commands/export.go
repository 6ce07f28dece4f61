package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
)

func init() {
	RootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:           "export <file>",
	Short:         "Export stored captures as a snapshot line file",
	Long:          "Writes every indexed capture whose body is in the snapshot store to a new zstd-compressed snapshot line file, in ascending digest order.",
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

		count, err := a.SnapshotService.Export(ctx, args[0])
		if err != nil {
			return err
		}
		cli.Stdout.Printf("Exported %d line(s) to %s", count, args[0])
		return nil
	},
}
