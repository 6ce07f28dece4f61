package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
)

func init() {
	RootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:           "validate <file>...",
	Short:         "Validate snapshot line files",
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

		failed := 0
		for _, path := range args {
			report, err := a.SnapshotService.ValidateFile(path)
			if err != nil {
				return err
			}
			cli.Stdout.Printf("%s: %d valid line(s)", path, report.ValidCount)
			for _, lineNumber := range report.InvalidLines {
				cli.Stdout.Printf("%s: line %d is invalid", path, lineNumber)
			}
			for _, mismatch := range report.DigestMismatches {
				cli.Stdout.Printf("%s: digest mismatch: recorded %s, computed %s",
					path, mismatch.Expected, mismatch.Found)
			}
			for _, digest := range report.OutOfOrder {
				cli.Stdout.Printf("%s: digest out of order: %s", path, digest)
			}
			if !report.IsSuccessful() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("error validation failed for %d file(s)", failed)
		}
		return nil
	},
}
