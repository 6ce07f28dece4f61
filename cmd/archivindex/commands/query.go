package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archivindex/archivindex/cmd/archivindex/cli"
	"github.com/archivindex/archivindex/common/models"
)

func init() {
	queryCmd.Flags().UintVarP(
		&queryCmdConfig.limit,
		"limit",
		"l",
		0,
		"Maximum captures to print (0 means no limit).")
	RootCmd.AddCommand(queryCmd)
}

var queryCmdConfig = struct {
	limit uint
}{}

var queryCmd = &cobra.Command{
	Use:           "query <url-or-surt-prefix>",
	Short:         "List indexed captures by URL or SURT prefix",
	Long:          "Accepts either an http(s) URL, which is converted to its SURT form, or a raw SURT prefix like `com,example)/`.",
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

		prefix := args[0]
		if strings.HasPrefix(prefix, "http://") || strings.HasPrefix(prefix, "https://") {
			surt, err := models.SurtFromURL(prefix)
			if err != nil {
				return err
			}
			prefix = surt.String()
		}

		captures, err := a.CaptureStore.ListByUrlKeyPrefix(ctx, nil, prefix, queryCmdConfig.limit)
		if err != nil {
			return err
		}
		for _, capture := range captures {
			stored := " "
			if capture.Stored {
				stored = "*"
			}
			cli.Stdout.Printf("%s %s %s %s %s %s",
				stored, capture.Timestamp, capture.StatusCode, capture.Digest, capture.MimeType, capture.Original)
		}
		total, err := a.CaptureStore.Count(ctx, nil)
		if err != nil {
			return err
		}
		cli.Stdout.Printf("%d capture(s) shown, %d indexed in total", len(captures), total)
		return nil
	},
}
