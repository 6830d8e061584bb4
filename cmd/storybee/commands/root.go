package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storybee <book url or id>",
	Short: "storybee downloads a flipbook from storybee.space and saves it as a pdf.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env := setup(cmd.Context())
		defer env.Close()

		result, err := env.crawler.ProcessBook(cmd.Context(), args[0], newBarProgress())
		if err != nil {
			fatal("failed to process book", err)
		}
		printBookSummary(result)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
