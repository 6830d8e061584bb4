package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var catalogFetch *string

func init() {
	catalogFetch = catalogCmd.Flags().String(
		"fetch",
		"",
		"Also download every book in categories whose title contains this text.",
	)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog [--fetch <category>]",
	Short: "Lists the books on the storybee.space front page and records them in the catalog cache.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		env := setup(cmd.Context())
		defer env.Close()

		fetch := cmd.Flags().Changed("fetch")
		result, err := env.crawler.Catalog(cmd.Context(), fetch, *catalogFetch, newBarProgress())
		printCatalogSummary(result)
		for _, book := range result.Books {
			printBookSummary(book)
		}
		if err != nil {
			fatal("catalog crawl failed", err)
		}
		slog.Info("catalog updated", "new_urls", result.Added, "cache", env.config.CatalogCacheFile)
	},
}
