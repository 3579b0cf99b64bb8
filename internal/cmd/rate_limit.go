package cmd

import (
	"github.com/spf13/cobra"

	"github.com/murphyslaws/murphys-laws/internal/output"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect request rate limits",
}

var rateLimitCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List rate limit categories and their quotas",
	Long: `List the fixed rate limit categories.

Each caller gets Max requests per Window for every category; the window
starts with the first request and resets once it has elapsed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		rendered, err := output.Categories(format, output.CategoryRows(ratelimit.Categories()))
		if err != nil {
			return err
		}
		return emit(cmd, "rate-limit-categories", format, rendered)
	},
}

func init() {
	addOutputFlags(rateLimitCategoriesCmd)
	rateLimitCmd.AddCommand(rateLimitCategoriesCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
