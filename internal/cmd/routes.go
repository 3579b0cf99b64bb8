package cmd

import (
	"github.com/spf13/cobra"

	"github.com/murphyslaws/murphys-laws/internal/output"
	"github.com/murphyslaws/murphys-laws/internal/server"
	"github.com/murphyslaws/murphys-laws/internal/server/handlers"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the public API routes in match order",
	Long: `List the routes served under /api.

Routes are matched in registration order and the first match wins, so the
order shown is the order a request is tested against.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		// Handlers are never invoked; the server is built only to read its table.
		srv := server.New(server.Options{API: &handlers.API{}})
		defer handlers.ResetHTTPErrorResponder()

		rendered, err := output.Routes(format, output.RouteRows(srv.APIRoutes()))
		if err != nil {
			return err
		}
		return emit(cmd, "routes", format, rendered)
	},
}

func init() {
	addOutputFlags(routesCmd)
	rootCmd.AddCommand(routesCmd)
}
