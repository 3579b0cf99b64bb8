package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/murphyslaws/murphys-laws/internal/core"
	"github.com/murphyslaws/murphys-laws/internal/observability"
	"github.com/murphyslaws/murphys-laws/internal/output"
	"github.com/murphyslaws/murphys-laws/internal/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func parseLawID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid law id %q", raw)
	}
	return id, nil
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the laws database",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		observability.CLILogger.Info("Store migrated", zap.String("driver", db.Driver()))
		return nil
	},
}

var storeShowCmd = &cobra.Command{
	Use:   "show <law-id>",
	Short: "Show a published law",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseLawID(args[0])
		if err != nil {
			return err
		}
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		law, err := db.GetLaw(cmd.Context(), id)
		if err != nil {
			return err
		}
		if law == nil {
			return fmt.Errorf("law %d not found or not published", id)
		}

		rendered, err := output.Law(format, law)
		if err != nil {
			return err
		}
		return emit(cmd, fmt.Sprintf("law-%d", id), format, rendered)
	},
}

func newStatusCmd(use, short string, status core.LawStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <law-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLawID(args[0])
			if err != nil {
				return err
			}

			db, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			found, err := db.SetLawStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("law %d not found", id)
			}

			observability.CLILogger.Info("Law status updated",
				zap.Int64("law_id", id),
				zap.String("status", string(status)))
			return nil
		},
	}
}

func init() {
	addOutputFlags(storeShowCmd)

	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(newStatusCmd("publish", "Publish a submitted law", core.LawStatusPublished))
	storeCmd.AddCommand(newStatusCmd("reject", "Reject a submitted law", core.LawStatusRejected))
	storeCmd.AddCommand(newStatusCmd("review", "Move a law back into review", core.LawStatusInReview))
	rootCmd.AddCommand(storeCmd)
}
