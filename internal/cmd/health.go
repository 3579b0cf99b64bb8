package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/observability"
	"github.com/murphyslaws/murphys-laws/internal/store"
)

var healthSkipStore bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check: version metadata, configuration and database connectivity.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Error("❌ FAIL: Version information missing")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		cfg, err := loadConfig()
		if err != nil {
			logger.Error("❌ FAIL: Configuration invalid")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration valid",
			zap.String("environment", cfg.Environment),
			zap.Strings("allowed_origins", cfg.CORS.AllowedOrigins))

		if healthSkipStore {
			logger.Info("⏭  Database check skipped")
		} else {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				logger.Error("❌ FAIL: Database unreachable")
				ExitWithCode(logger, foundry.ExitFailure, "Database unreachable", errwrap.WrapDatabaseError(ctx, err, "open store"))
				return
			}
			elapsed, err := st.Ping(ctx)
			_ = st.Close()
			if err != nil {
				logger.Error("❌ FAIL: Database ping failed")
				ExitWithCode(logger, foundry.ExitFailure, "Database ping failed", errwrap.WrapDatabaseError(ctx, err, "ping store"))
				return
			}
			logger.Info("✅ Database reachable",
				zap.String("driver", st.Driver()),
				zap.Duration("query_time", elapsed))
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthSkipStore, "skip-store", false, "skip the database connectivity check")
}
