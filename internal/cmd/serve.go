package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	errwrap "github.com/murphyslaws/murphys-laws/internal/errors"
	"github.com/murphyslaws/murphys-laws/internal/metrics"
	"github.com/murphyslaws/murphys-laws/internal/observability"
	"github.com/murphyslaws/murphys-laws/internal/ogimage"
	"github.com/murphyslaws/murphys-laws/internal/ratelimit"
	"github.com/murphyslaws/murphys-laws/internal/server"
	"github.com/murphyslaws/murphys-laws/internal/server/handlers"
	"github.com/murphyslaws/murphys-laws/internal/store"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (i identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case i.binaryName == "":
		return errwrap.NewConfigInvalidError("app identity missing binary name")
	case i.envPrefix == "":
		return errwrap.NewConfigInvalidError("app identity missing env prefix")
	case i.configName == "":
		return errwrap.NewConfigInvalidError("app identity missing config name")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the Murphy's Laws HTTP server with graceful shutdown support.

The public API is served under /api; health, version and metrics endpoints
sit beside it.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (log level only; restart for everything else)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		cfg, err := loadConfig()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
		}

		observability.InitServerLogger(observability.ServerLoggerOptions{
			Service:     identity.BinaryName,
			Level:       cfg.Logging.Level,
			Environment: cfg.Environment,
			Namespace:   namespace,
			Profile:     cfg.Logging.Profile,
		})
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}
		metrics.SetServerStartTime(time.Now().Unix())

		reporter, err := observability.InitErrorTracking(observability.ErrorTrackingOptions{
			DSN:              cfg.ErrorTracking.DSN,
			Environment:      cfg.Environment,
			Release:          versionInfo.Version,
			TracesSampleRate: cfg.ErrorTracking.TracesSampleRate,
		})
		if err != nil {
			// Error tracking is optional; keep serving without it.
			logger.Warn("Error tracking disabled", zap.Error(err))
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "failed to open store")
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return errwrap.WrapDatabaseError(ctx, err, "failed to migrate store")
		}

		limiter := ratelimit.New(nil, ratelimit.WithSweepInterval(cfg.RateLimit.SweepInterval))
		limiter.Start(context.Background())

		images := ogimage.NewService(st,
			ogimage.WithCacheMaxAge(cfg.OGImage.CacheMaxAge),
			ogimage.WithCacheMaxSize(cfg.OGImage.CacheMaxSize),
		)

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("environment", cfg.Environment),
			zap.String("store_driver", st.Driver()),
			zap.Bool("error_tracking", reporter.Enabled()),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", cfg.Metrics.Port))

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("database", handlers.DBChecker{DB: st})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		hm.RegisterChecker("app_identity", identityHealthChecker{
			binaryName: identity.BinaryName,
			envPrefix:  identity.EnvPrefix,
			configName: identity.ConfigName,
		})

		handlers.SetAppIdentity(identity)

		srv := server.New(server.Options{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			ReadTimeout:    cfg.Server.ReadTimeout,
			WriteTimeout:   cfg.Server.WriteTimeout,
			IdleTimeout:    cfg.Server.IdleTimeout,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Health:         hm,
			ErrorReporter:  reporter,
			API: &handlers.API{
				Laws:     st,
				Featured: st,
				Votes:    st,
				DB:       st,
				Limiter:  limiter,
				Images:   images,
			},
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		done := make(chan struct{})

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger and error tracking (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			defer close(done)
			reporter.Flush(2 * time.Second)
			if cfg.Metrics.Enabled {
				if err := observability.StopMetrics(); err != nil {
					logger.Warn("Failed to stop metrics exporter", zap.Error(err))
				}
			}
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		// Handler 2: Release the limiter sweeper and the store
		signals.OnShutdown(func(ctx context.Context) error {
			limiter.Stop()
			if err := st.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			reloaded, err := loadConfig()
			if err != nil {
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}
			if reloaded.Logging.Level != cfg.Logging.Level {
				observability.InitServerLogger(observability.ServerLoggerOptions{
					Service:     identity.BinaryName,
					Level:       reloaded.Logging.Level,
					Environment: cfg.Environment,
					Namespace:   namespace,
					Profile:     cfg.Logging.Profile,
				})
				logger = observability.ServerLogger
			}

			flushImageCache(logger, images)

			logger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()),
				zap.String("log_level", reloaded.Logging.Level))
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 2)
		go func() {
			if err := srv.Start(); err != nil {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		select {
		case err := <-errChan:
			limiter.Stop()
			_ = st.Close()
			return errwrap.WrapInternal(ctx, err, "server error")
		case <-done:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "127.0.0.1", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8787, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// flushImageCache drops every rendered share card so laws published or
// rejected through the store commands are re-rendered on the next request.
func flushImageCache(logger *logging.Logger, images *ogimage.Service) {
	stats := images.Stats()
	images.Clear()
	if logger != nil {
		logger.Info("Flushed OG image cache",
			zap.Int("entries", stats.Size),
			zap.Uint64("hits", stats.Hits),
			zap.Uint64("misses", stats.Misses),
			zap.String("hit_rate", stats.HitRate))
	}
}
