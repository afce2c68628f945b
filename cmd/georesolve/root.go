package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TomasB/georesolve/internal/config"
	"github.com/TomasB/georesolve/internal/data"
	grpchandler "github.com/TomasB/georesolve/internal/handler/grpc"
	"github.com/TomasB/georesolve/internal/handler/health"
	"github.com/TomasB/georesolve/internal/handler/resolve"
	"github.com/TomasB/georesolve/internal/metrics"
	"github.com/TomasB/georesolve/internal/resolver"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "georesolve [flags] [MMDB_PATH]",
		Short:         "Resolve IP addresses to country and continent over HTTP",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				v.Set(config.KeyMMDB, args[0])
			}

			cfg, err := config.Load(v, configFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, "invalid configuration:", err)
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "optional config file (TOML, YAML or JSON)")
	config.RegisterFlags(cmd.Flags())

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("service starting", "log_level", cfg.LogLevel)

	m := metrics.New()

	dataset, err := openDataset(cfg, logger, m)
	if err != nil {
		slog.Error("failed to open MMDB", "path", cfg.MMDBPath, "error", err)
		return err
	}
	defer dataset.Close()

	slog.Info("MMDB loaded", "path", cfg.MMDBPath, "database_type", dataset.Metadata().DatabaseType, "watch", cfg.Watch)

	svc := resolver.NewService(dataset, m)

	policy := resolve.CollapseErrors
	if cfg.StrictErrors {
		policy = resolve.StrictErrors
	}

	srv := &http.Server{
		Addr:    cfg.Bind,
		Handler: newRouter(cfg, logger, svc, dataset, m, policy),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	go func() {
		slog.Info("HTTP server started", "bind", cfg.Bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	var stopGRPC func()
	if cfg.GRPCBind != "" {
		lis, err := net.Listen("tcp", cfg.GRPCBind)
		if err != nil {
			slog.Error("failed to listen for gRPC", "bind", cfg.GRPCBind, "error", err)
			return err
		}

		grpcSrv := grpchandler.NewServer(grpchandler.NewHandler(svc))
		stopGRPC = grpcSrv.GracefulStop

		go func() {
			slog.Info("gRPC server started", "bind", cfg.GRPCBind)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("gRPC server failed: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server failed", "error", err)
		return err
	}

	slog.Info("service shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if stopGRPC != nil {
		stopGRPC()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return err
	}

	slog.Info("service stopped")
	return nil
}

func openDataset(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (data.Dataset, error) {
	if !cfg.Watch {
		return data.OpenMmdb(cfg.MMDBPath)
	}
	w, err := data.NewWatchedReader(cfg.MMDBPath, data.WatchOptions{
		Logger:   logger,
		OnReload: m.ObserveReload,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func newRouter(cfg config.Config, logger *slog.Logger, svc *resolver.Service, dataset data.Dataset, m *metrics.Metrics, policy resolve.StatusPolicy) *gin.Engine {
	// Set Gin mode based on log level
	if cfg.SlogLevel() == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	healthHandler := health.NewHandler(dataset)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/info", healthHandler.Info)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	resolveHandler := resolve.NewHandler(svc, policy)
	router.GET("/:ip", resolveHandler.Resolve)

	return router
}

// ginLogger creates a Gin middleware that logs using slog
func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		attrs := []any{
			"method", method,
			"path", path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
		}

		if len(c.Errors) > 0 {
			logger.Error("request completed with errors", append(attrs, "errors", c.Errors.String())...)
		} else if statusCode >= 500 {
			logger.Error("request completed", attrs...)
		} else if statusCode >= 400 {
			logger.Warn("request completed", attrs...)
		} else {
			logger.Debug("request completed", attrs...)
		}
	}
}
