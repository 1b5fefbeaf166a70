package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/locofly/internal/adapter/handler"
	"github.com/rl1809/locofly/internal/adapter/storage"
	"github.com/rl1809/locofly/internal/config"
	"github.com/rl1809/locofly/internal/core/service"
	"github.com/rl1809/locofly/internal/logger"
	"github.com/rl1809/locofly/internal/port"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync(log)
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Bool("unix_socket", cfg.Database.InstanceConnectionName != ""),
	)

	repo, err := storage.NewRepository(db)
	if err != nil {
		return err
	}

	var idempotency port.IdempotencyRepository
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			return fmt.Errorf("ping redis: %w", err)
		}
		idempotency = storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)
		log.Info("Idempotency keys enabled", zap.String("redis", cfg.Redis.Addr))
	}

	inventory := service.NewInventoryService(repo, idempotency)

	cors := handler.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	httpServer := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: handler.NewRouter(handler.NewHTTPHandler(inventory), log, handler.RouterConfig{
			CORS:        cors,
			MaxBodySize: cfg.HTTP.MaxBodySize,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log),
	}

	grpcHealth := handler.NewGRPCHandler()
	grpcServer := handler.NewGRPCServer(grpcHealth, log)
	lis, err := net.Listen("tcp", ":"+cfg.App.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	watchdog := storage.NewWatchdog(repo, cfg.Database.PingInterval, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Locofly API listening", zap.String("port", cfg.App.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("port", cfg.App.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return watchdog.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		grpcHealth.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("http shutdown: %w", err)
		}
		log.Info("HTTP server stopped")

		stopGRPC(shutdownCtx, grpcServer)
		log.Info("gRPC server stopped")
		return shutdownErr
	})

	grpcHealth.SetServing(true)

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}

// loadConfig searches the default locations unless --config names a file.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// stopGRPC drains in-flight RPCs until ctx expires, then closes the rest.
// Health Watch streams never finish on their own.
func stopGRPC(ctx context.Context, srv interface {
	GracefulStop()
	Stop()
}) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}
