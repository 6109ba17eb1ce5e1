package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/pollshard/internal/api"
	"github.com/dreamware/pollshard/internal/config"
	"github.com/dreamware/pollshard/internal/coordinator"
	"github.com/dreamware/pollshard/internal/polls"
	"github.com/dreamware/pollshard/internal/shard"
	"github.com/dreamware/pollshard/internal/storage"
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to every shard and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger, migrate, nil)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "create missing tables on every reachable shard before serving")
	return cmd
}

// newCoordinator wires the storage stack for cfg.
func newCoordinator(cfg *config.Config, logger *zap.Logger) *coordinator.Coordinator {
	registry := storage.NewRegistry(logger.Named("storage"), storage.WithPoolSize(cfg.PoolSize))
	exec := storage.NewExecutor(registry, logger.Named("storage"))
	return coordinator.New(shard.NewRouter(cfg.Shards), exec, logger.Named("coordinator"))
}

// serve runs the middleware until ctx is canceled. onListen, when set, is
// called with the bound address once the listener is open.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool, onListen func(net.Addr)) error {
	coord := newCoordinator(cfg, logger)
	defer func() {
		if err := coord.Close(); err != nil {
			logger.Error("error closing shards", zap.Error(err))
		}
	}()

	logger.Info("initializing database connections", zap.Int("shards", coord.Router().ShardCount()))
	coord.Init(ctx)
	if migrate {
		if err := coord.Executor().Migrate(ctx, coord.Router().AllShards()); err != nil {
			logger.Warn("schema migration incomplete", zap.Error(err))
		}
	}
	coord.StartMonitor(ctx, cfg.HealthInterval)

	svc := polls.NewService(coord.Router(), coord.Executor(), logger.Named("polls"))
	httpSrv := api.New(coord, svc, logger.Named("api")).NewHTTPServer(cfg.Listen)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.Listen)
	}
	if onListen != nil {
		onListen(ln.Addr())
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("middleware listening", zap.String("addr", ln.Addr().String()))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	logger.Info("shutting down middleware")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	<-errc
	logger.Info("middleware stopped")
	return nil
}
