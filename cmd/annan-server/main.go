package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/annan-shogi-server/internal/builder"
	appcfg "github.com/park285/annan-shogi-server/internal/config"
	"github.com/park285/annan-shogi-server/internal/obslog"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	deps, err := builder.New(cfg, logger)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer deps.Close()

	errCh := make(chan error, 2)
	go func() { errCh <- deps.HTTP.ListenAndServe(cfg.HTTPAddr) }()

	var feedSrv *http.Server
	if cfg.FeedAddr != "" {
		feedSrv = &http.Server{Addr: cfg.FeedAddr, Handler: deps.Hub.NewServeMux(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("feed_listen", zap.String("addr", cfg.FeedAddr))
			if err := feedSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server_stopped", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if feedSrv != nil {
		_ = feedSrv.Shutdown(ctx)
	}
	_ = deps.HTTP.Shutdown(ctx)
}
