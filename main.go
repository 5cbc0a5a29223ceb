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

	"fusionguard/cli"
	"fusionguard/config"
	"fusionguard/core/appbootstrap"
	"fusionguard/core/utils"
)

func main() {
	if len(os.Args) > 1 {
		cli.Run()
		return
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := utils.NewLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := appbootstrap.InitRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init: %v", err)
	}
	defer rt.Close()
	rt.StartBackground(ctx)

	go func() {
		if err := rt.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Server.Stop(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
	if err := rt.StopBackground(shutdownCtx); err != nil {
		logger.Errorf("background shutdown: %v", err)
	}
}
