package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datagate/internal/config"
	"datagate/internal/di"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	app, err := di.InitializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("initialization: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("gateway: %v", err)
		}
		return
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	app.Shutdown(shutdownCtx)
}
