package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videditor/jobrunner/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Cfg.Port),
		Handler: a.Router,
	}
	go func() {
		a.Log.Info("health endpoint listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Log.Warn("health endpoint failed", "error", err)
		}
	}()

	a.Start(ctx)
	a.Log.Info("worker started", "concurrency", a.Cfg.JobConcurrency, "poll_interval", a.Cfg.PollInterval())

	<-ctx.Done()
	a.Log.Info("shutdown signal received")

	a.Drain(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Log.Warn("health endpoint shutdown failed", "error", err)
	}

	a.Close()
}
