package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/config"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/logging"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/mockserver"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file (optional)")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.MockServer.Port = *port
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mockserver.NewServer(cfg.MockServer, log)
	if err := srv.ListenAndServe(ctx, cfg.MockServer.Host, cfg.MockServer.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("stopped")
}
