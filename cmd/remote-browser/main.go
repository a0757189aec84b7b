package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/app"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/client"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/config"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file (optional)")
	wsURL := flag.String("url", "", "WebSocket base URL of the browser backend (overrides config)")
	apiURL := flag.String("api", "", "HTTP base URL of the browser backend (overrides config)")
	startURL := flag.String("start", "", "Initial address in the URL bar")
	flag.Parse()

	cfg, err := config.Load(*configPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *wsURL != "" {
		cfg.Backend.WSBase = *wsURL
	}
	if *apiURL != "" {
		cfg.Backend.APIBase = *apiURL
	}
	if *startURL != "" {
		cfg.Browser.StartURL = *startURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the TUI, so logs only go to a file.
	log := zap.NewNop()
	if cfg.Log.File != "" {
		log = logging.NewOrNop(logging.Config{
			Level:       cfg.Log.Level,
			Development: cfg.Log.Development,
			OutputPaths: []string{cfg.Log.File},
		})
	}
	defer func() { _ = log.Sync() }()

	httpClient := client.NewHTTPClient(cfg.Backend.APIBase, cfg.Backend.RequestTimeout)
	newConn := func(url string, cb client.Callbacks) app.Conn {
		return client.NewConn(url, cb,
			client.WithLogger(log.Named("ws")),
			client.WithReconnect(cfg.Reconnect.MaxAttempts, cfg.Reconnect.BaseDelay),
			client.WithPingInterval(cfg.Connection.PingInterval),
			client.WithWriteTimeout(cfg.Connection.WriteTimeout),
		)
	}

	m := app.New(app.Options{
		Bootstrap:   httpClient,
		NewConn:     newConn,
		WSBase:      cfg.Backend.WSBase,
		StartURL:    cfg.Browser.StartURL,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
		Logger:      log.Named("app"),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	log.Info("console starting",
		zap.String("api_base", cfg.Backend.APIBase),
		zap.String("ws_base", cfg.Backend.WSBase))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
