package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/manuscript-review/internal/adapters/mcp"
	"github.com/kirillkom/manuscript-review/internal/bootstrap"
	"github.com/kirillkom/manuscript-review/internal/config"
	"github.com/kirillkom/manuscript-review/internal/observability/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// stdout carries the protocol; logs go to stderr.
	logger := logging.New(os.Stderr, "mcp", cfg.LogLevel, "json")
	slog.SetDefault(logger)

	engine, err := bootstrap.NewEngine(cfg, bootstrap.EngineOptions{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		os.Exit(1)
	}

	s := mcpadapter.NewServer(version, engine.Review, engine.Query)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp_server_failed", slog.Any("error", err))
		os.Exit(1)
	}
}
