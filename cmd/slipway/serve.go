package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"slipway/internal/history"
	"slipway/internal/server"

	"github.com/spf13/cobra"
)

var (
	serveDBPath  string
	serveLogFile string
	serveHost    string
	servePort    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the build status API",
	Long: `Start the read-only HTTP API over the run ledger.

The API serves recent runs and per-run step breakdowns for dashboards
and health checks. It never triggers builds; those belong to the
deployment platform.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	// Flags for serve command
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "Path to the run ledger database (default from config)")
	serveCmd.Flags().StringVar(&serveLogFile, "log", getEnvOrDefault(EnvLogFile, ""), "Path to log file")
	serveCmd.Flags().StringVar(&serveHost, "host", getEnvOrDefault("SLIPWAY_HOST", "127.0.0.1"), "Host to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", getEnvOrDefaultInt("SLIPWAY_PORT", 5000), "Port to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	dbPath, err := resolveDBPath(serveDBPath)
	if err != nil {
		return err
	}

	// Set up logging
	logger, closeLog, err := newServeLogger(serveLogFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closeLog()

	logger.Info("Opening run ledger", "db", dbPath)
	hist, err := history.NewHistory(dbPath)
	if err != nil {
		logger.Error("Failed to open run ledger", "error", err)
		return fmt.Errorf("failed to open run ledger: %w", err)
	}

	srv := server.NewServer(hist, logger, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(serveHost, servePort)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		<-errCh
	}

	return nil
}

// newServeLogger configures JSON logging to stdout, with an optional
// copy to a log file.
// Returns the logger and a cleanup function that closes the file.
func newServeLogger(logPath string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	closer := func() {}

	if logPath != "" {
		// Create log directory if needed
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// Open log file with secure permissions
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		w = io.MultiWriter(os.Stdout, file)
		closer = func() { file.Close() }
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return slog.New(handler), closer, nil
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
