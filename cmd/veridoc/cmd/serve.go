package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridoc-io/veridoc/internal/cache"
	"github.com/veridoc-io/veridoc/internal/server"
	"github.com/veridoc-io/veridoc/internal/store"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the verification API",
	Long: `Start an HTTP server that exposes the verification pipeline as a
REST and WebSocket API.

The server provides the following endpoints:
  POST /verify                  - Verify an uploaded document
  POST /verify/submit           - Verify and persist a submission
  GET  /submissions             - List submissions for the review queue
  GET  /submissions/{id}        - Fetch one submission
  POST /submissions/{id}/review - Resolve a pending submission
  GET  /reports/{roll}          - Download a verified-profile PDF
  GET  /ws/verify               - Streaming verification over WebSocket
  GET  /health                  - Health check endpoint
  GET  /metrics                 - Prometheus metrics

Submission persistence needs a MySQL DSN and the outcome cache a Redis
URL; both are optional and their endpoints are disabled when unset.

Examples:
  veridoc serve
  veridoc serve --port 8080
  veridoc serve --host 0.0.0.0 --dsn "veridoc:secret@tcp(db:3306)/veridoc"`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyCapabilityFlags(cfg, cmd)

	// Extract server configuration with CLI flag overrides
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = cmd.Flags().GetInt("max-upload-size")
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Server.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}
	if cmd.Flags().Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Server.RateLimitPerMin, _ = cmd.Flags().GetInt("rate-limit")
	}
	if cmd.Flags().Changed("dsn") {
		cfg.Store.DSN, _ = cmd.Flags().GetString("dsn")
	}
	if cmd.Flags().Changed("cache-url") {
		cfg.Cache.URL, _ = cmd.Flags().GetString("cache-url")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Server.Port)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p, err := buildVerifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to build verification pipeline: %w", err)
	}

	var st *store.Store
	if cfg.Store.DSN != "" {
		st, err = store.Open(cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("failed to open submission store: %w", err)
		}
	} else {
		slog.Warn("No store DSN configured, submission and report endpoints are disabled")
	}

	var ca *cache.Cache
	if cfg.Cache.URL != "" {
		ca, err = cache.New(cfg.ToCacheConfig())
		if err != nil {
			return fmt.Errorf("failed to connect outcome cache: %w", err)
		}
		defer func() { _ = ca.Close() }()
	}

	verificationServer := server.New(cfg.ToServerConfig(), p, st, ca)

	mux := http.NewServeMux()
	verificationServer.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              verificationServer.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.TimeoutSec) * time.Second,
	}

	go func() {
		slog.Info("Starting verification server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", cfg.Server.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 60, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("rate-limit", 60, "maximum verification requests per minute per client (0 disables)")
	serveCmd.Flags().String("dsn", "", "MySQL DSN for the submission store (empty disables persistence)")
	serveCmd.Flags().String("cache-url", "", "Redis URL for the outcome cache (empty disables caching)")
	serveCmd.Flags().String("caption-url", "", "caption model base URL (overrides config)")
	serveCmd.Flags().String("ocr-url", "", "OCR model base URL (overrides config)")
	serveCmd.Flags().Int("model-timeout", 0, "model call timeout in seconds")
}
