/*
main.go - Server entry point

PURPOSE:
  Initializes and starts the revenue engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, then config (file, environment, flags)
  2. Open the SQLite store and apply migrations
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  --config   Config file path (optional)
  --port     HTTP server port, overrides server.port
  --db       SQLite database path, overrides db.path
             Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

EXAMPLES:
  ./server --db=":memory:"
  REVENUE_SCHEDULE_MODE=stated ./server --port=3000

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/revenue-engine/api"
	"github.com/warp/revenue-engine/config"
	"github.com/warp/revenue-engine/store/sqlite"
)

type serverCmd struct {
	configPath string
	port       int
	dbPath     string
}

func main() {
	c := &serverCmd{}
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Serve deal revenue schedules over HTTP",
		RunE:  c.run,
	}
	rootCmd.Flags().StringVarP(&c.configPath, "config", "c", "", "Path to a config file")
	rootCmd.Flags().IntVar(&c.port, "port", 0, "HTTP server port (overrides config)")
	rootCmd.Flags().StringVar(&c.dbPath, "db", "", "SQLite database path (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (c *serverCmd) run(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.port != 0 {
		cfg.Server.Port = c.port
	}
	if c.dbPath != "" {
		cfg.DB.Path = c.dbPath
	}

	logger := cfg.Logger(os.Stdout)

	builder, err := cfg.ScheduleBuilder()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, builder)
	handler.Workers = cfg.Schedule.Workers

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.Server.Port).
			Str("db", cfg.DB.Path).
			Str("decay_rate", builder.DecayRate.String()).
			Str("mode", string(builder.Mode)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	return shutdown(server, logger)
}

func shutdown(server *http.Server, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
