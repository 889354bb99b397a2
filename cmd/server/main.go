/*
main.go - Application entry point

PURPOSE:
  Starts the overtime analysis HTTP API, or analyzes one payload file from
  the command line.

COMMANDS:
  serve     Run the HTTP API
  analyze   Run one calculation over a payload file and print totals

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults, --config file, OVERTIME_* env, flags)
  2. Initialize SQLite store
  3. Create API handler and start the worker pool
  4. Configure HTTP router
  5. Start server with graceful shutdown

FLAGS:
  --config     YAML config file
  --log-level  debug, info, warn, error
  serve:
    --port     HTTP server port (default: 8080)
    --db       SQLite database path (default: overtime.db)
               Use ":memory:" for in-memory database
  analyze:
    --input    Payload file in the worker calculate shape ("-" for stdin)
    --json     Print the raw result JSON instead of a table

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop workspace workers
  4. Close database connection

EXAMPLES:
  ./server serve --db=./data/overtime.db
  ./server serve --db=":memory:" --port=3000
  OVERTIME_LOG_LEVEL=debug ./server serve
  ./server analyze --input payload.json

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - cmd/server/report.go: Terminal summary
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/overtime-engine/api"
	"github.com/warp/overtime-engine/config"
	"github.com/warp/overtime-engine/factory"
	"github.com/warp/overtime-engine/store/sqlite"
	"github.com/warp/overtime-engine/worker"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgPath string

	root := &cobra.Command{
		Use:           "server",
		Short:         "Overtime analysis engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	load := func() (*config.Config, error) {
		return config.Load(v, cfgPath)
	}

	root.AddCommand(newServeCmd(v, load), newAnalyzeCmd(load))
	return root
}

type loader func() (*config.Config, error)

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(cfg.LogLevel()).With().Timestamp().Logger()
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, newLogger(cfg, os.Stdout))
		},
	}
	cmd.Flags().Int("port", 8080, "HTTP server port")
	cmd.Flags().String("db", "overtime.db", "SQLite database path")
	_ = v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	st, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	handler := api.NewHandler(st,
		api.WithLogger(logger),
		api.WithDefaults(cfg.Defaults.CalcParams()),
	)
	handler.Start()
	defer handler.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("database", cfg.Database.Path).
			Msg("server starting")
		serverErrors <- server.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// =============================================================================
// ANALYZE
// =============================================================================

func newAnalyzeCmd(load loader) *cobra.Command {
	var input string
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one payload file and print per-user totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			// Logs go to stderr so the report on stdout stays clean.
			logger := newLogger(cfg, cmd.ErrOrStderr())
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), data, cfg, logger, rawJSON)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", `Payload file ("-" for stdin)`)
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print raw result JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// runAnalyze sends the file through a worker exactly as the HTTP API would.
func runAnalyze(ctx context.Context, out io.Writer, data []byte, cfg *config.Config, logger zerolog.Logger, rawJSON bool) error {
	defaults := cfg.Defaults.CalcParams()
	payload, err := factory.ParsePayload(data, defaults)
	if err != nil {
		return err
	}

	h := worker.NewHandler(worker.WithDefaults(defaults), worker.WithLogger(logger))
	client, err := worker.Start(ctx, h, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	results, err := client.Calculate(ctx, factory.EncodePayload(payload.Entries, payload.Reference, payload.DateRange))
	if err != nil {
		return err
	}

	if rawJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(factory.EncodeResults(results))
	}
	table, err := renderSummary(results)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, table)
	return err
}
