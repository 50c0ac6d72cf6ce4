package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/robinyoon-dev/repo-spect/internal/api"
	"github.com/robinyoon-dev/repo-spect/internal/logger"
)

var (
	serveAddr    string
	serveTimeout time.Duration
	serveSlow    time.Duration
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history and generate routes over HTTP",
	Long: `Start an HTTP server exposing:

  GET  /api/commits?url=...   list commits (page, per_page, all, cap, branch, since, until)
  GET  /api/issues?url=...    list issues (page, per_page, all, cap, state, sort, direction, since)
  POST /api/generate          {"repoUrl": "..."} runs the retrospective pipeline
  GET  /healthz               liveness

Examples:
  repo-spect serve
  repo-spect serve --addr :9000 --cors-origin http://localhost:5173`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $HTTP_ADDR or :8080)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 2*time.Minute, "Per-request timeout, 0 disables it")
	serveCmd.Flags().DurationVar(&serveSlow, "slow", 5*time.Second, "Requests slower than this are logged at warn level")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "Allowed CORS origins (default any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, source, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	router := api.NewRouter(source, pipeline, api.Options{
		AllowedOrigins: serveOrigins,
		Timeout:        serveTimeout,
		SlowRequest:    serveSlow,
	})

	srv := api.NewServer(cfg.HTTPAddr, router)

	logger.Get().Info().
		Str("addr", srv.Addr()).
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Int("recent_days", cfg.RecentDays).
		Int("fetch_cap", cfg.FetchCap).
		Msg("starting repo-spect server")

	return srv.Run(ctx)
}
