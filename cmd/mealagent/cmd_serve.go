package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/server"
	"github.com/bububa/meal-agents/service"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the meal analysis HTTP API",
	Long: `Starts the HTTP API:

  POST /api/analyze          analyse a photo (multipart "image" or JSON base64)
  GET  /api/meals            list stored analyses
  GET  /api/meals/{id}       get one stored analysis
  GET  /api/meals/{id}/image get the archived photo
  GET  /api/stats            pipeline counters
  GET  /healthz              health check

History requires a store driver, images require the archive.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.addr != "" {
		cfg.Server.Addr = serveFlags.addr
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := server.New(svc,
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		server.WithLogger(logging.New("http")),
		server.WithVersion(version),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
