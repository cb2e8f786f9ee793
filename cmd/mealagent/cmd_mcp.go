package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/mcpserver"
	"github.com/bububa/meal-agents/service"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Starts a Model Context Protocol server over stdin/stdout exposing the
analyze_meal tool, plus list_meals and get_meal when a store is configured.
Logs go to stderr.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	svc, err := service.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	var history mcpserver.History
	if cfg.Store.Driver != "" {
		history = svc
	}
	srv := mcpserver.NewServer(version, svc, history)
	logging.New("mcp").Info("starting meal MCP server over stdio")
	return srv.Run(ctx)
}
