// mealagent analyses meal photos: identify the foods, research their
// nutrition and aggregate a report with a confidence score.
//
// Usage:
//
//	mealagent analyze <image> [--hint=<text>] [--json]
//	mealagent serve [--addr=:8080]
//	mealagent mcp
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bububa/meal-agents/config"
	"github.com/bububa/meal-agents/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "mealagent",
	Short: "Estimate the nutrition of a meal from a photo",
	Long: `mealagent runs a three stage agent pipeline on a meal photo: a vision
model identifies the foods and portions, a research agent looks up their
nutrition through web search, and an aggregation step sums the totals and
scores its confidence.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&rootFlags.configPath, "config", "c", "", "Path to a YAML config file")
	f.StringSliceVar(&rootFlags.envFiles, "env-file", nil, "Env files to load (default: optional .env)")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.Version = version
}

// loadConfig reads the configuration and installs the logger it describes
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath, rootFlags.envFiles...)
	if err != nil {
		return nil, err
	}
	if rootFlags.logLevel != "" {
		cfg.Log.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.Log.Format = rootFlags.logFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, cfg.Log.Format)
	logging.New("cli").Debug("config loaded",
		slog.String("provider", cfg.Inference.Provider),
		slog.String("model", cfg.Inference.Model),
		slog.String("search", cfg.Search.BaseURL))
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
