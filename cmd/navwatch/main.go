package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"navwatch/internal/infrastructure/config"
	"navwatch/internal/infrastructure/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "navwatch",
	Short: "Daily NAV collector and DCA indicator service for open-ended funds",
	Long: `navwatch scrapes the public page of each fund in the roster, merges the
daily NAV series into a persistent history and computes RSI, moving averages,
drawdown and a composite DCA score.

Examples:
  navwatch serve                    # HTTP API + daily scheduler
  navwatch crawl                    # crawl the whole roster once
  navwatch crawl DCDS VESAF         # crawl selected funds
  navwatch analyze DCDS             # print the indicator snapshot`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		cfg = loaded
		logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.toml", "path to config.toml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	logger.Setup("info", "console")
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("navwatch exited")
		os.Exit(1)
	}
}
