package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"triagebot/internal/config"
	pkgconfig "triagebot/pkg/config"
	"triagebot/pkg/logger"
)

var (
	envName   string
	configDir string
)

func main() {
	// .env 只用于本地开发，不存在时忽略
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "triagebot",
		Short: "Triage incoming messages and remind about unanswered ones",
		Long: `triagebot classifies incoming messages by subject, summarizes them,
suggests canned replies and tracks unanswered ones for a scheduled
reminder sweep.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envName, "env", pkgconfig.GetConfigEnv(), "config environment, merges config/<env>.yaml over base.yaml")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", pkgconfig.GetEnv("CONFIG_DIR", "config"), "directory holding base.yaml")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(triageCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envName, configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.NewLogger(cfg.Server.LogLevel), nil
}
