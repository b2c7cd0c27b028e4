package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/config"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "outreach-cli",
	Short: "Segmented, personalized cold outreach from lead exports",
	Long:  "Reads lead exports, assigns each lead to the group companies it fits, writes a personalized message per assignment and exports one campaign CSV per company.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(cmd.Name()); err != nil {
			return err
		}
		cfg = c

		logFile, err := config.InitLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.ReplaceGlobals(zap.L().With(
			zap.String("run_id", uuid.NewString()),
			zap.String("command", cmd.Name()),
		))
		if logFile != "" {
			zap.L().Debug("writing run log", zap.String("path", logFile))
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
