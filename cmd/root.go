package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leaseline/leaseline/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leaseline",
	Short: "Inbound telephony identity resolution engine",
	Long:  "Routes inbound calls, SMS, and WhatsApp events to the owning Realtor or Property Manager account and identifies the tenant behind an interaction.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
