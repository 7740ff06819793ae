package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "amlscreen",
	Short: "ISO 20022 sanctions screening engine",
	Long:  "Screens ISO 20022 payment messages against a consolidated watchlist built from the OFAC, UK OFSI, UN, EU, AU DFAT, Canadian and Swiss SECO sanctions feeds.",
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
