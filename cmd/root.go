// Package cmd defines and implements the CLI commands for the shelfscope
// executable.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/logging"
	"github.com/shelfscope/shelfscope/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelfscope",
		Short: "Cross-location product shelf scraper for delivery platforms.",
		Long: `shelfscope visits every combination of a product category and a delivery
location on a delivery platform, drives a browser to load and scroll each
page, extracts product data, and merges all results into one deduplicated
workbook with derived discount metrics.`,
	}

	// Initialize Viper configuration.
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newCombineCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	// Bootstrap logging once at the very start; commands rebuild a richer
	// logger once the configured log directory is known.
	if err := logging.Init(viper.GetBool("log.development")); err != nil {
		panic(err)
	}

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
