// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so configuration is available to all packages.
func InitConfig() {
	// --- Set Search Paths ---
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                 // Current working directory
	viper.AddConfigPath("/etc/shelfscope/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.shelfscope") // User-specific configuration

	// --- Set Defaults ---
	// Used when values are absent from both the config file and environment.
	viper.SetDefault("scraper.output_dir", "data/output")
	viper.SetDefault("scraper.combined_filename", "combined_products.xlsx")
	viper.SetDefault("scraper.max_scroll_cycles", 40)
	viper.SetDefault("scraper.rounds_stable", 3)
	viper.SetDefault("scraper.scroll_delay_min", 1.5)
	viper.SetDefault("scraper.scroll_delay_max", 3.5)
	viper.SetDefault("scraper.workers", 2)
	viper.SetDefault("scraper.category_file", "categories.txt")
	viper.SetDefault("scraper.locations_file", "locations.txt")
	viper.SetDefault("scraper.user_agents", []string{})
	viper.SetDefault("scraper.log_dir", "logs")
	viper.SetDefault("scraper.headless", false)
	viper.SetDefault("scraper.base_url", "https://instashop.com")
	viper.SetDefault("scraper.default_locale", "en-eg")
	viper.SetDefault("scraper.navigation_timeout", "45s")
	viper.SetDefault("scraper.step_timeout", "4s")
	viper.SetDefault("scraper.settle_delay", "2s")
	viper.SetDefault("scraper.homepage_qps", 0.5)

	viper.SetDefault("server.metrics_addr", "")
	viper.SetDefault("log.development", false)

	// --- Environment Variables ---
	viper.SetEnvPrefix("SHELFSCOPE") // e.g., SHELFSCOPE_SCRAPER_WORKERS=4
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Not fatal; defaults and environment variables still apply.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
