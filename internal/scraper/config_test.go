package scraper

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() Config {
	return Config{
		OutputDir:         "data/output",
		CombinedFilename:  "combined_products.xlsx",
		MaxScrollCycles:   40,
		RoundsStable:      3,
		ScrollDelayMin:    1.5,
		ScrollDelayMax:    3.5,
		Workers:           2,
		CategoryFile:      "categories.txt",
		LocationsFile:     "locations.txt",
		LogDir:            "logs",
		BaseURL:           "https://instashop.com",
		DefaultLocale:     "en-eg",
		NavigationTimeout: 45 * time.Second,
		StepTimeout:       4 * time.Second,
		SettleDelay:       2 * time.Second,
		HomepageQPS:       0.5,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing output dir",
			mutate:  func(c *Config) { c.OutputDir = "" },
			wantErr: "output_dir",
		},
		{
			name:    "zero scroll cycles",
			mutate:  func(c *Config) { c.MaxScrollCycles = 0 },
			wantErr: "max_scroll_cycles",
		},
		{
			name:    "zero stable rounds",
			mutate:  func(c *Config) { c.RoundsStable = 0 },
			wantErr: "rounds_stable",
		},
		{
			name:    "inverted scroll delays",
			mutate:  func(c *Config) { c.ScrollDelayMin = 5; c.ScrollDelayMax = 1 },
			wantErr: "scroll_delay_min",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "missing category file",
			mutate:  func(c *Config) { c.CategoryFile = "" },
			wantErr: "category_file",
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: "base_url",
		},
		{
			name:    "negative navigation timeout",
			mutate:  func(c *Config) { c.NavigationTimeout = -time.Second },
			wantErr: "navigation_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromViper(t *testing.T) {
	v := viper.New()
	v.Set("scraper.output_dir", "out")
	v.Set("scraper.combined_filename", "all.xlsx")
	v.Set("scraper.max_scroll_cycles", 12)
	v.Set("scraper.rounds_stable", 2)
	v.Set("scraper.scroll_delay_min", 0.5)
	v.Set("scraper.scroll_delay_max", 1.5)
	v.Set("scraper.workers", 4)
	v.Set("scraper.category_file", "cats.txt")
	v.Set("scraper.locations_file", "locs.txt")
	v.Set("scraper.headless", true)
	v.Set("scraper.base_url", "https://instashop.com")
	v.Set("scraper.default_locale", "en-eg")
	v.Set("scraper.navigation_timeout", "30s")
	v.Set("scraper.step_timeout", "3s")
	v.Set("scraper.settle_delay", "2s")
	v.Set("scraper.homepage_qps", 0.5)

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 12, cfg.MaxScrollCycles)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, 3*time.Second, cfg.StepTimeout)
	assert.InDelta(t, 0.5, cfg.HomepageQPS, 1e-9)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("scraper.output_dir", "out")

	_, err := LoadConfig(v)
	require.Error(t, err)
}
