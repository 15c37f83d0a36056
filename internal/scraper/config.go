// Package scraper implements the cross-location shelf scraping pipeline:
// task fan-out over category x location combinations, the per-task browser
// session state machine, and the artifact aggregation stage.
package scraper

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob that influences a scrape batch.
// All values originate from Viper so the scraper can be configured via files,
// env vars, or CLI flags.
type Config struct {
	OutputDir        string
	CombinedFilename string
	MaxScrollCycles  int
	RoundsStable     int
	ScrollDelayMin   float64 // seconds
	ScrollDelayMax   float64 // seconds
	Workers          int
	CategoryFile     string
	LocationsFile    string
	UserAgents       []string
	LogDir           string

	// Headless controls whether Chrome runs without a visible window. The
	// platform has been observed to serve different markup to obviously
	// automated browsers, so visible mode stays selectable.
	Headless          bool
	BaseURL           string
	DefaultLocale     string
	NavigationTimeout time.Duration
	StepTimeout       time.Duration
	SettleDelay       time.Duration
	HomepageQPS       float64
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		OutputDir:         v.GetString("scraper.output_dir"),
		CombinedFilename:  v.GetString("scraper.combined_filename"),
		MaxScrollCycles:   v.GetInt("scraper.max_scroll_cycles"),
		RoundsStable:      v.GetInt("scraper.rounds_stable"),
		ScrollDelayMin:    v.GetFloat64("scraper.scroll_delay_min"),
		ScrollDelayMax:    v.GetFloat64("scraper.scroll_delay_max"),
		Workers:           v.GetInt("scraper.workers"),
		CategoryFile:      v.GetString("scraper.category_file"),
		LocationsFile:     v.GetString("scraper.locations_file"),
		UserAgents:        v.GetStringSlice("scraper.user_agents"),
		LogDir:            v.GetString("scraper.log_dir"),
		Headless:          v.GetBool("scraper.headless"),
		BaseURL:           v.GetString("scraper.base_url"),
		DefaultLocale:     v.GetString("scraper.default_locale"),
		NavigationTimeout: v.GetDuration("scraper.navigation_timeout"),
		StepTimeout:       v.GetDuration("scraper.step_timeout"),
		SettleDelay:       v.GetDuration("scraper.settle_delay"),
		HomepageQPS:       v.GetFloat64("scraper.homepage_qps"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("scraper.output_dir must be set")
	}
	if c.CombinedFilename == "" {
		return fmt.Errorf("scraper.combined_filename must be set")
	}
	if c.MaxScrollCycles < 1 {
		return fmt.Errorf("scraper.max_scroll_cycles must be >= 1")
	}
	if c.RoundsStable < 1 {
		return fmt.Errorf("scraper.rounds_stable must be >= 1")
	}
	if c.ScrollDelayMin < 0 {
		return fmt.Errorf("scraper.scroll_delay_min must be >= 0")
	}
	if c.ScrollDelayMin > c.ScrollDelayMax {
		return fmt.Errorf("scraper.scroll_delay_min must be <= scroll_delay_max")
	}
	if c.Workers < 1 {
		return fmt.Errorf("scraper.workers must be >= 1")
	}
	if c.CategoryFile == "" {
		return fmt.Errorf("scraper.category_file must be set")
	}
	if c.LocationsFile == "" {
		return fmt.Errorf("scraper.locations_file must be set")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("scraper.base_url must be set")
	}
	if c.DefaultLocale == "" {
		return fmt.Errorf("scraper.default_locale must be set")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("scraper.navigation_timeout must be > 0")
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("scraper.step_timeout must be > 0")
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("scraper.settle_delay must be >= 0")
	}
	if c.HomepageQPS < 0 {
		return fmt.Errorf("scraper.homepage_qps must be >= 0")
	}
	return nil
}
