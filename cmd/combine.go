package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/logging"
	"github.com/shelfscope/shelfscope/internal/scraper"
)

// newCombineCmd creates the 'combine' subcommand: aggregation only, over the
// artifacts already present in the output directory. Useful after a partial
// batch or to rebuild the workbook with no browsing.
func newCombineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "combine",
		Short: "Rebuilds the combined workbook from existing artifacts",
		RunE:  runCombineCommand,
	}
}

func runCombineCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := scraper.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load scraper config: %w", err)
	}

	logger, _, err := logging.NewWithFile(viper.GetBool("log.development"), cfg.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	artifacts, err := filepath.Glob(filepath.Join(cfg.OutputDir, "*.csv"))
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	if len(artifacts) == 0 {
		logger.Error("no artifacts found", zap.String("dir", cfg.OutputDir))
		return scraper.ErrNoArtifacts
	}
	sort.Strings(artifacts)

	store, err := scraper.NewCSVStore(cfg.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}

	outPath := filepath.Join(cfg.OutputDir, cfg.CombinedFilename)
	stats, err := scraper.NewAggregator(store, logger).Combine(ctx, artifacts, outPath)
	if err != nil {
		return fmt.Errorf("combine artifacts: %w", err)
	}

	logger.Info("combined workbook rebuilt",
		zap.String("combined", outPath),
		zap.Int("rows", stats.Rows),
		zap.Int("artifacts_read", stats.ArtifactsRead),
		zap.Int("artifacts_skipped", stats.ArtifactsSkipped),
	)
	return nil
}
