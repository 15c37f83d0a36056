package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/api"
	"github.com/shelfscope/shelfscope/internal/clock/system"
	idgen "github.com/shelfscope/shelfscope/internal/id/uuid"
	"github.com/shelfscope/shelfscope/internal/logging"
	"github.com/shelfscope/shelfscope/internal/progress"
	"github.com/shelfscope/shelfscope/internal/progress/sinks"
	"github.com/shelfscope/shelfscope/internal/scraper"
)

// newScrapeCmd creates the 'scrape' subcommand: the full batch run from
// input lists through the combined workbook.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs the full scrape batch",
		Long: `Builds the category x location cross product, scrapes every combination
with bounded parallelism, and combines the per-task artifacts into one
deduplicated workbook with discount metrics.`,
		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := scraper.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load scraper config: %w", err)
	}

	logger, logPath, err := logging.NewWithFile(viper.GetBool("log.development"), cfg.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	if logPath != "" {
		logger.Info("logging to file", zap.String("path", logPath))
	}

	categories, err := scraper.LoadLines(cfg.CategoryFile)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	locations, err := scraper.LoadLines(cfg.LocationsFile)
	if err != nil {
		return fmt.Errorf("load locations: %w", err)
	}

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger}, sinks.NewLogSink(logger), promSink)
	defer func() {
		if cerr := hub.Close(ctx); cerr != nil {
			logger.Warn("progress hub close failed", zap.Error(cerr))
		}
	}()

	if addr := viper.GetString("server.metrics_addr"); addr != "" {
		srv := api.NewServer(addr, registry, logger)
		go func() {
			if serr := srv.Run(ctx); serr != nil {
				logger.Warn("metrics server stopped", zap.Error(serr))
			}
		}()
	}

	store, err := scraper.NewCSVStore(cfg.OutputDir, logger)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}

	clk := system.New()
	runner := scraper.NewRunner(scraper.NewChromedpFactory(cfg, logger), store, clk, cfg, hub, logger)
	orch := scraper.NewOrchestrator(cfg, runner, idgen.NewUUIDGenerator(), clk, hub, logger)

	started := clk.Now()
	artifacts, err := orch.Run(ctx, categories, locations)
	switch {
	case errors.Is(err, scraper.ErrNoCategories), errors.Is(err, scraper.ErrNoLocations):
		logger.Error("nothing to scrape", zap.Error(err))
		return err
	case errors.Is(err, scraper.ErrNoArtifacts):
		logger.Error("no task produced data; skipping aggregation", zap.Error(err))
		return err
	case err != nil:
		return fmt.Errorf("run batch: %w", err)
	}

	outPath := filepath.Join(cfg.OutputDir, cfg.CombinedFilename)
	stats, err := scraper.NewAggregator(store, logger).Combine(ctx, artifacts, outPath)
	if err != nil {
		return fmt.Errorf("combine artifacts: %w", err)
	}

	hub.Emit(progress.Event{
		TS:    clk.Now(),
		Stage: progress.StageBatchDone,
		Dur:   clk.Now().Sub(started),
		Note:  outPath,
	})
	logger.Info("scrape batch finished",
		zap.String("combined", outPath),
		zap.Int("rows", stats.Rows),
		zap.Int("artifacts_read", stats.ArtifactsRead),
	)
	return nil
}
