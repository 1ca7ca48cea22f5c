// Package main runs the gostatespace example scenarios end to end: a local
// linear trend fitted to annual road fatalities (or a simulated stand-in),
// a fixed intercept with two trigonometric seasonal terms fitted to a
// simulated series, and an automatic ARIMA order search on a simulated
// integrated series.
//
// The Commandeur and Koopman data can be fetched directly:
//
//	demo trend --url http://staff.feweb.vu.nl/koopman/projects/ckbook/OxCodeAll.zip \
//	    --member OxCodeIntroStateSpaceBook/Chapter_2/NorwayFinland.txt
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/gostatespace/internal/logging"
	"github.com/sartorproj/gostatespace/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "demo",
		Short:        "Fit state-space models to example series",
		SilenceUsage: true,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		newScenarioCmd("trend", "Local linear trend on loaded or simulated data", trendScenario),
		newScenarioCmd("seasonal", "Trigonometric seasonal model on simulated data", seasonalScenario),
		newScenarioCmd("arima", "Automatic ARIMA order search on a simulated series", arimaScenario),
		newScenarioCmd("all", "Run every scenario concurrently", trendScenario, seasonalScenario, arimaScenario),
	)
	return root
}

func newScenarioCmd(use, short string, scenarios ...scenario) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, scenarios, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// run executes the scenarios concurrently, prints their reports in order,
// and writes the export and metrics files when configured.
func run(ctx context.Context, cfg *Config, scenarios []scenario, stdout, stderr io.Writer) error {
	log, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	log = log.WithValues("run", runID)
	e := &env{
		cfg:    cfg,
		log:    log,
		rec:    metrics.NewRecorder(),
		client: &http.Client{Timeout: 30 * time.Second},
	}

	bar := progressBar(len(scenarios), stderr, !cfg.Quiet)
	results := make([]*ScenarioResult, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			res, err := sc.run(gctx, e)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.name, err)
			}
			results[i] = res
			_ = bar.Add(1)
			return nil
		})
	}
	err = g.Wait()
	_ = bar.Finish()

	if cfg.MetricsFile != "" {
		if werr := e.rec.WriteTextfile(cfg.MetricsFile); werr != nil {
			log.Error(werr, "Writing metrics failed", "path", cfg.MetricsFile)
		}
	}
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Fprintf(stdout, "%s\n%s\n", strings.Repeat("=", 78), res.Report())
	}

	if cfg.Out == "" {
		return nil
	}
	out := &Output{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
		Scenarios: results,
	}
	if err := saveOutput(cfg.Out, cfg.Format, out); err != nil {
		return fmt.Errorf("exporting results: %w", err)
	}
	log.Info("Exported results", "path", cfg.Out, "format", cfg.Format, "scenarios", len(results))
	return nil
}

// progressBar counts finished scenarios.
func progressBar(length int, w io.Writer, visible bool) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		length,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("fitting"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
