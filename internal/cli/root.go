// Package cli implements the solar-report command line, which runs the same
// loader and aggregations as the service against local files.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/solar-dashboard-service/internal/cache"
	"github.com/kjstillabower/solar-dashboard-service/internal/config"
	"github.com/kjstillabower/solar-dashboard-service/internal/dataset"
	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
	"github.com/kjstillabower/solar-dashboard-service/internal/service"
	"github.com/kjstillabower/solar-dashboard-service/internal/validation"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	dataDir    string
	logLevel   string
	countries  []string
	timeout    time.Duration
}

// NewRootCommand builds the solar-report command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "solar-report",
		Short: "Summarize solar irradiance measurements per country",
		Long: `solar-report loads the per-country irradiance files (Benin, Sierra Leone, Togo),
combines them and prints or exports the regional statistics.

The data directory comes from --data-dir, SOLAR_DATA_DIR, or the config file.

Examples:
  # Ranked regional statistics
  solar-report stats --limit 5

  # DNI distribution for two countries
  solar-report summary DNI --country Benin --country Togo

  # Box plot and workbook
  solar-report chart GHI --out ghi.png
  solar-report export --out region_stats.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default config/{ENV_NAME}.yaml)")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding the source CSV files")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringSliceVar(&opts.countries, "country", nil, "restrict to these countries (repeatable or comma-separated)")
	pf.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall time limit for loading the data")

	root.AddCommand(
		newCountriesCommand(opts),
		newStatsCommand(opts),
		newSummaryCommand(opts),
		newChartCommand(opts),
		newExportCommand(opts),
	)
	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// session is the per-invocation wiring: logger, dashboard service and the
// validated country selection.
type session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	dashboard *service.DashboardService
	countries []string
	topN      int
}

func (s *session) close() {
	s.cancel()
	_ = s.logger.Sync()
}

// newSession builds the dashboard service from flags and config, then
// validates --country against the loaded dataset.
func newSession(cmd *cobra.Command, opts *options) (*session, error) {
	logger, err := observability.NewLoggerWithLevel(opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	candidates, files, topN, err := opts.sources(logger)
	if err != nil {
		return nil, err
	}
	loader := dataset.NewLoader(candidates, files, logger)
	dashboard := service.NewDashboardService(loader, cache.NewInMemoryCache(), time.Hour, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	s := &session{ctx: ctx, cancel: cancel, logger: logger, dashboard: dashboard, topN: topN}

	if len(opts.countries) > 0 {
		known, err := dashboard.Countries(ctx)
		if err != nil {
			s.close()
			return nil, err
		}
		s.countries, err = validation.ValidateCountries(opts.countries, known)
		if err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

// sources resolves the candidate directories, file mapping and default row limit.
// --data-dir wins over the config file. Without a usable config file the
// default search order and file names apply.
func (o *options) sources(logger *zap.Logger) ([]string, []dataset.CountryFile, int, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		if o.dataDir == "" {
			exe, _ := os.Executable()
			logger.Debug("no config, using default search order", zap.Error(err))
			return dataset.DefaultCandidateDirs(exe), nil, 10, nil
		}
		return []string{o.dataDir}, nil, 10, nil
	}
	if o.dataDir != "" {
		return []string{o.dataDir}, cfg.DataFiles, cfg.StatsTopN, nil
	}
	return cfg.DataCandidates, cfg.DataFiles, cfg.StatsTopN, nil
}

// createOutput opens path for writing; "-" means the command's stdout.
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
