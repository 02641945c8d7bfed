package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
	"github.com/kjstillabower/solar-dashboard-service/internal/render"
	"github.com/kjstillabower/solar-dashboard-service/internal/stats"
)

func newCountriesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List the countries present in the combined dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			countries, err := s.dashboard.Countries(s.ctx)
			if err != nil {
				return err
			}
			for _, c := range countries {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newStatsCommand(opts *options) *cobra.Command {
	var (
		limit   int
		asJSON  bool
		showAll bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-country GHI/DNI/DHI statistics ranked by mean GHI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()

			n := s.topN
			if cmd.Flags().Changed("limit") {
				n = limit
			}
			if showAll {
				n = 0
			}
			table, err := s.dashboard.RegionStats(s.ctx, s.countries, n)
			if err != nil {
				return err
			}
			if asJSON {
				if table.Columns == nil {
					table.Columns = []string{}
					table.Rows = []models.RegionStats{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(table)
			}
			return render.WriteStatsTable(cmd.OutOrStdout(), table)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum rows to print")
	cmd.Flags().BoolVar(&showAll, "all", false, "print every country")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newSummaryCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary METRIC",
		Short: "Describe the distribution of GHI, DNI or DHI per country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := stats.ParseMetric(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q (want GHI, DNI or DHI)", err, args[0])
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			summaries, err := s.dashboard.Describe(s.ctx, metric, s.countries)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			return render.WriteSummaryTable(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newChartCommand(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "chart METRIC",
		Short: "Render a PNG box plot of one metric by country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := stats.ParseMetric(args[0])
			if err != nil {
				return fmt.Errorf("%w: %q (want GHI, DNI or DHI)", err, args[0])
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			ds, err := s.dashboard.Filtered(s.ctx, s.countries)
			if err != nil {
				return err
			}
			w, closeFn, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			order, values := stats.Values(ds, metric)
			if err := render.BoxPlot(w, metric, order, values); err != nil {
				_ = closeFn()
				return err
			}
			s.logger.Info("chart written", zap.String("metric", string(metric)), zap.String("out", out))
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (- for stdout)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newExportCommand(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the regional statistics to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			table, err := s.dashboard.RegionStats(s.ctx, s.countries, 0)
			if err != nil {
				return err
			}
			w, closeFn, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := render.WriteStatsXLSX(w, table); err != nil {
				_ = closeFn()
				return err
			}
			s.logger.Info("workbook written", zap.Int("rows", len(table.Rows)), zap.String("out", out))
			return closeFn()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output XLSX path (- for stdout)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
