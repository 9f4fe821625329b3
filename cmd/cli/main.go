package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kpidash/adapters/excel"
	"kpidash/adapters/memory"
	"kpidash/domain/core"
	"kpidash/internal"
	"kpidash/internal/cache"
	"kpidash/internal/dashboard"
	"kpidash/internal/filters"
	"kpidash/internal/helpers"
	"kpidash/internal/loader"
	"kpidash/internal/profiling"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "kpidash",
		Short: "Inspect workbooks and compute dashboard KPIs from the command line",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				internal.DefaultLogger.SetLevel(internal.LogLevelDebug)
			}
		},
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Log loader details")

	rootCmd.AddCommand(
		newInspectCmd(),
		newKPIsCmd(),
		newOutliersCmd(),
		newChartCmd(),
		newSampleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// filterFlags are shared by every command that reads a filtered table
type filterFlags struct {
	start      string
	end        string
	categories []string
	sheet      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&f.categories, "cat", nil, "Category selection column=value (repeatable)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Sheet to read (default: first usable sheet)")
}

func (f *filterFlags) state() (filters.State, error) {
	q := url.Values{}
	if f.start != "" {
		q.Set(filters.ParamStart, f.start)
	}
	if f.end != "" {
		q.Set(filters.ParamEnd, f.end)
	}
	for _, c := range f.categories {
		column, value, ok := strings.Cut(c, "=")
		if !ok {
			return filters.State{}, fmt.Errorf("invalid --cat %q, use column=value", c)
		}
		q.Add(filters.CategoryPrefix+column, value)
	}
	return filters.ParseQuery(q)
}

func (f *filterFlags) service(path string) *dashboard.Service {
	settings := dashboard.DefaultSettings(path)
	settings.Loader.Sheet = f.sheet
	return dashboard.NewService(settings, cache.New[*loader.Result](time.Hour), memory.NewLoadHistoryRepository(1), nil)
}

func newInspectCmd() *cobra.Command {
	var sheet string
	var asJSON, profile bool

	cmd := &cobra.Command{
		Use:   "inspect <workbook>",
		Short: "Load a workbook and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := loader.DefaultOptions(args[0])
			opts.Sheet = sheet
			res, err := loader.New(opts).Load(cmd.Context())
			if err != nil {
				return err
			}
			var profiles []profiling.ColumnProfile
			if profile {
				profiles = profiling.ProfileTable(res.Table)
			}
			if asJSON {
				return printJSON(cmd, map[string]interface{}{"summary": res.Summary, "profile": profiles})
			}

			s := res.Summary
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "File\t%s\n", s.SourceFile)
			fmt.Fprintf(w, "Sheets\t%s\n", strings.Join(s.SheetNames, ", "))
			fmt.Fprintf(w, "Sheet used\t%s\n", s.SourceSheet)
			fmt.Fprintf(w, "Rows\t%d\n", s.TotalRows)
			fmt.Fprintf(w, "Columns\t%d\n", s.TotalColumns)
			if s.DateRange != nil {
				fmt.Fprintf(w, "Dates\t%s .. %s\n", helpers.FormatDate(s.DateRange.Min), helpers.FormatDate(s.DateRange.Max))
			}
			fmt.Fprintf(w, "Numeric\t%s\n", strings.Join(s.NumericColumns, ", "))
			if !profile {
				fmt.Fprintln(w, "\nColumn\tRole")
				for _, col := range res.Table.Columns() {
					fmt.Fprintf(w, "%s\t%s\n", col.Name, col.Role)
				}
				return w.Flush()
			}

			fmt.Fprintln(w, "\nColumn\tRole\tFilled\tDistinct\tMean\tMedian\tMin\tMax\tOutliers")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d", p.Column, p.Role, helpers.FormatPercentage(p.Completeness*100, 0), p.Distinct)
				if d := p.Distribution; d != nil {
					fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\t%d",
						helpers.FormatNumber(d.Mean, 2), helpers.FormatNumber(d.Median, 2),
						helpers.FormatNumber(d.Min, 2), helpers.FormatNumber(d.Max, 2), d.Outliers)
				}
				fmt.Fprintln(w)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default: first usable sheet)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().BoolVar(&profile, "profile", false, "Profile every column")
	return cmd
}

func newKPIsCmd() *cobra.Command {
	var flags filterFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "kpis <workbook>",
		Short: "Print the KPI cards for a filter selection",
		Example: `kpidash kpis data/frota.xlsx --start 2024-03-01 --end 2024-03-31
kpidash kpis data/frota.xlsx --cat "motorista=Ana Souza" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := flags.state()
			if err != nil {
				return err
			}
			res, err := flags.service(args[0]).KPIs(cmd.Context(), state)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, res)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Rows\t%d\n", res.Rows)
			fmt.Fprintf(w, "Value column\t%s\n\n", res.ValueColumn)
			for _, card := range res.Cards {
				line := card.Value
				if card.Delta != "" {
					line += fmt.Sprintf(" (%s %s)", card.Trend.Arrow(), card.Delta)
				}
				fmt.Fprintf(w, "%s\t%s\n", card.Title, line)
			}
			return w.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print KPIs as JSON")
	return cmd
}

func newOutliersCmd() *cobra.Command {
	var flags filterFlags
	var column, method string

	cmd := &cobra.Command{
		Use:   "outliers <workbook>",
		Short: "List rows with unusual values (iqr or zscore)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := flags.state()
			if err != nil {
				return err
			}
			report, err := flags.service(args[0]).Outliers(cmd.Context(), state, column, method)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d rows outside [%s, %s] (%s)\n",
				report.Column, report.Count, report.Checked,
				helpers.FormatNumber(report.Lower, 2), helpers.FormatNumber(report.Upper, 2), report.Method)
			return printJSON(cmd, report.Rows)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&column, "column", "", "Numeric column (default: first numeric column)")
	cmd.Flags().StringVar(&method, "method", "iqr", "Detection method: iqr or zscore")
	return cmd
}

func newChartCmd() *cobra.Command {
	var flags filterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "chart <workbook> <name>",
		Short: "Render one dashboard chart as SVG",
		Long:  "Render one dashboard chart as SVG. Charts: " + strings.Join(dashboard.ChartNames, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := flags.state()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return flags.service(args[0]).RenderChart(cmd.Context(), args[1], state, out)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the SVG to a file instead of stdout")
	return cmd
}

func newSampleCmd() *cobra.Command {
	opts := excel.DefaultSampleOptions()
	var start string

	cmd := &cobra.Command{
		Use:   "sample <path.xlsx>",
		Short: "Write the example driver performance workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if start != "" {
				day, err := time.Parse(core.DateLayout, start)
				if err != nil {
					return fmt.Errorf("invalid --start %q: %w", start, err)
				}
				opts.Start = day
			}
			if err := excel.WriteSample(args[0], opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample workbook to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Drivers, "drivers", opts.Drivers, "Number of drivers")
	cmd.Flags().IntVar(&opts.Days, "days", opts.Days, "Number of days")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	cmd.Flags().StringVar(&start, "start", "", "First day (YYYY-MM-DD)")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
