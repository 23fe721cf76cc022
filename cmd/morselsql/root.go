package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"morselsql/internal/config"
	"morselsql/internal/engine"
	"morselsql/internal/engineerrors"
	"morselsql/internal/frontend"
	"morselsql/internal/morsel"
	"morselsql/internal/optimizer"
	"morselsql/internal/plangraph"
)

var (
	flagOutput      string
	flagColor       bool
	flagNoColor     bool
	flagStats       bool
	flagNoStats     bool
	flagCycles      int
	flagTableWidth  int
	flagMaxColWidth int
	flagConfig      string
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "morselsql <sql>",
		Short: "Run a SQL query against the engine's virtual datasets",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}

	cmd.Flags().StringVar(&flagOutput, "o", "", "write results to this path instead of stdout")
	cmd.Flags().BoolVar(&flagColor, "color", true, "colour the console table")
	cmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colour (alias for --color=false)")
	cmd.Flags().BoolVar(&flagStats, "stats", false, "print per-query statistics after the result")
	cmd.Flags().BoolVar(&flagNoStats, "no-stats", false, "suppress per-query statistics (default)")
	cmd.Flags().IntVar(&flagCycles, "cycles", 1, "number of times to run the query")
	cmd.Flags().IntVar(&flagTableWidth, "table_width", 120, "maximum total width of the printed table")
	cmd.Flags().IntVar(&flagMaxColWidth, "max_col_width", 30, "maximum width of a single column")
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to a YAML config file")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		v.SetEnvPrefix("MORSELSQL")
		v.AutomaticEnv()
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		// Viper resolves each setting from flag, then MORSELSQL_<NAME> env
		// var, then the flag's own default - re-reading through it here is
		// what lets an env var override a flag the user didn't pass.
		flagOutput = v.GetString("o")
		flagColor = v.GetBool("color")
		flagStats = v.GetBool("stats")
		flagCycles = v.GetInt("cycles")
		flagTableWidth = v.GetInt("table_width")
		flagMaxColWidth = v.GetInt("max_col_width")
		flagConfig = v.GetString("config")
		if cmd.Flags().Changed("no-color") && flagNoColor {
			flagColor = false
		}
		if cmd.Flags().Changed("no-stats") && flagNoStats {
			flagStats = false
		}
		return nil
	}

	return cmd
}

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.LoadFromEnv(), nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	sql := strings.TrimSpace(args[0])
	if sql == "" {
		return engineerrors.New(engineerrors.MissingSqlStatement, "no SQL statement given")
	}

	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	log := logrus.New()
	if !flagColor {
		log.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	out := os.Stdout
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return errors.Wrapf(err, "opening output file %s", flagOutput)
		}
		defer f.Close()
		out = f
	}

	eng := engine.NewEngine(
		engine.WithLogger(logrus.NewEntry(log)),
		engine.WithMorselSize(cfg.Engine.MorselSize),
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithOptimizerConfig(optimizer.Config{Enabled: cfg.Optimizer.Enabled}),
	)
	perms, err := engine.NewPermissionSet(engine.PermissionQuery, engine.PermissionAnalyze, engine.PermissionExecute)
	if err != nil {
		return err
	}

	parser := frontend.NewParser()
	binder := frontend.NewBinder()

	var result *engine.Result
	var explained *plangraph.Graph
	for i := 0; i < flagCycles; i++ {
		ast, err := parser.Parse(sql)
		if err != nil {
			return err
		}
		graph, err := binder.Bind(ast, eng.Catalog())
		if err != nil {
			return err
		}
		if ast.StatementKind == "EXPLAIN" {
			explained, err = eng.Explain(graph, perms)
			if err != nil {
				return err
			}
			continue
		}
		result, err = eng.Run(context.Background(), graph, perms, ast.StatementKind)
		if err != nil {
			return err
		}
	}

	if explained != nil {
		fmt.Fprintln(out, explained.String())
		return nil
	}
	if err := printResult(out, result.Morsel); err != nil {
		return err
	}
	if flagStats {
		printStats(out, result.Stats)
	}
	return nil
}

func printResult(w *os.File, m *morsel.Morsel) error {
	colWidth := flagMaxColWidth
	if n := len(m.Columns); n > 0 && colWidth*n > flagTableWidth {
		colWidth = flagTableWidth / n
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		headers[i] = truncate(c.Schema.Name, colWidth)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	rows := m.RowCount()
	for r := 0; r < rows; r++ {
		cells := make([]string, len(m.Columns))
		for i, c := range m.Columns {
			cells[i] = truncate(c.Values[r].String(), colWidth)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func printStats(w *os.File, q interface {
	OptimizationCounters() map[string]int64
	Seconds() (parse, bind, optimize, execute float64)
}) {
	parse, bind, optimize, execute := q.Seconds()
	fmt.Fprintf(w, "\nstats: parse=%s bind=%s optimize=%s execute=%s\n",
		time.Duration(parse*float64(time.Second)),
		time.Duration(bind*float64(time.Second)),
		time.Duration(optimize*float64(time.Second)),
		time.Duration(execute*float64(time.Second)))
	for name, n := range q.OptimizationCounters() {
		fmt.Fprintf(w, "  %s: %d\n", name, n)
	}
}
