package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tssbas/SDV/internal/config"
	"github.com/tssbas/SDV/internal/domain"
	"github.com/tssbas/SDV/internal/infra/targets"
	"github.com/tssbas/SDV/internal/infra/targets/postgres"
	"github.com/tssbas/SDV/internal/infra/targets/sqlite"
	"github.com/tssbas/SDV/internal/logging"
	"github.com/tssbas/SDV/internal/metadata"
	"github.com/tssbas/SDV/internal/model"
	"github.com/tssbas/SDV/internal/sample"
	"github.com/tssbas/SDV/internal/table"
	"github.com/tssbas/SDV/internal/validation"
)

var (
	inputPath  string
	schemaPath string
	modelName  string
	logLevel   string

	outputPath  string
	targetKind  string
	targetDSN   string
	targetTable string
	fixedSeed   bool
)

func main() {
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "sdv",
		Short: "Synthetic tabular data sampling",
	}

	rootCmd.PersistentFlags().StringVar(&inputPath, "input", "", "Reference data csv")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Schema file (yaml or json)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", cfg.DefaultModel, "Generative model")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level")

	rootCmd.AddCommand(sampleCmd(cfg))
	rootCmd.AddCommand(sampleConditionsCmd(cfg))
	rootCmd.AddCommand(sampleRemainingCmd(cfg))
	rootCmd.AddCommand(fieldsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&outputPath, "output", "", "Output csv path (must not exist)")
	cmd.Flags().StringVar(&targetKind, "target-kind", "", "Database destination (sqlite|postgres)")
	cmd.Flags().StringVar(&targetDSN, "target-dsn", "", "Database DSN")
	cmd.Flags().StringVar(&targetTable, "target-table", "", "Destination table name")
	cmd.Flags().BoolVar(&fixedSeed, "fixed-seed", false, "Use the fixed seed for reproducible output")
}

func sampleCmd(cfg *config.Config) *cobra.Command {
	var numRows int

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample unconditioned synthetic rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			var batchSize int
			batchSize, _ = cmd.Flags().GetInt("batch-size")

			sampler, err := buildSampler(cfg)
			if err != nil {
				return err
			}

			opts := sample.SampleOptions{
				BatchSize:      batchSize,
				FixedSeed:      fixedSeed,
				OutputFilePath: outputPath,
			}
			if cmd.Flags().Changed("num-rows") {
				opts.NumRows = &numRows
			}

			sampled, err := sampler.Sample(opts)
			if err != nil {
				return err
			}
			return emit(sampled)
		},
	}
	cmd.Flags().IntVar(&numRows, "num-rows", 0, "Number of rows to sample")
	cmd.Flags().Int("batch-size", 0, "Progress-reported chunk size")
	addOutputFlags(cmd)
	return cmd
}

func sampleConditionsCmd(cfg *config.Config) *cobra.Command {
	var conditionsPath string
	var batchSizePerTry int
	var strict bool

	cmd := &cobra.Command{
		Use:   "sample-conditions",
		Short: "Sample rows satisfying a conditions file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if conditionsPath == "" {
				return fmt.Errorf("--conditions is required")
			}
			specs, err := domain.LoadConditions(conditionsPath)
			if err != nil {
				return err
			}
			conditions := make([]sample.Condition, len(specs))
			for i, spec := range specs {
				conditions[i] = sample.NewCondition(spec.ColumnValues, spec.NumRows)
			}

			sampler, err := buildSampler(cfg)
			if err != nil {
				return err
			}

			sampled, err := sampler.SampleConditions(conditions, sample.ConditionOptions{
				BatchSizePerTry: batchSizePerTry,
				GracefulReject:  !strict,
				FixedSeed:       fixedSeed,
				OutputFilePath:  outputPath,
			})
			if err != nil {
				return err
			}
			return emit(sampled)
		},
	}
	cmd.Flags().StringVar(&conditionsPath, "conditions", "", "Conditions file (yaml or json)")
	cmd.Flags().IntVar(&batchSizePerTry, "batch-size-per-try", 0, "Initial per-attempt batch size")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on any shortfall instead of returning partial results")
	addOutputFlags(cmd)
	return cmd
}

func sampleRemainingCmd(cfg *config.Config) *cobra.Command {
	var knownPath string
	var batchSizePerTry int
	var strict bool

	cmd := &cobra.Command{
		Use:   "sample-remaining",
		Short: "Fill in all non-specified columns around a csv of known values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if knownPath == "" {
				return fmt.Errorf("--known is required")
			}
			known, err := table.ReadCSV(knownPath)
			if err != nil {
				return err
			}

			sampler, err := buildSampler(cfg)
			if err != nil {
				return err
			}

			sampled, err := sampler.SampleRemainingColumns(known, sample.ConditionOptions{
				BatchSizePerTry: batchSizePerTry,
				GracefulReject:  !strict,
				FixedSeed:       fixedSeed,
				OutputFilePath:  outputPath,
			})
			if err != nil {
				return err
			}
			return emit(sampled)
		},
	}
	cmd.Flags().StringVar(&knownPath, "known", "", "Csv of known column values, one row per condition")
	cmd.Flags().IntVar(&batchSizePerTry, "batch-size-per-try", 0, "Initial per-attempt batch size")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on any shortfall instead of returning partial results")
	addOutputFlags(cmd)
	return cmd
}

func fieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "Show the fields detected from the reference data",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, data, err := loadMetadata()
			if err != nil {
				return err
			}
			if err := meta.Fit(data); err != nil {
				return err
			}

			fields := meta.GetFields()
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tSUBTYPE\tPII")
			for _, name := range names {
				f := fields[name]
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", f.Name, f.Type, f.Subtype, f.PII)
			}
			return w.Flush()
		},
	}
}

func loadMetadata() (*metadata.Metadata, *table.Table, error) {
	if inputPath == "" {
		return nil, nil, fmt.Errorf("--input is required")
	}
	data, err := table.ReadCSV(inputPath)
	if err != nil {
		return nil, nil, err
	}

	var schema *domain.Schema
	if schemaPath != "" {
		schema, err = domain.LoadSchema(schemaPath)
		if err != nil {
			return nil, nil, err
		}
	}
	return metadata.New(schema), data, nil
}

func buildSampler(cfg *config.Config) (*sample.Sampler, error) {
	meta, data, err := loadMetadata()
	if err != nil {
		return nil, err
	}

	registry := model.DefaultRegistry()
	m, err := registry.New(modelName, meta)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logLevel)
	logger.Info("fitting model %s on %d rows", modelName, data.Len())
	if err := m.Fit(data); err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}

	return sample.NewSampler(m, meta, logger, sample.Params{
		MaxRetries:        cfg.MaxRetries,
		MaxRowsMultiplier: cfg.MaxRowsMultiplier,
		MinValidFraction:  cfg.MinValidFraction,
	}), nil
}

func emit(sampled *table.Table) error {
	if targetKind != "" {
		return emitToTarget(sampled)
	}
	if outputPath != "" {
		// Rows were already streamed to the file during sampling.
		fmt.Printf("sampled %d rows to %s\n", sampled.Len(), outputPath)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := ""
	for i, col := range sampled.Columns() {
		if i > 0 {
			header += "\t"
		}
		header += col
	}
	fmt.Fprintln(w, header)
	for i := 0; i < sampled.Len(); i++ {
		line := ""
		for j, cell := range sampled.Row(i) {
			if j > 0 {
				line += "\t"
			}
			line += fmt.Sprintf("%v", cell)
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func emitToTarget(sampled *table.Table) error {
	if targetTable == "" || !validation.IsValidIdentifier(targetTable) {
		return fmt.Errorf("invalid target table name: %q", targetTable)
	}
	for _, col := range sampled.Columns() {
		if !validation.IsValidIdentifier(col) {
			return fmt.Errorf("invalid column identifier: %q", col)
		}
	}

	var target targets.Target
	switch targetKind {
	case "sqlite":
		target = sqlite.NewSQLiteTarget(targetDSN)
	case "postgres":
		target = postgres.NewPostgresTarget(targetDSN, "")
	default:
		return fmt.Errorf("unsupported target kind: %s", targetKind)
	}

	if err := target.Connect(); err != nil {
		return fmt.Errorf("failed to connect to target: %w", err)
	}
	defer target.Close()

	if err := target.EnsureTable(targetTable, sampled); err != nil {
		return fmt.Errorf("failed to create table %s: %w", targetTable, err)
	}
	if err := target.InsertTable(targetTable, sampled); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", targetTable, err)
	}
	return nil
}
