package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dataclean/internal/config"
	"dataclean/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// flags holds every command-line override. Empty values leave the job file
// untouched.
type flags struct {
	configPath     string
	envFile        string
	verbose        bool
	input          string
	outDir         string
	metricsBackend string
	pushgatewayURL string
	schedule       string
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "dataclean",
		Short:         "Clean tabular data files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "job file (YAML or JSON)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", "", "dotenv file to load before reading the environment (default .env when present)")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "enable verbose logs")

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Run the cleaning pipeline",
		Long: `The clean command reads the input file, applies the cleaning stages and any
configured script rules, writes the cleaned data and report, and optionally
loads the result into a database. With --schedule it keeps running and cleans
on every tick.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, log, err := prepare(f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if p.Schedule != "" {
				return runScheduled(cmd.Context(), p, log, cmd.OutOrStdout())
			}
			return runAndPrint(cmd.Context(), p, log, cmd.OutOrStdout())
		},
	}
	clean.Flags().StringVar(&f.input, "input", "", "input file; overrides source.file.path")
	clean.Flags().StringVar(&f.outDir, "out-dir", "", "output directory; overrides output.dir")
	clean.Flags().StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (env METRICS_BACKEND)")
	clean.Flags().StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	clean.Flags().StringVar(&f.schedule, "schedule", "", "cron spec; run repeatedly instead of once")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a job file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := prepare(f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", f.configPath)
			return nil
		},
	}

	root.AddCommand(clean, validate)
	return root
}

// prepare loads the environment and job file, applies flag overrides,
// validates the result and builds the logger. Issues are printed to w.
func prepare(f *flags, w io.Writer) (config.Pipeline, *zap.Logger, error) {
	if err := loadEnv(f.envFile); err != nil {
		return config.Pipeline{}, nil, err
	}

	var p config.Pipeline
	if f.configPath != "" {
		var err error
		if p, err = config.Load(f.configPath); err != nil {
			return config.Pipeline{}, nil, err
		}
	}
	f.apply(&p)
	p.ApplyEnv(os.Getenv)

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return config.Pipeline{}, nil, errors.New("configuration is invalid")
	}

	log, err := logging.New(f.verbose)
	if err != nil {
		return config.Pipeline{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return p, log, nil
}

// loadEnv loads an explicit dotenv file, or .env when it exists.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// apply copies flag overrides into p and fills defaults that depend on the
// input path.
func (f *flags) apply(p *config.Pipeline) {
	if f.input != "" {
		p.Source.Kind = "file"
		p.Source.File.Path = f.input
	}
	if p.Source.Kind == "" && p.Source.File.Path != "" && p.Source.HTTP.URL == "" {
		p.Source.Kind = "file"
	}
	if f.outDir != "" {
		p.Output.Dir = f.outDir
	}
	if f.metricsBackend != "" {
		p.Metrics.Backend = f.metricsBackend
	}
	if f.pushgatewayURL != "" {
		p.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if f.schedule != "" {
		p.Schedule = f.schedule
	}

	if p.Source.File.Path != "" {
		if p.Output.Name == "" {
			p.Output.Name = baseName(p.Source.File.Path)
		}
		if p.Job == "" {
			p.Job = baseName(p.Source.File.Path)
		}
	}
}

// baseName strips the directory and extension: "data/a.b.csv" gives "a.b".
func baseName(path string) string {
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
