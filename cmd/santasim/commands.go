package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"santasim/internal/archive"
	"santasim/internal/blob"
	"santasim/internal/config"
	"santasim/internal/core"
	"santasim/internal/scenario"
	"santasim/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configPath string
	inputPath  string
	outputPath string
	tracePath  string
	ordering   string
	archive    bool
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "santasim",
		Short:         "Simulate yearly budget and gift allocation for a population of children",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	root.AddCommand(newRunCmd(&configPath), newValidateCmd(&configPath), newRunsCmd(&configPath))
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run --input scenario.json",
		Short: "Run a scenario and write the per-round snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.configPath = *configPath
			return runSimulation(cmd.Context(), opts, cmd.Flags().Changed("archive"), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&opts.inputPath, "input", "i", "", "scenario JSON file")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "write JSON-lines spans to this file")
	cmd.Flags().StringVar(&opts.ordering, "ordering", "", "default snapshot ordering: population|id|niceScore|niceScoreCity")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "archive the run to the configured blob store")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newValidateCmd(configPath *string) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "validate --input scenario.json",
		Short: "Check configuration and scenario without running",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			in, err := loadInput(inputPath)
			if err != nil {
				return err
			}
			if err := core.ValidateBudget(in.Budget); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d children, %d gifts, %d years, storage=%s ordering=%s\n",
				len(in.Children), len(in.Gifts), len(in.AnnualChanges), storageName(cfg.Storage.Driver), cfg.Ordering)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "scenario JSON file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newRunsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List archived run ids",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			store, err := blob.Open(cmd.Context(), cfg.Blob)
			if err != nil {
				return err
			}
			ids, err := archive.New(store).Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func runSimulation(ctx context.Context, opts runOptions, archiveSet bool, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.ordering != "" {
		o, err := domain.ParseOrdering(opts.ordering)
		if err != nil {
			return err
		}
		cfg.Ordering = o
	}
	if archiveSet {
		cfg.Archive = opts.archive
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	in, err := loadInput(opts.inputPath)
	if err != nil {
		return err
	}

	store, closeStore, err := core.OpenPersistentStore(cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		logger.Error("open store failed", "driver", storageName(cfg.Storage.Driver), "error", err)
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := core.MultiRecorder{
		core.NewPrometheusMetricsRecorder(registry),
		core.NewExpvarMetricsRecorder(""),
	}
	simOpts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithAgeBands(cfg.AgeBands),
		core.WithOrdering(cfg.Ordering),
	}
	if opts.tracePath != "" {
		f, err := os.Create(opts.tracePath)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		simOpts = append(simOpts, core.WithTracer(core.NewJSONTracer(f)))
	}

	snapshots, err := core.NewSimulator(store, simOpts...).Run(ctx, in)
	if err != nil {
		logger.Error("simulation aborted", "error", err)
		return err
	}
	if err := writeOutput(opts.outputPath, stdout, snapshots); err != nil {
		return err
	}

	if cfg.Archive {
		bs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("open archive store: %w", err)
		}
		manifest, err := archive.New(bs).Save(ctx, opts.inputPath, snapshots)
		if err != nil {
			return err
		}
		logger.Info("run archived", "run_id", manifest.RunID, "driver", bs.Driver(), "rounds", len(manifest.Rounds))
	}
	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, registry); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	return nil
}

func loadInput(path string) (core.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Input{}, fmt.Errorf("open scenario: %w", err)
	}
	defer func() { _ = f.Close() }()
	doc, err := scenario.Decode(f)
	if err != nil {
		return core.Input{}, err
	}
	return doc.Input()
}

func writeOutput(path string, stdout io.Writer, snapshots []domain.RoundSnapshot) error {
	if path == "" || path == "-" {
		return scenario.Encode(stdout, snapshots)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := scenario.Encode(f, snapshots); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func storageName(d core.StorageDriver) core.StorageDriver {
	if d == "" {
		return core.StorageMemory
	}
	return d
}
