package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"cronograma/internal/config"
	appLog "cronograma/internal/log"
	"cronograma/internal/metrics"
	"cronograma/internal/pipeline"
	"cronograma/internal/sheet"
)

const defaultConfigFile = "cronograma.yaml"

// rootFlags hold persistent overrides applied on top of the config file.
type rootFlags struct {
	configPath string
	logLevel   string
	input      string
	output     string
	year       int
	locale     string
}

// app is the wiring shared by every command.
type app struct {
	cfg      *config.Config
	store    *sheet.Store
	metrics  *metrics.Metrics
	renderer *pipeline.Renderer
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		appLog.Error("cronograma failed", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "cronograma",
		Short:         "Training schedule dashboard",
		Long:          "Reads a training schedule workbook, draws it as a timeline and lets you mark sessions as completed.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", defaultConfigFile, "Path to config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&flags.input, "input", "", "Schedule workbook path or URL (overrides config)")
	pf.StringVar(&flags.output, "output", "", "Edited workbook path (overrides config)")
	pf.IntVar(&flags.year, "year", 0, "Year the week numbers refer to (overrides config)")
	pf.StringVar(&flags.locale, "locale", "", "Chart locale, e.g. pt-PT (overrides config)")

	root.AddCommand(
		serveCmd(flags),
		checkCmd(flags),
		exportCmd(flags),
		icsCmd(flags),
		chartCmd(flags),
		snapshotCmd(flags),
	)
	return root
}

// loadApp reads the config, applies CLI overrides and builds the shared
// store and renderer.
func loadApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return nil, err
	}
	if err := applyOverrides(cfg, flags); err != nil {
		return nil, err
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	fsys := afero.NewOsFs()
	store := sheet.NewStore(fsys, sheet.NewFetcher(fsys, cfg.CacheDir))
	m := metrics.New()
	renderer := pipeline.NewRenderer(store, m, pipeline.Options{
		Input:  cfg.Input,
		Year:   cfg.Year,
		Locale: cfg.Locale,
		Title:  cfg.Title,
	})

	appLog.Debug("effective config",
		"listen", cfg.Listen,
		"input", cfg.Input,
		"output", cfg.Output,
		"year", cfg.Year,
		"locale", cfg.Locale,
		"snapshot_cron", cfg.Snapshot.Cron,
	)
	return &app{cfg: cfg, store: store, metrics: m, renderer: renderer}, nil
}

func applyOverrides(cfg *config.Config, flags *rootFlags) error {
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.input != "" {
		cfg.Input = flags.input
	}
	if flags.output != "" {
		cfg.Output = flags.output
	}
	if flags.year != 0 {
		cfg.Year = flags.year
	}
	if flags.locale != "" {
		cfg.Locale = flags.locale
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
