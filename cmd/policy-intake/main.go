package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/policy-intake/internal/bootstrap"
	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/pipeline"
	"github.com/joseph-ayodele/policy-intake/internal/velneo"
)

var (
	cfgFile    string
	masterData string
	jsonLogs   bool
	verbose    bool
	output     string
)

var rootCmd = &cobra.Command{
	Use:   "policy-intake",
	Short: "Offline tools for the policy intake pipeline",
	Long: `policy-intake reconciles and validates document-AI results without the wizard server:
single files, whole directories into an XLSX report, or a watched inbox. It also exports
recorded submissions.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}
		var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if jsonLogs {
			h = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(h))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("POLICY_CONFIG"), "config file path")
	rootCmd.PersistentFlags().StringVar(&masterData, "master-data", "", "master-data YAML/JSON file (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")
}

// env is what every command works with.
type env struct {
	cfg    *common.Config
	core   *bootstrap.Core
	proc   *pipeline.Processor
	logger *slog.Logger
}

func defaultLogger() *slog.Logger { return slog.Default() }

func loadConfigOnly() (*common.Config, error) {
	cfg, err := common.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if masterData != "" {
		cfg.Vocabulary.File = masterData
	}
	return cfg, nil
}

func loadEnv(ctx context.Context) (*env, error) {
	logger := defaultLogger()
	cfg, err := loadConfigOnly()
	if err != nil {
		return nil, err
	}
	var client *velneo.Client
	if cfg.Vocabulary.File == "" && cfg.Velneo.BaseURL != "" {
		client = bootstrap.VelneoClient(cfg.Velneo, logger)
	}
	loader, err := bootstrap.Loader(cfg, client, nil, logger)
	if err != nil {
		return nil, err
	}
	vocab, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load master data: %w", err)
	}
	core := bootstrap.NewCore(vocab, cfg.Validation, logger)
	return &env{
		cfg:    cfg,
		core:   core,
		proc:   pipeline.NewProcessor(nil, core.Reconciler, nil, nil, logger),
		logger: logger,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
