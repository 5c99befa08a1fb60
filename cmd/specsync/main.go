// Package main provides the specsync binary entry point.
// Specsync keeps documentation-generation modules in step with a project
// specification document: it detects spec changes, classifies their
// impact, and patches the affected module configs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/specsync/config"
	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/engine"
	"github.com/c360studio/specsync/history"
	"github.com/c360studio/specsync/ingest"
	"github.com/c360studio/specsync/metrics"
	"github.com/c360studio/specsync/modules"
	"github.com/c360studio/specsync/report"
	"github.com/c360studio/specsync/spec"
	"github.com/c360studio/specsync/watch"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "specsync"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		specPath   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "specsync",
		Short: "Spec-to-documentation synchronization",
		Long: `Specsync watches a project specification document and keeps the
documentation-generation pipeline aligned with it.

Each sync pass fingerprints the spec, diffs the parsed sections against
the previous snapshot, classifies the impact on downstream modules, and
patches the module configs that can be updated automatically. Changes
that need human judgment are flagged for manual review, and every pass
is recorded in a change history and a report file.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&specPath, "spec", "", "Spec document path (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		syncCmd(&configPath, &specPath, &logLevel),
		detectCmd(&configPath, &specPath, &logLevel),
		parseCmd(&configPath, &specPath, &logLevel),
		historyCmd(&configPath, &specPath, &logLevel),
		modulesCmd(&configPath, &specPath, &logLevel),
		initCmd(&configPath, &specPath, &logLevel),
		watchCmd(&configPath, &specPath, &logLevel),
		versionCmd(),
	)

	return cmd
}

// loadConfig resolves the effective configuration: an explicit config
// file when given, the layered loader otherwise, then flag overrides.
func loadConfig(configPath, specPath, logLevel string) (*config.Config, *slog.Logger, error) {
	logger := buildLogger(logLevel)
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
	}

	if specPath != "" {
		cfg.Spec.Path = specPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Rebuild at the configured level once the config is known.
	logger = buildLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func buildLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func engineOptions(cfg *config.Config, logger *slog.Logger) engine.Options {
	return engine.Options{
		SpecPath:     cfg.Spec.Path,
		StateDir:     cfg.State.Dir,
		ModulesDir:   cfg.Modules.Dir,
		ReportsDir:   cfg.Reports.Dir,
		ReportFormat: report.Format(cfg.Reports.Format),
		Logger:       logger,
	}
}

func syncCmd(configPath, specPath, logLevel *string) *cobra.Command {
	var (
		dryRun bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass",
		Long: `Sync runs a single pass: fingerprint the spec, diff it against the
previous snapshot, apply automatic updates to module configs, and write
a report. With --dry-run nothing is written; the pass stops after
classification and prints what would happen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}
			if format != "" {
				if _, ok := report.GetFormatInfo(report.Format(format)); !ok {
					return fmt.Errorf("unknown report format: %s", format)
				}
				cfg.Reports.Format = format
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			eng := engine.New(engineOptions(cfg, logger))

			if dryRun {
				result, err := eng.DryRun(ctx)
				if err != nil {
					return err
				}
				printDryRun(result)
				return nil
			}

			result, err := eng.Run(ctx)
			if err != nil {
				return err
			}
			printPass(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Detect and classify without writing anything")
	cmd.Flags().StringVar(&format, "format", "", "Report format (markdown, text)")

	return cmd
}

func detectCmd(configPath, specPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Detect spec changes without applying them",
		Long: `Detect compares the spec against the stored fingerprint and snapshot
and prints the changes it finds. Nothing is recorded, so the next sync
pass still sees the same changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			doc, err := ingest.Load(cfg.Spec.Path)
			if err != nil {
				return err
			}

			detector := newDetector(cfg, logger)
			result, err := detector.Preview(ctx, doc)
			if err != nil {
				return err
			}

			if !result.HasChanges {
				fmt.Println("Spec unchanged.")
				return nil
			}

			fmt.Printf("Spec changed (fingerprint %s).\n", shortFingerprint(result.Fingerprint))
			printChanges(result.Changes)
			return nil
		},
	}
}

func parseCmd(configPath, specPath, logLevel *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse the spec and print its sections",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}

			doc, err := ingest.Load(cfg.Spec.Path)
			if err != nil {
				return err
			}
			parsed := spec.NewParser(logger).Parse(doc)

			if asJSON {
				data, err := json.MarshalIndent(parsed, "", "  ")
				if err != nil {
					return fmt.Errorf("encode parsed spec: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			printParsed(parsed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the parsed spec as JSON")

	return cmd
}

func historyCmd(configPath, specPath, logLevel *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recorded change history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}

			store := history.NewFileStore(historyPath(cfg), logger)
			entries := store.Entries()
			if len(entries) == 0 {
				fmt.Println("No change history recorded yet.")
				return nil
			}

			// Most recent first.
			shown := 0
			for i := len(entries) - 1; i >= 0 && shown < limit; i-- {
				entry := entries[i]
				fmt.Printf("%s  %s  %d change(s)\n",
					entry.Timestamp.Format(time.RFC3339),
					shortFingerprint(entry.Fingerprint),
					len(entry.Changes))
				for _, change := range entry.Changes {
					fmt.Printf("    %s (%s): %s\n", change.Type, change.Severity, change.Description)
				}
				shown++
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum entries to show")

	return cmd
}

func modulesCmd(configPath, specPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List discovered documentation module configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}

			dir := modules.NewDir(cfg.Modules.Dir, logger)
			configs, err := dir.Discover()
			if err != nil {
				return err
			}

			if len(configs) == 0 {
				fmt.Printf("No module configs found under %s. Run `specsync init` to scaffold them.\n", dir.Root())
				return nil
			}

			for _, mc := range configs {
				fmt.Printf("%-22s %2d setting(s)  %s\n", mc.Module(), len(mc.Keys()), mc.Path())
			}
			return nil
		},
	}
}

func initCmd(configPath, specPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold project config, state directory, and module configs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(config.ProjectConfigFile); os.IsNotExist(statErr) {
				if err := cfg.SaveToFile(config.ProjectConfigFile); err != nil {
					return fmt.Errorf("write project config: %w", err)
				}
				fmt.Printf("Created %s\n", config.ProjectConfigFile)
			} else {
				fmt.Printf("%s already exists, leaving it alone\n", config.ProjectConfigFile)
			}

			if err := os.MkdirAll(cfg.State.Dir, 0755); err != nil {
				return fmt.Errorf("create state directory: %w", err)
			}
			fmt.Printf("State directory: %s\n", cfg.State.Dir)

			dir := modules.NewDir(cfg.Modules.Dir, logger)
			if err := dir.Scaffold(); err != nil {
				return fmt.Errorf("scaffold module configs: %w", err)
			}
			fmt.Printf("Module configs under: %s\n", dir.Root())

			return nil
		},
	}
}

func watchCmd(configPath, specPath, logLevel *string) *cobra.Command {
	var (
		debounce    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the spec and sync continuously",
		Long: `Watch runs an initial sync pass, then watches the spec file and runs
one pass after each debounced burst of changes. Passes never overlap.
With a metrics address set, Prometheus metrics are served on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath, *specPath, *logLevel)
			if err != nil {
				return err
			}
			if debounce > 0 {
				cfg.Watch.Debounce = debounce
			}
			if metricsAddr != "" {
				cfg.Watch.MetricsAddr = metricsAddr
			}

			printBanner()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			eng := engine.New(engineOptions(cfg, logger))

			var observer watch.Observer
			if cfg.Watch.MetricsAddr != "" {
				collector := metrics.NewCollector()
				observer = collector
				go func() {
					if err := collector.Serve(ctx, cfg.Watch.MetricsAddr, logger); err != nil {
						logger.Error("Metrics endpoint failed", slog.String("error", err.Error()))
					}
				}()
			}

			watcher, err := watch.New(eng, watch.Options{
				SpecPath: cfg.Spec.Path,
				Debounce: cfg.Watch.Debounce,
				Observer: observer,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			return watcher.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before a pass runs (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Prometheus metrics listen address (e.g. :9090)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║            Specsync v" + Version + "                    ║")
	fmt.Println("║     Spec-to-Documentation Synchronization     ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

// newDetector wires a detector against the configured state directory.
func newDetector(cfg *config.Config, logger *slog.Logger) *detect.Detector {
	parser := spec.NewParser(logger)
	hist := history.NewFileStore(historyPath(cfg), logger)
	snap := history.NewSnapshot(snapshotPath(cfg), logger)
	return detect.NewDetector(parser, hist, snap, logger)
}

func historyPath(cfg *config.Config) string {
	return filepath.Join(cfg.State.Dir, history.HistoryFile)
}

func snapshotPath(cfg *config.Config) string {
	return filepath.Join(cfg.State.Dir, history.SnapshotFile)
}

func printPass(result *engine.PassResult) {
	if result.State == engine.StateUnchanged {
		fmt.Printf("Spec unchanged (fingerprint %s). Nothing to do.\n", shortFingerprint(result.Fingerprint))
		return
	}

	writer := report.NewWriter(report.FormatText)
	fmt.Print(writer.Write(result.Summary, result.Analysis, result.Changes))
	if result.ReportPath != "" {
		fmt.Printf("Report: %s\n", result.ReportPath)
	}
}

func printDryRun(result *engine.PassResult) {
	if result.State == engine.StateUnchanged {
		fmt.Printf("Spec unchanged (fingerprint %s). Nothing would be done.\n", shortFingerprint(result.Fingerprint))
		return
	}

	fmt.Printf("Spec changed (fingerprint %s). Dry run, nothing written.\n", shortFingerprint(result.Fingerprint))
	printChanges(result.Changes)

	if result.Analysis == nil {
		return
	}
	fmt.Printf("Impacted modules: %s\n", strings.Join(result.Analysis.ImpactedModules, ", "))
	for _, action := range result.Analysis.UpdateActions {
		fmt.Printf("  would apply: %s\n", action)
	}
	for _, item := range result.Analysis.ManualReviewRequired {
		fmt.Printf("  manual review: %s: %s\n", item.Type, item.Description)
	}
	fmt.Printf("Estimated effort: %s\n", result.Analysis.EstimatedEffort)
}

func printChanges(changes []detect.ChangeItem) {
	for _, change := range changes {
		fmt.Printf("  %s (%s severity): %s\n", change.Type, change.Severity, change.Description)
		for _, diff := range change.Details {
			switch diff.Kind {
			case detect.DiffAdded:
				fmt.Printf("      + %s = %q\n", diff.Key, diff.NewValue)
			case detect.DiffRemoved:
				fmt.Printf("      - %s (was %q)\n", diff.Key, diff.OldValue)
			default:
				fmt.Printf("      ~ %s: %q -> %q\n", diff.Key, diff.OldValue, diff.NewValue)
			}
		}
	}
}

func printParsed(parsed *spec.ParsedSpec) {
	fmt.Printf("Title:       %s\n", parsed.Metadata.Title)
	if parsed.Metadata.Version != "" {
		fmt.Printf("Version:     %s\n", parsed.Metadata.Version)
	}
	fmt.Printf("Fingerprint: %s\n", shortFingerprint(parsed.Metadata.Fingerprint))
	if parsed.Goal.Summary != "" {
		fmt.Printf("Goal:        %s\n", parsed.Goal.Summary)
	}

	printSection := func(name string, values map[string]string) {
		if len(values) == 0 {
			return
		}
		fmt.Printf("\n%s:\n", name)
		for _, key := range sortedKeys(values) {
			fmt.Printf("  %s: %s\n", key, values[key])
		}
	}

	printSection("Sources", parsed.Sources.Flatten())
	printSection("Templates", parsed.Templates.Flatten())
	printSection("File generation", parsed.FileGeneration.Flatten())
	printSection("Content rules", parsed.ContentRules.Flatten())
	printSection("Navigation rules", parsed.NavigationRules.Flatten())
	printSection("Validation rules", parsed.ValidationRules.Flatten())
	printSection("Editorial review", parsed.EditorialReview.Flatten())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
