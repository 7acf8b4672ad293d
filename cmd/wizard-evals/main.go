// cmd/wizard-evals/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/evals"
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/internal/wizard/extract"
	"card-program-wizard/pkg/registry"
)

type options struct {
	casesPath  string
	target     string
	apiURL     string
	provider   string
	outputDir  string
	threshold  float64
	configPath string
	warmup     int
	verbose    bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "wizard-evals",
		Short:         "Score the wizard assistant against labelled answers",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.casesPath, "cases", "configs/eval-cases.yaml", "path to the eval suite (.yaml or .json)")
	f.StringVar(&opts.target, "target", "local", "where to send turns: local or http")
	f.StringVar(&opts.apiURL, "api-url", envOr("API_URL", "http://localhost:8080"), "base URL of a running wizard server")
	f.StringVar(&opts.provider, "provider", envOr("AI_PROVIDER", assistant.ProviderLocal), "assistant provider to request")
	f.StringVar(&opts.outputDir, "output", "evals/results", "directory for result files")
	f.Float64Var(&opts.threshold, "threshold", evals.DefaultThreshold, "minimum accuracy percentage")
	f.StringVar(&opts.configPath, "config", "", "config file for the local target (defaults to configs/config.yaml)")
	f.IntVar(&opts.warmup, "warmup", 0, "unscored turns to send before the suite")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every case")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, "console", "stderr")

	suite, err := evals.LoadCases(opts.casesPath)
	if err != nil {
		return err
	}

	catalog := registry.Default()
	var target evals.Target

	switch opts.target {
	case "local":
		cfg, err := loadConfig(opts.configPath)
		if err != nil {
			return err
		}
		if cfg.Catalog.QuestionsPath != "" {
			if catalog, err = registry.LoadRegistry(cfg.Catalog.QuestionsPath); err != nil {
				return err
			}
		}
		target = evals.NewLocal(assistant.NewService(cfg.Assistant, log))

	case "http":
		h := evals.NewHTTP(opts.apiURL, &http.Client{Timeout: 30 * time.Second})
		fmt.Fprintf(out, "Checking API health at %s...\n", opts.apiURL)
		if err := h.Health(ctx); err != nil {
			rep := evals.FatalReport(h.Name(), opts.provider, err)
			if path, saveErr := rep.Save(opts.outputDir, time.Now()); saveErr == nil {
				fmt.Fprintf(out, "Error results saved to %s\n", path)
			}
			return err
		}
		target = h

	default:
		return fmt.Errorf("unknown target %q, want local or http", opts.target)
	}

	if opts.warmup > 0 {
		warm(ctx, target, opts, opts.warmup)
	}

	fmt.Fprintf(out, "Running %d eval cases against %s (provider %s)\n\n", len(suite.TestCases), target.Name(), opts.provider)
	rep := evals.NewRunner(target, catalog, opts.provider, log).Run(ctx, suite.TestCases)
	printSummary(out, rep)

	path, err := rep.Save(opts.outputDir, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nResults saved to %s\n", path)

	if !rep.MeetsThreshold(opts.threshold) {
		return fmt.Errorf("accuracy %.1f%% is below the %.1f%% threshold", rep.Metrics.ValidationAccuracy, opts.threshold)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func warm(ctx context.Context, target evals.Target, opts *options, n int) {
	q := extract.Question{Field: "estimated_cards", Type: extract.TypeNumber}
	for i := 0; i < n; i++ {
		_, _ = target.Validate(ctx, opts.provider, q, "100")
	}
}

func printSummary(out io.Writer, rep *evals.Report) {
	for _, d := range rep.TestDetails {
		mark := "PASS"
		switch {
		case d.Error != "":
			mark = "ERR "
		case !d.Passed:
			mark = "FAIL"
		}
		fmt.Fprintf(out, "  [%s] %-28s %5dms  %s\n", mark, d.ID, d.Duration, d.Description)
		for _, c := range d.Checks {
			if !c.Passed {
				fmt.Fprintf(out, "         %s: expected %v, got %v\n", c.Name, c.Expected, c.Actual)
			}
		}
	}

	fmt.Fprintf(out, "\nTotal: %d  Passed: %d  Failed: %d  Errors: %d\n", rep.Total, rep.Passed, rep.Failed, rep.Errors)

	categories := make([]string, 0, len(rep.ByCategory))
	for name := range rep.ByCategory {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		s := rep.ByCategory[name]
		fmt.Fprintf(out, "  %-20s %d/%d\n", name, s.Passed, s.Total)
	}

	m := rep.Metrics
	fmt.Fprintf(out, "\nAccuracy:                 %.1f%%\n", m.ValidationAccuracy)
	fmt.Fprintf(out, "Typo correction:          %.1f%%\n", m.TypoCorrectionRate)
	fmt.Fprintf(out, "Command recognition:      %.1f%%\n", m.CommandRecognitionRate)
	fmt.Fprintf(out, "Natural language:         %.1f%%\n", m.NaturalLanguageUnderstanding)
	fmt.Fprintf(out, "Average response time:    %.0fms\n", m.AvgResponseTime)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
