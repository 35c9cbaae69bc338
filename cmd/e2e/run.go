package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/authflow-e2e/features"
	"github.com/kuitang/authflow-e2e/internal/artifacts"
	"github.com/kuitang/authflow-e2e/internal/config"
	"github.com/kuitang/authflow-e2e/internal/obs"
	"github.com/kuitang/authflow-e2e/internal/steps"
)

var (
	runLocal       bool
	runConcurrency int
	runRandomize   int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenarios and write the reports",
	Long: `Run executes the embedded features (or --features DIR) against --base-url.

With --local the bundled reference app is started on a random local port
with its demo account, and the run points at it instead.

Reports land in <artifacts-dir>/reports: cucumber.json, report.json,
report.md and report.html. The process exits with godog's status.`,
	RunE: runE2E,
}

func init() {
	config.RegisterFlags(runCmd.Flags())
	runCmd.Flags().BoolVar(&runLocal, "local", false, "Start the reference app locally and test it")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 1, "Scenarios run in parallel")
	runCmd.Flags().Int64Var(&runRandomize, "randomize", 0, "Shuffle scenarios with this seed (-1 picks one)")
}

func runE2E(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := obs.From(ctx).With("pkg", "e2e")

	cfg, err := config.Load(config.LoadOptions{PropertiesFile: propertiesFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}

	if runLocal {
		stop, err := startLocalApp(ctx, cfg)
		if err != nil {
			return fmt.Errorf("start local app: %w", err)
		}
		defer stop()
	}

	store, err := artifactStore(ctx, cfg)
	if err != nil {
		return err
	}

	reportDir := cfg.ReportDir()
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	opts := steps.RunOptions{
		Tags:        cfg.Tags,
		Format:      steps.CucumberFormat(cfg.Format, filepath.Join(reportDir, "cucumber.json")),
		Output:      cmd.OutOrStdout(),
		Strict:      cfg.Strict,
		Concurrency: runConcurrency,
		Randomize:   runRandomize,
	}
	if cfg.FeaturesPath != "" {
		opts.Paths = []string{cfg.FeaturesPath}
	} else {
		opts.FS = features.FS
	}

	suite := steps.NewSuite(cfg, store)
	logger.Info("run_started", "base_url", cfg.BaseURL, "browser", cfg.Browser, "tags", cfg.Tags)
	exitCode = suite.Run(opts)

	rec := suite.Recorder
	if err := rec.WriteJSON(filepath.Join(reportDir, "report.json")); err != nil {
		return err
	}
	if err := rec.WriteMarkdown(filepath.Join(reportDir, "report.md")); err != nil {
		return err
	}
	if err := rec.WriteHTML(filepath.Join(reportDir, "report.html")); err != nil {
		return err
	}

	sum := rec.Summary()
	logger.Info("run_finished", "status", exitCode, "total", sum.Total, "passed", sum.Passed, "failed", sum.Failed, "reports", reportDir)
	return nil
}

// artifactStore keeps screenshots on disk and, when a bucket is configured,
// uploads them too under a per-run prefix.
func artifactStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	dir := artifacts.NewDirStore(cfg.ScreenshotDir())
	if cfg.ScreenshotBucket == "" {
		return dir, nil
	}
	prefix := "runs/" + time.Now().UTC().Format("20060102T150405Z")
	s3Store, err := artifacts.NewS3Store(ctx, artifacts.S3ConfigFromConfig(cfg, prefix))
	if err != nil {
		return nil, err
	}
	return artifacts.Tee{dir, s3Store}, nil
}
