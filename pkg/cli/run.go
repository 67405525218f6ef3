package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pageflow/pkg/executor"
	"github.com/devicelab-dev/pageflow/pkg/logger"
	"github.com/devicelab-dev/pageflow/pkg/report"
	"github.com/devicelab-dev/pageflow/pkg/scenarios"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Run scenarios on one Appium session",
	Description: `Run the built-in scenarios in order on a single session.

Reports are generated in the output directory:
  - Default: ./reports/<timestamp>/
  - With --flatten: <output>/ (no timestamp subfolder)

Examples:
  pageflow run
  pageflow run --tag smoke
  pageflow run --scenario login_existing_user --scenario 'search_*'
  pageflow run --exclude-tag integration --stop-on-fail`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "Only run scenarios with any of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tag",
			Usage: "Skip scenarios with these tags",
		},
		&cli.StringSliceFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "Only run these scenarios (names or glob patterns)",
		},
		&cli.BoolFlag{
			Name:  "stop-on-fail",
			Usage: "Skip the remaining scenarios after the first failure",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder",
		},
		&cli.BoolFlag{
			Name:  "html",
			Usage: "Write report.html next to report.json",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "allure",
			Usage: "Write Allure results to allure-results/",
		},
	},
	Action: runScenarios,
}

func runScenarios(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	outputDir, err := resolveOutputDir(cfg.OutputDir, c.Bool("flatten"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := initLogging(c, cfg, outputDir); err != nil {
		return err
	}
	defer logger.Close()

	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	artifacts, err := artifactDir(cfg, outputDir)
	if err != nil {
		return err
	}

	filter := executor.Filter{
		Names:       c.StringSlice("scenario"),
		IncludeTags: cfg.IncludeTags,
		ExcludeTags: cfg.ExcludeTags,
	}
	if tags := c.StringSlice("tag"); len(tags) > 0 {
		filter.IncludeTags = tags
	}
	if tags := c.StringSlice("exclude-tag"); len(tags) > 0 {
		filter.ExcludeTags = tags
	}

	logger.Info("Output directory: %s", outputDir)
	logger.Info("Platform: %s, server: %s", cfg.Platform, cfg.ServerURL)

	out := progress{w: c.App.Writer}
	runner := executor.New(func(ctx context.Context) (executor.Device, error) {
		return openDevice(ctx, cfg)
	}, executor.Config{
		Name:            "pageflow",
		ArtifactDir:     artifacts,
		Artifacts:       cfg.Artifacts,
		Timeouts:        executor.TimeoutsFrom(cfg.Timeouts),
		Catalog:         cat,
		User:            cfg.User,
		StopOnFail:      c.Bool("stop-on-fail"),
		Filter:          filter,
		OnScenarioStart: out.start,
		OnScenarioEnd:   out.end,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	suite, err := runner.Run(ctx, scenarios.All())
	if err != nil {
		logger.Error("Run failed: %v", err)
		return err
	}
	printSummary(c.App.Writer, suite)

	r := report.FromSuite(suite, report.RunnerInfo{Version: Version, Driver: "appium"})
	jsonPath, err := report.Write(outputDir, r)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "\n  Reports:")
	if c.Bool("html") {
		if htmlPath, err := report.GenerateHTML(outputDir, report.HTMLConfig{Title: "pageflow " + suite.RunID}); err != nil {
			fmt.Fprintf(c.App.Writer, "  %s⚠%s Warning: failed to generate HTML report: %v\n", color(colorYellow), color(colorReset), err)
		} else {
			fmt.Fprintf(c.App.Writer, "    HTML:   %s\n", htmlPath)
		}
	}
	fmt.Fprintf(c.App.Writer, "    JSON:   %s\n", jsonPath)
	if c.Bool("allure") {
		if dir, err := report.GenerateAllure(outputDir); err != nil {
			fmt.Fprintf(c.App.Writer, "  %s⚠%s Warning: failed to generate Allure results: %v\n", color(colorYellow), color(colorReset), err)
		} else {
			fmt.Fprintf(c.App.Writer, "    Allure: %s\n", dir)
		}
	}

	if !suite.Success() {
		return cli.Exit("", 1)
	}
	return nil
}
