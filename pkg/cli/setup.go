package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/config"
	"github.com/devicelab-dev/pageflow/pkg/driver/appium"
	"github.com/devicelab-dev/pageflow/pkg/executor"
	"github.com/devicelab-dev/pageflow/pkg/logger"
)

// openDevice creates the Appium session for a run. Tests replace it.
var openDevice = func(ctx context.Context, cfg *config.Config) (executor.Device, error) {
	caps, err := cfg.Profile().W3CCapabilities()
	if err != nil {
		return nil, err
	}
	logger.Info("Creating Appium session at %s for %s", cfg.ServerURL, cfg.Platform)
	drv, err := appium.NewDriver(ctx, cfg.ServerURL, caps, appium.WithPollInterval(cfg.Timeouts.Poll))
	if err != nil {
		return nil, fmt.Errorf("create appium session: %w", err)
	}
	return drv, nil
}

// loadConfig resolves the configuration and applies the global flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Resolve(".", c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p := c.String("platform"); p != "" {
		cfg.Platform = strings.ToLower(p)
	}
	if u := c.String("appium-url"); u != "" {
		cfg.ServerURL = u
	}
	if o := c.String("output"); o != "" {
		cfg.OutputDir = o
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCatalog returns the built-in catalog merged with an optional override
// file. Catalogs with validation errors are rejected.
func loadCatalog(path string) (*catalog.Catalog, error) {
	path, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	res := cat.Validate()
	for _, w := range res.Warnings() {
		logger.Warn("catalog: %s", w)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return cat, nil
}

// initLogging starts the global logger with a rotated JSON log in outputDir
// (or the configured log file) and a console core on stderr.
func initLogging(c *cli.Context, cfg *config.Config, outputDir string) error {
	file := cfg.LogFile
	if file == "" && outputDir != "" {
		file = filepath.Join(outputDir, "pageflow.log")
	}
	file, err := config.ExpandPath(file)
	if err != nil {
		return err
	}
	return logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		File:    file,
		Console: c.App.ErrWriter,
	})
}

// resolveOutputDir determines the output directory.
// - default: <output>/<timestamp>/
// - flatten: <output>/ (no timestamp subfolder)
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires an output directory")
	}

	baseDir := output
	if baseDir == "" {
		baseDir = "./reports"
	}
	if flatten {
		return filepath.Clean(baseDir), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

// artifactDir places relative screenshot directories inside the run's
// output directory.
func artifactDir(cfg *config.Config, outputDir string) (string, error) {
	dir, err := config.ExpandPath(cfg.ScreenshotDir)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "screenshots"
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	return filepath.Join(outputDir, dir), nil
}
