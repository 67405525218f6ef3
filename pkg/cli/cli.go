// Package cli provides the command-line interface for pageflow.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to pageflow.yaml (default: pageflow.yaml or config.yaml in the working directory)",
		EnvVars: []string{"PAGEFLOW_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform to run on (android, ios)",
		EnvVars: []string{"PAGEFLOW_PLATFORM"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL",
		EnvVars: []string{"PAGEFLOW_APPIUM_URL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"PAGEFLOW_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output directory for reports (default: ./reports)",
		EnvVars: []string{"PAGEFLOW_OUTPUT"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the command tree. Output goes to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    "pageflow",
		Usage:   "Page object UI tests for the FoodApp over Appium",
		Version: Version,
		Description: `pageflow runs the built-in FoodApp scenarios against an Appium session.
Every element is found through an ordered chain of locators, most stable first.

Examples:
  pageflow run --tag smoke
  pageflow --platform ios run --scenario 'login_*'
  pageflow probe --screen sign_in
  pageflow catalog validate --file locators.yaml`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			listCommand,
			probeCommand,
			catalogCommand,
		},
		Writer:    stdout,
		ErrWriter: stderr,
	}
}

// Execute runs the CLI.
func Execute() {
	app := NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
