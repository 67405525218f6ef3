package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/pageflow/pkg/config"
	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/driver/appium"
	"github.com/devicelab-dev/pageflow/pkg/locator"
	"github.com/devicelab-dev/pageflow/pkg/logger"
	"github.com/devicelab-dev/pageflow/pkg/screens"
)

var probeCommand = &cli.Command{
	Name:  "probe",
	Usage: "Resolve the elements of a screen and show which locator matched",
	Description: `Open a session, resolve every catalog element of one screen against
whatever the app currently shows and print each attempt of each chain.

Exits with code 1 when any probed element did not resolve.

Examples:
  pageflow probe --screen sign_in
  pageflow probe --screen sign_in --element login_button --element error_message
  pageflow probe --screen main --dump`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "screen",
			Usage:    "Catalog screen to probe (sign_in, registration, main, profile, search)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:    "element",
			Aliases: []string{"e"},
			Usage:   "Only probe these elements",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "Also list the identifiable elements of the current page source",
		},
	},
	Action: probeScreen,
}

func probeScreen(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := initLogging(c, cfg, config.GetLogsDir()); err != nil {
		return err
	}
	defer logger.Close()

	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	screen := c.String("screen")
	if _, err := cat.ElementNames(screen); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	dev, err := openDevice(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("close session: %v", err)
		}
	}()

	res := locator.NewResolver(dev,
		locator.WithAttemptTimeout(cfg.Timeouts.Attempt),
		locator.WithLogger(logger.Named("resolver")))
	probes, err := screens.Probe(ctx, res, cat, screen, cfg.Platform, c.StringSlice("element")...)
	var bounds map[string]core.Bounds
	if err == nil {
		bounds = locate(ctx, dev, probes)
	}
	missed := printProbes(c.App.Writer, screen, cfg.Platform, probes, bounds)
	if err != nil {
		return err
	}

	if c.Bool("dump") {
		src, err := dev.Source(ctx)
		if err != nil {
			return fmt.Errorf("page source: %w", err)
		}
		if err := printSource(c.App.Writer, src); err != nil {
			return err
		}
	}

	if missed > 0 {
		return cli.Exit(fmt.Sprintf("%d element(s) of %s did not resolve", missed, screen), 1)
	}
	return nil
}

// locate returns the on-screen rectangle of every resolved element.
func locate(ctx context.Context, dev locator.Device, probes []screens.ElementProbe) map[string]core.Bounds {
	out := make(map[string]core.Bounds)
	for _, p := range probes {
		if p.Record.Outcome != locator.OutcomeResolved {
			continue
		}
		b, err := dev.Bounds(ctx, p.Record.Handle)
		if err != nil {
			logger.Debug("bounds of %s: %v", p.Element, err)
			continue
		}
		out[p.Element] = b
	}
	return out
}

// printProbes prints one block per element and returns how many missed.
// Resolved elements with known bounds show their center point.
func printProbes(w io.Writer, screen, platform string, probes []screens.ElementProbe, bounds map[string]core.Bounds) int {
	fmt.Fprintf(w, "%s%s%s on %s\n", color(colorBold), screen, color(colorReset), platform)
	missed := 0
	for _, p := range probes {
		rec := p.Record
		if rec.Outcome == locator.OutcomeResolved {
			at := ""
			if b, ok := bounds[p.Element]; ok {
				x, y := b.Center()
				at = fmt.Sprintf("  @ %d,%d", x, y)
			}
			fmt.Fprintf(w, "\n  %s✓%s %s  %s[%d] %s%s%s\n",
				color(colorGreen), color(colorReset), p.Element,
				color(colorGray), rec.Matched, rec.Chain.At(rec.Matched), at, color(colorReset))
		} else {
			missed++
			fmt.Fprintf(w, "\n  %s✗%s %s  %s%s%s\n",
				color(colorRed), color(colorReset), p.Element, color(colorGray), rec.Outcome, color(colorReset))
		}
		for i, a := range rec.Attempts {
			result := "matched"
			if a.Err != nil {
				result = a.Err.Error()
			}
			fmt.Fprintf(w, "      %d. %-60s %8s  %s\n", i, a.Descriptor, formatDuration(a.Duration.Milliseconds()), result)
		}
		if n := len(rec.Attempts); rec.Outcome == locator.OutcomeResolved && n < rec.Chain.Len() {
			fmt.Fprintf(w, "      %s(%d fallback(s) not tried)%s\n", color(colorGray), rec.Chain.Len()-n, color(colorReset))
		}
	}
	fmt.Fprintf(w, "\n%d/%d resolved\n", len(probes)-missed, len(probes))
	return missed
}

// printSource lists the page source nodes a locator can target, with the
// most stable descriptor each one offers.
func printSource(w io.Writer, src string) error {
	nodes, platform, err := appium.ParsePageSource(src)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%sPage source%s (%s, %d nodes)\n", color(colorBold), color(colorReset), platform, len(nodes))
	for _, n := range nodes {
		if !n.Identified() {
			continue
		}
		suggestions := n.Suggest()
		label := n.Text
		if label == "" {
			label = n.Label
		}
		fmt.Fprintf(w, "  %s%-40s %s", strings.Repeat("  ", n.Depth), n.Class, suggestions[0])
		if label != "" {
			fmt.Fprintf(w, "  %q", label)
		}
		fmt.Fprintln(w)
	}
	return nil
}
