package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab-dev/pageflow/pkg/core"
)

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Slow scenario threshold in milliseconds
const slowThresholdMs = 30000

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// progress prints live scenario progress.
type progress struct {
	w io.Writer
}

func (p progress) start(idx, total int, name string) {
	fmt.Fprintf(p.w, "\n  %s[%d/%d]%s %s%s%s\n",
		color(colorCyan), idx+1, total, color(colorReset),
		color(colorBold), name, color(colorReset))
}

func (p progress) end(_, _ int, res core.ScenarioResult) {
	ms := res.Duration.Milliseconds()
	switch res.Status {
	case core.StatusPassed:
		symbol, symColor := "✓", color(colorGreen)
		if ms >= slowThresholdMs {
			symbol, symColor = "⚠", color(colorYellow)
		}
		fmt.Fprintf(p.w, "    %s%s%s passed %s(%s)%s\n",
			symColor, symbol, color(colorReset), color(colorGray), formatDuration(ms), color(colorReset))
	case core.StatusSkipped:
		fmt.Fprintf(p.w, "    %s-%s %s skipped: %s\n", color(colorCyan), color(colorReset), res.Name, res.Message)
	default:
		fmt.Fprintf(p.w, "    %s✗%s %s (%s)\n", color(colorRed), color(colorReset), res.Status, formatDuration(ms))
		if res.Message != "" {
			fmt.Fprintf(p.w, "      %s╰─%s %s\n", color(colorGray), color(colorReset), res.Message)
		}
	}
}

func printSummary(w io.Writer, suite *core.SuiteResult) {
	tableWidth := 72
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-44s %-9s %10s\n", "Scenario", "Status", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))

	for _, sc := range suite.Scenarios {
		var statusColor string
		switch sc.Status {
		case core.StatusPassed:
			statusColor = color(colorGreen)
		case core.StatusSkipped:
			statusColor = color(colorCyan)
		case core.StatusErrored:
			statusColor = color(colorYellow)
		default:
			statusColor = color(colorRed)
		}

		name := sc.Name
		if len(name) > 44 {
			name = name[:41] + "..."
		}
		fmt.Fprintf(w, "  %-44s %s%-9s%s %10s\n",
			name, statusColor, strings.ToUpper(sc.Status.String()), color(colorReset),
			formatDuration(sc.Duration.Milliseconds()))
	}

	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	statusColor := color(colorGreen)
	if suite.Failed+suite.Errored > 0 {
		statusColor = color(colorRed)
	}
	fmt.Fprintf(w, "  %s%-44s%s %s%-9s%s %10s\n",
		color(colorBold), "TOTAL", color(colorReset),
		statusColor, fmt.Sprintf("%d/%d", suite.Passed, suite.Total), color(colorReset),
		formatDuration(suite.Duration.Milliseconds()))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))

	var parts []string
	for _, c := range []struct {
		n     int
		label string
	}{
		{suite.Failed, "failed"},
		{suite.Errored, "errored"},
		{suite.Skipped, "skipped"},
	} {
		if c.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", c.n, c.label))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, ", "))
	}
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
