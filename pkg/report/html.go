package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath  string // Path to write the HTML file
	EmbedAssets bool   // Embed screenshots as base64 (makes file larger but portable)
	Title       string // Report title (default: "Test Report")
}

// GenerateHTML renders report.json from reportDir into a single HTML page
// and returns its path.
func GenerateHTML(reportDir string, cfg HTMLConfig) (string, error) {
	r, err := Read(reportDir)
	if err != nil {
		return "", err
	}

	if cfg.Title == "" {
		cfg.Title = "Test Report"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(reportDir, "report.html")
	}

	html, err := renderHTML(buildHTMLData(r, cfg))
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	return cfg.OutputPath, nil
}

// HTMLData contains all data needed for the HTML template.
type HTMLData struct {
	Title         string
	GeneratedAt   string
	Report        *Report
	Scenarios     []ScenarioHTMLData
	TotalDuration string
	PassRate      float64
}

// ScenarioHTMLData contains scenario data formatted for HTML.
type ScenarioHTMLData struct {
	ScenarioEntry
	DurationStr string
	Images      []ImageHTMLData
}

// ImageHTMLData is a screenshot shown under a scenario.
type ImageHTMLData struct {
	Name string
	Src  template.URL // data URI or file path
}

func buildHTMLData(r *Report, cfg HTMLConfig) HTMLData {
	scenarios := make([]ScenarioHTMLData, len(r.Scenarios))
	for i, sc := range r.Scenarios {
		d := ScenarioHTMLData{ScenarioEntry: sc, DurationStr: formatDuration(sc.Duration)}
		for _, a := range sc.Attachments {
			if !strings.HasPrefix(a.Type, "image/") {
				continue
			}
			src := a.Path
			if cfg.EmbedAssets {
				if src = loadAsBase64(a.Path); src == "" {
					continue
				}
			}
			d.Images = append(d.Images, ImageHTMLData{Name: a.Name, Src: template.URL(src)})
		}
		scenarios[i] = d
	}

	var passRate float64
	if r.Summary.Total > 0 {
		passRate = float64(r.Summary.Passed) / float64(r.Summary.Total) * 100
	}

	return HTMLData{
		Title:         cfg.Title,
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		Report:        r,
		Scenarios:     scenarios,
		TotalDuration: formatDuration(r.Duration),
		PassRate:      passRate,
	}
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func loadAsBase64(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(path))
	mimeType := "image/png"
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-secondary: #f9fafb;
            --text-muted: rgb(107, 114, 128);
            --border-color: #e5e7eb;
            --passed: #22c55e;
            --failed: #ef4444;
            --errored: #f97316;
            --skipped: #eab308;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.5; }
        .header { background: var(--bg-secondary); border-bottom: 1px solid var(--border-color); padding: 16px 24px; }
        .meta { color: var(--text-muted); font-size: 13px; }
        .summary { display: flex; gap: 16px; margin-top: 12px; }
        .stat { font-weight: 600; }
        .stat.passed { color: var(--passed); }
        .stat.failed { color: var(--failed); }
        .stat.errored { color: var(--errored); }
        .stat.skipped { color: var(--skipped); }
        .scenario { border-bottom: 1px solid var(--border-color); padding: 12px 24px; }
        .scenario summary { cursor: pointer; display: flex; gap: 12px; align-items: center; }
        .badge { border-radius: 4px; color: white; font-size: 12px; padding: 2px 8px; text-transform: uppercase; }
        .badge.passed { background: var(--passed); }
        .badge.failed { background: var(--failed); }
        .badge.errored { background: var(--errored); }
        .badge.skipped { background: var(--skipped); }
        .tag { color: var(--text-muted); font-size: 12px; }
        .error { background: #fef2f2; font-family: monospace; font-size: 12px; margin-top: 8px; padding: 8px; white-space: pre-wrap; }
        .shots { display: flex; flex-wrap: wrap; gap: 12px; margin-top: 8px; }
        .shots figure { font-size: 12px; text-align: center; }
        .shots img { border: 1px solid var(--border-color); max-height: 320px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        <div class="meta">
            {{.Report.Name}} &middot; run {{.Report.RunID}}
            {{with .Report.Device}}&middot; {{.Platform}} {{.OSVersion}} {{.Name}}{{end}}
            &middot; {{.TotalDuration}} &middot; generated {{.GeneratedAt}}
        </div>
        <div class="summary">
            <span class="stat">{{.Report.Summary.Total}} total</span>
            <span class="stat passed">{{.Report.Summary.Passed}} passed</span>
            <span class="stat failed">{{.Report.Summary.Failed}} failed</span>
            <span class="stat errored">{{.Report.Summary.Errored}} errored</span>
            <span class="stat skipped">{{.Report.Summary.Skipped}} skipped</span>
            <span class="stat">{{printf "%.0f" .PassRate}}% pass rate</span>
        </div>
    </div>
    {{range .Scenarios}}
    <details class="scenario"{{if ne .Status "passed"}} open{{end}}>
        <summary>
            <span class="badge {{.Status}}">{{.Status}}</span>
            <span>{{.Name}}</span>
            {{range .Tags}}<span class="tag">#{{.}}</span>{{end}}
            <span class="meta">{{.DurationStr}}</span>
        </summary>
        {{if .Message}}<div class="error">{{.Message}}{{if and .Error (ne .Error .Message)}}
{{.Error}}{{end}}</div>{{end}}
        {{if .Images}}
        <div class="shots">
            {{range .Images}}<figure><img src="{{.Src}}" alt="{{.Name}}"><figcaption>{{.Name}}</figcaption></figure>{{end}}
        </div>
        {{end}}
    </details>
    {{end}}
</body>
</html>
`
