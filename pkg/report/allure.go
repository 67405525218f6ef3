package report

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/devicelab-dev/pageflow/pkg/logger"
)

// Allure result schema types.

// AllureResult represents a single test result in Allure format.
type AllureResult struct {
	UUID          string              `json:"uuid"`
	HistoryID     string              `json:"historyId"`
	FullName      string              `json:"fullName"`
	Name          string              `json:"name"`
	Status        string              `json:"status"`
	Stage         string              `json:"stage"`
	Start         int64               `json:"start"`
	Stop          int64               `json:"stop"`
	Labels        []AllureLabel       `json:"labels"`
	StatusDetails AllureStatusDetails `json:"statusDetails"`
	Attachments   []AllureAttachment  `json:"attachments"`
}

// AllureAttachment represents a file attachment.
type AllureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// AllureLabel represents a label on a test result.
type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AllureStatusDetails holds failure message and trace.
type AllureStatusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// AllureCategory defines a failure category with regex matching.
type AllureCategory struct {
	Name            string   `json:"name"`
	MatchedStatuses []string `json:"matchedStatuses"`
	MessageRegex    string   `json:"messageRegex"`
}

// GenerateAllure writes Allure result files for report.json into
// <reportDir>/allure-results/ and returns that directory.
func GenerateAllure(reportDir string) (string, error) {
	r, err := Read(reportDir)
	if err != nil {
		return "", err
	}

	allureDir := filepath.Join(reportDir, "allure-results")
	if err := os.MkdirAll(allureDir, 0o755); err != nil {
		return "", fmt.Errorf("create allure-results dir: %w", err)
	}

	for _, sc := range r.Scenarios {
		result := buildAllureResult(r, sc)
		for _, a := range sc.Attachments {
			src := filepath.Base(a.Path)
			if copyFile(a.Path, filepath.Join(allureDir, src)) {
				result.Attachments = append(result.Attachments, AllureAttachment{Name: a.Name, Source: src, Type: a.Type})
			}
		}
		if err := atomicWriteJSON(filepath.Join(allureDir, result.UUID+"-result.json"), result); err != nil {
			return "", fmt.Errorf("write allure result for %s: %w", sc.Name, err)
		}
	}

	if err := atomicWriteJSON(filepath.Join(allureDir, "categories.json"), allureCategories()); err != nil {
		return "", err
	}
	if err := writeAllureEnvironment(allureDir, r); err != nil {
		return "", err
	}
	return allureDir, nil
}

func buildAllureResult(r *Report, sc ScenarioEntry) AllureResult {
	start := sc.StartTime.UnixMilli()
	labels := []AllureLabel{
		{Name: "suite", Value: r.Name},
		{Name: "framework", Value: "pageflow"},
		{Name: "severity", Value: "normal"},
	}
	if r.Device.Platform != "" {
		labels = append(labels, AllureLabel{Name: "host", Value: r.Device.Platform + " " + r.Device.Name})
	}
	for _, tag := range sc.Tags {
		labels = append(labels, AllureLabel{Name: "tag", Value: tag})
	}

	return AllureResult{
		UUID:          uuid.NewString(),
		HistoryID:     fnv32aHash(r.Name + ":" + sc.Name),
		FullName:      r.Name + "." + sc.Name,
		Name:          sc.Name,
		Status:        mapAllureStatus(sc.Status),
		Stage:         "finished",
		Start:         start,
		Stop:          start + sc.Duration,
		Labels:        labels,
		StatusDetails: AllureStatusDetails{Message: sc.Message, Trace: sc.Error},
		Attachments:   []AllureAttachment{},
	}
}

// copyFile copies src to dst and reports whether it worked. Captures may be
// missing when the sink failed to write them.
func copyFile(src, dst string) bool {
	in, err := os.Open(src)
	if err != nil {
		return false
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return false
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		logger.Warn("failed to copy %s to %s: %v", src, dst, err)
		return false
	}
	return true
}

// mapAllureStatus maps report Status to Allure status string.
func mapAllureStatus(s Status) string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "broken"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// fnv32aHash returns a hex-encoded FNV-32a hash of the input string.
func fnv32aHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

func allureCategories() []AllureCategory {
	return []AllureCategory{
		{Name: "No Locator Matched", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*no locator matched.*"},
		{Name: "Element Not Found", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*element not found.*"},
		{Name: "Timeout", MatchedStatuses: []string{"failed"}, MessageRegex: "(?i).*timeout.*|.*timed out.*"},
		{Name: "Check Failed", MatchedStatuses: []string{"failed"}, MessageRegex: ".*"},
		{Name: "Session Lost", MatchedStatuses: []string{"broken", "skipped"}, MessageRegex: "(?i).*session.*|.*connection.*|.*unreachable.*"},
	}
}

// writeAllureEnvironment writes environment.properties with device metadata.
func writeAllureEnvironment(allureDir string, r *Report) error {
	var b strings.Builder
	b.WriteString("framework=pageflow\n")
	for _, kv := range [][2]string{
		{"device.name", r.Device.Name},
		{"device.platform", r.Device.Platform},
		{"device.osVersion", r.Device.OSVersion},
		{"app.id", r.Device.AppID},
		{"runner.version", r.Runner.Version},
		{"runner.driver", r.Runner.Driver},
		{"run.id", r.RunID},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
		}
	}

	path := filepath.Join(allureDir, "environment.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write environment.properties: %w", err)
	}
	return nil
}
