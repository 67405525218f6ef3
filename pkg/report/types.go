// Package report writes the results of a suite run to disk.
//
// Layout of a report directory:
//   - report.json: the run, its device and one entry per scenario
//   - report.html: optional single-file summary
//   - allure-results/: optional Allure result files
//
// Attachment paths are kept as the diagnostics sink recorded them.
package report

import "time"

// Version is the report schema version.
const Version = "1.0.0"

// FileName is the name of the JSON report inside a report directory.
const FileName = "report.json"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusSkipped Status = "skipped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	}
	return false
}

// Report is the content of report.json.
type Report struct {
	Version   string          `json:"version"`
	RunID     string          `json:"runId"`
	Name      string          `json:"name"`
	Status    Status          `json:"status"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Duration  int64           `json:"duration"` // milliseconds
	Device    Device          `json:"device"`
	Runner    RunnerInfo      `json:"runner"`
	Summary   Summary         `json:"summary"`
	Scenarios []ScenarioEntry `json:"scenarios"`
}

// Device contains device information.
type Device struct {
	Name      string `json:"name,omitempty"`
	Platform  string `json:"platform,omitempty"` // ios, android
	OSVersion string `json:"osVersion,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	AppID     string `json:"appId,omitempty"`
}

// RunnerInfo describes the binary that produced the report.
type RunnerInfo struct {
	Version string `json:"version"`
	Driver  string `json:"driver"` // appium, mock
}

// Summary contains aggregated counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// ScenarioEntry is the outcome of one scenario.
type ScenarioEntry struct {
	Index       int          `json:"index"`
	Name        string       `json:"name"`
	Tags        []string     `json:"tags,omitempty"`
	Status      Status       `json:"status"`
	Category    string       `json:"category,omitempty"` // assertion, timeout, connection, app, config
	StartTime   time.Time    `json:"startTime"`
	Duration    int64        `json:"duration"` // milliseconds
	Error       string       `json:"error,omitempty"`
	Message     string       `json:"message,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a capture taken during a scenario.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"` // MIME type
	Path string `json:"path"`
}
