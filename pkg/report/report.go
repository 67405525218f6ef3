package report

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/devicelab-dev/pageflow/pkg/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FromSuite converts a suite result into its report form.
func FromSuite(suite *core.SuiteResult, runner RunnerInfo) *Report {
	r := &Report{
		Version:   Version,
		RunID:     suite.RunID,
		Name:      suite.Name,
		StartTime: suite.StartTime,
		EndTime:   suite.StartTime.Add(suite.Duration),
		Duration:  suite.Duration.Milliseconds(),
		Runner:    runner,
		Summary: Summary{
			Total:   suite.Total,
			Passed:  suite.Passed,
			Failed:  suite.Failed,
			Errored: suite.Errored,
			Skipped: suite.Skipped,
		},
		Scenarios: make([]ScenarioEntry, 0, len(suite.Scenarios)),
	}
	if info := suite.PlatformInfo; info != nil {
		r.Device = Device{
			Name:      info.DeviceName,
			Platform:  info.Platform,
			OSVersion: info.OSVersion,
			SessionID: info.SessionID,
			AppID:     info.AppID,
		}
	}

	for i, sc := range suite.Scenarios {
		entry := ScenarioEntry{
			Index:     i,
			Name:      sc.Name,
			Tags:      sc.Tags,
			Status:    Status(sc.Status.String()),
			StartTime: sc.StartTime,
			Duration:  sc.Duration.Milliseconds(),
			Error:     sc.Error,
			Message:   sc.Message,
		}
		if sc.Category != core.ErrCategoryNone {
			entry.Category = sc.Category.String()
		}
		for _, a := range sc.Attachments {
			entry.Attachments = append(entry.Attachments, Attachment{Name: a.Name, Type: a.ContentType, Path: a.Path})
		}
		r.Scenarios = append(r.Scenarios, entry)
	}
	r.Status = runStatus(r.Scenarios)
	return r
}

// runStatus is failed if any scenario failed or errored, skipped if nothing
// ran, passed otherwise.
func runStatus(entries []ScenarioEntry) Status {
	ran := false
	for _, e := range entries {
		switch e.Status {
		case StatusFailed, StatusErrored:
			return StatusFailed
		case StatusPassed:
			ran = true
		}
	}
	if !ran {
		return StatusSkipped
	}
	return StatusPassed
}

// Write stores r as report.json in dir, creating dir if needed, and returns
// the file path.
func Write(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := atomicWriteJSON(path, r); err != nil {
		return "", err
	}
	return path, nil
}

// Read loads report.json from dir.
func Read(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

// atomicWriteJSON writes v next to path and renames it into place so readers
// never see a partial file.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
