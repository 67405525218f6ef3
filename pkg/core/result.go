package core

import "time"

// ScenarioResult captures the complete outcome of executing a scenario
type ScenarioResult struct {
	// Identity
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`

	// Status
	Status   Status        `json:"status"`
	Category ErrorCategory `json:"-"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Error info (if the scenario did not pass)
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`

	// Checkpoint and failure captures, in capture order
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SuiteResult captures the complete outcome of executing scenarios in one session
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"`

	// Platform info (captured once per session)
	PlatformInfo *PlatformInfo `json:"platformInfo,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Scenarios []ScenarioResult `json:"scenarios"`

	// Summary
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

// ComputeSummary calculates scenario counts from the Scenarios slice
func (s *SuiteResult) ComputeSummary() {
	s.Total = len(s.Scenarios)
	s.Passed, s.Failed, s.Errored, s.Skipped = 0, 0, 0, 0

	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		}
	}
}

// Success returns true if at least one scenario ran and none failed or errored
func (s *SuiteResult) Success() bool {
	ran := 0
	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusFailed, StatusErrored:
			return false
		case StatusPassed:
			ran++
		}
	}
	return ran > 0
}
