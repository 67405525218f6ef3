// Package core provides the execution model types for pageflow.
package core

// Attachment represents a diagnostic artifact captured during a scenario
type Attachment struct {
	Name        string `json:"name"`        // Checkpoint label: sign_in_start, failure_login, ...
	ContentType string `json:"contentType"` // MIME type: image/png, application/xml
	Path        string `json:"path"`        // File path on disk
}

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeXML  = "application/xml"
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(label, path string) Attachment {
	return Attachment{
		Name:        label,
		ContentType: ContentTypePNG,
		Path:        path,
	}
}

// NewHierarchyAttachment creates a UI hierarchy (page source) attachment
func NewHierarchyAttachment(label, path string) Attachment {
	return Attachment{
		Name:        label,
		ContentType: ContentTypeXML,
		Path:        path,
	}
}

// ArtifactConfig controls when and what artifacts are captured
type ArtifactConfig struct {
	// When to capture
	CaptureOnFailure   bool `yaml:"captureOnFailure" json:"captureOnFailure"`     // Default: true
	CaptureCheckpoints bool `yaml:"captureCheckpoints" json:"captureCheckpoints"` // Default: true

	// What to capture
	Screenshot  bool `yaml:"screenshot" json:"screenshot"`   // Default: true
	UIHierarchy bool `yaml:"uiHierarchy" json:"uiHierarchy"` // Default: false (large on Android)
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure:   true,
		CaptureCheckpoints: true,
		Screenshot:         true,
		UIHierarchy:        false,
	}
}

// ShouldCapture returns true if a capture with the given trigger should run
func (c ArtifactConfig) ShouldCapture(onFailure bool) bool {
	if !c.Screenshot && !c.UIHierarchy {
		return false
	}
	if onFailure {
		return c.CaptureOnFailure
	}
	return c.CaptureCheckpoints
}
