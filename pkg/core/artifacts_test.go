package core

import "testing"

func TestNewScreenshotAttachment(t *testing.T) {
	attachment := NewScreenshotAttachment("after_login", "screenshots/after_login_20260101_120000.png")

	if attachment.Name != "after_login" {
		t.Errorf("Name = %s, want after_login", attachment.Name)
	}
	if attachment.ContentType != ContentTypePNG {
		t.Errorf("ContentType = %s, want %s", attachment.ContentType, ContentTypePNG)
	}
}

func TestNewHierarchyAttachment(t *testing.T) {
	attachment := NewHierarchyAttachment("failure_login", "screenshots/failure_login.xml")
	if attachment.ContentType != ContentTypeXML {
		t.Errorf("ContentType = %s, want %s", attachment.ContentType, ContentTypeXML)
	}
}

func TestDefaultArtifactConfig(t *testing.T) {
	cfg := DefaultArtifactConfig()

	if !cfg.CaptureOnFailure {
		t.Error("CaptureOnFailure should default to true")
	}
	if !cfg.CaptureCheckpoints {
		t.Error("CaptureCheckpoints should default to true")
	}
	if !cfg.Screenshot {
		t.Error("Screenshot should default to true")
	}
	if cfg.UIHierarchy {
		t.Error("UIHierarchy should default to false")
	}
}

func TestArtifactConfig_ShouldCapture(t *testing.T) {
	cfg := DefaultArtifactConfig()
	if !cfg.ShouldCapture(true) || !cfg.ShouldCapture(false) {
		t.Error("defaults should capture on failure and at checkpoints")
	}

	cfg.CaptureCheckpoints = false
	if cfg.ShouldCapture(false) {
		t.Error("checkpoint capture disabled, ShouldCapture(false) should be false")
	}
	if !cfg.ShouldCapture(true) {
		t.Error("failure capture still enabled")
	}

	cfg = ArtifactConfig{CaptureOnFailure: true}
	if cfg.ShouldCapture(true) {
		t.Error("nothing to capture, ShouldCapture should be false")
	}
}
