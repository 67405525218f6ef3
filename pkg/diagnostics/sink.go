// Package diagnostics captures screenshots and UI hierarchy dumps at
// scenario checkpoints and on failure. Capturing never fails the caller.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/logger"
)

// timestampLayout names artifacts label_20060102_150405.png.
const timestampLayout = "20060102_150405"

// Sink captures a diagnostic artifact for a label and returns its path.
// It never fails; an empty path means nothing was written.
type Sink interface {
	Capture(ctx context.Context, label string) string
}

// Source is what a FileSink captures from. locator.Device satisfies it.
type Source interface {
	Screenshot(ctx context.Context) ([]byte, error)
	Source(ctx context.Context) (string, error)
}

// NopSink discards every capture.
type NopSink struct{}

// Capture implements Sink.
func (NopSink) Capture(context.Context, string) string { return "" }

// FileSink writes artifacts under a directory and remembers them as attachments.
type FileSink struct {
	src Source
	dir string
	cfg core.ArtifactConfig
	now func() time.Time
	log *zap.Logger

	mu          sync.Mutex
	attachments []core.Attachment
}

// NewFileSink creates a sink writing to dir. What gets written follows
// cfg.Screenshot and cfg.UIHierarchy.
func NewFileSink(src Source, dir string, cfg core.ArtifactConfig) *FileSink {
	return &FileSink{
		src: src,
		dir: dir,
		cfg: cfg,
		now: time.Now,
		log: logger.Named("diagnostics"),
	}
}

// Dir returns the output directory.
func (s *FileSink) Dir() string { return s.dir }

// Capture implements Sink. The returned path is the screenshot, or the
// hierarchy dump when screenshots are disabled.
func (s *FileSink) Capture(ctx context.Context, label string) (path string) {
	defer func() {
		if r := recover(); r != nil {
			s.warn(label, fmt.Errorf("panic: %v", r))
			path = ""
		}
	}()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.warn(label, err)
		return ""
	}
	base := filepath.Join(s.dir, sanitize(label)+"_"+s.now().Format(timestampLayout))

	if s.cfg.Screenshot {
		if p, err := s.writeScreenshot(ctx, base); err != nil {
			s.warn(label, err)
		} else {
			s.record(core.NewScreenshotAttachment(label, p))
			path = p
		}
	}
	if s.cfg.UIHierarchy {
		if p, err := s.writeHierarchy(ctx, base); err != nil {
			s.warn(label, err)
		} else {
			s.record(core.NewHierarchyAttachment(label, p))
			if path == "" {
				path = p
			}
		}
	}
	if path != "" {
		s.log.Debug("captured", zap.String("label", label), zap.String("path", path))
	}
	return path
}

func (s *FileSink) writeScreenshot(ctx context.Context, base string) (string, error) {
	data, err := s.src.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	p := uniquePath(base, ".png")
	return p, os.WriteFile(p, data, 0o644)
}

func (s *FileSink) writeHierarchy(ctx context.Context, base string) (string, error) {
	xml, err := s.src.Source(ctx)
	if err != nil {
		return "", err
	}
	p := uniquePath(base, ".xml")
	return p, os.WriteFile(p, []byte(xml), 0o644)
}

func (s *FileSink) warn(label string, err error) {
	s.log.Warn("capture failed",
		zap.String("label", label),
		zap.Error(core.ErrDiagnostics.WithCause(err)))
}

func (s *FileSink) record(a core.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, a)
}

// Take returns the attachments recorded since the last Take and forgets them.
func (s *FileSink) Take() []core.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.attachments
	s.attachments = nil
	return out
}

// uniquePath appends _2, _3, ... when two captures share a label within a second.
func uniquePath(base, ext string) string {
	p := base + ext
	for i := 2; ; i++ {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		p = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}

var labelReplacer = strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")

func sanitize(label string) string {
	label = labelReplacer.Replace(strings.TrimSpace(label))
	if label == "" {
		return "capture"
	}
	return label
}
