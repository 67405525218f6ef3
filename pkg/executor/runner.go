// Package executor runs scenarios against one device session and collects
// their results.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/config"
	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/diagnostics"
	"github.com/devicelab-dev/pageflow/pkg/locator"
	"github.com/devicelab-dev/pageflow/pkg/logger"
	"github.com/devicelab-dev/pageflow/pkg/page"
	"github.com/devicelab-dev/pageflow/pkg/screens"
)

// Device is a session-bound device the runner closes when the run ends.
type Device interface {
	locator.Device
	Close() error
}

// Opener creates the session used by a whole run.
type Opener func(ctx context.Context) (Device, error)

// Func is the body of a scenario.
type Func func(ctx context.Context, s *Session) error

// Scenario is a named, tagged test against the app.
type Scenario struct {
	Name        string
	Tags        []string
	Description string
	Run         Func
}

// HasTag reports whether the scenario carries tag.
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Session is what a scenario gets to work with.
type Session struct {
	*screens.App
	Device  locator.Device
	Catalog *catalog.Catalog
	User    config.Credentials
	Log     *zap.Logger
}

// Config configures the runner.
type Config struct {
	Name        string // suite name in the report
	ArtifactDir string // where checkpoint and failure captures go
	Artifacts   core.ArtifactConfig
	Timeouts    page.Timeouts
	Catalog     *catalog.Catalog // nil uses the built-in catalog
	User        config.Credentials
	StopOnFail  bool
	Filter      Filter

	// Live progress callbacks
	OnScenarioStart func(idx, total int, name string)
	OnScenarioEnd   func(idx, total int, result core.ScenarioResult)
}

// TimeoutsFrom converts configured timeouts to the page verbs' timeouts.
func TimeoutsFrom(t config.Timeouts) page.Timeouts {
	return page.Timeouts{
		Explicit:   t.Explicit,
		Attempt:    t.Attempt,
		Settle:     t.Settle,
		Navigation: t.Navigation,
		Poll:       t.Poll,
	}
}

// Runner executes scenarios sequentially on one session.
type Runner struct {
	cfg  Config
	open Opener
	log  *zap.Logger
}

// New creates a Runner.
func New(open Opener, cfg Config) *Runner {
	if cfg.Name == "" {
		cfg.Name = "pageflow"
	}
	return &Runner{cfg: cfg, open: open, log: logger.Named("executor")}
}

// Run opens the session, runs every scenario the filter selects and closes
// the session. An error is returned only when no scenario could run at all.
func (r *Runner) Run(ctx context.Context, all []Scenario) (*core.SuiteResult, error) {
	selected := r.cfg.Filter.Apply(all)
	if len(selected) == 0 {
		return nil, core.ErrInvalidConfig.WithMessage("no scenario matches the filter")
	}

	cat := r.cfg.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, err
		}
	}

	suite := &core.SuiteResult{
		Name:      r.cfg.Name,
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	log := r.log.With(zap.String("run", suite.RunID))

	dev, err := r.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("close session", zap.Error(err))
		}
	}()
	suite.PlatformInfo = dev.PlatformInfo()

	sink := diagnostics.NewFileSink(dev, r.cfg.ArtifactDir, r.cfg.Artifacts)
	base := page.New(dev,
		page.WithTimeouts(r.cfg.Timeouts),
		page.WithSink(checkpoints{sink: sink, cfg: r.cfg.Artifacts}),
		page.WithLogger(logger.Named("page")))
	app, err := screens.New(base, cat)
	if err != nil {
		return nil, err
	}
	session := &Session{App: app, Device: dev, Catalog: cat, User: r.cfg.User, Log: log}

	var stop string
	total := len(selected)
	for i, sc := range selected {
		if stop == "" && ctx.Err() != nil {
			stop = "run cancelled"
		}
		if stop != "" {
			res := skipped(sc, stop)
			suite.Scenarios = append(suite.Scenarios, res)
			r.notifyEnd(i, total, res)
			continue
		}

		if r.cfg.OnScenarioStart != nil {
			r.cfg.OnScenarioStart(i, total, sc.Name)
		}
		res := r.runScenario(ctx, sc, session, sink)
		suite.Scenarios = append(suite.Scenarios, res)
		r.notifyEnd(i, total, res)

		switch {
		case res.Category == core.ErrCategoryConnection:
			stop = "session lost in " + sc.Name
		case r.cfg.StopOnFail && !res.Status.IsSuccess():
			stop = "stopped after " + sc.Name + " " + res.Status.String()
		}
	}

	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()
	log.Info("run finished",
		zap.Int("passed", suite.Passed),
		zap.Int("failed", suite.Failed),
		zap.Int("errored", suite.Errored),
		zap.Int("skipped", suite.Skipped),
		zap.Duration("duration", suite.Duration))
	return suite, nil
}

// runScenario brackets one scenario with start and end checkpoints and a
// failure capture.
func (r *Runner) runScenario(ctx context.Context, sc Scenario, s *Session, sink *diagnostics.FileSink) core.ScenarioResult {
	res := core.ScenarioResult{Name: sc.Name, Tags: sc.Tags, StartTime: time.Now()}
	log := s.Log.With(zap.String("scenario", sc.Name))
	log.Info("scenario started")

	r.checkpoint(ctx, sink, sc.Name+"_start")
	err := call(ctx, sc, s)
	if err != nil && r.cfg.Artifacts.ShouldCapture(true) {
		sink.Capture(ctx, "failure_"+sc.Name)
	}
	r.checkpoint(ctx, sink, sc.Name+"_end")

	res.Duration = time.Since(res.StartTime)
	res.Status = core.StatusFromError(err)
	res.Category = core.CategoryOf(err)
	res.Attachments = sink.Take()
	if err != nil {
		res.Error = err.Error()
		res.Message = message(err)
	}

	fields := []zap.Field{zap.Stringer("status", res.Status), zap.Duration("duration", res.Duration)}
	switch res.Status {
	case core.StatusPassed:
		log.Info("scenario passed", fields...)
	case core.StatusErrored:
		log.Error("scenario errored", append(fields, zap.Error(err))...)
	default:
		log.Warn("scenario failed", append(fields, zap.Error(err))...)
	}
	return res
}

func (r *Runner) checkpoint(ctx context.Context, sink diagnostics.Sink, label string) {
	if r.cfg.Artifacts.ShouldCapture(false) {
		sink.Capture(ctx, label)
	}
}

func (r *Runner) notifyEnd(idx, total int, res core.ScenarioResult) {
	if r.cfg.OnScenarioEnd != nil {
		r.cfg.OnScenarioEnd(idx, total, res)
	}
}

// call runs the scenario body; a panic becomes an errored result.
func call(ctx context.Context, sc Scenario, s *Session) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = core.ErrCommandFailed.WithMessage(fmt.Sprintf("scenario panicked: %v", p))
		}
	}()
	if sc.Run == nil {
		return core.ErrMissingRequired.WithMessage("scenario has no body")
	}
	return sc.Run(ctx, s)
}

func skipped(sc Scenario, reason string) core.ScenarioResult {
	return core.ScenarioResult{
		Name:      sc.Name,
		Tags:      sc.Tags,
		Status:    core.StatusSkipped,
		StartTime: time.Now(),
		Message:   reason,
	}
}

// message is the short form of err for summaries.
func message(err error) string {
	var ee *core.ExecutionError
	if errors.As(err, &ee) && ee.Message != "" {
		return ee.Message
	}
	return err.Error()
}

// checkpoints forwards the page objects' own captures (after_login, ...)
// only when checkpoint capture is enabled.
type checkpoints struct {
	sink diagnostics.Sink
	cfg  core.ArtifactConfig
}

func (c checkpoints) Capture(ctx context.Context, label string) string {
	if !c.cfg.ShouldCapture(false) {
		return ""
	}
	return c.sink.Capture(ctx, label)
}
