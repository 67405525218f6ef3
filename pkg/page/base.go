// Package page provides the page object base: interaction verbs built on the
// locator resolver. Every verb resolves its element again on each call.
package page

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/diagnostics"
	"github.com/devicelab-dev/pageflow/pkg/locator"
	"github.com/devicelab-dev/pageflow/pkg/logger"
)

// MaxSettle caps every settle delay.
const MaxSettle = 5 * time.Second

// Timeouts used by the verbs when the caller passes 0.
type Timeouts struct {
	Explicit   time.Duration // page loads, AssertVisible
	Attempt    time.Duration // each descriptor of a chain
	Settle     time.Duration // after Click
	Navigation time.Duration // after a flow that changes screens
	Poll       time.Duration // polling interval of waits
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Explicit:   20 * time.Second,
		Attempt:    locator.DefaultAttemptTimeout,
		Settle:     500 * time.Millisecond,
		Navigation: 2 * time.Second,
		Poll:       250 * time.Millisecond,
	}
}

// Base is shared by all page objects of a session.
type Base struct {
	dev      locator.Device
	resolver *locator.Resolver
	sink     diagnostics.Sink
	timeouts Timeouts
	log      *zap.Logger
}

// Option configures a Base.
type Option func(*Base)

// WithTimeouts overrides the default timeouts. Zero fields keep their default.
func WithTimeouts(t Timeouts) Option {
	return func(b *Base) {
		d := DefaultTimeouts()
		if t.Explicit <= 0 {
			t.Explicit = d.Explicit
		}
		if t.Attempt <= 0 {
			t.Attempt = d.Attempt
		}
		if t.Settle < 0 {
			t.Settle = 0
		}
		if t.Navigation < 0 {
			t.Navigation = 0
		}
		if t.Poll <= 0 {
			t.Poll = d.Poll
		}
		b.timeouts = t
	}
}

// WithSink sets the diagnostics sink. The default discards captures.
func WithSink(s diagnostics.Sink) Option {
	return func(b *Base) {
		if s != nil {
			b.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Base) {
		if l != nil {
			b.log = l
		}
	}
}

// New creates the page base over a device.
func New(dev locator.Device, opts ...Option) *Base {
	b := &Base{
		dev:      dev,
		sink:     diagnostics.NopSink{},
		timeouts: DefaultTimeouts(),
		log:      logger.Named("page"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.resolver = locator.NewResolver(dev,
		locator.WithAttemptTimeout(b.timeouts.Attempt),
		locator.WithLogger(b.log.Named("resolver")))
	return b
}

// Device returns the underlying device.
func (b *Base) Device() locator.Device { return b.dev }

// Resolver returns the resolver the verbs use.
func (b *Base) Resolver() *locator.Resolver { return b.resolver }

// Timeouts returns the effective timeouts.
func (b *Base) Timeouts() Timeouts { return b.timeouts }

// Platform returns android or ios.
func (b *Base) Platform() string {
	if info := b.dev.PlatformInfo(); info != nil {
		return info.Platform
	}
	return ""
}

// Click resolves t, taps it and waits for the settle delay.
func (b *Base) Click(ctx context.Context, t locator.Target) error {
	h, err := b.resolver.Resolve(ctx, t, 0)
	if err != nil {
		return err
	}
	if err := b.dev.Tap(ctx, h); err != nil {
		return err
	}
	b.log.Debug("clicked", zap.Stringer("chain", t.Chain()))
	b.Settle(ctx, b.timeouts.Settle)
	return nil
}

// Type resolves t, clears it and enters text verbatim.
func (b *Base) Type(ctx context.Context, t locator.Target, text string) error {
	h, err := b.resolver.Resolve(ctx, t, 0)
	if err != nil {
		return err
	}
	if err := b.dev.Clear(ctx, h); err != nil {
		return err
	}
	return b.dev.SendText(ctx, h, text)
}

// Clear resolves t and empties it.
func (b *Base) Clear(ctx context.Context, t locator.Target) error {
	h, err := b.resolver.Resolve(ctx, t, 0)
	if err != nil {
		return err
	}
	return b.dev.Clear(ctx, h)
}

// ReadText resolves t and returns its text. An empty string is a valid result.
func (b *Base) ReadText(ctx context.Context, t locator.Target) (string, error) {
	h, err := b.resolver.Resolve(ctx, t, 0)
	if err != nil {
		return "", err
	}
	return b.dev.GetText(ctx, h)
}

// IsVisible is a single visibility check bounded by the attempt timeout.
func (b *Base) IsVisible(ctx context.Context, t locator.Target) bool {
	return b.resolver.IsVisible(ctx, t, 0)
}

// IsEnabled resolves t and reports whether the element accepts input.
// Resolution and transport errors are returned.
func (b *Base) IsEnabled(ctx context.Context, t locator.Target) (bool, error) {
	h, err := b.resolver.Resolve(ctx, t, 0)
	if err != nil {
		return false, err
	}
	return b.dev.IsEnabled(ctx, h)
}

// Count returns the number of elements matching t, 0 when none appear in time.
func (b *Base) Count(ctx context.Context, t locator.Target) int {
	hs, err := b.resolver.FindAll(ctx, t, 0)
	if err != nil {
		b.log.Debug("count failed", zap.Error(err))
		return 0
	}
	return len(hs)
}

// ClickNth taps the index-th match of t. It reports false without error when
// there are not enough matches.
func (b *Base) ClickNth(ctx context.Context, t locator.Target, index int) (bool, error) {
	hs, err := b.resolver.FindAll(ctx, t, 0)
	if err != nil {
		return false, err
	}
	if index < 0 || index >= len(hs) {
		return false, nil
	}
	if err := b.dev.Tap(ctx, hs[index]); err != nil {
		return false, err
	}
	b.Settle(ctx, b.timeouts.Settle)
	return true, nil
}

// Settle pauses for d, capped at MaxSettle, or until ctx ends.
func (b *Base) Settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if d > MaxSettle {
		d = MaxSettle
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// SettleNavigation waits for the navigation settle delay.
func (b *Base) SettleNavigation(ctx context.Context) {
	b.Settle(ctx, b.timeouts.Navigation)
}

// Capture records a diagnostic checkpoint. It never fails.
func (b *Base) Capture(ctx context.Context, label string) string {
	return b.sink.Capture(ctx, label)
}
