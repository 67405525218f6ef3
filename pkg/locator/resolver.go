package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/logger"
)

// DefaultAttemptTimeout bounds the wait for each descriptor of a chain.
const DefaultAttemptTimeout = 2 * time.Second

// Outcome of a resolve call.
type Outcome int

const (
	OutcomeResolved  Outcome = iota // a descriptor matched
	OutcomeExhausted                // every descriptor missed
	OutcomeCancelled                // the context ended between or during attempts
	OutcomeAborted                  // transport failure, the session is unusable
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Attempt is one descriptor probe within a resolve call.
type Attempt struct {
	Descriptor Descriptor
	Err        error
	Duration   time.Duration
}

// Record describes one resolve call. It lives only for the duration of the call
// and whatever inspects its result.
type Record struct {
	Chain    Chain
	Timeout  time.Duration // per descriptor
	Attempts []Attempt
	Outcome  Outcome
	Handle   Handle
	Matched  int // index of the winning descriptor, -1 when none matched
	Err      error
}

// ResolutionFailure is returned when every descriptor of a chain missed.
// LastErr is the error of the last descriptor tried.
type ResolutionFailure struct {
	Chain    Chain
	Attempts []Attempt
	LastErr  error
}

func (f *ResolutionFailure) Error() string {
	return fmt.Sprintf("no locator matched in %s after %d attempt(s): %v", f.Chain, len(f.Attempts), f.LastErr)
}

// Unwrap exposes both core.ErrChainExhausted and the last attempt error.
func (f *ResolutionFailure) Unwrap() []error {
	return []error{core.ErrChainExhausted, f.LastErr}
}

// Resolver turns chains into live handles. It holds no per-call state and
// never caches handles.
type Resolver struct {
	finder         Finder
	attemptTimeout time.Duration
	log            *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAttemptTimeout sets the per-descriptor timeout used when a call passes 0.
func WithAttemptTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResolver creates a resolver over finder.
func NewResolver(finder Finder, opts ...Option) *Resolver {
	r := &Resolver{
		finder:         finder,
		attemptTimeout: DefaultAttemptTimeout,
		log:            logger.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AttemptTimeout returns the default per-descriptor timeout.
func (r *Resolver) AttemptTimeout() time.Duration {
	return r.attemptTimeout
}

// Resolve tries each descriptor of t in order, waiting at most timeout for
// each (timeout <= 0 uses the resolver default). The first match wins and
// later descriptors are not queried. Misses fall through to the next
// descriptor; a transport error aborts immediately. When all descriptors
// miss, the error is a *ResolutionFailure carrying the last attempt's error.
func (r *Resolver) Resolve(ctx context.Context, t Target, timeout time.Duration) (Handle, error) {
	rec := r.Trace(ctx, t, timeout)
	return rec.Handle, rec.Err
}

// Trace is Resolve returning the full attempt record.
func (r *Resolver) Trace(ctx context.Context, t Target, timeout time.Duration) *Record {
	if timeout <= 0 {
		timeout = r.attemptTimeout
	}
	return r.trace(ctx, chainOf(t), timeout)
}

// chainOf treats a nil target as the empty chain.
func chainOf(t Target) Chain {
	if t == nil {
		return Chain{}
	}
	return t.Chain()
}

func (r *Resolver) trace(ctx context.Context, chain Chain, timeout time.Duration) *Record {
	rec := &Record{Chain: chain, Timeout: timeout, Matched: -1}
	if chain.IsZero() {
		rec.Outcome = OutcomeExhausted
		rec.Err = ErrEmptyChain
		return rec
	}

	var last error
	for i, d := range chain.descriptors {
		if err := ctx.Err(); err != nil {
			rec.Outcome = OutcomeCancelled
			rec.Err = err
			return rec
		}

		start := time.Now()
		h, err := r.finder.FindOne(ctx, d, timeout)
		rec.Attempts = append(rec.Attempts, Attempt{Descriptor: d, Err: err, Duration: time.Since(start)})

		if err == nil {
			rec.Outcome = OutcomeResolved
			rec.Handle = h
			rec.Matched = i
			if i > 0 {
				r.log.Info("resolved via fallback",
					zap.Stringer("descriptor", d),
					zap.Int("position", i),
					zap.Stringer("chain", chain))
			}
			return rec
		}

		if core.IsTransport(err) {
			r.log.Error("transport failure during resolve", zap.Stringer("descriptor", d), zap.Error(err))
			rec.Outcome = OutcomeAborted
			rec.Err = err
			return rec
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			rec.Outcome = OutcomeCancelled
			rec.Err = err
			return rec
		}
		if !core.IsRecoverable(err) {
			r.log.Warn("unclassified locator error, trying next descriptor",
				zap.Stringer("descriptor", d), zap.Error(err))
		} else {
			r.log.Debug("locator missed", zap.Stringer("descriptor", d), zap.Duration("waited", time.Since(start)))
		}
		last = err
	}

	rec.Outcome = OutcomeExhausted
	rec.Err = &ResolutionFailure{Chain: chain, Attempts: rec.Attempts, LastErr: last}
	return rec
}

// Visible resolves t and reports whether the element is displayed. Unlike
// Resolve, timeout is used as given: 0 means one immediate probe per
// descriptor. A found-but-hidden element is (false, nil); a missing one is
// (false, nil); only transport and cancellation errors are returned.
func (r *Resolver) Visible(ctx context.Context, t Target, timeout time.Duration) (bool, error) {
	rec := r.trace(ctx, chainOf(t), timeout)
	if rec.Err != nil {
		var rf *ResolutionFailure
		if errors.As(rec.Err, &rf) {
			return false, nil
		}
		return false, rec.Err
	}

	shown, err := r.finder.IsDisplayed(ctx, rec.Handle)
	if err != nil {
		if core.IsTransport(err) || ctx.Err() != nil {
			return false, err
		}
		// Element vanished between find and query.
		return false, nil
	}
	return shown, nil
}

// IsVisible is Visible with every error collapsed to false. It never fails.
func (r *Resolver) IsVisible(ctx context.Context, t Target, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = r.attemptTimeout
	}
	visible, err := r.Visible(ctx, t, timeout)
	if err != nil {
		r.log.Debug("visibility check failed", zap.Stringer("chain", chainOf(t)), zap.Error(err))
		return false
	}
	return visible
}

// FindAll returns the matches of the first descriptor that matches anything.
// An empty result is not an error; transport and cancellation errors are,
// and so is an empty chain.
func (r *Resolver) FindAll(ctx context.Context, t Target, timeout time.Duration) ([]Handle, error) {
	if timeout <= 0 {
		timeout = r.attemptTimeout
	}
	chain := chainOf(t)
	if chain.IsZero() {
		return nil, ErrEmptyChain
	}
	for _, d := range chain.descriptors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hs, err := r.finder.FindAll(ctx, d, timeout)
		if err != nil {
			if core.IsTransport(err) || ctx.Err() != nil {
				return nil, err
			}
			r.log.Debug("find all missed", zap.Stringer("descriptor", d), zap.Error(err))
			continue
		}
		if len(hs) > 0 {
			return hs, nil
		}
	}
	return nil, nil
}
