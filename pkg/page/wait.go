package page

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

var errNotYet = errors.New("condition not met yet")

// poll evaluates cond every poll interval until it holds or timeout elapses.
// cond returns errNotYet to keep polling; any other error stops the wait.
func (b *Base) poll(ctx context.Context, timeout time.Duration, cond func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	op := func() error {
		err := cond(ctx)
		if err == nil || errors.Is(err, errNotYet) {
			return err
		}
		return backoff.Permanent(err)
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(b.timeouts.Poll), ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotYet), errors.Is(err, context.DeadlineExceeded):
		return core.ErrWaitTimeout.WithCause(err)
	}
	return err
}

func (b *Base) orExplicit(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return b.timeouts.Explicit
	}
	return timeout
}

// AssertVisible waits up to timeout (0 = explicit timeout) for t to be
// displayed. It never fails: any error means false.
func (b *Base) AssertVisible(ctx context.Context, t locator.Target, timeout time.Duration) bool {
	err := b.poll(ctx, b.orExplicit(timeout), func(ctx context.Context) error {
		visible, err := b.resolver.Visible(ctx, t, 0)
		if err != nil {
			return err
		}
		if !visible {
			return errNotYet
		}
		return nil
	})
	if err != nil {
		b.log.Debug("not visible", zap.Stringer("chain", t.Chain()), zap.Error(err))
		return false
	}
	return true
}

// WaitUntilInvisible waits up to timeout (0 = explicit timeout) for t to be
// absent or hidden. It never fails: a transport error or timeout means false.
func (b *Base) WaitUntilInvisible(ctx context.Context, t locator.Target, timeout time.Duration) bool {
	err := b.poll(ctx, b.orExplicit(timeout), func(ctx context.Context) error {
		visible, err := b.resolver.Visible(ctx, t, 0)
		if err != nil {
			return err
		}
		if visible {
			return errNotYet
		}
		return nil
	})
	if err != nil {
		b.log.Debug("still visible", zap.Stringer("chain", t.Chain()), zap.Error(err))
		return false
	}
	return true
}

// WaitForPageLoad waits for the element that identifies a screen.
func (b *Base) WaitForPageLoad(ctx context.Context, t locator.Target, timeout time.Duration) bool {
	if b.AssertVisible(ctx, t, timeout) {
		return true
	}
	b.log.Warn("page did not load", zap.Stringer("identifier", t.Chain()), zap.Duration("timeout", b.orExplicit(timeout)))
	return false
}

// WaitForActivity waits for the foreground Android activity to be name
// (a leading package may be omitted, e.g. ".MainActivity"). On iOS it returns
// false at once.
func (b *Base) WaitForActivity(ctx context.Context, name string, timeout time.Duration) bool {
	if b.Platform() == core.PlatformIOS {
		return false
	}
	err := b.poll(ctx, b.orExplicit(timeout), func(ctx context.Context) error {
		current, err := b.dev.CurrentActivity(ctx)
		if err != nil {
			if core.IsTransport(err) {
				return err
			}
			return errNotYet
		}
		if current == name || strings.HasSuffix(current, name) {
			return nil
		}
		return errNotYet
	})
	return err == nil
}
