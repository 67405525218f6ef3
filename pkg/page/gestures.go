package page

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// DefaultSwipeDuration is the gesture duration of SwipeUp and SwipeDown.
const DefaultSwipeDuration = time.Second

// TapAt taps screen coordinates.
func (b *Base) TapAt(ctx context.Context, x, y int) error {
	return b.dev.TapAt(ctx, x, y)
}

// SwipeUp drags from 80% to 20% of the screen height at the horizontal center.
func (b *Base) SwipeUp(ctx context.Context) error {
	return b.verticalSwipe(ctx, 0.8, 0.2)
}

// SwipeDown drags from 20% to 80% of the screen height at the horizontal center.
func (b *Base) SwipeDown(ctx context.Context) error {
	return b.verticalSwipe(ctx, 0.2, 0.8)
}

func (b *Base) verticalSwipe(ctx context.Context, from, to float64) error {
	size, err := b.dev.WindowSize(ctx)
	if err != nil {
		return err
	}
	x := size.Width / 2
	return b.dev.Swipe(ctx, x, int(float64(size.Height)*from), x, int(float64(size.Height)*to), DefaultSwipeDuration)
}

// ScrollTo resolves t and scrolls down until it is on screen.
func (b *Base) ScrollTo(ctx context.Context, t locator.Target) error {
	h, err := b.resolver.Resolve(ctx, t, 0)
	if err != nil {
		return err
	}
	return b.dev.ScrollTo(ctx, h, locator.Down)
}

// HideKeyboard dismisses the soft keyboard. It is a no-op when none is shown.
func (b *Base) HideKeyboard(ctx context.Context) {
	if err := b.dev.HideKeyboard(ctx); err != nil {
		b.log.Debug("hide keyboard", zap.Error(err))
	}
}

// Back navigates back and waits for the navigation settle delay.
func (b *Base) Back(ctx context.Context) error {
	if err := b.dev.Back(ctx); err != nil {
		return err
	}
	b.SettleNavigation(ctx)
	return nil
}
