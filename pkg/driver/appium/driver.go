package appium

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
	"github.com/devicelab-dev/pageflow/pkg/logger"
)

// DefaultPollInterval is how often FindOne re-queries while waiting.
const DefaultPollInterval = 250 * time.Millisecond

// closeTimeout bounds session deletion.
const closeTimeout = 30 * time.Second

// Driver implements locator.Device on top of an Appium session.
type Driver struct {
	client       *Client
	platform     string
	appID        string
	osVersion    string
	deviceName   string
	pollInterval time.Duration
	log          *zap.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithPollInterval sets the FindOne polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(drv *Driver) {
		if d > 0 {
			drv.pollInterval = d
		}
	}
}

// NewDriver connects to serverURL and creates a session with capabilities.
func NewDriver(ctx context.Context, serverURL string, capabilities map[string]interface{}, opts ...Option) (*Driver, error) {
	client := NewClient(serverURL)
	if err := client.Connect(ctx, capabilities); err != nil {
		return nil, err
	}
	d := newDriver(client, opts...)

	if appID, ok := capabilities["appium:appPackage"].(string); ok {
		d.appID = appID
	} else if appID, ok := capabilities["appium:bundleId"].(string); ok {
		d.appID = appID
	}
	d.osVersion, _ = capabilities["appium:platformVersion"].(string)
	d.deviceName, _ = capabilities["appium:deviceName"].(string)
	return d, nil
}

func newDriver(client *Client, opts ...Option) *Driver {
	d := &Driver{
		client:       client,
		platform:     client.Platform(),
		pollInterval: DefaultPollInterval,
		log:          logger.Named("appium"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close deletes the session.
func (d *Driver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// PlatformInfo implements locator.Device.
func (d *Driver) PlatformInfo() *core.PlatformInfo {
	w, h := d.client.ScreenSize()
	return &core.PlatformInfo{
		Platform:     d.platform,
		OSVersion:    d.osVersion,
		DeviceName:   d.deviceName,
		SessionID:    d.client.SessionID(),
		ScreenWidth:  w,
		ScreenHeight: h,
		AppID:        d.appID,
	}
}

// Element Finding

// FindOne implements locator.Finder. Misses are retried every poll interval
// until timeout, with a final probe at the deadline; anything else is
// returned at once.
func (d *Driver) FindOne(ctx context.Context, desc locator.Descriptor, timeout time.Duration) (locator.Handle, error) {
	using, value := d.translate(desc)
	deadline := time.Now().Add(timeout)

	limiter := rate.NewLimiter(rate.Every(d.pollInterval), 1)
	limiter.Allow() // the first probe spends the burst

	for {
		id, err := d.client.FindElement(ctx, using, value)
		if err == nil {
			return locator.Handle(id), nil
		}
		if !core.IsRecoverable(err) || timeout <= 0 || !time.Now().Before(deadline) {
			return "", err
		}
		if werr := d.waitPoll(ctx, limiter, deadline); werr != nil {
			return "", werr
		}
	}
}

// FindAll implements locator.Finder.
func (d *Driver) FindAll(ctx context.Context, desc locator.Descriptor, timeout time.Duration) ([]locator.Handle, error) {
	using, value := d.translate(desc)
	deadline := time.Now().Add(timeout)

	limiter := rate.NewLimiter(rate.Every(d.pollInterval), 1)
	limiter.Allow()

	for {
		ids, err := d.client.FindElements(ctx, using, value)
		if err != nil && !core.IsRecoverable(err) {
			return nil, err
		}
		if len(ids) > 0 {
			out := make([]locator.Handle, len(ids))
			for i, id := range ids {
				out[i] = locator.Handle(id)
			}
			return out, nil
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			return []locator.Handle{}, nil
		}
		if werr := d.waitPoll(ctx, limiter, deadline); werr != nil {
			return nil, werr
		}
	}
}

// waitPoll blocks until the next poll slot. A slot past the deadline is
// moved up to the deadline, so the last probe of an attempt lands on it.
// Only cancellation of ctx is returned.
func (d *Driver) waitPoll(ctx context.Context, limiter *rate.Limiter, deadline time.Time) error {
	delay := limiter.Reserve().Delay()
	if left := time.Until(deadline); delay > left {
		delay = left
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// translate maps a descriptor onto the native strategy for the platform.
// Only the text strategy needs rewriting.
func (d *Driver) translate(desc locator.Descriptor) (string, string) {
	if desc.Strategy != locator.TextMatch {
		return string(desc.Strategy), desc.Value
	}
	if d.platform == core.PlatformIOS {
		escaped := escapeIOSPredicateString(desc.Value)
		return string(locator.IOSPredicate),
			fmt.Sprintf(`label == "%s" OR name == "%s" OR value == "%s"`, escaped, escaped, escaped)
	}
	return string(locator.UIAutomator),
		fmt.Sprintf(`new UiSelector().text("%s")`, escapeUiAutomatorString(desc.Value))
}

// escapeUiAutomatorString escapes quotes for UiAutomator string
func escapeUiAutomatorString(s string) string {
	return quoteEscaper.Replace(s)
}

// escapeIOSPredicateString escapes quotes for iOS predicate string
func escapeIOSPredicateString(s string) string {
	return quoteEscaper.Replace(s)
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Element interaction

// IsDisplayed implements locator.Finder.
func (d *Driver) IsDisplayed(ctx context.Context, h locator.Handle) (bool, error) {
	return d.client.IsElementDisplayed(ctx, string(h))
}

// Tap implements locator.Port.
func (d *Driver) Tap(ctx context.Context, h locator.Handle) error {
	return d.client.ClickElement(ctx, string(h))
}

// Clear implements locator.Port.
func (d *Driver) Clear(ctx context.Context, h locator.Handle) error {
	return d.client.ClearElement(ctx, string(h))
}

// SendText implements locator.Port.
func (d *Driver) SendText(ctx context.Context, h locator.Handle, text string) error {
	return d.client.SendElementValue(ctx, string(h), text)
}

// GetText implements locator.Port.
func (d *Driver) GetText(ctx context.Context, h locator.Handle) (string, error) {
	return d.client.GetElementText(ctx, string(h))
}

// IsEnabled implements locator.Port.
func (d *Driver) IsEnabled(ctx context.Context, h locator.Handle) (bool, error) {
	return d.client.IsElementEnabled(ctx, string(h))
}

// Bounds implements locator.Device.
func (d *Driver) Bounds(ctx context.Context, h locator.Handle) (core.Bounds, error) {
	return d.client.GetElementRect(ctx, string(h))
}

// Gestures

// TapAt implements locator.Device.
func (d *Driver) TapAt(ctx context.Context, x, y int) error {
	return d.client.Tap(ctx, x, y)
}

// Swipe implements locator.Device.
func (d *Driver) Swipe(ctx context.Context, startX, startY, endX, endY int, duration time.Duration) error {
	return d.client.Swipe(ctx, startX, startY, endX, endY, int(duration.Milliseconds()))
}

// ScrollTo implements locator.Device by scrolling inside the element.
func (d *Driver) ScrollTo(ctx context.Context, h locator.Handle, dir locator.Direction) error {
	if d.platform == core.PlatformIOS {
		_, err := d.client.ExecuteMobile(ctx, "scroll", map[string]interface{}{
			"elementId": string(h),
			"direction": string(dir),
		})
		return err
	}
	_, err := d.client.ExecuteMobile(ctx, "scrollGesture", map[string]interface{}{
		"elementId": string(h),
		"direction": string(dir),
		"percent":   1.0,
	})
	return err
}

// WindowSize implements locator.Device.
func (d *Driver) WindowSize(ctx context.Context) (core.Size, error) {
	w, h, err := d.client.WindowRect(ctx)
	if err != nil {
		return core.Size{}, err
	}
	return core.Size{Width: w, Height: h}, nil
}

// HideKeyboard implements locator.Device.
func (d *Driver) HideKeyboard(ctx context.Context) error {
	return d.client.HideKeyboard(ctx)
}

// Back implements locator.Device.
func (d *Driver) Back(ctx context.Context) error {
	return d.client.Back(ctx)
}

// CurrentActivity implements locator.Device. iOS has no activities.
func (d *Driver) CurrentActivity(ctx context.Context) (string, error) {
	if d.platform == core.PlatformIOS {
		return "", nil
	}
	return d.client.CurrentActivity(ctx)
}

// Screenshot implements locator.Device.
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.client.Screenshot(ctx)
}

// Source implements locator.Device.
func (d *Driver) Source(ctx context.Context) (string, error) {
	return d.client.Source(ctx)
}
