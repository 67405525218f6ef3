package page_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/driver/mock"
	"github.com/devicelab-dev/pageflow/pkg/locator"
	"github.com/devicelab-dev/pageflow/pkg/page"
)

var (
	emailID    = locator.ByAccessibilityID("sign_in_email_input")
	emailXPath = locator.ByXPath("//android.widget.EditText[@hint='Введите ваш email']")
	emailChain = locator.MustChain(emailID, emailXPath)
	loginID    = locator.ByAccessibilityID("sign_in_login_button")
	spinner    = locator.ByXPath("//*[contains(@text, 'Загрузка')]")
)

func testTimeouts() page.Timeouts {
	return page.Timeouts{
		Explicit: time.Second,
		Attempt:  50 * time.Millisecond,
		Poll:     20 * time.Millisecond,
	}
}

func newBase(d *mock.Driver, opts ...page.Option) *page.Base {
	return page.New(d, append([]page.Option{page.WithTimeouts(testTimeouts())}, opts...)...)
}

// calls drops handles, which differ between drivers, so call logs compare.
func calls(d *mock.Driver) []mock.Call {
	out := d.Calls()
	for i := range out {
		out[i].Handle = ""
	}
	return out
}

func TestWithTimeouts_ZeroFieldsKeepDefaults(t *testing.T) {
	b := page.New(mock.New(mock.Config{}), page.WithTimeouts(page.Timeouts{Settle: -time.Second}))
	got := b.Timeouts()
	want := page.DefaultTimeouts()
	want.Settle = 0
	want.Navigation = 0
	assert.Equal(t, want, got)
	assert.Equal(t, want.Attempt, b.Resolver().AttemptTimeout())
}

func TestClick_TapsResolvedElement(t *testing.T) {
	d := mock.New(mock.Config{})
	tapped := 0
	d.Add(&mock.Element{XPaths: []string{emailXPath.Value}, OnTap: func(*mock.Driver) { tapped++ }})

	require.NoError(t, newBase(d).Click(context.Background(), emailChain))
	assert.Equal(t, 1, tapped)
	assert.Equal(t, []locator.Descriptor{emailID, emailXPath}, d.Queries())
}

func TestClick_AppliesSettleDelay(t *testing.T) {
	d := mock.New(mock.Config{})
	d.Add(&mock.Element{AccessibilityID: loginID.Value})

	tm := testTimeouts()
	tm.Settle = 150 * time.Millisecond
	b := page.New(d, page.WithTimeouts(tm))

	start := time.Now()
	require.NoError(t, b.Click(context.Background(), loginID))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestClick_ExhaustedChainPropagates(t *testing.T) {
	d := mock.New(mock.Config{})

	err := newBase(d).Click(context.Background(), emailChain)
	var rf *locator.ResolutionFailure
	require.True(t, errors.As(err, &rf), "got %v", err)
	assert.True(t, errors.Is(err, core.ErrChainExhausted))
	assert.Zero(t, d.CallCount("Tap"))
}

func TestClick_ResolvesFreshEveryCall(t *testing.T) {
	d := mock.New(mock.Config{})
	first := d.Add(&mock.Element{AccessibilityID: loginID.Value})
	b := newBase(d)

	require.NoError(t, b.Click(context.Background(), loginID))
	d.Remove(first.Handle)
	second := d.Add(&mock.Element{AccessibilityID: loginID.Value})
	require.NoError(t, b.Click(context.Background(), loginID))

	var tapped []locator.Handle
	for _, c := range d.Calls() {
		if c.Method == "Tap" {
			tapped = append(tapped, c.Handle)
		}
	}
	assert.Equal(t, []locator.Handle{first.Handle, second.Handle}, tapped)
}

func TestType_ClearsThenSendsVerbatim(t *testing.T) {
	d := mock.New(mock.Config{})
	field := d.Add(&mock.Element{AccessibilityID: emailID.Value, Text: "old@example.com"})

	require.NoError(t, newBase(d).Type(context.Background(), emailChain, "  Тест@Example.com "))
	assert.Equal(t, "  Тест@Example.com ", d.TextOf(field.Handle))

	var methods []string
	for _, c := range d.Calls() {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{"FindOne", "Clear", "SendText"}, methods)
}

func TestSingletonChainMatchesBareDescriptor(t *testing.T) {
	run := func(target locator.Target) []mock.Call {
		d := mock.New(mock.Config{})
		d.Add(&mock.Element{AccessibilityID: emailID.Value})
		b := newBase(d)
		require.NoError(t, b.Click(context.Background(), target))
		require.NoError(t, b.Type(context.Background(), target, "user@example.com"))
		return calls(d)
	}

	bare := run(emailID)
	chained := run(locator.MustChain(emailID))
	if diff := cmp.Diff(bare, chained); diff != "" {
		t.Errorf("singleton chain diverges from bare descriptor (-bare +chain):\n%s", diff)
	}

	missing := func(target locator.Target) error {
		return newBase(mock.New(mock.Config{})).Click(context.Background(), target)
	}
	assert.Equal(t, missing(emailID).Error(), missing(locator.MustChain(emailID)).Error())
}

func TestReadText_Idempotent(t *testing.T) {
	d := mock.New(mock.Config{})
	d.Add(&mock.Element{AccessibilityID: "daily_calories", Text: "1850"})
	b := newBase(d)
	target := locator.ByAccessibilityID("daily_calories")

	first, err := b.ReadText(context.Background(), target)
	require.NoError(t, err)
	second, err := b.ReadText(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "1850", first)
	assert.Equal(t, first, second)
}

func TestReadText_EmptyIsValid(t *testing.T) {
	d := mock.New(mock.Config{})
	d.Add(&mock.Element{AccessibilityID: emailID.Value})

	text, err := newBase(d).ReadText(context.Background(), emailID)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 1, d.CallCount("GetText"), "empty text is not retried")
}

func TestAssertVisible(t *testing.T) {
	ctx := context.Background()

	t.Run("appears while waiting", func(t *testing.T) {
		d := mock.New(mock.Config{})
		d.Add(&mock.Element{AccessibilityID: loginID.Value, AppearAt: 200 * time.Millisecond})
		assert.True(t, newBase(d).AssertVisible(ctx, loginID, time.Second))
	})

	t.Run("hidden", func(t *testing.T) {
		d := mock.New(mock.Config{})
		d.Add(&mock.Element{AccessibilityID: loginID.Value, Hidden: true})
		assert.False(t, newBase(d).AssertVisible(ctx, loginID, 100*time.Millisecond))
	})

	t.Run("missing", func(t *testing.T) {
		d := mock.New(mock.Config{})
		start := time.Now()
		assert.False(t, newBase(d).AssertVisible(ctx, emailChain, 200*time.Millisecond))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("transport error", func(t *testing.T) {
		d := mock.New(mock.Config{})
		d.FailWith("FindOne", core.ErrSessionLost)
		assert.NotPanics(t, func() {
			assert.False(t, newBase(d).AssertVisible(ctx, loginID, time.Second))
		})
		assert.Equal(t, 1, d.CallCount("FindOne"), "transport errors stop the wait")
	})
}

func TestWaitUntilInvisible_VanishingElement(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    bool
	}{
		{"timeout longer than element", 5 * time.Second, true},
		{"timeout shorter than element", time.Second, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := mock.New(mock.Config{})
			d.Add(&mock.Element{XPaths: []string{spinner.Value}, VanishAt: 1500 * time.Millisecond})

			start := time.Now()
			got := newBase(d).WaitUntilInvisible(context.Background(), spinner, tt.timeout)
			elapsed := time.Since(start)

			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.GreaterOrEqual(t, elapsed, 1400*time.Millisecond)
				assert.Less(t, elapsed, 4*time.Second)
			} else {
				assert.Less(t, elapsed, 1400*time.Millisecond)
			}
		})
	}
}

func TestWaitUntilInvisible_AlreadyGone(t *testing.T) {
	d := mock.New(mock.Config{})
	assert.True(t, newBase(d).WaitUntilInvisible(context.Background(), spinner, time.Second))
	assert.Equal(t, 1, d.CallCount("FindOne"))
}

func TestWaitUntilInvisible_HiddenCounts(t *testing.T) {
	d := mock.New(mock.Config{})
	d.Add(&mock.Element{XPaths: []string{spinner.Value}, Hidden: true})
	assert.True(t, newBase(d).WaitUntilInvisible(context.Background(), spinner, time.Second))
}

func TestWaitUntilInvisible_TransportErrorIsFalse(t *testing.T) {
	d := mock.New(mock.Config{})
	d.FailWith("FindOne", core.ErrServerUnreachable)
	assert.False(t, newBase(d).WaitUntilInvisible(context.Background(), spinner, time.Second))
}

func TestCountAndClickNth(t *testing.T) {
	d := mock.New(mock.Config{})
	card := locator.ByXPath("//*[contains(@text, 'ккал')]")
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		d.Add(&mock.Element{XPaths: []string{card.Value}, OnTap: func(*mock.Driver) { order = append(order, i) }})
	}
	b := newBase(d)
	ctx := context.Background()

	assert.Equal(t, 3, b.Count(ctx, card))
	assert.Equal(t, 0, b.Count(ctx, loginID))

	ok, err := b.ClickNth(ctx, card, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.ClickNth(ctx, card, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []int{1}, order)
}

func TestClickNth_TransportError(t *testing.T) {
	d := mock.New(mock.Config{})
	d.FailWith("FindAll", core.ErrSessionLost)
	_, err := newBase(d).ClickNth(context.Background(), loginID, 0)
	assert.True(t, core.IsTransport(err))
}

func TestSwipes(t *testing.T) {
	d := mock.New(mock.Config{ScreenWidth: 1080, ScreenHeight: 2400})
	b := newBase(d)
	require.NoError(t, b.SwipeUp(context.Background()))
	require.NoError(t, b.SwipeDown(context.Background()))

	var got []string
	for _, c := range d.Calls() {
		if c.Method == "Swipe" {
			got = append(got, c.Text)
		}
	}
	assert.Equal(t, []string{"540,1920->540,480/1s", "540,480->540,1920/1s"}, got)
}

func TestSwipe_WindowSizeError(t *testing.T) {
	d := mock.New(mock.Config{})
	d.FailWith("WindowSize", core.ErrSessionLost)
	assert.Error(t, newBase(d).SwipeUp(context.Background()))
	assert.Zero(t, d.CallCount("Swipe"))
}

func TestTapAtHitsElement(t *testing.T) {
	d := mock.New(mock.Config{})
	hit := false
	d.Add(&mock.Element{Bounds: core.Bounds{X: 100, Y: 100, Width: 200, Height: 80}, OnTap: func(*mock.Driver) { hit = true }})
	require.NoError(t, newBase(d).TapAt(context.Background(), 150, 120))
	assert.True(t, hit)
}

func TestScrollTo(t *testing.T) {
	d := mock.New(mock.Config{})
	el := d.Add(&mock.Element{AccessibilityID: "logout"})
	require.NoError(t, newBase(d).ScrollTo(context.Background(), locator.ByAccessibilityID("logout")))

	last := d.Calls()[len(d.Calls())-1]
	assert.Equal(t, mock.Call{Method: "ScrollTo", Handle: el.Handle, Text: "down"}, last)
}

func TestHideKeyboard_SwallowsErrors(t *testing.T) {
	d := mock.New(mock.Config{})
	d.FailWith("HideKeyboard", core.ErrCommandFailed)
	assert.NotPanics(t, func() { newBase(d).HideKeyboard(context.Background()) })
	assert.Equal(t, 1, d.CallCount("HideKeyboard"))
}

func TestWaitForActivity(t *testing.T) {
	d := mock.New(mock.Config{Activity: "com.l423r.FoodApp.SplashActivity"})
	timer := time.AfterFunc(100*time.Millisecond, func() { d.SetActivity("com.l423r.FoodApp.MainActivity") })
	defer timer.Stop()

	b := newBase(d)
	assert.True(t, b.WaitForActivity(context.Background(), ".MainActivity", time.Second))
	assert.False(t, b.WaitForActivity(context.Background(), ".SettingsActivity", 100*time.Millisecond))
}

func TestWaitForActivity_IOS(t *testing.T) {
	d := mock.New(mock.Config{Platform: core.PlatformIOS})
	assert.False(t, newBase(d).WaitForActivity(context.Background(), "anything", time.Second))
	assert.Zero(t, d.CallCount("CurrentActivity"))
}

func TestWaitForPageLoad(t *testing.T) {
	d := mock.New(mock.Config{})
	d.Add(&mock.Element{AccessibilityID: loginID.Value})
	b := newBase(d)
	assert.True(t, b.WaitForPageLoad(context.Background(), loginID, 0))
	assert.False(t, b.WaitForPageLoad(context.Background(), emailID, 100*time.Millisecond))
}

func TestSettle(t *testing.T) {
	b := newBase(mock.New(mock.Config{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	b.Settle(ctx, 3*time.Second)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "cancelled context ends the settle delay")

	start = time.Now()
	b.Settle(context.Background(), 0)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

type recordingSink struct {
	mu     sync.Mutex
	labels []string
}

func (s *recordingSink) Capture(_ context.Context, label string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, label)
	return "/tmp/" + label + ".png"
}

func TestCapture_UsesSink(t *testing.T) {
	sink := &recordingSink{}
	b := newBase(mock.New(mock.Config{}), page.WithSink(sink))
	assert.Equal(t, "/tmp/login_start.png", b.Capture(context.Background(), "login_start"))
	assert.Equal(t, []string{"login_start"}, sink.labels)

	assert.Empty(t, newBase(mock.New(mock.Config{})).Capture(context.Background(), "x"), "default sink discards")
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, core.PlatformIOS, newBase(mock.New(mock.Config{Platform: core.PlatformIOS})).Platform())
}

func TestBack(t *testing.T) {
	d := mock.New(mock.Config{})
	require.NoError(t, newBase(d).Back(context.Background()))
	assert.Equal(t, 1, d.CallCount("Back"))

	d.FailWith("Back", core.ErrSessionLost)
	assert.True(t, core.IsTransport(newBase(d).Back(context.Background())))
}

func TestIsEnabled(t *testing.T) {
	ctx := context.Background()
	d := mock.New(mock.Config{})
	login := d.Add(&mock.Element{AccessibilityID: loginID.Value, Disabled: true})
	b := newBase(d)

	enabled, err := b.IsEnabled(ctx, loginID)
	require.NoError(t, err)
	assert.False(t, enabled)

	login.Disabled = false
	enabled, err = b.IsEnabled(ctx, loginID)
	require.NoError(t, err)
	assert.True(t, enabled)

	_, err = b.IsEnabled(ctx, emailChain)
	assert.True(t, errors.Is(err, core.ErrChainExhausted))

	d.FailWith("IsEnabled", core.ErrSessionLost)
	_, err = b.IsEnabled(ctx, loginID)
	assert.True(t, core.IsTransport(err))
}

func TestClick_DisabledElementIgnoresTap(t *testing.T) {
	d := mock.New(mock.Config{})
	tapped := false
	d.Add(&mock.Element{AccessibilityID: loginID.Value, Disabled: true, OnTap: func(*mock.Driver) { tapped = true }})

	require.NoError(t, newBase(d).Click(context.Background(), loginID))
	assert.False(t, tapped)
	assert.Equal(t, 1, d.CallCount("Tap"))
}
