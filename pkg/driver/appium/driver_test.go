package appium

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// fakeServer answers element finds from a using/value table.
type fakeServer struct {
	mu        sync.Mutex
	elements  map[string]string // "using|value" -> element id
	finds     int32
	lastUsing string
	lastValue string
	failWith  string // W3C error code returned for every find
}

func (f *fakeServer) set(using, value, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[using+"|"+value] = id
}

func (f *fakeServer) findCount() int32 {
	return atomic.LoadInt32(&f.finds)
}

func (f *fakeServer) last() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUsing, f.lastValue
}

func (f *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/session/test-session/element", "/session/test-session/elements":
		atomic.AddInt32(&f.finds, 1)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.lastUsing, f.lastValue = body["using"], body["value"]
		id, ok := f.elements[body["using"]+"|"+body["value"]]
		failWith := f.failWith
		f.mu.Unlock()

		if failWith != "" {
			writeW3CError(w, http.StatusInternalServerError, failWith, "injected")
			return
		}
		if r.URL.Path == "/session/test-session/elements" {
			var list []interface{}
			if ok {
				list = append(list, map[string]interface{}{w3cElementKey: id})
			}
			writeJSON(w, map[string]interface{}{"value": list})
			return
		}
		if !ok {
			writeW3CError(w, http.StatusNotFound, "no such element", "not found")
			return
		}
		writeJSON(w, map[string]interface{}{"value": map[string]interface{}{w3cElementKey: id}})
	case "/session/test-session/element/el-1/displayed":
		writeJSON(w, map[string]interface{}{"value": true})
	case "/session/test-session/element/el-1/enabled":
		writeJSON(w, map[string]interface{}{"value": false})
	case "/session/test-session/element/el-1/rect":
		writeJSON(w, map[string]interface{}{"value": map[string]interface{}{"x": 40.0, "y": 1100.0, "width": 1000.0, "height": 200.0}})
	case "/session/test-session/element/el-1/text":
		writeJSON(w, map[string]interface{}{"value": "Войти"})
	case "/session/test-session/appium/device/current_activity":
		writeJSON(w, map[string]interface{}{"value": ".MainActivity"})
	case "/session/test-session/window/rect":
		writeJSON(w, map[string]interface{}{"value": map[string]interface{}{"width": 1080.0, "height": 2400.0}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeDriver(t *testing.T, platform string, opts ...Option) (*Driver, *fakeServer) {
	t.Helper()
	fake := &fakeServer{elements: make(map[string]string)}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	client := newTestClient(server.URL)
	client.platform = platform
	return newDriver(client, append([]Option{WithPollInterval(20 * time.Millisecond)}, opts...)...), fake
}

func TestDriver_FindOne_Immediate(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid)
	fake.set("accessibility id", "sign_in_login_button", "el-1")

	h, err := d.FindOne(context.Background(), locator.ByAccessibilityID("sign_in_login_button"), time.Second)
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if h != "el-1" {
		t.Errorf("Expected handle 'el-1', got '%s'", h)
	}
	if fake.findCount() != 1 {
		t.Errorf("Expected 1 find, got %d", fake.findCount())
	}
}

func TestDriver_FindOne_ZeroTimeoutProbesOnce(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid)

	_, err := d.FindOne(context.Background(), locator.ByAccessibilityID("missing"), 0)
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if fake.findCount() != 1 {
		t.Errorf("Expected exactly 1 find, got %d", fake.findCount())
	}
}

func TestDriver_FindOne_PollsUntilTimeout(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid)

	start := time.Now()
	_, err := d.FindOne(context.Background(), locator.ByXPath("//missing"), 150*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if fake.findCount() < 2 {
		t.Errorf("Expected several finds while polling, got %d", fake.findCount())
	}
	if elapsed > time.Second {
		t.Errorf("FindOne overran its timeout: %v", elapsed)
	}
}

func TestDriver_FindOne_AppearsWhilePolling(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid)
	go func() {
		time.Sleep(60 * time.Millisecond)
		fake.set("id", "app:id/login", "el-1")
	}()

	h, err := d.FindOne(context.Background(), locator.ByID("app:id/login"), time.Second)
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if h != "el-1" {
		t.Errorf("Expected 'el-1', got '%s'", h)
	}
}

// The element shows up after the last full poll interval but before the
// timeout; the last find at the deadline must still see it.
func TestDriver_FindOne_ChecksAtDeadline(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid, WithPollInterval(200*time.Millisecond))
	time.AfterFunc(240*time.Millisecond, func() { fake.set("id", "app:id/login", "el-1") })

	start := time.Now()
	h, err := d.FindOne(context.Background(), locator.ByID("app:id/login"), 300*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("FindOne missed an element that appeared within its timeout: %v", err)
	}
	if h != "el-1" {
		t.Errorf("Expected 'el-1', got '%s'", h)
	}
	if elapsed < 280*time.Millisecond || elapsed > time.Second {
		t.Errorf("Expected the last find near the 300ms deadline, took %v", elapsed)
	}
	if n := fake.findCount(); n != 3 {
		t.Errorf("Expected 3 finds (0ms, 200ms, deadline), got %d", n)
	}
}

func TestDriver_FindAll_ChecksAtDeadline(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid, WithPollInterval(200*time.Millisecond))
	time.AfterFunc(240*time.Millisecond, func() { fake.set("xpath", "//item", "el-1") })

	hs, err := d.FindAll(context.Background(), locator.ByXPath("//item"), 300*time.Millisecond)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(hs) != 1 || hs[0] != "el-1" {
		t.Errorf("Expected [el-1], got %v", hs)
	}
}

func TestDriver_FindOne_Cancelled(t *testing.T) {
	d, _ := newFakeDriver(t, core.PlatformAndroid, WithPollInterval(200*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := d.FindOne(ctx, locator.ByID("missing"), 5*time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context deadline, got %v", err)
	}
}

func TestDriver_FindOne_TransportErrorReturnsAtOnce(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid)
	fake.mu.Lock()
	fake.failWith = "invalid session id"
	fake.mu.Unlock()

	_, err := d.FindOne(context.Background(), locator.ByAccessibilityID("x"), time.Second)
	if !core.IsTransport(err) {
		t.Errorf("Expected transport error, got %v", err)
	}
	if fake.findCount() != 1 {
		t.Errorf("transport errors must not be retried, got %d finds", fake.findCount())
	}
}

func TestDriver_TextTranslation(t *testing.T) {
	tests := []struct {
		platform  string
		text      string
		wantUsing string
		wantValue string
	}{
		{core.PlatformAndroid, "Войти", "-android uiautomator", `new UiSelector().text("Войти")`},
		{core.PlatformAndroid, `say "hi"`, "-android uiautomator", `new UiSelector().text("say \"hi\"")`},
		{core.PlatformIOS, "Войти", "-ios predicate string", `label == "Войти" OR name == "Войти" OR value == "Войти"`},
	}

	for _, tt := range tests {
		t.Run(tt.platform+"/"+tt.text, func(t *testing.T) {
			d, fake := newFakeDriver(t, tt.platform)
			d.FindOne(context.Background(), locator.ByText(tt.text), 0)
			using, value := fake.last()
			if using != tt.wantUsing || value != tt.wantValue {
				t.Errorf("Got %s %q, expected %s %q", using, value, tt.wantUsing, tt.wantValue)
			}
		})
	}
}

func TestDriver_NonTextStrategiesPassThrough(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformIOS)
	d.FindOne(context.Background(), locator.ByXPath("//*[@text='Войти']"), 0)
	if using, value := fake.last(); using != "xpath" || value != "//*[@text='Войти']" {
		t.Errorf("Unexpected translation: %s %q", using, value)
	}
}

func TestDriver_FindAll(t *testing.T) {
	d, fake := newFakeDriver(t, core.PlatformAndroid)
	fake.set("xpath", "//item", "el-1")

	hs, err := d.FindAll(context.Background(), locator.ByXPath("//item"), 0)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(hs) != 1 || hs[0] != "el-1" {
		t.Errorf("Unexpected handles: %v", hs)
	}

	hs, err = d.FindAll(context.Background(), locator.ByXPath("//none"), 60*time.Millisecond)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(hs) != 0 {
		t.Errorf("Expected no handles, got %v", hs)
	}
}

func TestDriver_ElementOps(t *testing.T) {
	d, _ := newFakeDriver(t, core.PlatformAndroid)
	ctx := context.Background()

	shown, err := d.IsDisplayed(ctx, "el-1")
	if err != nil || !shown {
		t.Errorf("IsDisplayed = %v, %v", shown, err)
	}
	enabled, err := d.IsEnabled(ctx, "el-1")
	if err != nil || enabled {
		t.Errorf("IsEnabled = %v, %v", enabled, err)
	}
	bounds, err := d.Bounds(ctx, "el-1")
	if err != nil || bounds != (core.Bounds{X: 40, Y: 1100, Width: 1000, Height: 200}) {
		t.Errorf("Bounds = %+v, %v", bounds, err)
	}
	text, err := d.GetText(ctx, "el-1")
	if err != nil || text != "Войти" {
		t.Errorf("GetText = %q, %v", text, err)
	}
	activity, err := d.CurrentActivity(ctx)
	if err != nil || activity != ".MainActivity" {
		t.Errorf("CurrentActivity = %q, %v", activity, err)
	}
	size, err := d.WindowSize(ctx)
	if err != nil || size != (core.Size{Width: 1080, Height: 2400}) {
		t.Errorf("WindowSize = %+v, %v", size, err)
	}
}

func TestDriver_CurrentActivity_IOS(t *testing.T) {
	d, _ := newFakeDriver(t, core.PlatformIOS)
	activity, err := d.CurrentActivity(context.Background())
	if err != nil || activity != "" {
		t.Errorf("iOS CurrentActivity = %q, %v", activity, err)
	}
}

func TestDriver_ImplementsDevice(t *testing.T) {
	var _ locator.Device = (*Driver)(nil)
}
