// Package mock provides an in-memory device for testing without a real device.
//
// Elements are scripted up front (what finds them, when they appear and
// vanish, what tapping them does) and every port call is recorded so tests
// can assert on query order.
package mock

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/beevik/etree"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// pollInterval is how often FindOne re-checks while waiting.
const pollInterval = 10 * time.Millisecond

// Element is a scripted UI element.
type Element struct {
	Handle          locator.Handle
	Class           string // e.g. android.widget.Button
	AccessibilityID string
	ResourceID      string
	Text            string
	XPaths          []string             // xpath expressions that select this element
	Extra           []locator.Descriptor // any other descriptor that selects it
	Bounds          core.Bounds
	Hidden          bool          // present in the tree but not displayed
	Disabled        bool          // displayed but not enabled; taps are ignored
	AppearAt        time.Duration // offset from driver start
	VanishAt        time.Duration // 0 = never vanishes

	// OnTap runs after the element is tapped, e.g. to script navigation.
	OnTap func(d *Driver)
	// OnChange runs after the element's text is cleared or typed into.
	OnChange func(d *Driver)
}

// Call is one recorded port call.
type Call struct {
	Method     string
	Descriptor locator.Descriptor
	Handle     locator.Handle
	Text       string
}

// Config configures mock driver behavior.
type Config struct {
	Platform     string
	DeviceID     string
	ScreenWidth  int
	ScreenHeight int
	Activity     string
}

// Driver is an in-memory implementation of locator.Device.
type Driver struct {
	mu       sync.Mutex
	cfg      Config
	start    time.Time
	elements []*Element
	calls    []Call
	faults   map[string]error
	nextID   int
}

// New creates a new mock driver.
func New(cfg Config) *Driver {
	if cfg.Platform == "" {
		cfg.Platform = core.PlatformAndroid
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "mock-device"
	}
	if cfg.ScreenWidth == 0 {
		cfg.ScreenWidth = 1080
	}
	if cfg.ScreenHeight == 0 {
		cfg.ScreenHeight = 2400
	}
	return &Driver{cfg: cfg, start: time.Now(), faults: make(map[string]error)}
}

// Add scripts an element and returns it. An empty Handle is assigned.
func (d *Driver) Add(el *Element) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el.Handle == "" {
		d.nextID++
		el.Handle = locator.Handle("mock-" + strconv.Itoa(d.nextID))
	}
	d.elements = append(d.elements, el)
	return el
}

// Remove deletes the element with handle h.
func (d *Driver) Remove(h locator.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, el := range d.elements {
		if el.Handle == h {
			d.elements = append(d.elements[:i], d.elements[i+1:]...)
			return
		}
	}
}

// ClearScreen removes every element, e.g. when a scripted navigation replaces the screen.
func (d *Driver) ClearScreen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = nil
}

// SetActivity sets what CurrentActivity reports.
func (d *Driver) SetActivity(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Activity = name
}

// FailWith makes every call of method return err until ClearFaults.
func (d *Driver) FailWith(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[method] = err
}

// ClearFaults removes injected failures.
func (d *Driver) ClearFaults() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = make(map[string]error)
}

// Calls returns a copy of the recorded calls.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Queries returns the descriptors passed to FindOne, in call order.
func (d *Driver) Queries() []locator.Descriptor {
	var out []locator.Descriptor
	for _, c := range d.Calls() {
		if c.Method == "FindOne" {
			out = append(out, c.Descriptor)
		}
	}
	return out
}

// CallCount returns how many times method was called.
func (d *Driver) CallCount(method string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (d *Driver) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// TextOf returns the current text of the element with handle h.
func (d *Driver) TextOf(h locator.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el := d.byHandle(h); el != nil {
		return el.Text
	}
	return ""
}

// record logs a call and returns the injected fault for method, if any.
func (d *Driver) record(c Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, c)
	return d.faults[c.Method]
}

func (d *Driver) present(el *Element) bool {
	elapsed := time.Since(d.start)
	if elapsed < el.AppearAt {
		return false
	}
	return el.VanishAt == 0 || elapsed < el.VanishAt
}

func matches(el *Element, desc locator.Descriptor) bool {
	for _, x := range el.Extra {
		if x == desc {
			return true
		}
	}
	switch desc.Strategy {
	case locator.AccessibilityID:
		return el.AccessibilityID != "" && el.AccessibilityID == desc.Value
	case locator.ElementID:
		return el.ResourceID != "" && el.ResourceID == desc.Value
	case locator.TextMatch:
		return el.Text != "" && el.Text == desc.Value
	case locator.ClassName:
		return el.Class != "" && el.Class == desc.Value
	case locator.XPath:
		for _, x := range el.XPaths {
			if x == desc.Value {
				return true
			}
		}
	}
	return false
}

func (d *Driver) match(desc locator.Descriptor) []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Element
	for _, el := range d.elements {
		if d.present(el) && matches(el, desc) {
			out = append(out, el)
		}
	}
	return out
}

// byHandle must be called with d.mu held.
func (d *Driver) byHandle(h locator.Handle) *Element {
	for _, el := range d.elements {
		if el.Handle == h && d.present(el) {
			return el
		}
	}
	return nil
}

func (d *Driver) lookup(h locator.Handle) (*Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el := d.byHandle(h); el != nil {
		return el, nil
	}
	return nil, core.ErrStaleElement.WithDetails(map[string]interface{}{"handle": string(h)})
}

// waitFor polls until match returns something or timeout elapses.
func (d *Driver) waitFor(ctx context.Context, desc locator.Descriptor, timeout time.Duration) []*Element {
	deadline := time.Now().Add(timeout)
	for {
		if found := d.match(desc); len(found) > 0 {
			return found
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

// FindOne implements locator.Finder.
func (d *Driver) FindOne(ctx context.Context, desc locator.Descriptor, timeout time.Duration) (locator.Handle, error) {
	if err := d.record(Call{Method: "FindOne", Descriptor: desc}); err != nil {
		return "", err
	}
	found := d.waitFor(ctx, desc, timeout)
	if len(found) == 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", core.ErrElementNotFound.WithCause(fmt.Errorf("no element matches %s", desc))
	}
	return found[0].Handle, nil
}

// FindAll implements locator.Finder.
func (d *Driver) FindAll(ctx context.Context, desc locator.Descriptor, timeout time.Duration) ([]locator.Handle, error) {
	if err := d.record(Call{Method: "FindAll", Descriptor: desc}); err != nil {
		return nil, err
	}
	found := d.waitFor(ctx, desc, timeout)
	out := make([]locator.Handle, 0, len(found))
	for _, el := range found {
		out = append(out, el.Handle)
	}
	return out, nil
}

// IsDisplayed implements locator.Finder.
func (d *Driver) IsDisplayed(_ context.Context, h locator.Handle) (bool, error) {
	if err := d.record(Call{Method: "IsDisplayed", Handle: h}); err != nil {
		return false, err
	}
	el, err := d.lookup(h)
	if err != nil {
		return false, err
	}
	return !el.Hidden, nil
}

// IsEnabled implements locator.Port.
func (d *Driver) IsEnabled(_ context.Context, h locator.Handle) (bool, error) {
	if err := d.record(Call{Method: "IsEnabled", Handle: h}); err != nil {
		return false, err
	}
	el, err := d.lookup(h)
	if err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return !el.Disabled, nil
}

// Bounds implements locator.Device.
func (d *Driver) Bounds(_ context.Context, h locator.Handle) (core.Bounds, error) {
	if err := d.record(Call{Method: "Bounds", Handle: h}); err != nil {
		return core.Bounds{}, err
	}
	el, err := d.lookup(h)
	if err != nil {
		return core.Bounds{}, err
	}
	return el.Bounds, nil
}

// Tap implements locator.Port.
func (d *Driver) Tap(_ context.Context, h locator.Handle) error {
	if err := d.record(Call{Method: "Tap", Handle: h}); err != nil {
		return err
	}
	el, err := d.lookup(h)
	if err != nil {
		return err
	}
	d.mu.Lock()
	onTap := el.OnTap
	if el.Disabled {
		onTap = nil
	}
	d.mu.Unlock()
	if onTap != nil {
		onTap(d)
	}
	return nil
}

// Clear implements locator.Port.
func (d *Driver) Clear(_ context.Context, h locator.Handle) error {
	if err := d.record(Call{Method: "Clear", Handle: h}); err != nil {
		return err
	}
	return d.changeText(h, func(el *Element) { el.Text = "" })
}

// SendText implements locator.Port.
func (d *Driver) SendText(_ context.Context, h locator.Handle, text string) error {
	if err := d.record(Call{Method: "SendText", Handle: h, Text: text}); err != nil {
		return err
	}
	return d.changeText(h, func(el *Element) { el.Text += text })
}

// changeText edits the element text and then runs its OnChange hook.
func (d *Driver) changeText(h locator.Handle, edit func(el *Element)) error {
	d.mu.Lock()
	el := d.byHandle(h)
	if el == nil {
		d.mu.Unlock()
		return core.ErrStaleElement
	}
	edit(el)
	onChange := el.OnChange
	d.mu.Unlock()
	if onChange != nil {
		onChange(d)
	}
	return nil
}

// GetText implements locator.Port.
func (d *Driver) GetText(_ context.Context, h locator.Handle) (string, error) {
	if err := d.record(Call{Method: "GetText", Handle: h}); err != nil {
		return "", err
	}
	el, err := d.lookup(h)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

// TapAt implements locator.Device. Taps inside an element's bounds trigger its OnTap.
func (d *Driver) TapAt(_ context.Context, x, y int) error {
	if err := d.record(Call{Method: "TapAt", Text: fmt.Sprintf("%d,%d", x, y)}); err != nil {
		return err
	}
	d.mu.Lock()
	var hit *Element
	for _, el := range d.elements {
		if d.present(el) && el.Bounds.Contains(x, y) {
			hit = el
		}
	}
	d.mu.Unlock()
	if hit != nil && hit.OnTap != nil {
		hit.OnTap(d)
	}
	return nil
}

// Swipe implements locator.Device.
func (d *Driver) Swipe(_ context.Context, startX, startY, endX, endY int, duration time.Duration) error {
	return d.record(Call{Method: "Swipe", Text: fmt.Sprintf("%d,%d->%d,%d/%s", startX, startY, endX, endY, duration)})
}

// ScrollTo implements locator.Device.
func (d *Driver) ScrollTo(_ context.Context, h locator.Handle, dir locator.Direction) error {
	return d.record(Call{Method: "ScrollTo", Handle: h, Text: string(dir)})
}

// WindowSize implements locator.Device.
func (d *Driver) WindowSize(_ context.Context) (core.Size, error) {
	if err := d.record(Call{Method: "WindowSize"}); err != nil {
		return core.Size{}, err
	}
	return core.Size{Width: d.cfg.ScreenWidth, Height: d.cfg.ScreenHeight}, nil
}

// HideKeyboard implements locator.Device.
func (d *Driver) HideKeyboard(_ context.Context) error {
	return d.record(Call{Method: "HideKeyboard"})
}

// Back implements locator.Device.
func (d *Driver) Back(_ context.Context) error {
	return d.record(Call{Method: "Back"})
}

// CurrentActivity implements locator.Device.
func (d *Driver) CurrentActivity(_ context.Context) (string, error) {
	if err := d.record(Call{Method: "CurrentActivity"}); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Activity, nil
}

// Screenshot returns a mock PNG image.
func (d *Driver) Screenshot(_ context.Context) ([]byte, error) {
	if err := d.record(Call{Method: "Screenshot"}); err != nil {
		return nil, err
	}
	// Minimal valid PNG (1x1 transparent pixel)
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}, nil
}

// Source renders the present elements as an Android-style hierarchy.
func (d *Driver) Source(_ context.Context) (string, error) {
	if err := d.record(Call{Method: "Source"}); err != nil {
		return "", err
	}
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("hierarchy")
	root.CreateAttr("rotation", "0")

	d.mu.Lock()
	for _, el := range d.elements {
		if !d.present(el) {
			continue
		}
		class := el.Class
		if class == "" {
			class = "android.view.View"
		}
		node := root.CreateElement(class)
		node.CreateAttr("class", class)
		node.CreateAttr("text", el.Text)
		node.CreateAttr("resource-id", el.ResourceID)
		node.CreateAttr("content-desc", el.AccessibilityID)
		node.CreateAttr("displayed", strconv.FormatBool(!el.Hidden))
		node.CreateAttr("enabled", "true")
		b := el.Bounds
		node.CreateAttr("bounds", fmt.Sprintf("[%d,%d][%d,%d]", b.X, b.Y, b.X+b.Width, b.Y+b.Height))
	}
	d.mu.Unlock()

	doc.Indent(2)
	return doc.WriteToString()
}

// PlatformInfo implements locator.Device.
func (d *Driver) PlatformInfo() *core.PlatformInfo {
	return &core.PlatformInfo{
		Platform:     d.cfg.Platform,
		OSVersion:    "1.0",
		DeviceName:   "Mock Device",
		SessionID:    d.cfg.DeviceID,
		ScreenWidth:  d.cfg.ScreenWidth,
		ScreenHeight: d.cfg.ScreenHeight,
	}
}

// Close ends the mock session.
func (d *Driver) Close() error {
	return d.record(Call{Method: "Close"})
}
