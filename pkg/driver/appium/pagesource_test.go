package appium

import (
	"testing"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

const androidSignIn = `<?xml version="1.0" encoding="UTF-8"?>
<hierarchy rotation="0">
  <android.widget.FrameLayout bounds="[0,0][1080,2400]" class="android.widget.FrameLayout" enabled="true" displayed="true">
    <android.widget.EditText hint="Введите ваш email" content-desc="sign_in_email_input" bounds="[60,600][1020,720]" enabled="true" />
    <android.widget.Button text="Войти" resource-id="com.l423r.FoodApp:id/login" bounds="[60,900][1020,1020]" clickable="true" />
    <android.widget.TextView text="Ошибка входа" displayed="false" bounds="[60,1100][1020,1160]" />
  </android.widget.FrameLayout>
</hierarchy>`

func TestParseAndroidPageSource(t *testing.T) {
	nodes, platform, err := ParsePageSource(androidSignIn)
	if err != nil {
		t.Fatalf("ParsePageSource failed: %v", err)
	}
	if platform != core.PlatformAndroid {
		t.Errorf("Expected platform 'android', got '%s'", platform)
	}
	if len(nodes) != 4 {
		t.Fatalf("Expected 4 nodes, got %d", len(nodes))
	}

	frame := nodes[0]
	if frame.Depth != 0 || frame.Class != "android.widget.FrameLayout" {
		t.Errorf("Unexpected root node: %+v", frame)
	}

	email := nodes[1]
	if email.ContentDesc != "sign_in_email_input" || email.Hint != "Введите ваш email" {
		t.Errorf("Unexpected email node: %+v", email)
	}
	if email.Depth != 1 {
		t.Errorf("Expected depth 1, got %d", email.Depth)
	}
	if email.Class != "android.widget.EditText" {
		t.Errorf("Class should default to the tag, got %q", email.Class)
	}

	login := nodes[2]
	if login.Text != "Войти" || !login.Clickable {
		t.Errorf("Unexpected login node: %+v", login)
	}
	if login.Bounds != (core.Bounds{X: 60, Y: 900, Width: 960, Height: 120}) {
		t.Errorf("Unexpected bounds: %+v", login.Bounds)
	}

	if nodes[3].Displayed {
		t.Error("error label should not be displayed")
	}
}

func TestParseIOSPageSource(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<AppiumAUT>
  <XCUIElementTypeApplication type="XCUIElementTypeApplication" name="FoodApp" label="FoodApp" enabled="true" visible="true" x="0" y="0" width="393" height="852">
    <XCUIElementTypeButton type="XCUIElementTypeButton" name="sign_in_login_button" label="Войти" enabled="true" visible="true" accessible="true" x="20" y="400" width="353" height="50" />
    <XCUIElementTypeTextField type="XCUIElementTypeTextField" name="sign_in_email_input" value="user@example.com" enabled="true" visible="false" x="20" y="300" width="353" height="44" />
  </XCUIElementTypeApplication>
</AppiumAUT>`

	nodes, platform, err := ParsePageSource(xml)
	if err != nil {
		t.Fatalf("ParsePageSource failed: %v", err)
	}
	if platform != core.PlatformIOS {
		t.Errorf("Expected platform 'ios', got '%s'", platform)
	}
	if len(nodes) != 3 {
		t.Fatalf("Expected 3 nodes, got %d", len(nodes))
	}

	button := nodes[1]
	if button.Name != "sign_in_login_button" || button.Label != "Войти" {
		t.Errorf("Unexpected button: %+v", button)
	}
	if button.Class != "XCUIElementTypeButton" {
		t.Errorf("Expected type 'XCUIElementTypeButton', got '%s'", button.Class)
	}
	if button.Bounds != (core.Bounds{X: 20, Y: 400, Width: 353, Height: 50}) {
		t.Errorf("Unexpected bounds: %+v", button.Bounds)
	}

	field := nodes[2]
	if field.Value != "user@example.com" {
		t.Errorf("Expected value 'user@example.com', got '%s'", field.Value)
	}
	if field.Displayed {
		t.Error("field should not be visible")
	}
}

func TestParsePageSource_Invalid(t *testing.T) {
	if _, _, err := ParsePageSource("<hierarchy"); err == nil {
		t.Error("expected error for malformed XML")
	}
	if _, _, err := ParsePageSource(""); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestParseBounds(t *testing.T) {
	tests := []struct {
		input    string
		expected core.Bounds
	}{
		{"[0,0][100,200]", core.Bounds{X: 0, Y: 0, Width: 100, Height: 200}},
		{"[50,100][150,250]", core.Bounds{X: 50, Y: 100, Width: 100, Height: 150}},
		{"[1,2]", core.Bounds{}},
		{"[a,b][c,d]", core.Bounds{}},
		{"invalid", core.Bounds{}},
	}

	for _, tt := range tests {
		result := parseBounds(tt.input)
		if result != tt.expected {
			t.Errorf("parseBounds(%s) = %+v, expected %+v", tt.input, result, tt.expected)
		}
	}
}

func TestNode_Suggest(t *testing.T) {
	n := &Node{ContentDesc: "sign_in_login_button", ResourceID: "app:id/login", Text: "Войти"}
	got := n.Suggest()
	want := []locator.Descriptor{
		locator.ByAccessibilityID("sign_in_login_button"),
		locator.ByID("app:id/login"),
		locator.ByXPath("//*[@text='Войти']"),
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d suggestions, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d = %s, expected %s", i, got[i], want[i])
		}
	}

	if len((&Node{Class: "android.view.View"}).Suggest()) != 0 {
		t.Error("anonymous node should have no suggestions")
	}
}

func TestNode_Identified(t *testing.T) {
	if (&Node{Class: "android.view.View"}).Identified() {
		t.Error("bare node should not be identified")
	}
	if !(&Node{Label: "Войти"}).Identified() {
		t.Error("labelled node should be identified")
	}
}

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Войти", `'Войти'`},
		{"it's", `"it's"`},
		{`it's "x"`, `concat('it', "'", 's "x"')`},
	}
	for _, tt := range tests {
		if got := xpathLiteral(tt.in); got != tt.want {
			t.Errorf("xpathLiteral(%q) = %s, expected %s", tt.in, got, tt.want)
		}
	}
}
