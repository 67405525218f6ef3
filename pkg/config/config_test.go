package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/core"
)

// clearEnv unsets keys for the duration of the test and restores them after.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

var allEnv = []string{
	EnvServerURL, EnvPlatform, EnvAndroidVersion, EnvAndroidDevice, EnvAndroidApp,
	EnvIOSVersion, EnvIOSDevice, EnvIOSApp, EnvUserEmail, EnvUserPassword,
	EnvUserName, EnvScreenshotDir, EnvLogLevel,
}

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "pageflow.yaml")

	content := `
serverUrl: http://appium.local:4723
platform: ios
ios:
  deviceName: iPhone 14
  bundleId: com.l423r.FoodApp
  capabilities:
    appium:wdaLaunchTimeout: 60000
timeouts:
  attempt: 3s
  settle: 250ms
includeTags:
  - smoke
user:
  email: qa@example.com
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerURL != "http://appium.local:4723" {
		t.Errorf("expected server url override, got %s", cfg.ServerURL)
	}
	if cfg.Platform != "ios" {
		t.Errorf("expected platform ios, got %s", cfg.Platform)
	}
	if cfg.IOS.DeviceName != "iPhone 14" || cfg.IOS.PlatformVersion != "17.0" {
		t.Errorf("expected merged iOS profile, got %+v", cfg.IOS)
	}
	if cfg.Timeouts.Attempt != 3*time.Second || cfg.Timeouts.Settle != 250*time.Millisecond {
		t.Errorf("unexpected timeouts: %+v", cfg.Timeouts)
	}
	if cfg.Timeouts.Explicit != 20*time.Second {
		t.Errorf("unset timeouts should keep defaults, got %s", cfg.Timeouts.Explicit)
	}
	if len(cfg.IncludeTags) != 1 || cfg.IncludeTags[0] != "smoke" {
		t.Errorf("expected includeTags [smoke], got %v", cfg.IncludeTags)
	}
	if cfg.User.Email != "qa@example.com" || cfg.User.Password != "Test123456" {
		t.Errorf("unexpected user: %+v", cfg.User)
	}
	if cfg.Profile().BundleID != "com.l423r.FoodApp" {
		t.Errorf("Profile() should return the iOS profile, got %+v", cfg.Profile())
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/pageflow.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageflow.yaml")
	if err := os.WriteFile(path, []byte("timeouts: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFromDir_Order(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.yml"), []byte("platform: ios\n"), 0644)
	os.WriteFile(filepath.Join(dir, "pageflow.yaml"), []byte("platform: android\nserverUrl: http://first\n"), 0644)

	cfg, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "http://first" {
		t.Errorf("pageflow.yaml should win, got %s", cfg.ServerURL)
	}
}

func TestLoadFromDir_NoConfig(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "http://localhost:4723" {
		t.Errorf("expected defaults, got %s", cfg.ServerURL)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t, allEnv...)
	t.Setenv(EnvServerURL, "http://grid:4444")
	t.Setenv(EnvPlatform, "IOS")
	t.Setenv(EnvIOSDevice, "iPhone SE")
	t.Setenv(EnvUserPassword, "s3cret")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.ServerURL != "http://grid:4444" {
		t.Errorf("server url = %s", cfg.ServerURL)
	}
	if cfg.Platform != "ios" {
		t.Errorf("platform should be lowercased, got %s", cfg.Platform)
	}
	if cfg.IOS.DeviceName != "iPhone SE" {
		t.Errorf("device = %s", cfg.IOS.DeviceName)
	}
	if cfg.User.Password != "s3cret" || cfg.User.Email != "test@example.com" {
		t.Errorf("unexpected user %+v", cfg.User)
	}
}

func TestResolve_EnvFile(t *testing.T) {
	clearEnv(t, allEnv...)
	dir := t.TempDir()
	env := "TEST_USER_EMAIL=from-file@example.com\nPLATFORM=ios\n"
	if err := os.WriteFile(filepath.Join(dir, "config.env"), []byte(env), 0644); err != nil {
		t.Fatal(err)
	}
	// Already-set variables are not overridden by the file.
	t.Setenv(EnvPlatform, "android")

	cfg, err := Resolve(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.User.Email != "from-file@example.com" {
		t.Errorf("email from config.env not applied: %s", cfg.User.Email)
	}
	if cfg.Platform != "android" {
		t.Errorf("process env should win over config.env, got %s", cfg.Platform)
	}
}

func TestResolve_ExplicitFile(t *testing.T) {
	clearEnv(t, allEnv...)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	os.WriteFile(path, []byte("serverUrl: http://custom\n"), 0644)

	cfg, err := Resolve(t.TempDir(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerURL != "http://custom" {
		t.Errorf("server url = %s", cfg.ServerURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr *core.ExecutionError
	}{
		{"defaults", func(c *Config) {}, nil},
		{"ios", func(c *Config) { c.Platform = "ios" }, nil},
		{"unknown platform", func(c *Config) { c.Platform = "windows" }, core.ErrInvalidConfig},
		{"empty server", func(c *Config) { c.ServerURL = " " }, core.ErrMissingRequired},
		{"zero attempt", func(c *Config) { c.Timeouts.Attempt = 0 }, core.ErrInvalidConfig},
		{"negative poll", func(c *Config) { c.Timeouts.Poll = -time.Second }, core.ErrInvalidConfig},
		{"settle too long", func(c *Config) { c.Timeouts.Settle = 6 * time.Second }, core.ErrInvalidConfig},
		{"settle at bound", func(c *Config) { c.Timeouts.Settle = 5 * time.Second }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %s, got %v", tt.wantErr.Code, err)
			}
			if core.CategoryOf(err) != core.ErrCategoryConfig {
				t.Errorf("expected config category, got %v", core.CategoryOf(err))
			}
		})
	}
}

func TestW3CCapabilities_Android(t *testing.T) {
	caps, err := Default().Android.W3CCapabilities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]interface{}{
		"platformName":                "Android",
		"appium:platformVersion":      "13",
		"appium:deviceName":           "Android Emulator",
		"appium:appPackage":           "com.l423r.FoodApp",
		"appium:appActivity":          ".MainActivity",
		"appium:automationName":       "UiAutomator2",
		"appium:noReset":              false,
		"appium:fullReset":            false,
		"appium:newCommandTimeout":    300,
		"appium:autoGrantPermissions": true,
	}
	for k, v := range want {
		if caps[k] != v {
			t.Errorf("caps[%s] = %v, want %v", k, caps[k], v)
		}
	}
	if _, ok := caps["appium:bundleId"]; ok {
		t.Error("empty fields must be omitted")
	}
}

func TestW3CCapabilities_PassThroughAndTilde(t *testing.T) {
	p := PlatformProfile{
		PlatformName: "iOS",
		App:          "~/apps/FoodApp.app",
		Capabilities: map[string]interface{}{"appium:deviceName": "override"},
		DeviceName:   "iPhone 15 Pro",
	}
	caps, err := p.W3CCapabilities()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caps["appium:deviceName"] != "override" {
		t.Errorf("pass-through capability should win, got %v", caps["appium:deviceName"])
	}
	if app, _ := caps["appium:app"].(string); app == "" || app[0] == '~' {
		t.Errorf("app path not expanded: %q", app)
	}
}

func TestProfile_AppID(t *testing.T) {
	if got := (PlatformProfile{AppPackage: "pkg"}).AppID(); got != "pkg" {
		t.Errorf("AppID = %s", got)
	}
	if got := (PlatformProfile{BundleID: "bundle"}).AppID(); got != "bundle" {
		t.Errorf("AppID = %s", got)
	}
}
