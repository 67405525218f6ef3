// Package config handles configuration for pageflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/pageflow/pkg/core"
)

// Environment variables that override file settings.
const (
	EnvServerURL      = "APPIUM_SERVER_URL"
	EnvPlatform       = "PLATFORM"
	EnvAndroidVersion = "ANDROID_PLATFORM_VERSION"
	EnvAndroidDevice  = "ANDROID_DEVICE_NAME"
	EnvAndroidApp     = "ANDROID_APP_PATH"
	EnvIOSVersion     = "IOS_PLATFORM_VERSION"
	EnvIOSDevice      = "IOS_DEVICE_NAME"
	EnvIOSApp         = "IOS_APP_PATH"
	EnvUserEmail      = "TEST_USER_EMAIL"
	EnvUserPassword   = "TEST_USER_PASSWORD"
	EnvUserName       = "TEST_USER_NAME"
	EnvScreenshotDir  = "PAGEFLOW_SCREENSHOT_DIR"
	EnvLogLevel       = "PAGEFLOW_LOG_LEVEL"
)

const (
	maxSettleDelay     = 5 * time.Second
	defaultEnvFileName = "config.env"
)

// Config represents the run configuration (pageflow.yaml).
type Config struct {
	ServerURL string `yaml:"serverUrl"`
	Platform  string `yaml:"platform"` // android, ios

	Android PlatformProfile `yaml:"android"`
	IOS     PlatformProfile `yaml:"ios"`

	Timeouts Timeouts    `yaml:"timeouts"`
	User     Credentials `yaml:"user"`

	// Scenario selection
	IncludeTags []string `yaml:"includeTags"`
	ExcludeTags []string `yaml:"excludeTags"`

	// Output
	ScreenshotDir string              `yaml:"screenshotDir"`
	OutputDir     string              `yaml:"outputDir"`
	Artifacts     core.ArtifactConfig `yaml:"artifacts"`
	CatalogFile   string              `yaml:"catalog"` // optional override merged over the built-in catalog

	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile"`
}

// Timeouts bounds every wait in a run. There is no implicit wait on the
// session; each call passes one of these explicitly.
type Timeouts struct {
	Explicit   time.Duration `yaml:"explicit"`   // page loads, assertVisible
	Attempt    time.Duration `yaml:"attempt"`    // each descriptor of a chain
	Settle     time.Duration `yaml:"settle"`     // after a click
	Navigation time.Duration `yaml:"navigation"` // after a flow that changes screens
	Poll       time.Duration `yaml:"poll"`       // polling interval for waits
}

// Credentials of the test account.
type Credentials struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerURL: "http://localhost:4723",
		Platform:  core.PlatformAndroid,
		Android: PlatformProfile{
			PlatformName:         "Android",
			PlatformVersion:      "13",
			DeviceName:           "Android Emulator",
			App:                  "android/app/build/outputs/apk/debug/app-debug.apk",
			AppPackage:           "com.l423r.FoodApp",
			AppActivity:          ".MainActivity",
			AutomationName:       "UiAutomator2",
			NewCommandTimeout:    300,
			AutoGrantPermissions: true,
			UnicodeKeyboard:      true,
			ResetKeyboard:        true,
		},
		IOS: PlatformProfile{
			PlatformName:      "iOS",
			PlatformVersion:   "17.0",
			DeviceName:        "iPhone 15 Pro",
			App:               "build/iphone/FoodApp.app",
			AutomationName:    "XCUITest",
			NewCommandTimeout: 300,
		},
		Timeouts: Timeouts{
			Explicit:   20 * time.Second,
			Attempt:    2 * time.Second,
			Settle:     500 * time.Millisecond,
			Navigation: 2 * time.Second,
			Poll:       250 * time.Millisecond,
		},
		User: Credentials{
			Email:    "test@example.com",
			Password: "Test123456",
			Name:     "Test User",
		},
		ScreenshotDir: "screenshots",
		OutputDir:     "reports",
		Artifacts:     core.DefaultArtifactConfig(),
		LogLevel:      "info",
	}
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir looks for pageflow.yaml, config.yaml or config.yml in the directory.
// With none present the defaults are returned.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"pageflow.yaml", "config.yaml", "config.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}
	return Default(), nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	path, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Resolve is the full loading sequence: config.env in dir, the config file
// (explicit path or discovered in dir), then environment overrides.
func Resolve(dir, file string) (*Config, error) {
	if err := LoadEnvFile(filepath.Join(dir, defaultEnvFileName)); err != nil {
		return nil, fmt.Errorf("load %s: %w", defaultEnvFileName, err)
	}

	var cfg *Config
	var err error
	if file != "" {
		cfg, err = Load(file)
	} else {
		cfg, err = LoadFromDir(dir)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.ServerURL, EnvServerURL)
	set(&c.Platform, EnvPlatform)
	set(&c.Android.PlatformVersion, EnvAndroidVersion)
	set(&c.Android.DeviceName, EnvAndroidDevice)
	set(&c.Android.App, EnvAndroidApp)
	set(&c.IOS.PlatformVersion, EnvIOSVersion)
	set(&c.IOS.DeviceName, EnvIOSDevice)
	set(&c.IOS.App, EnvIOSApp)
	set(&c.User.Email, EnvUserEmail)
	set(&c.User.Password, EnvUserPassword)
	set(&c.User.Name, EnvUserName)
	set(&c.ScreenshotDir, EnvScreenshotDir)
	set(&c.LogLevel, EnvLogLevel)
	c.Platform = strings.ToLower(c.Platform)
}

// Validate checks the configuration before a session is created.
func (c *Config) Validate() error {
	switch c.Platform {
	case core.PlatformAndroid, core.PlatformIOS:
	default:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unsupported platform %q (want android or ios)", c.Platform))
	}
	if strings.TrimSpace(c.ServerURL) == "" {
		return core.ErrMissingRequired.WithMessage("serverUrl is required")
	}

	checks := []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.explicit", c.Timeouts.Explicit},
		{"timeouts.attempt", c.Timeouts.Attempt},
		{"timeouts.settle", c.Timeouts.Settle},
		{"timeouts.navigation", c.Timeouts.Navigation},
		{"timeouts.poll", c.Timeouts.Poll},
	}
	for _, ch := range checks {
		if ch.d <= 0 {
			return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("%s must be positive, got %s", ch.name, ch.d))
		}
	}
	if c.Timeouts.Settle > maxSettleDelay {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("timeouts.settle must not exceed %s, got %s", maxSettleDelay, c.Timeouts.Settle))
	}
	return nil
}

// Profile returns the profile of the selected platform.
func (c *Config) Profile() PlatformProfile {
	if c.Platform == core.PlatformIOS {
		return c.IOS
	}
	return c.Android
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return expanded, nil
}
