package config

// PlatformProfile is the session configuration for one platform. The core
// never interprets it; it is turned into Appium capabilities as-is.
type PlatformProfile struct {
	PlatformName         string `yaml:"platformName"`
	PlatformVersion      string `yaml:"platformVersion"`
	DeviceName           string `yaml:"deviceName"`
	UDID                 string `yaml:"udid"`
	App                  string `yaml:"app"`
	AppPackage           string `yaml:"appPackage"`
	AppActivity          string `yaml:"appActivity"`
	BundleID             string `yaml:"bundleId"`
	AutomationName       string `yaml:"automationName"`
	NoReset              bool   `yaml:"noReset"`
	FullReset            bool   `yaml:"fullReset"`
	NewCommandTimeout    int    `yaml:"newCommandTimeout"`
	AutoGrantPermissions bool   `yaml:"autoGrantPermissions"`
	UnicodeKeyboard      bool   `yaml:"unicodeKeyboard"`
	ResetKeyboard        bool   `yaml:"resetKeyboard"`

	// Capabilities are passed through verbatim and win over the fields above.
	Capabilities map[string]interface{} `yaml:"capabilities"`
}

// AppID returns the package name or bundle id.
func (p PlatformProfile) AppID() string {
	if p.AppPackage != "" {
		return p.AppPackage
	}
	return p.BundleID
}

// W3CCapabilities builds the alwaysMatch capabilities with appium: vendor
// prefixes. The app path has ~ expanded.
func (p PlatformProfile) W3CCapabilities() (map[string]interface{}, error) {
	caps := map[string]interface{}{
		"platformName": p.PlatformName,
	}
	put := func(key string, v string) {
		if v != "" {
			caps["appium:"+key] = v
		}
	}
	put("platformVersion", p.PlatformVersion)
	put("deviceName", p.DeviceName)
	put("udid", p.UDID)
	put("appPackage", p.AppPackage)
	put("appActivity", p.AppActivity)
	put("bundleId", p.BundleID)
	put("automationName", p.AutomationName)

	if p.App != "" {
		app, err := ExpandPath(p.App)
		if err != nil {
			return nil, err
		}
		caps["appium:app"] = app
	}

	caps["appium:noReset"] = p.NoReset
	caps["appium:fullReset"] = p.FullReset
	if p.NewCommandTimeout > 0 {
		caps["appium:newCommandTimeout"] = p.NewCommandTimeout
	}
	if p.AutoGrantPermissions {
		caps["appium:autoGrantPermissions"] = true
	}
	if p.UnicodeKeyboard {
		caps["appium:unicodeKeyboard"] = true
	}
	if p.ResetKeyboard {
		caps["appium:resetKeyboard"] = true
	}

	for k, v := range p.Capabilities {
		caps[k] = v
	}
	return caps, nil
}
