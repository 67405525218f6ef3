package core

// Bounds represents element position and size
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the center point of the bounds
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains checks if a point is within the bounds
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Size is a screen or window size in points.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PlatformInfo contains device and platform details for the live session
type PlatformInfo struct {
	Platform     string `json:"platform"`               // ios, android
	OSVersion    string `json:"osVersion"`              // e.g., "17.0", "13"
	DeviceName   string `json:"deviceName"`             // e.g., "iPhone 15 Pro"
	SessionID    string `json:"sessionId,omitempty"`    // remote session identifier
	ScreenWidth  int    `json:"screenWidth,omitempty"`  // Screen width in points
	ScreenHeight int    `json:"screenHeight,omitempty"` // Screen height in points
	AppID        string `json:"appId,omitempty"`        // Bundle ID / Package name
}

// Platform names.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)
