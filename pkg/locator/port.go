package locator

import (
	"context"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/core"
)

// Handle is an opaque reference to a live element, valid only within the
// session that produced it.
type Handle string

// Finder queries a live UI snapshot.
//
// FindOne with timeout <= 0 performs a single immediate probe; otherwise it
// polls until a match appears or the timeout elapses. A miss is reported as
// core.ErrElementNotFound (or a timeout-category error); a broken session as a
// connection-category error.
type Finder interface {
	FindOne(ctx context.Context, d Descriptor, timeout time.Duration) (Handle, error)
	// FindAll returns an empty slice, not an error, when nothing matched in time.
	FindAll(ctx context.Context, d Descriptor, timeout time.Duration) ([]Handle, error)
	IsDisplayed(ctx context.Context, h Handle) (bool, error)
}

// Port is the Remote UI Query Port: finding plus element interaction.
type Port interface {
	Finder
	Tap(ctx context.Context, h Handle) error
	Clear(ctx context.Context, h Handle) error
	SendText(ctx context.Context, h Handle, text string) error
	GetText(ctx context.Context, h Handle) (string, error)
	IsEnabled(ctx context.Context, h Handle) (bool, error)
}

// Direction for scroll gestures.
type Direction string

// Scroll directions.
const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Device is a Port bound to a session, with gestures and session queries.
type Device interface {
	Port
	TapAt(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, startX, startY, endX, endY int, duration time.Duration) error
	ScrollTo(ctx context.Context, h Handle, dir Direction) error
	WindowSize(ctx context.Context) (core.Size, error)
	// Bounds returns the on-screen rectangle of an element.
	Bounds(ctx context.Context, h Handle) (core.Bounds, error)
	HideKeyboard(ctx context.Context) error
	Back(ctx context.Context) error
	// CurrentActivity returns the foreground Android activity; iOS returns "".
	CurrentActivity(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Source(ctx context.Context) (string, error)
	PlatformInfo() *core.PlatformInfo
}
