// Package screens holds the page objects of the FoodApp screens. Element
// chains come from the locator catalog for the session's platform.
package screens

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
	"github.com/devicelab-dev/pageflow/pkg/page"
)

// Catalog screen names.
const (
	SignInScreen       = "sign_in"
	RegistrationScreen = "registration"
	MainScreen         = "main"
	ProfileScreen      = "profile"
	SearchScreen       = "search"
)

// Screen is what every page object exposes.
type Screen interface {
	Name() string
	// IsLoaded waits up to timeout (0 = explicit timeout) for the screen's
	// identifying element.
	IsLoaded(ctx context.Context, timeout time.Duration) bool
}

// App binds all page objects of one session. Flows that navigate return the
// destination from here; that is a hint, callers still check IsLoaded.
type App struct {
	Base         *page.Base
	SignIn       *SignIn
	Registration *Registration
	Main         *Main
	Profile      *Profile
	Search       *Search
}

// New binds every screen to its chains for the platform of b.
func New(b *page.Base, cat *catalog.Catalog) (*App, error) {
	app := &App{Base: b}
	platform := b.Platform()

	var errs []error
	bind := func(name string, fn func(*screen, *catalog.Binder)) {
		binder := cat.Bind(name, platform)
		s := &screen{Base: b, app: app, name: name}
		if id := cat.Screens[name].Identifier; id != "" {
			s.identifier = binder.Chain(id)
		}
		fn(s, binder)
		if err := binder.Err(); err != nil {
			errs = append(errs, err)
		}
	}

	bind(SignInScreen, func(s *screen, c *catalog.Binder) { app.SignIn = newSignIn(s, c) })
	bind(RegistrationScreen, func(s *screen, c *catalog.Binder) { app.Registration = newRegistration(s, c) })
	bind(MainScreen, func(s *screen, c *catalog.Binder) { app.Main = newMain(s, c) })
	bind(ProfileScreen, func(s *screen, c *catalog.Binder) { app.Profile = newProfile(s, c) })
	bind(SearchScreen, func(s *screen, c *catalog.Binder) { app.Search = newSearch(s, c) })

	if err := errors.Join(errs...); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("catalog does not cover every screen element").WithCause(err)
	}
	return app, nil
}

// Screens returns every page object, in navigation order.
func (a *App) Screens() []Screen {
	return []Screen{a.SignIn, a.Registration, a.Main, a.Profile, a.Search}
}

// Lookup returns the page object named name.
func (a *App) Lookup(name string) (Screen, error) {
	for _, s := range a.Screens() {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w %q", catalog.ErrUnknownScreen, name)
}

// screen is embedded by every page object.
type screen struct {
	*page.Base
	app        *App
	name       string
	identifier locator.Chain
}

// Name returns the catalog name of the screen.
func (s *screen) Name() string { return s.name }

// Identifier returns the chain whose visibility means the screen is loaded.
func (s *screen) Identifier() locator.Chain { return s.identifier }

// IsLoaded waits up to timeout (the explicit wait when 0) for the identifier
// element to be visible.
func (s *screen) IsLoaded(ctx context.Context, timeout time.Duration) bool {
	return s.WaitForPageLoad(ctx, s.identifier, timeout)
}

// optionalText reads text that may legitimately be absent: a missing element
// gives "" and no error.
func (s *screen) optionalText(ctx context.Context, t locator.Target) (string, error) {
	text, err := s.ReadText(ctx, t)
	if errors.Is(err, core.ErrChainExhausted) {
		return "", nil
	}
	return text, err
}

var (
	intPattern   = regexp.MustCompile(`\d+`)
	floatPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// firstInt returns the first run of digits in text.
func firstInt(text string) (int, bool) {
	m := intPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// firstFloat returns the first decimal number in text; a comma separator is accepted.
func firstFloat(text string) (float64, bool) {
	m := floatPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	return f, err == nil
}
