// Package scenarios holds the built-in scenarios for the FoodApp. Each one
// brings the app to the screen it starts from, so any subset can run alone.
package scenarios

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/executor"
)

// Scenario tags.
const (
	TagSmoke       = "smoke"
	TagRegression  = "regression"
	TagIntegration = "integration"
)

// Waits used by the scenarios on top of the configured timeouts.
var (
	shortWait = 2 * time.Second
	mainWait  = 5 * time.Second
)

// All returns every built-in scenario in run order: sign in screen first,
// then the flows that need a signed in user, logout last.
func All() []executor.Scenario {
	var all []executor.Scenario
	all = append(all, authScenarios()...)
	all = append(all, mainScenarios()...)
	all = append(all, searchScenarios()...)
	all = append(all, profileScenarios()...)
	return all
}

// Lookup returns the built-in scenario named name.
func Lookup(name string) (executor.Scenario, bool) {
	for _, sc := range All() {
		if sc.Name == name {
			return sc, true
		}
	}
	return executor.Scenario{}, false
}

// Tags returns the tags used by the built-in scenarios.
func Tags() []string {
	return []string{TagSmoke, TagRegression, TagIntegration}
}

// expect fails the scenario with an assertion error when cond is false.
func expect(cond bool, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	return core.ErrConditionNotMet.WithMessage(fmt.Sprintf(format, args...))
}

// onSignIn makes sure the sign in screen is shown, logging out first when a
// user is signed in.
func onSignIn(ctx context.Context, s *executor.Session) error {
	if s.SignIn.IsLoaded(ctx, shortWait) {
		return nil
	}
	if s.Main.IsLoaded(ctx, shortWait) {
		profile, err := s.Main.NavigateToProfile(ctx)
		if err != nil {
			return err
		}
		if err := profile.ScrollToLogout(ctx); err != nil {
			return err
		}
		if _, err := profile.Logout(ctx); err != nil {
			return err
		}
	}
	return expect(s.SignIn.IsLoaded(ctx, 0), "sign in screen did not load")
}

// onMain makes sure a user is signed in and the main screen is shown.
func onMain(ctx context.Context, s *executor.Session) error {
	if s.Main.IsLoaded(ctx, shortWait) {
		return nil
	}
	if !s.SignIn.IsLoaded(ctx, shortWait) {
		// Another tab of the signed in app.
		if _, err := s.Main.NavigateToHome(ctx); err != nil {
			return err
		}
		return expect(s.Main.IsLoaded(ctx, 0), "main screen did not load")
	}
	if _, err := s.SignIn.Login(ctx, s.User.Email, s.User.Password); err != nil {
		return err
	}
	return expect(s.Main.IsLoaded(ctx, 0), "login as %s did not reach the main screen", s.User.Email)
}
