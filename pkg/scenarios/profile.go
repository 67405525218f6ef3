package scenarios

import (
	"context"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/executor"
	"github.com/devicelab-dev/pageflow/pkg/screens"
)

// Plausible ranges for profile values.
const (
	maxBMI      = 50
	minCalories = 1000
	maxCalories = 5000
)

func profileScenarios() []executor.Scenario {
	tags := []string{TagIntegration}
	return []executor.Scenario{
		{Name: "profile_page_loaded", Tags: tags, Description: "The profile tab opens", Run: profilePageLoaded},
		{Name: "user_info_displayed", Tags: tags, Description: "The user name is readable", Run: userInfo},
		{Name: "bmi_displayed", Tags: tags, Description: "BMI, when filled in, is plausible", Run: bmiDisplayed},
		{Name: "calories_goal_displayed", Tags: tags, Description: "The calories goal, when shown, is plausible", Run: caloriesGoal},
		{Name: "settings_button", Tags: tags, Description: "Settings open and close", Run: settingsButton},
		{Name: "edit_profile_button", Tags: tags, Description: "Profile editing opens and closes", Run: editProfile},
		{Name: "logout", Tags: []string{TagIntegration, TagRegression}, Description: "Logout returns to sign in", Run: logout},
	}
}

// onProfile opens the profile tab of a signed in user.
func onProfile(ctx context.Context, s *executor.Session) (*screens.Profile, error) {
	if s.Profile.IsLoaded(ctx, shortWait) {
		return s.Profile, nil
	}
	if err := onMain(ctx, s); err != nil {
		return nil, err
	}
	profile, err := s.Main.NavigateToProfile(ctx)
	if err != nil {
		return nil, err
	}
	return profile, expect(profile.IsLoaded(ctx, 0), "profile screen did not load")
}

func profilePageLoaded(ctx context.Context, s *executor.Session) error {
	if _, err := onProfile(ctx, s); err != nil {
		return err
	}
	s.Base.Capture(ctx, "profile_page_loaded")
	return nil
}

func userInfo(ctx context.Context, s *executor.Session) error {
	p, err := onProfile(ctx, s)
	if err != nil {
		return err
	}
	name, err := p.DisplayName(ctx)
	if err != nil {
		return err
	}
	s.Log.Info("user name", zap.String("name", name))
	s.Base.Capture(ctx, "user_info")
	return nil
}

func bmiDisplayed(ctx context.Context, s *executor.Session) error {
	p, err := onProfile(ctx, s)
	if err != nil {
		return err
	}
	bmi, ok, err := p.BMI(ctx)
	if err != nil {
		return err
	}
	s.Base.Capture(ctx, "bmi_displayed")
	if !ok {
		s.Log.Info("bmi not filled in")
		return nil
	}
	return expect(bmi > 0 && bmi < maxBMI, "implausible BMI %.1f", bmi)
}

func caloriesGoal(ctx context.Context, s *executor.Session) error {
	p, err := onProfile(ctx, s)
	if err != nil {
		return err
	}
	goal, ok, err := p.DailyGoal(ctx)
	if err != nil {
		return err
	}
	s.Base.Capture(ctx, "calories_goal")
	if !ok || goal == 0 {
		s.Log.Info("calories goal not shown")
		return nil
	}
	return expect(goal >= minCalories && goal <= maxCalories, "implausible calories goal %d", goal)
}

func settingsButton(ctx context.Context, s *executor.Session) error {
	p, err := onProfile(ctx, s)
	if err != nil {
		return err
	}
	if err := p.ClickSettings(ctx); err != nil {
		return err
	}
	s.Base.Capture(ctx, "after_settings_click")
	return s.Base.Back(ctx)
}

func editProfile(ctx context.Context, s *executor.Session) error {
	p, err := onProfile(ctx, s)
	if err != nil {
		return err
	}
	if err := p.ClickEditProfile(ctx); err != nil {
		return err
	}
	s.Base.SettleNavigation(ctx)
	s.Base.Capture(ctx, "after_edit_click")
	return s.Base.Back(ctx)
}

func logout(ctx context.Context, s *executor.Session) error {
	p, err := onProfile(ctx, s)
	if err != nil {
		return err
	}
	if err := p.ScrollToLogout(ctx); err != nil {
		return err
	}
	signIn, err := p.Logout(ctx)
	if err != nil {
		return err
	}
	return expect(signIn.IsLoaded(ctx, 0), "logout did not return to sign in")
}
