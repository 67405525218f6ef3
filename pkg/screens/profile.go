package screens

import (
	"context"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// Profile is the profile tab.
type Profile struct {
	*screen

	EditProfileButton   locator.Chain
	SettingsButton      locator.Chain
	LogoutButton        locator.Chain
	LogoutConfirmButton locator.Chain
	UserName            locator.Chain
	BMIValue            locator.Chain
	CaloriesGoal        locator.Chain
}

func newProfile(s *screen, c *catalog.Binder) *Profile {
	return &Profile{
		screen:              s,
		EditProfileButton:   c.Chain("edit_profile_button"),
		SettingsButton:      c.Chain("settings_button"),
		LogoutButton:        c.Chain("logout_button"),
		LogoutConfirmButton: c.Chain("logout_confirm_button"),
		UserName:            c.Chain("user_name"),
		BMIValue:            c.Chain("bmi_value"),
		CaloriesGoal:        c.Chain("calories_goal"),
	}
}

// ClickEditProfile opens the profile editor.
func (p *Profile) ClickEditProfile(ctx context.Context) error {
	return p.Click(ctx, p.EditProfileButton)
}

// ClickSettings opens the settings screen.
func (p *Profile) ClickSettings(ctx context.Context) error {
	if err := p.Click(ctx, p.SettingsButton); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// Logout taps logout and confirms the dialog when one is shown.
func (p *Profile) Logout(ctx context.Context) (*SignIn, error) {
	if err := p.Click(ctx, p.LogoutButton); err != nil {
		return nil, err
	}
	if p.IsVisible(ctx, p.LogoutConfirmButton) {
		if err := p.Click(ctx, p.LogoutConfirmButton); err != nil {
			return nil, err
		}
	}
	p.SettleNavigation(ctx)
	return p.app.SignIn, nil
}

// ScrollToLogout swipes up to bring the logout button on screen.
func (p *Profile) ScrollToLogout(ctx context.Context) error {
	return p.SwipeUp(ctx)
}

// DisplayName returns the displayed user name, "" when not set up yet.
func (p *Profile) DisplayName(ctx context.Context) (string, error) {
	return p.optionalText(ctx, p.UserName)
}

// BMI returns the body mass index; ok is false when it is not filled in.
func (p *Profile) BMI(ctx context.Context) (bmi float64, ok bool, err error) {
	text, err := p.optionalText(ctx, p.BMIValue)
	if err != nil {
		return 0, false, err
	}
	bmi, ok = firstFloat(text)
	return bmi, ok, nil
}

// DailyGoal returns the daily calories goal; ok is false when it is not shown.
func (p *Profile) DailyGoal(ctx context.Context) (goal int, ok bool, err error) {
	text, err := p.optionalText(ctx, p.CaloriesGoal)
	if err != nil {
		return 0, false, err
	}
	goal, ok = firstInt(text)
	return goal, ok, nil
}
