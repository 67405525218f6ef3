package screens

import (
	"context"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// SignIn is the screen shown on launch.
type SignIn struct {
	*screen

	EmailInput           locator.Chain
	PasswordInput        locator.Chain
	LoginButton          locator.Chain
	RegisterButton       locator.Chain
	ForgotPasswordButton locator.Chain
	PasswordToggle       locator.Chain
	ErrorMessage         locator.Chain
}

func newSignIn(s *screen, c *catalog.Binder) *SignIn {
	return &SignIn{
		screen:               s,
		EmailInput:           c.Chain("email_input"),
		PasswordInput:        c.Chain("password_input"),
		LoginButton:          c.Chain("login_button"),
		RegisterButton:       c.Chain("register_button"),
		ForgotPasswordButton: c.Chain("forgot_password_button"),
		PasswordToggle:       c.Chain("password_toggle"),
		ErrorMessage:         c.Chain("error_message"),
	}
}

// EnterEmail replaces the email field content.
func (p *SignIn) EnterEmail(ctx context.Context, email string) error {
	return p.Type(ctx, p.EmailInput, email)
}

// EnterPassword replaces the password field content.
func (p *SignIn) EnterPassword(ctx context.Context, password string) error {
	return p.Type(ctx, p.PasswordInput, password)
}

// TogglePasswordVisibility taps the eye icon of the password field.
func (p *SignIn) TogglePasswordVisibility(ctx context.Context) error {
	return p.Click(ctx, p.PasswordToggle)
}

// ClearEmail empties the email field.
func (p *SignIn) ClearEmail(ctx context.Context) error {
	return p.Clear(ctx, p.EmailInput)
}

// LoginEnabled reports whether the login button accepts taps.
func (p *SignIn) LoginEnabled(ctx context.Context) (bool, error) {
	return p.IsEnabled(ctx, p.LoginButton)
}

// ClickLogin submits the form and waits for the screen transition.
func (p *SignIn) ClickLogin(ctx context.Context) error {
	if err := p.Click(ctx, p.LoginButton); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// ClickRegister opens the registration form.
func (p *SignIn) ClickRegister(ctx context.Context) (*Registration, error) {
	if err := p.Click(ctx, p.RegisterButton); err != nil {
		return nil, err
	}
	p.SettleNavigation(ctx)
	return p.app.Registration, nil
}

// ClickForgotPassword taps the forgot password button.
func (p *SignIn) ClickForgotPassword(ctx context.Context) error {
	return p.Click(ctx, p.ForgotPasswordButton)
}

// Login fills in the credentials and submits them. The returned Main is
// where a successful login lands.
func (p *SignIn) Login(ctx context.Context, email, password string) (*Main, error) {
	if err := p.EnterEmail(ctx, email); err != nil {
		return nil, err
	}
	if err := p.EnterPassword(ctx, password); err != nil {
		return nil, err
	}
	if err := p.ClickLogin(ctx); err != nil {
		return nil, err
	}
	p.Capture(ctx, "after_login")
	return p.app.Main, nil
}

// Error returns the validation error shown on the form, or "" when there is none.
func (p *SignIn) Error(ctx context.Context) (string, error) {
	return p.optionalText(ctx, p.ErrorMessage)
}
