package screens

import (
	"context"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// Registration is the account creation form.
type Registration struct {
	*screen

	NameInput            locator.Chain
	EmailInput           locator.Chain
	PasswordInput        locator.Chain
	ConfirmPasswordInput locator.Chain
	CreateAccountButton  locator.Chain
	BackButton           locator.Chain
	ErrorMessage         locator.Chain
}

func newRegistration(s *screen, c *catalog.Binder) *Registration {
	return &Registration{
		screen:               s,
		NameInput:            c.Chain("name_input"),
		EmailInput:           c.Chain("email_input"),
		PasswordInput:        c.Chain("password_input"),
		ConfirmPasswordInput: c.Chain("confirm_password_input"),
		CreateAccountButton:  c.Chain("create_account_button"),
		BackButton:           c.Chain("back_button"),
		ErrorMessage:         c.Chain("error_message"),
	}
}

// EnterName replaces the name field content.
func (p *Registration) EnterName(ctx context.Context, name string) error {
	return p.Type(ctx, p.NameInput, name)
}

// EnterEmail replaces the email field content.
func (p *Registration) EnterEmail(ctx context.Context, email string) error {
	return p.Type(ctx, p.EmailInput, email)
}

// EnterPassword replaces the password field content.
func (p *Registration) EnterPassword(ctx context.Context, password string) error {
	return p.Type(ctx, p.PasswordInput, password)
}

// EnterConfirmPassword replaces the password confirmation field content.
func (p *Registration) EnterConfirmPassword(ctx context.Context, password string) error {
	return p.Type(ctx, p.ConfirmPasswordInput, password)
}

// ClickCreateAccount submits the form and waits for the screen transition.
func (p *Registration) ClickCreateAccount(ctx context.Context) error {
	if err := p.Click(ctx, p.CreateAccountButton); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// ClickBack returns to sign in.
func (p *Registration) ClickBack(ctx context.Context) (*SignIn, error) {
	if err := p.Click(ctx, p.BackButton); err != nil {
		return nil, err
	}
	p.SettleNavigation(ctx)
	return p.app.SignIn, nil
}

// Register fills in the whole form, confirming the password, and submits it.
func (p *Registration) Register(ctx context.Context, name, email, password string) (*Main, error) {
	steps := []func() error{
		func() error { return p.EnterName(ctx, name) },
		func() error { return p.EnterEmail(ctx, email) },
		func() error { return p.EnterPassword(ctx, password) },
		func() error { return p.EnterConfirmPassword(ctx, password) },
		func() error { return p.ClickCreateAccount(ctx) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	p.Capture(ctx, "after_registration")
	return p.app.Main, nil
}

// Error returns the validation error shown on the form, or "" when there is none.
func (p *Registration) Error(ctx context.Context) (string, error) {
	return p.optionalText(ctx, p.ErrorMessage)
}
