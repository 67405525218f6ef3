package scenarios

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/executor"
	"github.com/devicelab-dev/pageflow/pkg/screens"
)

const (
	wrongPassword = "wrong_password_12345"
	unknownEmail  = "nonexistent@example.com"
	formEmail     = "test@example.com"
	formPassword  = "password123"
	toggleDelay   = 500 * time.Millisecond
)

func authScenarios() []executor.Scenario {
	return []executor.Scenario{
		{
			Name:        "sign_in_page_loaded",
			Tags:        []string{TagSmoke},
			Description: "The app opens on the sign in screen",
			Run:         signInPageLoaded,
		},
		{
			Name:        "locator_probe",
			Tags:        []string{TagSmoke},
			Description: "Reports which descriptor of every sign in element matches",
			Run:         locatorProbe,
		},
		{
			Name:        "navigate_to_registration",
			Tags:        []string{TagSmoke},
			Description: "Sign in to registration and back",
			Run:         navigateToRegistration,
		},
		{
			Name:        "login_wrong_password",
			Tags:        []string{TagSmoke},
			Description: "A wrong password keeps the user on sign in",
			Run: func(ctx context.Context, s *executor.Session) error {
				return rejectedLogin(ctx, s, s.User.Email, wrongPassword)
			},
		},
		{
			Name:        "login_wrong_email",
			Tags:        []string{TagSmoke},
			Description: "An unknown email keeps the user on sign in",
			Run: func(ctx context.Context, s *executor.Session) error {
				return rejectedLogin(ctx, s, unknownEmail, s.User.Password)
			},
		},
		{
			Name:        "password_visibility_toggle",
			Tags:        []string{TagSmoke, TagRegression},
			Description: "The eye icon shows and hides the password",
			Run:         passwordVisibilityToggle,
		},
		{
			Name:        "sign_in_form_validation",
			Tags:        []string{TagSmoke, TagRegression},
			Description: "Login is refused until an email is entered",
			Run:         signInFormValidation,
		},
		{
			Name:        "forgot_password",
			Tags:        []string{TagSmoke},
			Description: "The forgot password button responds",
			Run:         forgotPassword,
		},
		{
			Name:        "registration_and_login",
			Tags:        []string{TagIntegration},
			Description: "A new user registers and lands in the app",
			Run:         registrationAndLogin,
		},
		{
			Name:        "login_existing_user",
			Tags:        []string{TagSmoke},
			Description: "The configured user signs in",
			Run:         loginExistingUser,
		},
	}
}

func signInPageLoaded(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	s.Base.Capture(ctx, "sign_in_page_loaded")
	return nil
}

// locatorProbe never fails on a miss; it only reports.
func locatorProbe(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	probes, err := screens.Probe(ctx, s.Base.Resolver(), s.Catalog, screens.SignInScreen, s.Base.Platform())
	for _, p := range probes {
		rec := p.Record
		if rec.Matched < 0 {
			s.Log.Warn("no descriptor matched",
				zap.String("element", p.Element),
				zap.Stringer("chain", rec.Chain))
			continue
		}
		s.Log.Info("element resolved",
			zap.String("element", p.Element),
			zap.Stringer("descriptor", rec.Chain.At(rec.Matched)),
			zap.Int("position", rec.Matched),
			zap.Int("attempts", len(rec.Attempts)))
	}
	s.Base.Capture(ctx, "locator_probe")
	return err
}

func navigateToRegistration(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	reg, err := s.SignIn.ClickRegister(ctx)
	if err != nil {
		return err
	}
	if err := expect(reg.IsLoaded(ctx, 0), "registration screen did not load"); err != nil {
		return err
	}
	s.Base.Capture(ctx, "registration_page")

	signIn, err := reg.ClickBack(ctx)
	if err != nil {
		return err
	}
	return expect(signIn.IsLoaded(ctx, 0), "could not return to sign in")
}

func rejectedLogin(ctx context.Context, s *executor.Session, email, password string) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	if _, err := s.SignIn.Login(ctx, email, password); err != nil {
		return err
	}
	if err := expect(s.SignIn.IsLoaded(ctx, 0), "signed in with %s and a wrong password", email); err != nil {
		return err
	}
	msg, err := s.SignIn.Error(ctx)
	if err != nil {
		return err
	}
	s.Log.Info("login rejected", zap.String("message", msg))
	return nil
}

func passwordVisibilityToggle(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	if err := s.SignIn.EnterPassword(ctx, "testpassword123"); err != nil {
		return err
	}
	s.Base.Capture(ctx, "password_hidden")

	for _, label := range []string{"password_visible", "password_hidden_again"} {
		if err := s.SignIn.TogglePasswordVisibility(ctx); err != nil {
			return err
		}
		s.Base.Settle(ctx, toggleDelay)
		s.Base.Capture(ctx, label)
	}
	return nil
}

// signInFormValidation accepts either way the app may refuse an empty email:
// a disabled or missing login button, or an error message.
func signInFormValidation(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	if err := s.SignIn.ClearEmail(ctx); err != nil {
		return err
	}
	if err := s.SignIn.EnterPassword(ctx, formPassword); err != nil {
		return err
	}
	s.Base.Capture(ctx, "empty_email")

	enabled, err := s.SignIn.LoginEnabled(ctx)
	switch {
	case errors.Is(err, core.ErrChainExhausted):
	case err != nil:
		return err
	case enabled:
		msg, err := s.SignIn.Error(ctx)
		if err != nil {
			return err
		}
		if err := expect(msg != "", "login button enabled with an empty email and no error shown"); err != nil {
			return err
		}
	}

	if err := s.SignIn.EnterEmail(ctx, formEmail); err != nil {
		return err
	}
	s.Base.Capture(ctx, "form_filled")
	enabled, err = s.SignIn.LoginEnabled(ctx)
	if err != nil {
		return err
	}
	return expect(enabled, "login button disabled with the form filled")
}

func forgotPassword(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	if err := s.SignIn.ClickForgotPassword(ctx); err != nil {
		return err
	}
	s.Base.SettleNavigation(ctx)
	s.Base.Capture(ctx, "forgot_password_clicked")

	// Whatever opened is dismissed so the next scenario starts on sign in.
	if !s.SignIn.IsLoaded(ctx, shortWait) {
		return s.Base.Back(ctx)
	}
	return nil
}

// registrationAndLogin passes once the form is submitted: depending on the
// backend the app lands on main or on profile setup.
func registrationAndLogin(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	reg, err := s.SignIn.ClickRegister(ctx)
	if err != nil {
		return err
	}
	if err := expect(reg.IsLoaded(ctx, 0), "registration screen did not load"); err != nil {
		return err
	}

	user := NewTestUser()
	s.Log.Info("registering", zap.String("email", user.Email))
	home, err := reg.Register(ctx, user.Name, user.Email, user.Password)
	if err != nil {
		return err
	}
	if home.IsLoaded(ctx, 0) {
		s.Base.Capture(ctx, "after_registration_main_screen")
		return nil
	}
	msg, err := reg.Error(ctx)
	if err != nil {
		return err
	}
	s.Log.Warn("registration did not land on main", zap.String("message", msg))
	return nil
}

func loginExistingUser(ctx context.Context, s *executor.Session) error {
	if err := onSignIn(ctx, s); err != nil {
		return err
	}
	if _, err := s.SignIn.Login(ctx, s.User.Email, s.User.Password); err != nil {
		return err
	}

	if !s.Base.WaitUntilInvisible(ctx, s.SignIn.LoginButton, shortWait) {
		msg, err := s.SignIn.Error(ctx)
		if err != nil {
			return err
		}
		if msg == "" {
			msg = "no error shown"
		}
		return expect(false, "login as %s failed: %s", s.User.Email, msg)
	}
	if s.Main.IsLoaded(ctx, mainWait) {
		s.Base.Capture(ctx, "main_screen_loaded")
	} else {
		s.Log.Info("signed in, but the main screen differs from the catalog")
	}
	return nil
}
