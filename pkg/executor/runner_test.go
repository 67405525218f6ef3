package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/pageflow/pkg/config"
	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/driver/mock"
	"github.com/devicelab-dev/pageflow/pkg/page"
	"github.com/devicelab-dev/pageflow/pkg/screens"
)

var errAssert = core.ErrConditionNotMet.WithMessage("still on sign in")

func testConfig(t *testing.T) Config {
	return Config{
		ArtifactDir: t.TempDir(),
		Artifacts:   core.DefaultArtifactConfig(),
		Timeouts:    page.Timeouts{Explicit: 200 * time.Millisecond, Attempt: 20 * time.Millisecond, Poll: 10 * time.Millisecond},
	}
}

func opener(d *mock.Driver) Opener {
	return func(context.Context) (Device, error) { return d, nil }
}

func pass(name string, tags ...string) Scenario {
	return Scenario{Name: name, Tags: tags, Run: func(context.Context, *Session) error { return nil }}
}

func fail(name string, err error) Scenario {
	return Scenario{Name: name, Run: func(context.Context, *Session) error { return err }}
}

func names(as []core.Attachment) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}

func statuses(s *core.SuiteResult) []core.Status {
	out := make([]core.Status, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		out = append(out, sc.Status)
	}
	return out
}

func TestRunner_Run_AllPassed(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{
		pass("sign_in_page_loaded"),
		pass("navigate_to_registration"),
	})
	require.NoError(t, err)

	assert.Equal(t, "pageflow", suite.Name)
	_, err = uuid.Parse(suite.RunID)
	assert.NoError(t, err, "run id should be a uuid")
	assert.Equal(t, core.PlatformAndroid, suite.PlatformInfo.Platform)
	assert.Equal(t, 2, suite.Total)
	assert.Equal(t, 2, suite.Passed)
	assert.True(t, suite.Success())
	assert.Equal(t, []string{"sign_in_page_loaded_start", "sign_in_page_loaded_end"}, names(suite.Scenarios[0].Attachments))
	assert.Equal(t, 1, d.CallCount("Close"), "one session per run")
}

func TestRunner_Run_AssertionFails(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{
		fail("login_wrong_password", errAssert),
		pass("forgot_password"),
	})
	require.NoError(t, err)

	res := suite.Scenarios[0]
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.Equal(t, core.ErrCategoryAssertion, res.Category)
	assert.Equal(t, "still on sign in", res.Message)
	assert.Equal(t, []string{"login_wrong_password_start", "failure_login_wrong_password", "login_wrong_password_end"}, names(res.Attachments))
	assert.Equal(t, core.StatusPassed, suite.Scenarios[1].Status, "a failed assertion does not stop the run")
	assert.False(t, suite.Success())
}

func TestRunner_Run_ResolutionFailureFails(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{{
		Name: "login",
		Run: func(ctx context.Context, s *Session) error {
			_, err := s.SignIn.Login(ctx, s.User.Email, s.User.Password)
			return err
		},
	}})
	require.NoError(t, err)

	res := suite.Scenarios[0]
	assert.Equal(t, core.StatusFailed, res.Status)
	assert.Contains(t, res.Error, "email")
}

func TestRunner_Run_TransportErrorSkipsRest(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{
		pass("first"),
		{
			Name: "main_page_loaded",
			Run: func(ctx context.Context, s *Session) error {
				d.FailWith("FindOne", core.ErrServerUnreachable)
				return s.Main.ChangeDate(ctx, screens.NextDay)
			},
		},
		pass("third"),
		pass("fourth"),
	})
	require.NoError(t, err)

	assert.Equal(t, []core.Status{core.StatusPassed, core.StatusErrored, core.StatusSkipped, core.StatusSkipped}, statuses(suite))
	assert.Equal(t, core.ErrCategoryConnection, suite.Scenarios[1].Category)
	assert.Equal(t, "session lost in main_page_loaded", suite.Scenarios[2].Message)
	assert.Empty(t, suite.Scenarios[2].Attachments)
	assert.Equal(t, 1, suite.Errored)
	assert.Equal(t, 2, suite.Skipped)
}

func TestRunner_Run_AppErrorContinues(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{
		fail("crash", core.ErrAppCrashed),
		pass("after"),
	})
	require.NoError(t, err)
	assert.Equal(t, []core.Status{core.StatusErrored, core.StatusPassed}, statuses(suite))
}

func TestRunner_Run_StopOnFail(t *testing.T) {
	d := mock.New(mock.Config{})
	cfg := testConfig(t)
	cfg.StopOnFail = true
	suite, err := New(opener(d), cfg).Run(context.Background(), []Scenario{
		pass("a"),
		fail("b", errAssert),
		pass("c"),
	})
	require.NoError(t, err)
	assert.Equal(t, []core.Status{core.StatusPassed, core.StatusFailed, core.StatusSkipped}, statuses(suite))
	assert.Equal(t, "stopped after b failed", suite.Scenarios[2].Message)
}

func TestRunner_Run_Panic(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{{
		Name: "boom",
		Run:  func(context.Context, *Session) error { panic("nil page") },
	}})
	require.NoError(t, err)
	assert.Equal(t, core.StatusErrored, suite.Scenarios[0].Status)
	assert.Contains(t, suite.Scenarios[0].Error, "nil page")
}

func TestRunner_Run_Cancelled(t *testing.T) {
	d := mock.New(mock.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	suite, err := New(opener(d), testConfig(t)).Run(ctx, []Scenario{
		{Name: "a", Run: func(context.Context, *Session) error { cancel(); return nil }},
		pass("b"),
	})
	require.NoError(t, err)
	assert.Equal(t, []core.Status{core.StatusPassed, core.StatusSkipped}, statuses(suite))
	assert.Equal(t, "run cancelled", suite.Scenarios[1].Message)
}

func TestRunner_Run_Filter(t *testing.T) {
	d := mock.New(mock.Config{})
	cfg := testConfig(t)
	cfg.Filter = Filter{IncludeTags: []string{"smoke"}}

	var started []string
	cfg.OnScenarioStart = func(_, total int, name string) {
		assert.Equal(t, 2, total)
		started = append(started, name)
	}
	suite, err := New(opener(d), cfg).Run(context.Background(), []Scenario{
		pass("a", "smoke"),
		pass("b", "integration"),
		pass("c", "smoke", "regression"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, started)
	assert.Equal(t, 2, suite.Total)
}

func TestRunner_Run_NothingSelected(t *testing.T) {
	opened := false
	cfg := testConfig(t)
	cfg.Filter = Filter{Names: []string{"missing"}}
	_, err := New(func(context.Context) (Device, error) {
		opened = true
		return mock.New(mock.Config{}), nil
	}, cfg).Run(context.Background(), []Scenario{pass("a")})

	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
	assert.False(t, opened, "no session for an empty selection")
}

func TestRunner_Run_OpenFails(t *testing.T) {
	_, err := New(func(context.Context) (Device, error) {
		return nil, core.ErrSessionNotCreated
	}, testConfig(t)).Run(context.Background(), []Scenario{pass("a")})
	assert.True(t, errors.Is(err, core.ErrSessionNotCreated))
}

func TestRunner_Run_ArtifactsDisabled(t *testing.T) {
	d := mock.New(mock.Config{})
	cfg := testConfig(t)
	cfg.Artifacts = core.ArtifactConfig{}
	suite, err := New(opener(d), cfg).Run(context.Background(), []Scenario{fail("a", errAssert)})
	require.NoError(t, err)
	assert.Empty(t, suite.Scenarios[0].Attachments)
	assert.Zero(t, d.CallCount("Screenshot"))
}

func TestRunner_Run_FailureOnlyCapture(t *testing.T) {
	d := mock.New(mock.Config{})
	cfg := testConfig(t)
	cfg.Artifacts.CaptureCheckpoints = false
	suite, err := New(opener(d), cfg).Run(context.Background(), []Scenario{
		{
			Name: "login",
			Run: func(ctx context.Context, s *Session) error {
				s.Base.Capture(ctx, "after_login")
				return errAssert
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"failure_login"}, names(suite.Scenarios[0].Attachments))
}

func TestRunner_Run_PageCapturesAreAttached(t *testing.T) {
	d := mock.New(mock.Config{})
	suite, err := New(opener(d), testConfig(t)).Run(context.Background(), []Scenario{{
		Name: "search",
		Run: func(ctx context.Context, s *Session) error {
			s.Base.Capture(ctx, "search_results_хлеб")
			return nil
		},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"search_start", "search_results_хлеб", "search_end"}, names(suite.Scenarios[0].Attachments))
}

func TestTimeoutsFrom(t *testing.T) {
	got := TimeoutsFrom(config.Timeouts{
		Explicit:   time.Second,
		Attempt:    2 * time.Second,
		Settle:     3 * time.Second,
		Navigation: 4 * time.Second,
		Poll:       5 * time.Second,
	})
	assert.Equal(t, page.Timeouts{Explicit: time.Second, Attempt: 2 * time.Second, Settle: 3 * time.Second, Navigation: 4 * time.Second, Poll: 5 * time.Second}, got)
}
