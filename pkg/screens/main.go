package screens

import (
	"context"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// DateDirection selects the diary day.
type DateDirection int

const (
	NextDay DateDirection = iota
	PrevDay
)

// mealsLoadTimeout bounds WaitForMealsLoaded when the caller passes 0.
const mealsLoadTimeout = 20 * time.Second

// Main is the home tab with the daily meal diary.
type Main struct {
	*screen

	AddMealButton  locator.Chain
	DatePrevButton locator.Chain
	DateNextButton locator.Chain
	MealCard       locator.Chain
	DailyCalories  locator.Chain
	ProfileTab     locator.Chain
	SearchTab      locator.Chain
	HomeTab        locator.Chain
}

func newMain(s *screen, c *catalog.Binder) *Main {
	return &Main{
		screen:         s,
		AddMealButton:  c.Chain("add_meal_button"),
		DatePrevButton: c.Chain("date_prev_button"),
		DateNextButton: c.Chain("date_next_button"),
		MealCard:       c.Chain("meal_card"),
		DailyCalories:  c.Chain("daily_calories"),
		ProfileTab:     c.Chain("profile_tab"),
		SearchTab:      c.Chain("search_tab"),
		HomeTab:        c.Chain("home_tab"),
	}
}

// ClickAddMeal opens product search for a new meal.
func (p *Main) ClickAddMeal(ctx context.Context) (*Search, error) {
	if err := p.Click(ctx, p.AddMealButton); err != nil {
		return nil, err
	}
	p.SettleNavigation(ctx)
	return p.app.Search, nil
}

// ChangeDate moves the diary one day.
func (p *Main) ChangeDate(ctx context.Context, dir DateDirection) error {
	target := p.DateNextButton
	if dir == PrevDay {
		target = p.DatePrevButton
	}
	return p.Click(ctx, target)
}

// DailyCaloriesValue returns the calories eaten today, 0 when not shown.
func (p *Main) DailyCaloriesValue(ctx context.Context) (int, error) {
	text, err := p.optionalText(ctx, p.DailyCalories)
	if err != nil {
		return 0, err
	}
	n, _ := firstInt(text)
	return n, nil
}

// MealsCount returns the number of meal cards of the day.
func (p *Main) MealsCount(ctx context.Context) int {
	return p.Count(ctx, p.MealCard)
}

// ClickMealCard opens the index-th meal. It reports false when there is no such card.
func (p *Main) ClickMealCard(ctx context.Context, index int) (bool, error) {
	ok, err := p.ClickNth(ctx, p.MealCard, index)
	if ok {
		p.SettleNavigation(ctx)
	}
	return ok, err
}

// NavigateToProfile opens the profile tab.
func (p *Main) NavigateToProfile(ctx context.Context) (*Profile, error) {
	if err := p.tab(ctx, p.ProfileTab); err != nil {
		return nil, err
	}
	return p.app.Profile, nil
}

// NavigateToSearch opens the search tab.
func (p *Main) NavigateToSearch(ctx context.Context) (*Search, error) {
	if err := p.tab(ctx, p.SearchTab); err != nil {
		return nil, err
	}
	return p.app.Search, nil
}

// NavigateToHome opens the home tab.
func (p *Main) NavigateToHome(ctx context.Context) (*Main, error) {
	if err := p.tab(ctx, p.HomeTab); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Main) tab(ctx context.Context, t locator.Chain) error {
	if err := p.Click(ctx, t); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// WaitForMealsLoaded waits for the diary to render (0 = 20s).
func (p *Main) WaitForMealsLoaded(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = mealsLoadTimeout
	}
	return p.AssertVisible(ctx, p.AddMealButton, timeout)
}
