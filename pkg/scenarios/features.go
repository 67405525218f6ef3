package scenarios

import (
	"context"

	"go.uber.org/zap"

	"github.com/devicelab-dev/pageflow/pkg/executor"
	"github.com/devicelab-dev/pageflow/pkg/screens"
)

func mainScenarios() []executor.Scenario {
	tags := []string{TagIntegration}
	return []executor.Scenario{
		{Name: "main_page_loaded", Tags: tags, Description: "The diary opens after sign in", Run: mainPageLoaded},
		{Name: "navigate_to_search", Tags: tags, Description: "The search tab opens", Run: navigateToSearch},
		{Name: "navigate_to_profile", Tags: tags, Description: "The profile tab opens", Run: navigateToProfile},
		{Name: "change_date", Tags: tags, Description: "The diary moves a day forward and back", Run: changeDate},
		{Name: "daily_calories_displayed", Tags: tags, Description: "Eaten calories are readable", Run: dailyCalories},
		{Name: "add_meal_button", Tags: tags, Description: "Add meal opens product search", Run: addMeal},
	}
}

func mainPageLoaded(ctx context.Context, s *executor.Session) error {
	if err := onMain(ctx, s); err != nil {
		return err
	}
	s.Base.Capture(ctx, "main_page")
	return nil
}

func navigateToSearch(ctx context.Context, s *executor.Session) error {
	if err := onMain(ctx, s); err != nil {
		return err
	}
	search, err := s.Main.NavigateToSearch(ctx)
	if err != nil {
		return err
	}
	if err := expect(search.IsLoaded(ctx, 0), "search screen did not load"); err != nil {
		return err
	}
	s.Base.Capture(ctx, "search_page")
	return nil
}

func navigateToProfile(ctx context.Context, s *executor.Session) error {
	if err := onMain(ctx, s); err != nil {
		return err
	}
	profile, err := s.Main.NavigateToProfile(ctx)
	if err != nil {
		return err
	}
	if err := expect(profile.IsLoaded(ctx, 0), "profile screen did not load"); err != nil {
		return err
	}
	s.Base.Capture(ctx, "profile_page")
	return nil
}

func changeDate(ctx context.Context, s *executor.Session) error {
	if err := onMain(ctx, s); err != nil {
		return err
	}
	steps := []struct {
		dir   screens.DateDirection
		label string
	}{
		{screens.NextDay, "after_next_date"},
		{screens.PrevDay, "after_prev_date"},
		{screens.NextDay, "back_to_today"},
	}
	s.Base.Capture(ctx, "before_date_change")
	for _, st := range steps {
		if err := s.Main.ChangeDate(ctx, st.dir); err != nil {
			return err
		}
		s.Base.Capture(ctx, st.label)
	}
	return nil
}

func dailyCalories(ctx context.Context, s *executor.Session) error {
	if err := onMain(ctx, s); err != nil {
		return err
	}
	calories, err := s.Main.DailyCaloriesValue(ctx)
	if err != nil {
		return err
	}
	s.Log.Info("daily calories", zap.Int("calories", calories))
	s.Base.Capture(ctx, "daily_calories")
	return expect(calories >= 0, "negative daily calories %d", calories)
}

func addMeal(ctx context.Context, s *executor.Session) error {
	if err := onMain(ctx, s); err != nil {
		return err
	}
	search, err := s.Main.ClickAddMeal(ctx)
	if err != nil {
		return err
	}
	if search.IsLoaded(ctx, 0) {
		s.Base.Capture(ctx, "search_after_add_meal")
	}
	return s.Base.Back(ctx)
}

var searchQueries = []string{"хлеб", "молоко", "рис", "курица"}

func searchScenarios() []executor.Scenario {
	tags := []string{TagIntegration}
	return []executor.Scenario{
		{Name: "search_page_loaded", Tags: tags, Description: "Product search opens", Run: searchPageLoaded},
		{Name: "search_products", Tags: tags, Description: "A query lists products", Run: searchProducts},
		{Name: "search_multiple_queries", Tags: tags, Description: "Several queries in a row", Run: searchMultipleQueries},
		{Name: "clear_search", Tags: tags, Description: "The query field can be emptied", Run: clearSearch},
	}
}

// onSearch opens the search tab of a signed in user.
func onSearch(ctx context.Context, s *executor.Session) (*screens.Search, error) {
	if s.Search.IsLoaded(ctx, shortWait) {
		return s.Search, nil
	}
	if err := onMain(ctx, s); err != nil {
		return nil, err
	}
	search, err := s.Main.NavigateToSearch(ctx)
	if err != nil {
		return nil, err
	}
	return search, expect(search.IsLoaded(ctx, 0), "search screen did not load")
}

func searchPageLoaded(ctx context.Context, s *executor.Session) error {
	if _, err := onSearch(ctx, s); err != nil {
		return err
	}
	s.Base.Capture(ctx, "search_page_loaded")
	return nil
}

func searchProducts(ctx context.Context, s *executor.Session) error {
	search, err := onSearch(ctx, s)
	if err != nil {
		return err
	}
	n, err := search.SearchProduct(ctx, "яблоко")
	if err != nil {
		return err
	}
	s.Log.Info("products found", zap.String("query", "яблоко"), zap.Int("count", n))
	return nil
}

func searchMultipleQueries(ctx context.Context, s *executor.Session) error {
	search, err := onSearch(ctx, s)
	if err != nil {
		return err
	}
	for _, q := range searchQueries {
		n, err := search.SearchProduct(ctx, q)
		if err != nil {
			return err
		}
		s.Log.Info("products found", zap.String("query", q), zap.Int("count", n))
	}
	return nil
}

func clearSearch(ctx context.Context, s *executor.Session) error {
	search, err := onSearch(ctx, s)
	if err != nil {
		return err
	}
	if err := search.EnterQuery(ctx, "тест"); err != nil {
		return err
	}
	s.Base.Capture(ctx, "before_clear")
	if err := search.ClearQuery(ctx); err != nil {
		return err
	}
	s.Base.Capture(ctx, "after_clear")
	return nil
}
