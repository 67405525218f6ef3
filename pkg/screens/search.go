package screens

import (
	"context"
	"time"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// resultsTimeout bounds WaitForResults when the caller passes 0.
const resultsTimeout = 10 * time.Second

// Search is the product search tab.
type Search struct {
	*screen

	SearchInput         locator.Chain
	ProductItem         locator.Chain
	ProductName         locator.Chain
	FavoriteButton      locator.Chain
	ScannerButton       locator.Chain
	CreateProductButton locator.Chain
	LoadingIndicator    locator.Chain
}

func newSearch(s *screen, c *catalog.Binder) *Search {
	return &Search{
		screen:              s,
		SearchInput:         c.Chain("search_input"),
		ProductItem:         c.Chain("product_item"),
		ProductName:         c.Chain("product_name"),
		FavoriteButton:      c.Chain("favorite_button"),
		ScannerButton:       c.Chain("scanner_button"),
		CreateProductButton: c.Chain("create_product_button"),
		LoadingIndicator:    c.Chain("loading_indicator"),
	}
}

// EnterQuery types the query and gives the search time to run.
func (p *Search) EnterQuery(ctx context.Context, query string) error {
	if err := p.Type(ctx, p.SearchInput, query); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// ClearQuery empties the search field. Typing a space in between makes the
// app notice the change. Only transport errors are returned.
func (p *Search) ClearQuery(ctx context.Context) error {
	steps := []func() error{
		func() error { return p.Clear(ctx, p.SearchInput) },
		func() error { return p.Type(ctx, p.SearchInput, " ") },
		func() error { return p.Clear(ctx, p.SearchInput) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			if core.IsTransport(err) {
				return err
			}
			return nil
		}
	}
	return nil
}

// WaitForResults waits for the loading indicator to go away (0 = 10s). When
// it never does, results count as loaded if a product is shown anyway.
func (p *Search) WaitForResults(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = resultsTimeout
	}
	if p.WaitUntilInvisible(ctx, p.LoadingIndicator, timeout) {
		return true
	}
	return p.IsVisible(ctx, p.ProductItem)
}

// ProductsCount returns the number of products listed.
func (p *Search) ProductsCount(ctx context.Context) int {
	return p.Count(ctx, p.ProductItem)
}

// ClickProduct opens the index-th product. It reports false when there is no such product.
func (p *Search) ClickProduct(ctx context.Context, index int) (bool, error) {
	ok, err := p.ClickNth(ctx, p.ProductItem, index)
	if ok {
		p.SettleNavigation(ctx)
	}
	return ok, err
}

// AddToFavorites taps the favorite toggle of the index-th product.
func (p *Search) AddToFavorites(ctx context.Context, index int) (bool, error) {
	return p.ClickNth(ctx, p.FavoriteButton, index)
}

// ClickScanner opens the barcode scanner.
func (p *Search) ClickScanner(ctx context.Context) error {
	if err := p.Click(ctx, p.ScannerButton); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// ClickCreateProduct opens the new product form.
func (p *Search) ClickCreateProduct(ctx context.Context) error {
	if err := p.Click(ctx, p.CreateProductButton); err != nil {
		return err
	}
	p.SettleNavigation(ctx)
	return nil
}

// SearchProduct runs a query, waits for the results and captures them. It
// returns the number of products found.
func (p *Search) SearchProduct(ctx context.Context, query string) (int, error) {
	if err := p.EnterQuery(ctx, query); err != nil {
		return 0, err
	}
	p.WaitForResults(ctx, 0)
	p.Capture(ctx, "search_results_"+query)
	return p.ProductsCount(ctx), nil
}
