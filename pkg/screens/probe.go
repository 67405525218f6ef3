package screens

import (
	"context"

	"github.com/devicelab-dev/pageflow/pkg/catalog"
	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// ElementProbe is the resolution record of one catalog element.
type ElementProbe struct {
	Element string
	Record  *locator.Record
}

// Probe resolves the given elements of a screen (all of them when none are
// named) and returns one record each, in element order. Misses are recorded,
// not returned; only a transport failure stops the probe.
func Probe(ctx context.Context, res *locator.Resolver, cat *catalog.Catalog, screen, platform string, elements ...string) ([]ElementProbe, error) {
	if len(elements) == 0 {
		names, err := cat.ElementNames(screen)
		if err != nil {
			return nil, err
		}
		elements = names
	}

	out := make([]ElementProbe, 0, len(elements))
	for _, el := range elements {
		chain, err := cat.Chain(screen, el, platform)
		if err != nil {
			return out, err
		}
		rec := res.Trace(ctx, chain, 0)
		out = append(out, ElementProbe{Element: el, Record: rec})
		if core.IsTransport(rec.Err) {
			return out, rec.Err
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}
