package executor

import (
	"path"
	"strings"
)

// Filter selects scenarios by name and tag. Empty fields select everything.
type Filter struct {
	// Names are exact scenario names or glob patterns (login_*).
	Names       []string
	IncludeTags []string // any of
	ExcludeTags []string // none of
}

// Match reports whether the filter selects sc.
func (f Filter) Match(sc Scenario) bool {
	for _, t := range f.ExcludeTags {
		if sc.HasTag(t) {
			return false
		}
	}
	if len(f.IncludeTags) > 0 {
		found := false
		for _, t := range f.IncludeTags {
			if sc.HasTag(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Names) == 0 {
		return true
	}
	for _, n := range f.Names {
		if n == sc.Name {
			return true
		}
		if strings.ContainsAny(n, "*?[") {
			if ok, err := path.Match(n, sc.Name); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Apply returns the selected scenarios in their original order.
func (f Filter) Apply(all []Scenario) []Scenario {
	var out []Scenario
	for _, sc := range all {
		if f.Match(sc) {
			out = append(out, sc)
		}
	}
	return out
}
