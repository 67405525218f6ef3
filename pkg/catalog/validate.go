package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Screen   string
	Element  string
	Platform string
	Message  string
}

func (i Issue) String() string {
	where := i.Screen
	if i.Element != "" {
		where += "." + i.Element
	}
	if i.Platform != "" {
		where += "[" + i.Platform + "]"
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, where, i.Message)
}

// Result collects validation issues.
type Result struct {
	Issues []Issue
}

// Errors returns only the error-severity issues.
func (r Result) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns only the warning-severity issues.
func (r Result) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Result) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Err joins the error-severity issues into a config error, or returns nil.
func (r Result) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	joined := make([]error, len(errs))
	for i, issue := range errs {
		joined[i] = errors.New(issue.String())
	}
	return core.ErrInvalidConfig.
		WithMessage(fmt.Sprintf("catalog has %d error(s)", len(errs))).
		WithCause(errors.Join(joined...))
}

var knownPlatforms = map[string]bool{
	PlatformDefault:      true,
	core.PlatformAndroid: true,
	core.PlatformIOS:     true,
}

// stability ranks strategies from most stable (0) to most brittle. Unknown
// strategies are not ranked.
var stability = map[locator.Strategy]int{
	locator.AccessibilityID: 0,
	locator.ElementID:       1,
	locator.UIAutomator:     2,
	locator.IOSClassChain:   2,
	locator.IOSPredicate:    2,
	locator.ClassName:       3,
	locator.XPath:           3,
	locator.TextMatch:       4,
}

// Validate checks the catalog. Errors make a catalog unusable: missing
// identifier elements, unknown platforms, empty lists or blank descriptors.
// Warnings flag chains that put a brittle descriptor ahead of a more stable
// one, which breaks the stable-first ordering.
func (c *Catalog) Validate() Result {
	var res Result
	add := func(sev Severity, screen, element, platform, format string, args ...interface{}) {
		res.Issues = append(res.Issues, Issue{
			Severity: sev, Screen: screen, Element: element, Platform: platform,
			Message: fmt.Sprintf(format, args...),
		})
	}

	for _, screen := range c.ScreenNames() {
		s := c.Screens[screen]
		if len(s.Elements) == 0 {
			add(SeverityError, screen, "", "", "screen has no elements")
			continue
		}
		if s.Identifier != "" {
			if _, ok := s.Elements[s.Identifier]; !ok {
				add(SeverityError, screen, "", "", "identifier %q is not an element of the screen", s.Identifier)
			}
		}

		elements, _ := c.ElementNames(screen)
		for _, name := range elements {
			el := s.Elements[name]
			platforms := make([]string, 0, len(el))
			for p := range el {
				platforms = append(platforms, p)
			}
			sort.Strings(platforms)

			for _, p := range platforms {
				ds := el[p]
				if !knownPlatforms[p] {
					add(SeverityError, screen, name, p, "unknown platform (want android, ios or default)")
					continue
				}
				if len(ds) == 0 {
					add(SeverityError, screen, name, p, "empty descriptor list")
					continue
				}
				for i, d := range ds {
					if d.Strategy == "" || strings.TrimSpace(d.Value) == "" {
						add(SeverityError, screen, name, p, "descriptor %d: strategy and value are required", i)
					}
					if d.Strategy == locator.XPath && !looksLikeXPath(d.Value) {
						add(SeverityError, screen, name, p, "descriptor %d: %q is not an xpath expression", i, d.Value)
					}
				}
				if i, j, ok := orderViolation(ds); ok {
					add(SeverityWarning, screen, name, p, "%s at position %d is more stable than %s at position %d", ds[j].Strategy, j, ds[i].Strategy, i)
				}
			}

			for _, p := range []string{core.PlatformAndroid, core.PlatformIOS} {
				if len(el.Descriptors(p)) == 0 {
					add(SeverityWarning, screen, name, p, "no descriptors for platform")
				}
			}
		}
	}
	return res
}

// orderViolation finds the first pair i < j where ds[j] is ranked more stable
// than ds[i].
func orderViolation(ds []locator.Descriptor) (int, int, bool) {
	for j := 1; j < len(ds); j++ {
		rj, ok := stability[ds[j].Strategy]
		if !ok {
			continue
		}
		for i := 0; i < j; i++ {
			if ri, ok := stability[ds[i].Strategy]; ok && rj < ri {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func looksLikeXPath(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, "/") || strings.HasPrefix(v, "(") || strings.HasPrefix(v, ".")
}
