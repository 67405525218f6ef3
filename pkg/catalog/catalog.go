// Package catalog loads the locator catalog: for every screen and element,
// the descriptors to try on each platform, in priority order.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// PlatformDefault is the descriptor list used by platforms without their own.
const PlatformDefault = "default"

//go:embed default.yaml
var defaultYAML []byte

var (
	// ErrUnknownScreen is returned for a screen missing from the catalog.
	ErrUnknownScreen = errors.New("unknown screen")
	// ErrUnknownElement is returned for an element missing from its screen.
	ErrUnknownElement = errors.New("unknown element")
)

// Catalog is the parsed YAML document.
type Catalog struct {
	Version int               `yaml:"version"`
	Screens map[string]Screen `yaml:"screens"`
}

// Screen groups the elements of one page object.
type Screen struct {
	Description string `yaml:"description,omitempty"`
	// Identifier names the element whose visibility means the screen is loaded.
	Identifier string             `yaml:"identifier,omitempty"`
	Elements   map[string]Element `yaml:"elements"`
}

// Element maps a platform (android, ios, default) to its descriptors.
type Element map[string][]locator.Descriptor

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the built-in catalog. The result is shared; use Merge to
// derive a modified copy.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(defaultYAML)
	})
	return defaultCat, defaultErr
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Screens == nil {
		c.Screens = map[string]Screen{}
	}
	return &c, nil
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided catalog file
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load returns the built-in catalog with the file at path merged over it.
// An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return base, nil
	}
	over, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return base.Merge(over), nil
}

// Merge returns a new catalog with over applied on top of c. Descriptor lists
// are replaced per (screen, element, platform), never concatenated, so an
// override fully controls the order it states.
func (c *Catalog) Merge(over *Catalog) *Catalog {
	out := &Catalog{Version: c.Version, Screens: make(map[string]Screen, len(c.Screens))}
	for name, s := range c.Screens {
		out.Screens[name] = s.clone()
	}
	if over == nil {
		return out
	}
	if over.Version != 0 {
		out.Version = over.Version
	}
	for name, o := range over.Screens {
		s, ok := out.Screens[name]
		if !ok {
			s = Screen{Elements: map[string]Element{}}
		}
		if o.Description != "" {
			s.Description = o.Description
		}
		if o.Identifier != "" {
			s.Identifier = o.Identifier
		}
		for el, platforms := range o.Elements {
			merged := s.Elements[el]
			if merged == nil {
				merged = Element{}
			}
			for p, ds := range platforms {
				merged[p] = append([]locator.Descriptor(nil), ds...)
			}
			s.Elements[el] = merged
		}
		out.Screens[name] = s
	}
	return out
}

func (s Screen) clone() Screen {
	cp := Screen{Description: s.Description, Identifier: s.Identifier, Elements: make(map[string]Element, len(s.Elements))}
	for name, el := range s.Elements {
		e := make(Element, len(el))
		for p, ds := range el {
			e[p] = append([]locator.Descriptor(nil), ds...)
		}
		cp.Elements[name] = e
	}
	return cp
}

// Descriptors returns the descriptor list for platform, falling back to the
// default list.
func (e Element) Descriptors(platform string) []locator.Descriptor {
	if ds, ok := e[platform]; ok && len(ds) > 0 {
		return ds
	}
	return e[PlatformDefault]
}

// Chain builds the locator chain of screen.element on platform.
func (c *Catalog) Chain(screen, element, platform string) (locator.Chain, error) {
	s, ok := c.Screens[screen]
	if !ok {
		return locator.Chain{}, fmt.Errorf("%w %q", ErrUnknownScreen, screen)
	}
	el, ok := s.Elements[element]
	if !ok {
		return locator.Chain{}, fmt.Errorf("%w %s.%s", ErrUnknownElement, screen, element)
	}
	chain, err := locator.NewChain(el.Descriptors(platform)...)
	if err != nil {
		return locator.Chain{}, fmt.Errorf("%s.%s on %s: %w", screen, element, platform, err)
	}
	return chain, nil
}

// ScreenNames returns the screen names, sorted.
func (c *Catalog) ScreenNames() []string {
	names := make([]string, 0, len(c.Screens))
	for name := range c.Screens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ElementNames returns the element names of a screen, sorted.
func (c *Catalog) ElementNames(screen string) ([]string, error) {
	s, ok := c.Screens[screen]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownScreen, screen)
	}
	names := make([]string, 0, len(s.Elements))
	for name := range s.Elements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Bind returns a Binder for one screen and platform.
func (c *Catalog) Bind(screen, platform string) *Binder {
	return &Binder{cat: c, screen: screen, platform: platform}
}

// Binder builds the chains of one screen. The first error is kept and later
// calls return zero chains, so a page object can bind all its elements and
// check Err once.
type Binder struct {
	cat      *Catalog
	screen   string
	platform string
	err      error
}

// Chain returns the chain of element, or a zero chain after an error.
func (b *Binder) Chain(element string) locator.Chain {
	if b.err != nil {
		return locator.Chain{}
	}
	chain, err := b.cat.Chain(b.screen, element, b.platform)
	if err != nil {
		b.err = err
	}
	return chain
}

// Err returns the first binding error.
func (b *Binder) Err() error { return b.err }
