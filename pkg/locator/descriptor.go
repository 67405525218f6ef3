// Package locator models how UI elements are found: descriptors, ordered
// fallback chains, and the engine that resolves a chain against a live UI.
package locator

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy is a remote find strategy. The set is open: any value the
// automation backend understands can be used.
type Strategy string

// Strategies understood by Appium on both platforms or one of them.
const (
	AccessibilityID Strategy = "accessibility id"
	ElementID       Strategy = "id"
	XPath           Strategy = "xpath"
	ClassName       Strategy = "class name"
	TextMatch       Strategy = "text" // exact visible text, translated per platform by the driver
	UIAutomator     Strategy = "-android uiautomator"
	IOSPredicate    Strategy = "-ios predicate string"
	IOSClassChain   Strategy = "-ios class chain"
)

// ErrEmptyChain is returned when a chain is built without descriptors.
var ErrEmptyChain = errors.New("locator chain must contain at least one descriptor")

// Descriptor identifies one UI element to the automation backend.
// It is a comparable value type.
type Descriptor struct {
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	Value    string   `yaml:"value" json:"value"`
}

// By builds a descriptor.
func By(strategy Strategy, value string) Descriptor {
	return Descriptor{Strategy: strategy, Value: value}
}

// ByAccessibilityID builds an accessibility id descriptor.
func ByAccessibilityID(id string) Descriptor { return By(AccessibilityID, id) }

// ByID builds a resource/element id descriptor.
func ByID(id string) Descriptor { return By(ElementID, id) }

// ByXPath builds an xpath descriptor.
func ByXPath(expr string) Descriptor { return By(XPath, expr) }

// ByText builds an exact visible text descriptor.
func ByText(text string) Descriptor { return By(TextMatch, text) }

// String renders the descriptor for logs, e.g. accessibility id="login".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s=%q", d.Strategy, d.Value)
}

// Chain returns a chain holding only this descriptor, so a bare descriptor
// can be used anywhere a chain is accepted.
func (d Descriptor) Chain() Chain {
	return Chain{descriptors: []Descriptor{d}}
}

// Chain is an ordered, immutable list of alternative descriptors for the
// same logical element. The first descriptor is the preferred one.
type Chain struct {
	descriptors []Descriptor
}

// Target is anything that resolves through a chain: a Chain or a Descriptor.
type Target interface {
	Chain() Chain
}

// NewChain builds a chain in priority order.
func NewChain(descriptors ...Descriptor) (Chain, error) {
	if len(descriptors) == 0 {
		return Chain{}, ErrEmptyChain
	}
	for i, d := range descriptors {
		if d.Strategy == "" || d.Value == "" {
			return Chain{}, fmt.Errorf("descriptor %d: strategy and value are required", i)
		}
	}
	cp := make([]Descriptor, len(descriptors))
	copy(cp, descriptors)
	return Chain{descriptors: cp}, nil
}

// MustChain is NewChain for package-level declarations; it panics on error.
func MustChain(descriptors ...Descriptor) Chain {
	c, err := NewChain(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Chain implements Target.
func (c Chain) Chain() Chain { return c }

// Len returns the number of descriptors.
func (c Chain) Len() int { return len(c.descriptors) }

// IsZero reports whether the chain was never built.
func (c Chain) IsZero() bool { return len(c.descriptors) == 0 }

// At returns the i-th descriptor.
func (c Chain) At(i int) Descriptor { return c.descriptors[i] }

// Descriptors returns a copy of the descriptors in priority order.
func (c Chain) Descriptors() []Descriptor {
	cp := make([]Descriptor, len(c.descriptors))
	copy(cp, c.descriptors)
	return cp
}

// Equal reports whether both chains hold the same descriptors in the same order.
func (c Chain) Equal(other Chain) bool {
	if len(c.descriptors) != len(other.descriptors) {
		return false
	}
	for i := range c.descriptors {
		if c.descriptors[i] != other.descriptors[i] {
			return false
		}
	}
	return true
}

// String renders the chain as [a, b, ...].
func (c Chain) String() string {
	parts := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
