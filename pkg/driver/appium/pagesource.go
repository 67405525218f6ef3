package appium

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/devicelab-dev/pageflow/pkg/core"
	"github.com/devicelab-dev/pageflow/pkg/locator"
)

// Node is one element of a page source snapshot.
// Handles both iOS and Android formats.
type Node struct {
	Class     string
	Bounds    core.Bounds
	Enabled   bool
	Displayed bool
	Clickable bool
	Depth     int

	// Android
	Text        string
	ResourceID  string
	ContentDesc string
	Hint        string

	// iOS
	Name  string // accessibility identifier
	Label string // accessibility label
	Value string
}

// ParsePageSource parses page source XML into a flat, document-ordered
// list of nodes. The platform is detected from the markup.
func ParsePageSource(xmlData string) ([]*Node, string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlData); err != nil {
		return nil, "", fmt.Errorf("parse page source: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, "", fmt.Errorf("parse page source: empty document")
	}

	platform := core.PlatformAndroid
	if root.Tag == "AppiumAUT" || strings.HasPrefix(root.Tag, "XCUIElementType") {
		platform = core.PlatformIOS
	}

	var nodes []*Node
	var walk func(el *etree.Element, depth int)
	walk = func(el *etree.Element, depth int) {
		for _, child := range el.ChildElements() {
			if platform == core.PlatformIOS {
				nodes = append(nodes, iosNode(child, depth))
			} else {
				nodes = append(nodes, androidNode(child, depth))
			}
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return nodes, platform, nil
}

func androidNode(el *etree.Element, depth int) *Node {
	n := &Node{
		Class:       el.SelectAttrValue("class", el.Tag),
		Text:        el.SelectAttrValue("text", ""),
		ResourceID:  el.SelectAttrValue("resource-id", ""),
		ContentDesc: el.SelectAttrValue("content-desc", ""),
		Hint:        el.SelectAttrValue("hint", ""),
		Bounds:      parseBounds(el.SelectAttrValue("bounds", "")),
		Enabled:     el.SelectAttrValue("enabled", "true") == "true",
		Displayed:   el.SelectAttrValue("displayed", "true") != "false",
		Clickable:   el.SelectAttrValue("clickable", "false") == "true",
		Depth:       depth,
	}
	return n
}

func iosNode(el *etree.Element, depth int) *Node {
	atoi := func(name string) int {
		v, _ := strconv.Atoi(el.SelectAttrValue(name, "0"))
		return v
	}
	return &Node{
		Class: el.SelectAttrValue("type", el.Tag),
		Name:  el.SelectAttrValue("name", ""),
		Label: el.SelectAttrValue("label", ""),
		Value: el.SelectAttrValue("value", ""),
		Bounds: core.Bounds{
			X:      atoi("x"),
			Y:      atoi("y"),
			Width:  atoi("width"),
			Height: atoi("height"),
		},
		Enabled:   el.SelectAttrValue("enabled", "true") == "true",
		Displayed: el.SelectAttrValue("visible", "true") == "true",
		Clickable: el.SelectAttrValue("accessible", "false") == "true",
		Depth:     depth,
	}
}

// parseBounds parses Android bounds "[x1,y1][x2,y2]".
func parseBounds(s string) core.Bounds {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return core.Bounds{}
	}
	parts := strings.Split(strings.Trim(s, "[]"), "][")
	if len(parts) != 2 {
		return core.Bounds{}
	}
	x1, y1, ok1 := parsePoint(parts[0])
	x2, y2, ok2 := parsePoint(parts[1])
	if !ok1 || !ok2 {
		return core.Bounds{}
	}
	return core.Bounds{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func parsePoint(s string) (int, int, bool) {
	xy := strings.Split(s, ",")
	if len(xy) != 2 {
		return 0, 0, false
	}
	x, err1 := strconv.Atoi(xy[0])
	y, err2 := strconv.Atoi(xy[1])
	return x, y, err1 == nil && err2 == nil
}

// Identified reports whether the node carries anything a locator can use.
func (n *Node) Identified() bool {
	return n.Text != "" || n.ResourceID != "" || n.ContentDesc != "" ||
		n.Name != "" || n.Label != ""
}

// Suggest returns candidate descriptors for the node, most stable first:
// accessibility id, then resource id, then visible text.
func (n *Node) Suggest() []locator.Descriptor {
	var out []locator.Descriptor
	if n.ContentDesc != "" {
		out = append(out, locator.ByAccessibilityID(n.ContentDesc))
	}
	if n.Name != "" {
		out = append(out, locator.ByAccessibilityID(n.Name))
	}
	if n.ResourceID != "" {
		out = append(out, locator.ByID(n.ResourceID))
	}
	if n.Text != "" {
		out = append(out, locator.ByXPath("//*[@text="+xpathLiteral(n.Text)+"]"))
	}
	if n.Label != "" && n.Label != n.Name {
		out = append(out, locator.ByXPath("//*[@label="+xpathLiteral(n.Label)+"]"))
	}
	return out
}

// xpathLiteral quotes s for use in an xpath expression.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}
