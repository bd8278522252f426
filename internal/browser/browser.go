// Package browser is the driver surface the portal automation runs on.
//
// Two backends implement it: chromedp against a locally installed
// Chromium-family browser, and playwright-go with browsers it downloads
// on demand. Tests use browsertest.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchElement is returned when a locator matches nothing.
	ErrNoSuchElement = errors.New("no such element")
	// ErrUnsupportedBrowser is returned for a BROWSER value outside the known families.
	ErrUnsupportedBrowser = errors.New("unsupported browser")
	// ErrDriverUnavailable is returned when no backend could start a browser.
	ErrDriverUnavailable = errors.New("browser driver unavailable")
)

// By selects how a Locator's value is interpreted.
type By int

const (
	ByName By = iota
	ByClass
	ByCSS
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByName:
		return "name"
	case ByClass:
		return "class"
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("By(%d)", int(b))
	}
}

// Locator identifies elements on a page.
type Locator struct {
	By    By
	Value string
}

// Name locates elements by their name attribute.
func Name(v string) Locator { return Locator{By: ByName, Value: v} }

// Class locates elements carrying a CSS class.
func Class(v string) Locator { return Locator{By: ByClass, Value: v} }

// CSS locates elements with a CSS selector.
func CSS(v string) Locator { return Locator{By: ByCSS, Value: v} }

// XPath locates elements with an XPath expression.
func XPath(v string) Locator { return Locator{By: ByXPath, Value: v} }

// CSSSelector returns the equivalent CSS selector. XPath locators have none.
func (l Locator) CSSSelector() (string, bool) {
	switch l.By {
	case ByName:
		return fmt.Sprintf(`[name=%q]`, l.Value), true
	case ByClass:
		return "." + l.Value, true
	case ByCSS:
		return l.Value, true
	default:
		return "", false
	}
}

func (l Locator) String() string {
	return l.By.String() + "=" + l.Value
}

// Element is a node found on the current page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	// Attribute returns the attribute value and whether it is set.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// FindAll searches the element's subtree without waiting.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
}

// Driver controls a single browser page.
type Driver interface {
	Name() string
	Navigate(ctx context.Context, url string) error
	// FindAll searches the page without waiting. No match is not an error.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	Screenshot(ctx context.Context, path string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	// LocalStorage returns "" for a missing key.
	LocalStorage(ctx context.Context, key string) (string, error)
	Quit() error
}

// ElementError reports a failed element operation.
type ElementError struct {
	Op      string
	Locator Locator
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Locator, e.Err)
}

func (e *ElementError) Unwrap() error { return e.Err }

// Family is the browser engine behind a BROWSER value.
type Family string

const (
	Chromium Family = "chromium"
	Gecko    Family = "firefox"
	WebKit   Family = "webkit"
)

// ParseFamily maps a configured browser name to its engine.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "chrome", "chromium", "edge":
		return Chromium, nil
	case "firefox", "gecko":
		return Gecko, nil
	case "safari", "webkit":
		return WebKit, nil
	default:
		return "", fmt.Errorf("%w: %q (expected chrome, firefox or safari)", ErrUnsupportedBrowser, name)
	}
}
