// Package browsertest provides an in-memory browser.Driver backed by HTML fixtures.
//
// Pages are parsed with goquery; XPath locators are evaluated with htmlquery
// against the same DOM. Clicking an element with a data-goto attribute loads
// that page, and data-fail makes the click fail.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"holdingscope/internal/browser"
)

// pngStub is a valid 1x1 PNG written for screenshots.
var pngStub = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0xf8, 0xcf, 0xc0, 0xf0,
	0x1f, 0x00, 0x05, 0x00, 0x01, 0xff, 0x89, 0x99, 0x3d, 0x1d, 0x00, 0x00,
	0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Driver is a fake browser. Fields may be set before use; the recorded
// fields are safe to read once the code under test has returned.
type Driver struct {
	Pages   map[string]string // URL -> HTML
	Storage map[string]string // localStorage

	// ScreenshotErr, when set, fails every screenshot.
	ScreenshotErr error
	// NavigateErr, when set, fails every navigation.
	NavigateErr error

	mu          sync.Mutex
	url         string
	doc         *goquery.Document
	Visited     []string
	Clicks      []string
	Typed       map[string]string // name attribute -> text
	Screenshots []string
	QuitCount   int
}

// New returns a driver serving pages.
func New(pages map[string]string) *Driver {
	return &Driver{
		Pages:   pages,
		Storage: map[string]string{},
		Typed:   map[string]string{},
	}
}

func (d *Driver) Name() string { return "browsertest" }

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(url)
}

func (d *Driver) load(url string) error {
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	page, ok := d.Pages[url]
	if !ok {
		return fmt.Errorf("browsertest: no page for %s", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return err
	}
	d.url = url
	d.doc = doc
	d.Visited = append(d.Visited, url)
	return nil
}

func (d *Driver) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, errors.New("browsertest: no page loaded")
	}
	return d.find(d.doc.Selection, loc)
}

func (d *Driver) find(scope *goquery.Selection, loc browser.Locator) ([]browser.Element, error) {
	var matches *goquery.Selection
	if css, ok := loc.CSSSelector(); ok {
		matches = scope.Find(css)
	} else {
		var nodes []*html.Node
		for _, root := range scope.Nodes {
			found, err := htmlquery.QueryAll(root, loc.Value)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, found...)
		}
		matches = d.doc.FindNodes(nodes...)
	}

	els := make([]browser.Element, 0, matches.Length())
	matches.Each(func(_ int, s *goquery.Selection) {
		els = append(els, &Element{d: d, doc: d.doc, sel: s})
	})
	return els, nil
}

func (d *Driver) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ScreenshotErr != nil {
		return d.ScreenshotErr
	}
	if err := os.WriteFile(path, pngStub, 0644); err != nil {
		return err
	}
	d.Screenshots = append(d.Screenshots, path)
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, ctx.Err()
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return "", ctx.Err()
	}
	return strings.TrimSpace(d.doc.Find("title").First().Text()), ctx.Err()
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return "", ctx.Err()
	}
	src, err := goquery.OuterHtml(d.doc.Find("html"))
	if err != nil {
		return "", err
	}
	return src, ctx.Err()
}

func (d *Driver) LocalStorage(ctx context.Context, key string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Storage[key], ctx.Err()
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.QuitCount++
	return nil
}

// Element is a node in a fixture page. It goes stale when another page loads.
type Element struct {
	d   *Driver
	doc *goquery.Document
	sel *goquery.Selection
}

func (e *Element) stale() error {
	if e.d.doc != e.doc {
		return errors.New("browsertest: stale element reference")
	}
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.stale(); err != nil {
		return "", err
	}
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.stale(); err != nil {
		return err
	}
	label := describe(e.sel)
	if msg, ok := e.sel.Attr("data-fail"); ok {
		return fmt.Errorf("browsertest: click %s: %s", label, msg)
	}
	e.d.Clicks = append(e.d.Clicks, label)
	if target, ok := e.sel.Attr("data-goto"); ok {
		return e.d.load(target)
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.stale(); err != nil {
		return err
	}
	name, _ := e.sel.Attr("name")
	e.d.Typed[name] += text
	value, _ := e.sel.Attr("value")
	e.sel.SetAttr("value", value+text)
	return nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.stale(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *Element) FindAll(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.stale(); err != nil {
		return nil, err
	}
	return e.d.find(e.sel, loc)
}

// describe renders an element as tag#id.class for click records.
func describe(s *goquery.Selection) string {
	label := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok {
		label += "#" + id
	}
	if class, ok := s.Attr("class"); ok {
		label += "." + strings.Join(strings.Fields(class), ".")
	}
	if text := strings.TrimSpace(s.Text()); text != "" && len(text) <= 32 {
		label += "(" + text + ")"
	}
	return label
}
