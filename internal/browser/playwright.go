package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightDriver drives a browser that playwright downloads and manages.
type playwrightDriver struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	page      playwright.Page
	family    Family
	opTimeout time.Duration
}

func playwrightBrowserName(f Family) string {
	switch f {
	case Gecko:
		return "firefox"
	case WebKit:
		return "webkit"
	default:
		return "chromium"
	}
}

// startPlaywright installs the browser for family if needed, then launches it.
func startPlaywright(family Family, headless bool, opTimeout time.Duration) (*playwrightDriver, error) {
	name := playwrightBrowserName(family)
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{name}}); err != nil {
		return nil, fmt.Errorf("installing %s: %w", name, err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch family {
	case Gecko:
		bt = pw.Firefox
	case WebKit:
		bt = pw.WebKit
	default:
		bt = pw.Chromium
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	}
	if family == Chromium {
		launch.Args = []string{"--no-sandbox", "--disable-dev-shm-usage"}
	}
	b, err := bt.Launch(launch)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching %s: %w", name, err)
	}

	page, err := b.NewPage()
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	return &playwrightDriver{
		pw:        pw,
		browser:   b,
		page:      page,
		family:    family,
		opTimeout: opTimeout,
	}, nil
}

// timeout converts the remaining time on ctx, capped by the per-operation
// timeout, into playwright's milliseconds.
func (d *playwrightDriver) timeout(ctx context.Context) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := d.opTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, context.DeadlineExceeded
		}
		if limit <= 0 || remaining < limit {
			limit = remaining
		}
	}
	if limit <= 0 {
		return nil, nil
	}
	return playwright.Float(float64(limit.Milliseconds())), nil
}

func (d *playwrightDriver) Name() string {
	return "playwright/" + playwrightBrowserName(d.family)
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	timeout, err := d.timeout(ctx)
	if err != nil {
		return err
	}
	_, err = d.page.Goto(url, playwright.PageGotoOptions{Timeout: timeout})
	return err
}

func playwrightSelector(loc Locator) string {
	if sel, ok := loc.CSSSelector(); ok {
		return sel
	}
	return "xpath=" + loc.Value
}

func (d *playwrightDriver) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.wrap(d.page.Locator(playwrightSelector(loc)).All())
}

func (d *playwrightDriver) wrap(locs []playwright.Locator, err error) ([]Element, error) {
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(locs))
	for _, l := range locs {
		els = append(els, &playwrightElement{d: d, loc: l})
	}
	return els, nil
}

func (d *playwrightDriver) Screenshot(ctx context.Context, path string) error {
	timeout, err := d.timeout(ctx)
	if err != nil {
		return err
	}
	_, err = d.page.Screenshot(playwright.PageScreenshotOptions{
		Path:    playwright.String(path),
		Timeout: timeout,
	})
	return err
}

func (d *playwrightDriver) CurrentURL(ctx context.Context) (string, error) {
	return d.page.URL(), ctx.Err()
}

func (d *playwrightDriver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.Title()
}

func (d *playwrightDriver) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.Content()
}

func (d *playwrightDriver) LocalStorage(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := d.page.Evaluate("k => window.localStorage.getItem(k)", key)
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (d *playwrightDriver) Quit() error {
	var firstErr error
	if err := d.browser.Close(); err != nil {
		firstErr = err
	}
	if err := d.pw.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

type playwrightElement struct {
	d   *playwrightDriver
	loc playwright.Locator
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	timeout, err := e.d.timeout(ctx)
	if err != nil {
		return "", err
	}
	return e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: timeout})
}

func (e *playwrightElement) Click(ctx context.Context) error {
	timeout, err := e.d.timeout(ctx)
	if err != nil {
		return err
	}
	return e.loc.Click(playwright.LocatorClickOptions{Timeout: timeout})
}

func (e *playwrightElement) SendKeys(ctx context.Context, text string) error {
	timeout, err := e.d.timeout(ctx)
	if err != nil {
		return err
	}
	return e.loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeout})
}

func (e *playwrightElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	timeout, err := e.d.timeout(ctx)
	if err != nil {
		return "", false, err
	}
	present, err := e.loc.Evaluate("(el, n) => el.hasAttribute(n)", name, playwright.LocatorEvaluateOptions{Timeout: timeout})
	if err != nil {
		return "", false, err
	}
	if ok, _ := present.(bool); !ok {
		return "", false, nil
	}
	value, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: timeout})
	return value, true, err
}

func (e *playwrightElement) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.d.wrap(e.loc.Locator(playwrightSelector(loc)).All())
}
