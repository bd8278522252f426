package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// chromedpDriver drives a local Chromium-family binary over CDP.
type chromedpDriver struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opTimeout   time.Duration
}

func allocatorOptions(execPath string, headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	return opts
}

// startChromedp launches execPath and waits until the first tab is ready.
func startChromedp(ctx context.Context, execPath string, headless bool, opTimeout time.Duration) (*chromedpDriver, error) {
	// the browser outlives ctx; it is torn down by Quit
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(execPath, headless)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	d := &chromedpDriver{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opTimeout:   opTimeout,
	}
	// The first Run spawns the browser and binds it to the context it gets,
	// so it runs on tabCtx directly. ctx only aborts the startup.
	stop := context.AfterFunc(ctx, cancelAlloc)
	err := chromedp.Run(tabCtx)
	if !stop() || err != nil {
		d.Quit()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("starting %s: %w", execPath, err)
	}
	return d, nil
}

// run executes actions on the running tab, bounded by ctx and the
// per-operation timeout. It must not be used for the first Run.
func (d *chromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	if d.opTimeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, d.opTimeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (d *chromedpDriver) Name() string { return "chromedp" }

func (d *chromedpDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *chromedpDriver) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	return d.query(ctx, loc, nil)
}

func (d *chromedpDriver) query(ctx context.Context, loc Locator, parent *cdp.Node) ([]Element, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}

	sel, ok := loc.CSSSelector()
	if ok {
		opts = append(opts, chromedp.ByQueryAll)
		if parent != nil {
			opts = append(opts, chromedp.FromNode(parent))
		}
	} else {
		if parent != nil {
			return nil, fmt.Errorf("scoped %s lookup is not supported", loc.By)
		}
		sel = loc.Value
		opts = append(opts, chromedp.BySearch)
	}

	if err := d.run(ctx, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &chromedpElement{d: d, node: n})
	}
	return els, nil
}

func (d *chromedpDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func (d *chromedpDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

func (d *chromedpDriver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.run(ctx, chromedp.Title(&title))
	return title, err
}

func (d *chromedpDriver) PageSource(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *chromedpDriver) LocalStorage(ctx context.Context, key string) (string, error) {
	quoted, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	var value string
	expr := fmt.Sprintf("window.localStorage.getItem(%s) || ''", quoted)
	if err := d.run(ctx, chromedp.Evaluate(expr, &value)); err != nil {
		return "", err
	}
	return value, nil
}

func (d *chromedpDriver) Quit() error {
	d.cancelTab()
	d.cancelAlloc()
	return nil
}

type chromedpElement struct {
	d    *chromedpDriver
	node *cdp.Node
}

func (e *chromedpElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.d.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	return text, err
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return e.d.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID))
}

func (e *chromedpElement) SendKeys(ctx context.Context, text string) error {
	return e.d.run(ctx, chromedp.SendKeys(e.ids(), text, chromedp.ByNodeID))
}

func (e *chromedpElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.d.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	return value, ok, err
}

func (e *chromedpElement) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	return e.d.query(ctx, loc, e.node)
}
