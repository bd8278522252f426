package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"holdingscope/internal/browser"
	"holdingscope/internal/browser/browsertest"
	"holdingscope/internal/wait"
)

const page = `<html><head><title>Holdings</title></head><body>
<div class="holdings">
  <table>
    <tr class="holding-row"><td class="symbol">TCS</td><td class="quantity">10</td></tr>
    <tr class="holding-row"><td class="symbol">INFY</td><td class="quantity">5</td></tr>
  </table>
  <button class="refresh" data-goto="/holdings">Refresh</button>
</div>
</body></html>`

func newSession(t *testing.T) (*browser.Session, *browsertest.Driver) {
	t.Helper()
	d := browsertest.New(map[string]string{"/holdings": page})
	s := browser.NewSession(d, browser.SessionOptions{
		ImplicitWait: 50 * time.Millisecond,
		Backoff:      wait.Backoff{Initial: 5 * time.Millisecond, Max: 10 * time.Millisecond, Factor: 2},
	})
	if err := s.Navigate(context.Background(), "/holdings"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	return s, d
}

func TestSession_FindAndScopedFind(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	rows, err := s.WaitAllPresent(ctx, browser.Class("holding-row"), time.Second)
	if err != nil {
		t.Fatalf("WaitAllPresent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	sym, err := s.FindIn(ctx, rows[1], browser.Class("symbol"))
	if err != nil {
		t.Fatalf("FindIn: %v", err)
	}
	text, _ := sym.Text(ctx)
	if text != "INFY" {
		t.Errorf("Expected INFY, got %q", text)
	}

	if _, err := s.FindIn(ctx, rows[0], browser.Class("pnl")); !errors.Is(err, browser.ErrNoSuchElement) {
		t.Errorf("Expected ErrNoSuchElement, got %v", err)
	}

	cell, err := s.Find(ctx, browser.XPath(`//td[contains(text(), "TCS")]`))
	if err != nil {
		t.Fatalf("XPath find: %v", err)
	}
	if class, ok, _ := cell.Attribute(ctx, "class"); !ok || class != "symbol" {
		t.Errorf("Expected symbol cell, got %q", class)
	}
}

func TestSession_WaitPresentTimesOut(t *testing.T) {
	s, _ := newSession(t)

	start := time.Now()
	_, err := s.WaitPresent(context.Background(), browser.Class("dashboard"), 40*time.Millisecond)
	if !errors.Is(err, browser.ErrNoSuchElement) {
		t.Fatalf("Expected ErrNoSuchElement, got %v", err)
	}
	if !errors.Is(err, wait.ErrTimeout) {
		t.Errorf("Expected wrapped ErrTimeout, got %v", err)
	}
	var elErr *browser.ElementError
	if !errors.As(err, &elErr) || elErr.Locator.Value != "dashboard" {
		t.Errorf("Expected ElementError for dashboard, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait took too long")
	}
}

func TestSession_ClickFollowsLink(t *testing.T) {
	s, d := newSession(t)
	ctx := context.Background()

	btn, err := s.Find(ctx, browser.Class("refresh"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if err := s.Click(ctx, btn); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if len(d.Visited) != 2 {
		t.Errorf("Expected reload, visited %v", d.Visited)
	}
	if _, err := btn.Text(ctx); err == nil {
		t.Error("Expected stale element after navigation")
	}
}

func TestSession_QuitOnce(t *testing.T) {
	s, d := newSession(t)
	s.Quit()
	s.Quit()
	if d.QuitCount != 1 {
		t.Errorf("Expected one quit, got %d", d.QuitCount)
	}
}
