package browser

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestChromedpDriver_Lifecycle(t *testing.T) {
	path := DefaultDiscovery().Find("")
	if path == "" {
		t.Skip("no local Chromium-family browser")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	d, err := startChromedp(ctx, path, true, 10*time.Second)
	if err != nil {
		t.Skipf("browser could not start: %v", err)
	}
	defer d.Quit()

	page := `<html><body><table><tr class="holding-row"><td>TCS</td></tr><tr class="holding-row"><td>INFY</td></tr></table></body></html>`
	if err := d.Navigate(ctx, "data:text/html,"+url.PathEscape(page)); err != nil {
		t.Fatalf("Navigate after start: %v", err)
	}

	rows, err := d.FindAll(ctx, Class("holding-row"))
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	text, err := rows[1].Text(ctx)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "INFY" {
		t.Errorf("Expected INFY, got %q", text)
	}

	cells, err := d.FindAll(ctx, XPath("//td[contains(text(), 'TCS')]"))
	if err != nil {
		t.Fatalf("FindAll xpath: %v", err)
	}
	if len(cells) != 1 {
		t.Errorf("Expected 1 TCS cell, got %d", len(cells))
	}
}

func TestStartChromedp_CancelledContext(t *testing.T) {
	path := DefaultDiscovery().Find("")
	if path == "" {
		t.Skip("no local Chromium-family browser")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := startChromedp(ctx, path, true, time.Second); err == nil {
		t.Error("Expected start to fail with a cancelled context")
	}
}
