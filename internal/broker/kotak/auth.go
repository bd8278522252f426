package kotak

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"holdingscope/internal/browser"
	"holdingscope/pkg/model"
)

// ErrLoginFormMissing is returned when the login page never shows the phone field.
var ErrLoginFormMissing = errors.New("login form not found")

// DebugScreenshot is the file written when the login form does not appear.
const DebugScreenshot = "login_page_debug.png"

const sourcePreviewLen = 500

// Login signs in with the configured phone number and password and waits
// for the dashboard.
func (c *Client) Login(ctx context.Context) (*model.SessionInfo, error) {
	c.log.Info().Str("url", c.opts.LoginURL).Msg("Navigating to login page")
	if err := c.session.Navigate(ctx, c.opts.LoginURL); err != nil {
		c.log.Error().Err(err).Msg("Login page did not load")
		return nil, err
	}

	phone, err := c.session.WaitPresent(ctx, phoneInput, c.opts.ExplicitWait)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.captureDiagnostics(ctx)
		return nil, fmt.Errorf("%w: %w", ErrLoginFormMissing, err)
	}

	c.log.Info().Msg("Entering credentials")
	if err := c.session.Type(ctx, phone, c.opts.PhoneNumber); err != nil {
		c.log.Error().Err(err).Msg("Could not enter phone number")
		return nil, fmt.Errorf("entering phone number: %w", err)
	}

	pwd, err := c.session.Find(ctx, passwordInput)
	if err != nil {
		c.log.Error().Err(err).Msg("Password field not found")
		return nil, err
	}
	if err := c.session.Type(ctx, pwd, c.opts.Password); err != nil {
		c.log.Error().Err(err).Msg("Could not enter password")
		return nil, fmt.Errorf("entering password: %w", err)
	}

	btn, err := c.loginButton(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Login button not found")
		return nil, err
	}
	if err := c.session.Click(ctx, btn); err != nil {
		c.log.Error().Err(err).Msg("Could not click login")
		return nil, fmt.Errorf("clicking login: %w", err)
	}

	c.log.Info().Msg("Waiting for dashboard")
	if _, err := c.session.WaitPresent(ctx, dashboardMarker, c.opts.ExplicitWait); err != nil {
		c.log.Error().Err(err).Msg("Dashboard did not load after login")
		return nil, fmt.Errorf("waiting for dashboard: %w", err)
	}
	c.log.Info().Msg("Login successful")

	return c.inspectSession(ctx), nil
}

// loginButton returns the first button whose text mentions "login".
func (c *Client) loginButton(ctx context.Context) (browser.Element, error) {
	candidates, err := c.session.WaitAllPresent(ctx, buttons, c.opts.ExplicitWait)
	if err != nil {
		return nil, err
	}
	for _, b := range candidates {
		text, err := b.Text(ctx)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(text), "login") {
			return b, nil
		}
	}
	return nil, &browser.ElementError{Op: "find login", Locator: buttons, Err: browser.ErrNoSuchElement}
}

// captureDiagnostics logs what the browser is showing in place of the login form.
func (c *Client) captureDiagnostics(ctx context.Context) {
	c.log.Error().Msg("Login form did not appear")

	if url, err := c.session.CurrentURL(ctx); err == nil {
		c.log.Error().Str("url", url).Msg("Current page")
	}
	if title, err := c.session.Title(ctx); err == nil {
		c.log.Error().Str("title", title).Msg("Page title")
	}

	path := filepath.Join(c.opts.OutputDir, DebugScreenshot)
	if err := c.session.Screenshot(ctx, path); err != nil {
		c.log.Warn().Err(err).Msg("Could not save debug screenshot")
	} else {
		c.log.Info().Str("path", path).Msg("Debug screenshot saved")
	}

	if src, err := c.session.PageSource(ctx); err == nil {
		c.log.Error().Str("source", preview(src, sourcePreviewLen)).Msg("Page source preview")
	}
}

// preview returns at most n bytes of s without splitting a rune.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
