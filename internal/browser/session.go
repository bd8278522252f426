package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"holdingscope/internal/ratelimit"
	"holdingscope/internal/wait"
)

// SessionOptions configures waits and pacing for a Session.
type SessionOptions struct {
	ImplicitWait time.Duration
	Backoff      wait.Backoff
	Limiter      *ratelimit.Limiter
}

// Session adds waiting and pacing on top of a Driver.
type Session struct {
	driver   Driver
	implicit time.Duration
	backoff  wait.Backoff
	limiter  *ratelimit.Limiter

	quitOnce sync.Once
	quitErr  error
}

// NewSession wraps d. A nil limiter disables pacing.
func NewSession(d Driver, opts SessionOptions) *Session {
	if opts.Backoff.Initial <= 0 {
		opts.Backoff = wait.DefaultBackoff()
	}
	return &Session{
		driver:   d,
		implicit: opts.ImplicitWait,
		backoff:  opts.Backoff,
		limiter:  opts.Limiter,
	}
}

// Driver returns the underlying driver.
func (s *Session) Driver() Driver { return s.driver }

// Navigate loads url once the pacer allows it.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Find returns the first match, polling for up to the implicit wait.
func (s *Session) Find(ctx context.Context, loc Locator) (Element, error) {
	if s.implicit <= 0 {
		els, err := s.driver.FindAll(ctx, loc)
		return firstMatch("find", loc, els, err)
	}
	els, err := s.waitFor(ctx, loc, s.implicit)
	if err != nil {
		return nil, &ElementError{Op: "find", Locator: loc, Err: err}
	}
	return els[0], nil
}

// FindAll returns every current match without waiting.
func (s *Session) FindAll(ctx context.Context, loc Locator) ([]Element, error) {
	els, err := s.driver.FindAll(ctx, loc)
	if err != nil {
		return nil, &ElementError{Op: "find all", Locator: loc, Err: err}
	}
	return els, nil
}

// FindIn returns the first match inside parent without waiting.
func (s *Session) FindIn(ctx context.Context, parent Element, loc Locator) (Element, error) {
	els, err := parent.FindAll(ctx, loc)
	return firstMatch("find in", loc, els, err)
}

// WaitPresent waits up to timeout for loc to match and returns the first match.
func (s *Session) WaitPresent(ctx context.Context, loc Locator, timeout time.Duration) (Element, error) {
	els, err := s.WaitAllPresent(ctx, loc, timeout)
	if err != nil {
		return nil, err
	}
	return els[0], nil
}

// WaitAllPresent waits up to timeout for at least one match and returns them all.
func (s *Session) WaitAllPresent(ctx context.Context, loc Locator, timeout time.Duration) ([]Element, error) {
	els, err := s.waitFor(ctx, loc, timeout)
	if err != nil {
		return nil, &ElementError{Op: "wait", Locator: loc, Err: err}
	}
	return els, nil
}

func (s *Session) waitFor(ctx context.Context, loc Locator, timeout time.Duration) ([]Element, error) {
	var found []Element
	err := wait.Until(ctx, timeout, s.backoff, func(ctx context.Context) (bool, error) {
		els, err := s.driver.FindAll(ctx, loc)
		if err != nil {
			// the page may be mid-navigation
			return false, nil
		}
		found = els
		return len(els) > 0, nil
	})
	if errors.Is(err, wait.ErrTimeout) {
		return nil, fmt.Errorf("%w: %w", ErrNoSuchElement, err)
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Click clicks el once the pacer allows it.
func (s *Session) Click(ctx context.Context, el Element) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return el.Click(ctx)
}

// Type sends text to el once the pacer allows it.
func (s *Session) Type(ctx context.Context, el Element, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return el.SendKeys(ctx, text)
}

func (s *Session) Screenshot(ctx context.Context, path string) error {
	return s.driver.Screenshot(ctx, path)
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	return s.driver.CurrentURL(ctx)
}

func (s *Session) Title(ctx context.Context) (string, error) {
	return s.driver.Title(ctx)
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	return s.driver.PageSource(ctx)
}

func (s *Session) LocalStorage(ctx context.Context, key string) (string, error) {
	return s.driver.LocalStorage(ctx, key)
}

// Quit closes the browser. Later calls return the first result.
func (s *Session) Quit() error {
	s.quitOnce.Do(func() {
		s.quitErr = s.driver.Quit()
	})
	return s.quitErr
}

func firstMatch(op string, loc Locator, els []Element, err error) (Element, error) {
	if err != nil {
		return nil, &ElementError{Op: op, Locator: loc, Err: err}
	}
	if len(els) == 0 {
		return nil, &ElementError{Op: op, Locator: loc, Err: ErrNoSuchElement}
	}
	return els[0], nil
}
