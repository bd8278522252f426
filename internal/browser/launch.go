package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Options selects and configures the browser to launch.
type Options struct {
	Browser   string
	Headless  bool
	Path      string // explicit binary, overrides discovery
	OpTimeout time.Duration
	Logger    zerolog.Logger
}

// chromiumCandidates are checked in order when no explicit path is given.
var chromiumCandidates = []string{
	"/opt/homebrew/bin/chromium",
	"/usr/local/bin/chromium",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/microsoft-edge",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// chromiumCommands are looked up on $PATH after the known locations.
var chromiumCommands = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome", "microsoft-edge"}

// Discovery finds a local Chromium-family binary. Its functions are
// replaceable so discovery can be exercised without touching the host.
type Discovery struct {
	Candidates []string
	Commands   []string
	Executable func(path string) bool
	LookPath   func(file string) (string, error)
}

// DefaultDiscovery inspects the real filesystem and $PATH.
func DefaultDiscovery() Discovery {
	return Discovery{
		Candidates: chromiumCandidates,
		Commands:   chromiumCommands,
		Executable: isExecutable,
		LookPath:   exec.LookPath,
	}
}

// Find returns the first usable binary: explicit first, then known
// locations, then $PATH. It returns "" when none is found.
func (d Discovery) Find(explicit string) string {
	if explicit != "" {
		if d.Executable(explicit) {
			return explicit
		}
		return ""
	}
	for _, p := range d.Candidates {
		if d.Executable(p) {
			return p
		}
	}
	for _, c := range d.Commands {
		if p, err := d.LookPath(c); err == nil {
			return p
		}
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}

// Launch starts a browser for opts.Browser.
//
// Chromium-family browsers prefer a local binary driven by chromedp and
// fall back to a playwright-downloaded Chromium. Firefox and WebKit always
// use playwright.
func Launch(ctx context.Context, opts Options) (Driver, error) {
	return launch(ctx, opts, DefaultDiscovery(), startChromedpDriver, startPlaywrightDriver)
}

type (
	chromedpStarter   func(ctx context.Context, execPath string, headless bool, opTimeout time.Duration) (Driver, error)
	playwrightStarter func(family Family, headless bool, opTimeout time.Duration) (Driver, error)
)

func startChromedpDriver(ctx context.Context, execPath string, headless bool, opTimeout time.Duration) (Driver, error) {
	return startChromedp(ctx, execPath, headless, opTimeout)
}

func startPlaywrightDriver(family Family, headless bool, opTimeout time.Duration) (Driver, error) {
	return startPlaywright(family, headless, opTimeout)
}

func launch(ctx context.Context, opts Options, disc Discovery, cdp chromedpStarter, pw playwrightStarter) (Driver, error) {
	log := opts.Logger
	family, err := ParseFamily(opts.Browser)
	if err != nil {
		return nil, err
	}

	if family == Chromium {
		if path := disc.Find(opts.Path); path != "" {
			log.Info().Str("path", path).Msg("Using local browser binary")
			d, err := cdp(ctx, path, opts.Headless, opts.OpTimeout)
			if err == nil {
				return d, nil
			}
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			log.Warn().Err(err).Msg("Local browser failed to start, falling back to downloaded browser")
		} else {
			if opts.Path != "" {
				log.Warn().Str("path", opts.Path).Msg("Configured browser path is not executable")
			}
			log.Info().Msg("No local browser binary found, using downloaded browser")
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Info().Str("family", string(family)).Msg("Starting downloaded browser")
	d, err := pw(family, opts.Headless, opts.OpTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDriverUnavailable, family, err)
	}
	return d, nil
}
