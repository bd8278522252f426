// Package kotak automates the Kotak Securities web portal: login, the
// holdings table and the per-symbol chart view.
package kotak

import (
	"time"

	"github.com/rs/zerolog"

	"holdingscope/internal/browser"
)

// Page markers the portal is expected to render.
var (
	phoneInput      = browser.Name("uid")
	passwordInput   = browser.Name("pwd")
	buttons         = browser.CSS("button")
	dashboardMarker = browser.Class("dashboard")

	holdingsMarker = browser.Class("holdings")
	holdingRow     = browser.Class("holding-row")
	rowSymbol      = browser.Class("symbol")
	rowQuantity    = browser.Class("quantity")
	rowPrice       = browser.Class("current-price")
	rowPnL         = browser.Class("pnl")

	chartContainer   = browser.Class("chart-container")
	timeframeButtons = browser.Class("timeframe-btn")
	currentPrice     = browser.Class("current-price")
	priceChange      = browser.Class("price-change")
	priceChangePct   = browser.Class("price-change-percent")
	volumeValue      = browser.Class("volume")
	ohlcValues       = browser.Class("ohlc-value")
	candle           = browser.Class("candle")
	closeChart       = browser.Class("close-chart")
)

// Options configures the portal automation.
type Options struct {
	LoginURL        string
	PortfolioURL    string
	PhoneNumber     string
	Password        string
	SessionTokenKey string // localStorage key holding the session JWT

	ExplicitWait     time.Duration
	AnalysisDuration time.Duration
	OutputDir        string // login diagnostics are written here

	Logger zerolog.Logger
}

// Client drives the portal through a browser session. It implements broker.Broker.
type Client struct {
	*Portfolio
	*Chart

	session *browser.Session
	opts    Options
	log     zerolog.Logger
}

// New returns a client bound to session.
func New(session *browser.Session, opts Options) *Client {
	return &Client{
		Portfolio: newPortfolio(session, opts),
		Chart:     newChart(session, opts),
		session:   session,
		opts:      opts,
		log:       opts.Logger.With().Str("step", "login").Logger(),
	}
}

// Name returns the portal name
func (c *Client) Name() string {
	return "kotak"
}
