package kotak

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"holdingscope/internal/browser"
	"holdingscope/internal/wait"
	"holdingscope/pkg/model"
)

// ErrChartNotOpened is returned when the chart view does not appear for a symbol.
var ErrChartNotOpened = errors.New("chart not opened")

// Chart reads the chart view of one symbol at a time.
type Chart struct {
	session *browser.Session
	opts    Options
	log     zerolog.Logger
}

func newChart(session *browser.Session, opts Options) *Chart {
	return &Chart{
		session: session,
		opts:    opts,
		log:     opts.Logger.With().Str("step", "chart").Logger(),
	}
}

// Open clicks the holdings cell for symbol and waits for the chart.
func (c *Chart) Open(ctx context.Context, symbol string) error {
	c.log.Info().Str("symbol", symbol).Msg("Opening chart")

	cell, err := c.session.Find(ctx, symbolCell(symbol))
	if err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("Symbol not found in holdings")
		return fmt.Errorf("%w for %s: %w", ErrChartNotOpened, symbol, err)
	}
	if err := c.session.Click(ctx, cell); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("Could not click symbol")
		return fmt.Errorf("%w for %s: %w", ErrChartNotOpened, symbol, err)
	}
	if _, err := c.session.WaitPresent(ctx, chartContainer, c.opts.ExplicitWait); err != nil {
		c.log.Error().Err(err).Str("symbol", symbol).Msg("Chart did not appear")
		return fmt.Errorf("%w for %s: %w", ErrChartNotOpened, symbol, err)
	}

	c.log.Info().Str("symbol", symbol).Msg("Chart opened")
	return nil
}

// symbolCell locates the table cell whose text contains symbol.
func symbolCell(symbol string) browser.Locator {
	return browser.XPath(fmt.Sprintf("//td[contains(text(), %s)]", xpathLiteral(symbol)))
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escapes,
// so a value holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// SetTimeframe clicks the first timeframe button whose label contains timeframe.
// It reports false when no button matches.
func (c *Chart) SetTimeframe(ctx context.Context, timeframe string) (bool, error) {
	c.log.Info().Str("timeframe", timeframe).Msg("Setting timeframe")

	btns, err := c.session.FindAll(ctx, timeframeButtons)
	if err != nil {
		c.log.Error().Err(err).Msg("Could not list timeframe buttons")
		return false, err
	}

	want := strings.ToLower(timeframe)
	for _, btn := range btns {
		text, err := btn.Text(ctx)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(text), want) {
			continue
		}
		if err := c.session.Click(ctx, btn); err != nil {
			c.log.Error().Err(err).Msg("Could not click timeframe button")
			return false, fmt.Errorf("clicking timeframe %s: %w", timeframe, err)
		}
		c.log.Info().Str("timeframe", timeframe).Msg("Timeframe set")
		return true, nil
	}

	c.log.Warn().Str("timeframe", timeframe).Msg("Timeframe button not found, it may already be selected")
	return false, nil
}

// Analyze reads the chart fields and then keeps the chart open for the
// configured analysis duration. Missing fields are recorded, not returned as
// errors; only cancellation fails the analysis.
func (c *Chart) Analyze(ctx context.Context) (*model.ChartAnalysis, error) {
	c.log.Info().Msg("Analyzing chart")
	a := model.NewChartAnalysis()

	a.CurrentPrice = c.readText(ctx, a, "current_price", currentPrice)
	a.PriceChange = c.readText(ctx, a, "price_change", priceChange)
	a.PriceChangePercent = c.readText(ctx, a, "price_change_percent", priceChangePct)
	a.Volume = c.readText(ctx, a, "volume", volumeValue)
	c.readOHLC(ctx, a)
	c.readTrend(ctx, a)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.log.Info().Dur("duration", c.opts.AnalysisDuration).Msg("Holding chart open")
	if err := wait.Sleep(ctx, c.opts.AnalysisDuration); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *Chart) readText(ctx context.Context, a *model.ChartAnalysis, field string, loc browser.Locator) model.Field {
	el, err := c.session.Find(ctx, loc)
	if err != nil {
		return c.missing(a, field, err)
	}
	text, err := el.Text(ctx)
	if err != nil {
		return c.missing(a, field, err)
	}
	c.log.Info().Str("field", field).Str("value", text).Msg("Extracted")
	return model.Found(text)
}

func (c *Chart) missing(a *model.ChartAnalysis, field string, err error) model.Field {
	c.log.Warn().Err(err).Str("field", field).Msg("Could not extract")
	f := model.Missing(err.Error())
	if a.Unavailable == nil {
		a.Unavailable = map[string]string{}
	}
	a.Unavailable[field] = f.Reason()
	return f
}

// readOHLC reads open, high, low and close from the first four OHLC values.
func (c *Chart) readOHLC(ctx context.Context, a *model.ChartAnalysis) {
	fields := []struct {
		name string
		dst  *model.Field
	}{
		{"open", &a.Open},
		{"high", &a.High},
		{"low", &a.Low},
		{"close", &a.Close},
	}
	fail := func(err error) {
		for _, f := range fields {
			*f.dst = c.missing(a, f.name, err)
		}
	}

	values, err := c.session.FindAll(ctx, ohlcValues)
	if err != nil {
		fail(err)
		return
	}
	if len(values) < len(fields) {
		fail(fmt.Errorf("found %d OHLC values, need %d", len(values), len(fields)))
		return
	}

	for i, f := range fields {
		text, err := values[i].Text(ctx)
		if err != nil {
			*f.dst = c.missing(a, f.name, err)
			continue
		}
		*f.dst = model.Found(text)
	}
	c.log.Info().
		Str("open", a.Open.Or("N/A")).
		Str("high", a.High.Or("N/A")).
		Str("low", a.Low.Or("N/A")).
		Str("close", a.Close.Or("N/A")).
		Msg("OHLC")
}

func (c *Chart) readTrend(ctx context.Context, a *model.ChartAnalysis) {
	el, err := c.session.Find(ctx, candle)
	if err != nil {
		c.missing(a, "trend", err)
		return
	}
	class, _, err := el.Attribute(ctx, "class")
	if err != nil {
		c.missing(a, "trend", err)
		return
	}
	a.Trend = ClassifyTrend(class)
	c.log.Info().Str("trend", string(a.Trend)).Msg("Trend")
}

// ClassifyTrend maps a candle's CSS class to a trend.
func ClassifyTrend(class string) model.Trend {
	switch {
	case strings.Contains(class, "bullish"), strings.Contains(class, "green"):
		return model.TrendUp
	case strings.Contains(class, "bearish"), strings.Contains(class, "red"):
		return model.TrendDown
	default:
		return model.TrendNeutral
	}
}

// Screenshot saves the current chart. It reports whether the file was written.
func (c *Chart) Screenshot(ctx context.Context, path string) bool {
	c.log.Info().Str("path", path).Msg("Taking screenshot")
	if err := c.session.Screenshot(ctx, path); err != nil {
		c.log.Error().Err(err).Str("path", path).Msg("Screenshot failed")
		return false
	}
	c.log.Info().Str("path", path).Msg("Screenshot saved")
	return true
}

// Close returns from the chart to the holdings table. It reports success.
func (c *Chart) Close(ctx context.Context) bool {
	c.log.Info().Msg("Closing chart")
	btn, err := c.session.Find(ctx, closeChart)
	if err != nil {
		c.log.Error().Err(err).Msg("Close button not found")
		return false
	}
	if err := c.session.Click(ctx, btn); err != nil {
		c.log.Error().Err(err).Msg("Could not close chart")
		return false
	}
	c.log.Info().Msg("Chart closed")
	return true
}
