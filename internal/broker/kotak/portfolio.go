package kotak

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"holdingscope/internal/browser"
	"holdingscope/pkg/model"
)

// Portfolio reads the holdings table.
type Portfolio struct {
	session *browser.Session
	opts    Options
	log     zerolog.Logger

	positions []model.Position
}

func newPortfolio(session *browser.Session, opts Options) *Portfolio {
	return &Portfolio{
		session: session,
		opts:    opts,
		log:     opts.Logger.With().Str("step", "portfolio").Logger(),
	}
}

// OpenHoldings navigates to the holdings page and waits for the table.
func (p *Portfolio) OpenHoldings(ctx context.Context) error {
	p.log.Info().Str("url", p.opts.PortfolioURL).Msg("Navigating to holdings")
	if err := p.session.Navigate(ctx, p.opts.PortfolioURL); err != nil {
		p.log.Error().Err(err).Msg("Holdings page did not load")
		return err
	}
	if _, err := p.session.WaitPresent(ctx, holdingsMarker, p.opts.ExplicitWait); err != nil {
		p.log.Error().Err(err).Msg("Holdings table did not appear")
		return fmt.Errorf("waiting for holdings: %w", err)
	}
	p.log.Info().Msg("Holdings page loaded")
	return nil
}

// FetchPositions reads every well-formed holdings row in page order.
// A row missing any of its fields is skipped.
func (p *Portfolio) FetchPositions(ctx context.Context) ([]model.Position, error) {
	p.log.Info().Msg("Fetching positions")

	rows, err := p.session.WaitAllPresent(ctx, holdingRow, p.opts.ExplicitWait)
	if err != nil {
		p.log.Error().Err(err).Msg("No holdings rows found")
		return nil, fmt.Errorf("waiting for holdings rows: %w", err)
	}

	positions := make([]model.Position, 0, len(rows))
	for i, row := range rows {
		pos, err := p.readRow(ctx, row)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.log.Warn().Err(err).Int("row", i).Msg("Skipping holdings row")
			continue
		}
		p.log.Info().
			Str("symbol", pos.Symbol).
			Str("quantity", pos.Quantity).
			Str("price", pos.CurrentPrice).
			Str("pnl", pos.PnL).
			Msg("Position")
		positions = append(positions, pos)
	}

	p.positions = positions
	p.log.Info().Int("count", len(positions)).Msg("Positions fetched")
	return positions, nil
}

func (p *Portfolio) readRow(ctx context.Context, row browser.Element) (model.Position, error) {
	var pos model.Position
	fields := []struct {
		loc browser.Locator
		dst *string
	}{
		{rowSymbol, &pos.Symbol},
		{rowQuantity, &pos.Quantity},
		{rowPrice, &pos.CurrentPrice},
		{rowPnL, &pos.PnL},
	}
	for _, f := range fields {
		el, err := p.session.FindIn(ctx, row, f.loc)
		if err != nil {
			return model.Position{}, err
		}
		text, err := el.Text(ctx)
		if err != nil {
			return model.Position{}, fmt.Errorf("reading %s: %w", f.loc, err)
		}
		*f.dst = text
	}
	return pos, nil
}

// PositionBySymbol finds a fetched position, ignoring case.
func (p *Portfolio) PositionBySymbol(symbol string) (model.Position, bool) {
	for _, pos := range p.positions {
		if strings.EqualFold(pos.Symbol, symbol) {
			return pos, true
		}
	}
	return model.Position{}, false
}
