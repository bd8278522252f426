package broker

import (
	"context"

	"holdingscope/pkg/model"
)

// Portal is an authenticated brokerage web session.
type Portal interface {
	// Name is the portal's display name
	Name() string

	// Login authenticates and returns what could be read about the session.
	// SessionInfo is nil when the session token is not inspected.
	Login(ctx context.Context) (*model.SessionInfo, error)

	// holdings
	OpenHoldings(ctx context.Context) error
	FetchPositions(ctx context.Context) ([]model.Position, error)
	PositionBySymbol(symbol string) (model.Position, bool)
}

// ChartReader reads one symbol's chart view at a time.
type ChartReader interface {
	Open(ctx context.Context, symbol string) error
	// SetTimeframe reports false without error when no matching button exists
	SetTimeframe(ctx context.Context, timeframe string) (bool, error)
	Analyze(ctx context.Context) (*model.ChartAnalysis, error)

	// best effort, failures are logged
	Screenshot(ctx context.Context, path string) bool
	Close(ctx context.Context) bool
}

// Broker combines the portal session with its chart view.
type Broker interface {
	Portal
	ChartReader
}
