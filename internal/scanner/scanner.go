package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"holdingscope/internal/broker"
	"holdingscope/internal/browser"
	"holdingscope/internal/config"
	"holdingscope/internal/ratelimit"
	"holdingscope/internal/symbols"
	"holdingscope/internal/wait"
	"holdingscope/pkg/model"
)

// ErrNoPositions is returned when the holdings table has no readable rows.
var ErrNoPositions = errors.New("no positions found in portfolio")

// errNotHeld marks a requested symbol that is not in the holdings.
var errNotHeld = errors.New("position not found")

// TimestampLayout is used in screenshot and report file names.
const TimestampLayout = "20060102_150405"

// ProgressCallback is called with progress updates
type ProgressCallback func(analyzed, total int)

// Launcher starts the browser for a run.
type Launcher func(ctx context.Context) (browser.Driver, error)

// BrokerFactory binds the portal automation to a browser session.
type BrokerFactory func(session *browser.Session) broker.Broker

// Scanner runs login, holdings discovery and chart analysis in sequence
type Scanner struct {
	cfg          *config.Config
	launch       Launcher
	newBroker    BrokerFactory
	log          zerolog.Logger
	now          func() time.Time
	progressFunc ProgressCallback
}

// NewScanner creates a new scanner
func NewScanner(cfg *config.Config, launch Launcher, newBroker BrokerFactory, log zerolog.Logger) *Scanner {
	return &Scanner{
		cfg:       cfg,
		launch:    launch,
		newBroker: newBroker,
		log:       log,
		now:       time.Now,
	}
}

// SetProgressCallback sets the progress callback function.
// It is first called with zero analyzed once the targets are known.
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

func (s *Scanner) progress(analyzed, total int) {
	if s.progressFunc != nil {
		s.progressFunc(analyzed, total)
	}
}

func (s *Scanner) newSession(d browser.Driver) *browser.Session {
	bc := s.cfg.Browser
	limiter := ratelimit.NewLimiter("browser", bc.ActionsPerMinute)
	session := browser.NewSession(d, browser.SessionOptions{
		ImplicitWait: bc.ImplicitWait.Duration(),
		Backoff: wait.Backoff{
			Initial: bc.PollInterval.Duration(),
			Max:     bc.PollMaxInterval.Duration(),
			Factor:  bc.PollBackoff,
		},
		Limiter: limiter,
	})

	event := s.log.Info().Str("driver", session.Driver().Name()).Str("limiter", limiter.Name())
	if limiter.Unlimited() {
		event.Msg("Browser session ready, action pacing disabled")
	} else {
		event.Int("actions_per_minute", bc.ActionsPerMinute).Msg("Browser session ready")
	}
	return session
}

// Scan logs in, reads the holdings and analyzes each target symbol.
// explicit, when non-empty, replaces the default selection of the first
// MaxSymbols holdings. Failures for one symbol skip it; login and holdings
// failures end the run. On cancellation the partial report is returned
// together with the context error. The browser is always closed.
func (s *Scanner) Scan(ctx context.Context, explicit []string) (*model.Report, error) {
	s.log.Info().Msg("[STEP 1] Starting browser and logging in")
	driver, err := s.launch(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Could not start browser")
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	session := s.newSession(driver)
	defer func() {
		if err := session.Quit(); err != nil {
			s.log.Warn().Err(err).Msg("Error closing browser")
			return
		}
		s.log.Info().Msg("Browser closed")
	}()

	b := s.newBroker(session)
	info, err := b.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Msg("[STEP 2] Opening holdings")
	if err := b.OpenHoldings(ctx); err != nil {
		return nil, fmt.Errorf("opening holdings: %w", err)
	}

	s.log.Info().Msg("[STEP 3] Fetching positions")
	positions, err := b.FetchPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	if len(positions) == 0 {
		s.log.Warn().Msg("No positions found in portfolio")
		return nil, ErrNoPositions
	}
	for _, p := range positions {
		s.log.Info().Msgf("  - %s: %s units @ %s", p.Symbol, p.Quantity, p.CurrentPrice)
	}

	targets := symbols.Select(explicit, positions, s.cfg.Chart.MaxSymbols)
	s.log.Info().Strs("symbols", targets).Msg("[STEP 4] Analyzing charts")
	s.progress(0, len(targets))

	results := make([]model.AnalysisResult, 0, len(targets))
	for i, sym := range targets {
		if ctx.Err() != nil {
			break
		}
		s.log.Info().Msgf("--- Analyzing %s ---", sym)
		result, err := s.analyze(ctx, b, sym)
		switch {
		case err == nil:
			results = append(results, *result)
			s.log.Info().Str("symbol", sym).Msg("Analysis complete")
		case errors.Is(err, errNotHeld):
			s.log.Warn().Str("symbol", sym).Msg("Position not found, skipping")
		case ctx.Err() != nil:
			s.log.Warn().Str("symbol", sym).Msg("Analysis interrupted")
		default:
			s.log.Error().Err(err).Str("symbol", sym).Msg("Failed to analyze")
		}
		s.progress(i+1, len(targets))
	}

	s.log.Info().Msg("[STEP 5] Building report")
	report := model.NewReport(uuid.NewString(), s.now(), results)
	report.Session = info
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// analyze runs the chart sequence for one symbol.
func (s *Scanner) analyze(ctx context.Context, b broker.Broker, symbol string) (*model.AnalysisResult, error) {
	position, ok := b.PositionBySymbol(symbol)
	if !ok {
		return nil, errNotHeld
	}
	// the portal's spelling, since chart lookup matches the cell text exactly
	symbol = position.Symbol

	if err := b.Open(ctx, symbol); err != nil {
		return nil, err
	}
	if _, err := b.SetTimeframe(ctx, s.cfg.Chart.Timeframe); err != nil {
		return nil, err
	}
	analysis, err := b.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.cfg.Output.Dir, fmt.Sprintf("chart_%s_%s.png", symbol, s.now().Format(TimestampLayout)))
	if !b.Screenshot(ctx, path) {
		path = ""
	}
	b.Close(ctx)

	return &model.AnalysisResult{
		Symbol:     symbol,
		Position:   position,
		Analysis:   analysis,
		Screenshot: path,
		Timestamp:  s.now(),
	}, nil
}
