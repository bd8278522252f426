package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"holdingscope/internal/broker"
	"holdingscope/internal/broker/kotak"
	"holdingscope/internal/browser"
	"holdingscope/internal/config"
	"holdingscope/internal/logging"
	"holdingscope/internal/notifier"
	"holdingscope/internal/report"
	"holdingscope/internal/scanner"
	"holdingscope/internal/scheduler"
	"holdingscope/internal/symbols"
	"holdingscope/pkg/model"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "holdingscope [SYMBOL...]",
		Short: "Analyze the candlestick charts of your Kotak Securities holdings",
		Long: `Holdingscope logs in to the Kotak Securities web portal, reads your holdings
and opens the chart of each symbol to record price, OHLC and trend.

Without symbols the first MAX_SYMBOLS holdings (default 3) are analyzed.
Settings come from holdingscope.yaml (or CONFIG_PATH), .env and the environment.

Examples:
  holdingscope
  holdingscope TCS INFY
  holdingscope schedule`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "schedule [SYMBOL...]",
		Short: "Run the analysis on SCHEDULE_CRON until interrupted",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSchedule,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs after startup.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	closer func()
}

func setup() (*app, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	log, file, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	return &app{
		cfg: cfg,
		log: log,
		closer: func() {
			file.Close()
		},
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warn().Msg("Interrupted. Stopping and closing the browser...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func run(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.closer()

	ctx, cancel := signalContext(a.log)
	defer cancel()

	return a.scanOnce(ctx, symbols.Normalize(args), true)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.closer()

	ctx, cancel := signalContext(a.log)
	defer cancel()

	explicit := symbols.Normalize(args)
	s := scheduler.NewScheduler(ctx, logging.Component(a.log, "scheduler"), a.cfg.Schedule.MarketHoursOnly)
	if err := s.Register(a.cfg.Schedule.Cron, func(ctx context.Context) error {
		return a.scanOnce(ctx, explicit, false)
	}); err != nil {
		return err
	}

	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// scanOnce runs one scan and handles its report.
func (a *app) scanOnce(ctx context.Context, explicit []string, showProgress bool) error {
	cfg := a.cfg
	log := a.log

	log.Info().Msg("============================================================")
	log.Info().Msg("Starting Kotak Securities analysis")
	log.Info().Msg("============================================================")

	sc := scanner.NewScanner(cfg, a.launcher(), a.brokerFactory(), logging.Component(log, "scanner"))
	if showProgress {
		var bar *progressbar.ProgressBar
		sc.SetProgressCallback(func(analyzed, total int) {
			if bar == nil {
				bar = newProgressBar(total)
			}
			bar.Set(analyzed)
		})
	}

	rep, err := sc.Scan(ctx, explicit)
	if errors.Is(err, scanner.ErrNoPositions) {
		return nil
	}
	if rep != nil {
		a.handleReport(ctx, rep)
	}
	if err != nil {
		log.Error().Err(err).Msg("Fatal error in execution")
		return err
	}

	log.Info().Msg("Analysis complete")
	return nil
}

func (a *app) handleReport(ctx context.Context, rep *model.Report) {
	w := report.NewWriter(a.cfg.Output.Dir)
	if path, err := w.Write(rep); err != nil {
		a.log.Error().Err(err).Msg("Failed to save report")
	} else {
		a.log.Info().Str("path", path).Msg("Report saved")
	}

	fmt.Println()
	if err := report.PrintSummary(os.Stdout, rep); err != nil {
		a.log.Error().Err(err).Msg("Failed to print summary")
	}

	if !a.cfg.Telegram.Enabled() || ctx.Err() != nil {
		return
	}
	n := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, "")
	if err := n.Send(ctx, notifier.FormatReport(rep)); err != nil {
		a.log.Warn().Err(err).Msg("Telegram notification failed")
		return
	}
	a.log.Info().Msg("Telegram summary sent")
}

func (a *app) launcher() scanner.Launcher {
	bc := a.cfg.Browser
	return func(ctx context.Context) (browser.Driver, error) {
		return browser.Launch(ctx, browser.Options{
			Browser:   bc.Name,
			Headless:  bc.Headless,
			Path:      bc.Path,
			OpTimeout: bc.ExplicitWait.Duration(),
			Logger:    logging.Component(a.log, "browser"),
		})
	}
}

func (a *app) brokerFactory() scanner.BrokerFactory {
	cfg := a.cfg
	return func(s *browser.Session) broker.Broker {
		return kotak.New(s, kotak.Options{
			LoginURL:         cfg.Portal.LoginURL,
			PortfolioURL:     cfg.Portal.PortfolioURL,
			PhoneNumber:      cfg.Portal.PhoneNumber,
			Password:         cfg.Portal.Password,
			SessionTokenKey:  cfg.Portal.SessionTokenKey,
			ExplicitWait:     cfg.Browser.ExplicitWait.Duration(),
			AnalysisDuration: cfg.Chart.AnalysisDuration.Duration(),
			OutputDir:        cfg.Output.Dir,
			Logger:           logging.Component(a.log, "kotak"),
		})
	}
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Analyzing"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
