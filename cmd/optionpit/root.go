package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhyunpark/optionpit/params"
	"github.com/uhyunpark/optionpit/pkg/api"
	"github.com/uhyunpark/optionpit/pkg/app/core/engine"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/sim"
	"github.com/uhyunpark/optionpit/pkg/metrics"
	"github.com/uhyunpark/optionpit/pkg/storage"
	"github.com/uhyunpark/optionpit/pkg/util"
)

type flags struct {
	envFile      string
	teams        int
	ticks        int
	strikes      string
	seed         int64
	tickInterval time.Duration
	journalDir   string
	keepJournal  bool
	apiAddr      string
	linger       time.Duration
	logLevel     string
	logFile      string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "optionpit",
		Short: "Run a tick-batched options trading simulation",
		Long: `optionpit runs a fixed set of random-strategy teams against a shared set of
option order books. Orders are matched once per tick; positions settle at expiry
against the sum of one card dealt to each team.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.envFile, "env", "", "path to a .env file (default: ./.env if present)")
	fs.IntVar(&f.teams, "teams", 0, "number of teams")
	fs.IntVar(&f.ticks, "ticks", 0, "number of ticks before expiry")
	fs.StringVar(&f.strikes, "strikes", "", "comma-separated strike list, e.g. 50,60,70")
	fs.Int64Var(&f.seed, "seed", 0, "random seed (0 = from clock)")
	fs.DurationVar(&f.tickInterval, "tick-interval", 0, "pause between ticks")
	fs.StringVar(&f.journalDir, "journal", "", "pebble journal directory (empty = no journal)")
	fs.BoolVar(&f.keepJournal, "keep-journal", false, "keep the journal directory after the run")
	fs.StringVar(&f.apiAddr, "api", "", "observer API listen address, e.g. :8080 (empty = off)")
	fs.DurationVar(&f.linger, "linger", 0, "keep the observer API up this long after settlement")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "also write logs to this file")
	return cmd
}

// loadConfig applies env, then any flag the user set explicitly
func loadConfig(cmd *cobra.Command, f flags) (params.Config, error) {
	cfg, err := params.LoadFromEnv(f.envFile)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("teams") {
		cfg.Sim.Teams = f.teams
	}
	if changed("ticks") {
		cfg.Sim.Ticks = f.ticks
	}
	if changed("strikes") {
		strikes, err := params.ParseStrikes(f.strikes)
		if err != nil {
			return cfg, fmt.Errorf("--strikes: %w", err)
		}
		cfg.Sim.Strikes = strikes
	}
	if changed("seed") {
		cfg.Sim.Seed = f.seed
	}
	if changed("tick-interval") {
		cfg.Sim.TickInterval = f.tickInterval
	}
	if changed("journal") {
		cfg.Journal.Dir = f.journalDir
	}
	if changed("keep-journal") {
		cfg.Journal.Keep = f.keepJournal
	}
	if changed("api") {
		cfg.API.Addr = f.apiAddr
	}
	if changed("linger") {
		cfg.API.Linger = f.linger
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg params.Config, out io.Writer) error {
	logger, err := util.NewLoggerWithFile(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	markets, err := market.NewRegistry(cfg.Sim.Strikes)
	if err != nil {
		return fmt.Errorf("markets: %w", err)
	}
	collector := metrics.New()

	eng := engine.New(markets, cfg.Sim.Teams)
	eng.Logger = logger.Named("engine")
	eng.Metrics = collector

	deck, err := sim.NewCardDeck(cfg.Sim.Teams, seed)
	if err != nil {
		return err
	}
	strategies := make([]sim.Strategy, cfg.Sim.Teams)
	for i := range strategies {
		strategies[i] = sim.NewRandomStrategy(seed+int64(i)+1, markets.Symbols())
	}

	s, err := sim.New(eng, strategies, deck, sim.Config{
		Ticks:        cfg.Sim.Ticks,
		TickInterval: cfg.Sim.TickInterval,
	})
	if err != nil {
		return err
	}
	s.Logger = logger.Named("sim")
	s.Metrics = collector

	logger.Info("run_starting",
		zap.String("run_id", s.RunID),
		zap.Int("teams", cfg.Sim.Teams),
		zap.Int("ticks", cfg.Sim.Ticks),
		zap.Int("symbols", markets.Count()),
		zap.Int64("seed", seed))

	if cfg.Journal.Dir != "" {
		journal, err := storage.OpenJournal(cfg.Journal.Dir, s.RunID)
		if err != nil {
			return err
		}
		journal.Keep = cfg.Journal.Keep
		journal.Logger = logger.Named("journal")
		defer func() {
			if err := journal.Close(); err != nil {
				logger.Warn("journal_close_failed", zap.Error(err))
			}
		}()
		s.AddRecorder(journal)
	}

	if cfg.API.Addr != "" {
		hub := api.NewHub(logger.Named("ws"))
		feed := api.NewFeed(eng, hub)
		s.AddRecorder(feed)

		srv := api.NewServer(feed, hub, collector, logger.Named("api"))
		srv.AllowedOrigins = cfg.API.AllowedOrigins
		go func() {
			if err := srv.Start(ctx, cfg.API.Addr); err != nil {
				logger.Error("api_server_failed", zap.Error(err))
			}
		}()
	}

	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	printResult(out, res)

	if cfg.API.Addr != "" && cfg.API.Linger > 0 {
		logger.Info("api_lingering", zap.String("addr", cfg.API.Addr), zap.Duration("linger", cfg.API.Linger))
		// an interrupt only cuts the linger short; the run itself completed
		_ = util.Wait(ctx, util.RealClock{}, cfg.API.Linger)
	}
	return nil
}

func printResult(w io.Writer, res sim.Result) {
	fmt.Fprintln(w, "\n--- FINAL RESULTS ---")
	fmt.Fprintf(w, "Final sum of all cards = %s\n", res.Underlying)

	for _, r := range res.Breakdown {
		fmt.Fprintf(w, "Team %d: Final PnL = %s (cash %s, payoff %s)\n",
			int(r.Team), r.PnL.StringFixed(2), r.Cash.StringFixed(2), r.Payoff.StringFixed(2))
	}
}
