// Package sim drives the tick loop: strategies place orders, the engine
// matches once, marks are recorded, and positions settle at expiry.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/optionpit/pkg/app/core/engine"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
	"github.com/uhyunpark/optionpit/pkg/app/core/settlement"
	"github.com/uhyunpark/optionpit/pkg/metrics"
	"github.com/uhyunpark/optionpit/pkg/util"
)

// Fault records a strategy that errored or panicked on a tick
type Fault struct {
	Team orderbook.TeamID
	Err  error
}

// TickReport is the per-tick output, available right after matching.
// Tick 0 reports the opening marks and never has trades.
type TickReport struct {
	RunID   string
	Tick    int
	Trades  []engine.Trade
	Marks   map[orderbook.TeamID]decimal.Decimal
	Faults  []Fault
	Placed  int
	Ignored int
}

// Result is the run's final output
type Result struct {
	RunID      string
	Ticks      int
	Underlying decimal.Decimal
	PnL        map[orderbook.TeamID]decimal.Decimal
	Breakdown  []settlement.TeamResult
	// History per team: the tick-0 mark, one mark per tick, then the final PnL
	History map[orderbook.TeamID][]decimal.Decimal
}

// Recorder consumes per-tick and final output (journal, API feed, charts)
type Recorder interface {
	RecordTick(r TickReport) error
	RecordResult(r Result) error
}

type Config struct {
	Ticks        int
	TickInterval time.Duration // pause between ticks; 0 runs flat out
}

type Simulation struct {
	RunID string

	engine     *engine.Engine
	strategies []Strategy
	underlying UnderlyingProvider
	cfg        Config
	recorders  []Recorder
	history    map[orderbook.TeamID][]decimal.Decimal

	Logger  *zap.Logger
	Metrics *metrics.Collector
	Clock   util.Clock
}

// New wires a simulation. strategies[i] plays team i, so there must be one
// strategy per ledger account.
func New(eng *engine.Engine, strategies []Strategy, underlying UnderlyingProvider, cfg Config) (*Simulation, error) {
	teams := eng.Ledger().Teams()
	if len(strategies) != len(teams) {
		return nil, fmt.Errorf("need %d strategies, got %d", len(teams), len(strategies))
	}
	for i, st := range strategies {
		if st == nil {
			return nil, fmt.Errorf("strategy for team %d is nil", i)
		}
	}
	if underlying == nil {
		return nil, fmt.Errorf("underlying provider is nil")
	}
	if cfg.Ticks < 0 {
		return nil, fmt.Errorf("ticks must not be negative: %d", cfg.Ticks)
	}

	return &Simulation{
		RunID:      uuid.NewString(),
		engine:     eng,
		strategies: strategies,
		underlying: underlying,
		cfg:        cfg,
		history:    make(map[orderbook.TeamID][]decimal.Decimal, len(teams)),
		Logger:     zap.NewNop(),
		Clock:      util.RealClock{},
	}, nil
}

func (s *Simulation) AddRecorder(r Recorder) {
	s.recorders = append(s.recorders, r)
}

// Engine exposes the engine for read access (books, ledger)
func (s *Simulation) Engine() *engine.Engine {
	return s.engine
}

// Run publishes the opening marks as tick 0, plays every tick and settles.
// A cancelled ctx stops the run between ticks; nothing is settled in that
// case.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("run not started: %w", err)
	}
	// tick 0 carries the opening marks, before any order is placed
	s.publishTick(TickReport{RunID: s.RunID, Tick: 0, Marks: s.recordMarks()})

	var last []TeamOrders
	for tick := 1; tick <= s.cfg.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("run stopped before tick %d: %w", tick, err)
		}

		var report TickReport
		report, last = s.Step(tick, last)
		s.publishTick(report)

		if tick < s.cfg.Ticks {
			if err := util.Wait(ctx, s.Clock, s.cfg.TickInterval); err != nil {
				return Result{}, fmt.Errorf("run stopped after tick %d: %w", tick, err)
			}
		}
	}

	res := s.Settle()
	for _, r := range s.recorders {
		if err := r.RecordResult(res); err != nil {
			s.Logger.Warn("recorder_failed", zap.String("stage", "result"), zap.Error(err))
		}
	}
	return res, nil
}

// Step runs one tick: every team's strategy in team order, every request
// placed in the order produced, then a single MatchAll. It returns the
// tick's report and the order flow to hand to the next tick.
func (s *Simulation) Step(tick int, last []TeamOrders) (TickReport, []TeamOrders) {
	start := s.Clock.Now()
	report := TickReport{RunID: s.RunID, Tick: tick}
	flow := make([]TeamOrders, 0, len(s.strategies))

	for i := range s.strategies {
		team := orderbook.TeamID(i)
		reqs, err := s.callStrategy(team, last, tick)
		if err != nil {
			s.Logger.Warn("strategy_failed",
				zap.Int("team", i),
				zap.Int("tick", tick),
				zap.Error(err))
			s.Metrics.StrategyFault(i)
			report.Faults = append(report.Faults, Fault{Team: team, Err: err})
			reqs = nil
		}
		for _, req := range reqs {
			if _, ok := s.engine.Place(team, req); ok {
				report.Placed++
			} else {
				report.Ignored++
			}
		}
		flow = append(flow, TeamOrders{Team: team, Requests: reqs})
	}

	report.Trades = s.engine.MatchAll()
	report.Marks = s.recordMarks()
	s.Metrics.Tick()

	s.Logger.Debug("tick_completed",
		zap.Int("tick", tick),
		zap.Int("placed", report.Placed),
		zap.Int("ignored", report.Ignored),
		zap.Int("trades", len(report.Trades)),
		zap.Int("open_orders", s.engine.OpenOrderCount()),
		zap.Duration("elapsed", s.Clock.Now().Sub(start)))
	return report, flow
}

// callStrategy isolates a team's fault from the rest of the run
func (s *Simulation) callStrategy(team orderbook.TeamID, last []TeamOrders, tick int) (reqs []engine.OrderRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
			reqs = nil
		}
	}()
	return s.strategies[team].Orders(cloneOrders(last), team, tick)
}

func (s *Simulation) recordMarks() map[orderbook.TeamID]decimal.Decimal {
	marks := make(map[orderbook.TeamID]decimal.Decimal, len(s.strategies))
	for i := range s.strategies {
		team := orderbook.TeamID(i)
		m := s.engine.MarkToMarket(team)
		marks[team] = m
		s.history[team] = append(s.history[team], m)
		s.Metrics.TeamMark(i, m.InexactFloat64())
	}
	return marks
}

func (s *Simulation) publishTick(report TickReport) {
	for _, r := range s.recorders {
		if err := r.RecordTick(report); err != nil {
			s.Logger.Warn("recorder_failed",
				zap.String("stage", "tick"),
				zap.Int("tick", report.Tick),
				zap.Error(err))
		}
	}
}

// Settle reads the final underlying once and computes final PnL
func (s *Simulation) Settle() Result {
	u := s.underlying.FinalUnderlying()
	breakdown := settlement.Breakdown(s.engine.Ledger(), u)

	pnl := make(map[orderbook.TeamID]decimal.Decimal, len(breakdown))
	for _, r := range breakdown {
		pnl[r.Team] = r.PnL
		s.history[r.Team] = append(s.history[r.Team], r.PnL)
	}

	history := make(map[orderbook.TeamID][]decimal.Decimal, len(s.history))
	for team, h := range s.history {
		history[team] = append([]decimal.Decimal(nil), h...)
	}

	s.Logger.Info("run_settled",
		zap.String("run_id", s.RunID),
		zap.Stringer("underlying", u),
		zap.Int("ticks", s.cfg.Ticks))

	return Result{
		RunID:      s.RunID,
		Ticks:      s.cfg.Ticks,
		Underlying: u,
		PnL:        pnl,
		Breakdown:  breakdown,
		History:    history,
	}
}
