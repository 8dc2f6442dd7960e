package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/optionpit/pkg/app/sim"
)

var (
	// ErrNotFound is returned when a journal lookup has no entry
	ErrNotFound = errors.New("not found")
	// ErrNotJournal is returned when the journal directory holds files that
	// do not belong to a journal
	ErrNotJournal = errors.New("directory is not empty and not a journal")
)

// TradeRecord is a journaled trade
type TradeRecord struct {
	Tick      int             `json:"tick"`
	Seq       int             `json:"seq"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Size      int64           `json:"size"`
	Buyer     int             `json:"buyer"`
	Seller    int             `json:"seller"`
	BuyOrder  uint64          `json:"buyOrder"`
	SellOrder uint64          `json:"sellOrder"`
}

// MarkRecord is one team's mark-to-market value after a tick
type MarkRecord struct {
	Tick int             `json:"tick"`
	Team int             `json:"team"`
	Mark decimal.Decimal `json:"mark"`
}

// ResultRecord is the journaled final settlement
type ResultRecord struct {
	RunID      string                  `json:"runId"`
	Ticks      int                     `json:"ticks"`
	Underlying decimal.Decimal         `json:"underlying"`
	PnL        map[int]decimal.Decimal `json:"pnl"`
}

// Journal records one run's trades, marks and result in Pebble.
//
// It is scoped to a single run. The directory holds a marker file and the
// pebble db; opening refuses a non-empty directory without the marker and
// otherwise replaces the previous run's db. Close removes only what the
// journal created, unless Keep is set.
type Journal struct {
	db      *pebble.DB
	dir     string
	runID   string
	created bool // dir did not exist before OpenJournal

	Keep   bool
	Logger *zap.Logger
}

const (
	markerFile = ".optionpit-journal"
	dbDir      = "db"
)

func OpenJournal(dir, runID string) (*Journal, error) {
	if dir == "" {
		return nil, fmt.Errorf("journal directory is empty")
	}
	created, err := prepareDir(dir)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, markerFile), []byte(runID+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write journal marker: %w", err)
	}

	db, err := pebble.Open(filepath.Join(dir, dbDir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dir, err)
	}
	if err := db.Set(keyRunID, []byte(runID), pebble.Sync); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to save run id: %w", err)
	}

	return &Journal{db: db, dir: dir, runID: runID, created: created, Logger: zap.NewNop()}, nil
}

// prepareDir makes dir ready for a fresh run and reports whether it had to
// create it. Only a directory that is missing, empty or marked as a journal
// is accepted; a previous run's db is dropped, nothing else is touched.
func prepareDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create journal at %s: %w", dir, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read journal at %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return false, nil
	}
	if _, err := os.Stat(filepath.Join(dir, markerFile)); err != nil {
		return false, fmt.Errorf("%w: %s", ErrNotJournal, dir)
	}
	if err := os.RemoveAll(filepath.Join(dir, dbDir)); err != nil {
		return false, fmt.Errorf("failed to clear journal at %s: %w", dir, err)
	}
	return false, nil
}

// Close closes the database and, unless Keep is set, removes the db and the
// marker, and the directory itself if OpenJournal created it
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	if j.Keep {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(j.dir, dbDir)); err != nil {
		return fmt.Errorf("failed to remove journal db at %s: %w", j.dir, err)
	}
	if err := os.Remove(filepath.Join(j.dir, markerFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove journal marker at %s: %w", j.dir, err)
	}
	if j.created {
		if err := os.Remove(j.dir); err != nil {
			return fmt.Errorf("failed to remove journal at %s: %w", j.dir, err)
		}
	}
	return nil
}

// RunID returns the run id the journal was opened for
func (j *Journal) RunID() string { return j.runID }

// RecordTick writes the tick's trades and marks in one batch
func (j *Journal) RecordTick(r sim.TickReport) error {
	b := j.db.NewBatch()
	defer b.Close()

	for i, t := range r.Trades {
		data, err := json.Marshal(TradeRecord{
			Tick:      r.Tick,
			Seq:       i,
			Symbol:    t.Symbol.String(),
			Price:     t.Price,
			Size:      t.Size,
			Buyer:     int(t.Buyer),
			Seller:    int(t.Seller),
			BuyOrder:  uint64(t.BuyOrder),
			SellOrder: uint64(t.SellOrder),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal trade: %w", err)
		}
		if err := b.Set(tradeKey(r.Tick, i), data, nil); err != nil {
			return fmt.Errorf("failed to stage trade: %w", err)
		}
	}

	for team, mark := range r.Marks {
		data, err := json.Marshal(MarkRecord{Tick: r.Tick, Team: int(team), Mark: mark})
		if err != nil {
			return fmt.Errorf("failed to marshal mark: %w", err)
		}
		if err := b.Set(markKey(int(team), r.Tick), data, nil); err != nil {
			return fmt.Errorf("failed to stage mark: %w", err)
		}
	}

	if err := b.Commit(pebble.NoSync); err != nil {
		return fmt.Errorf("failed to commit tick %d: %w", r.Tick, err)
	}
	j.Logger.Debug("journal_tick", zap.Int("tick", r.Tick), zap.Int("trades", len(r.Trades)))
	return nil
}

// RecordResult writes the final settlement
func (j *Journal) RecordResult(r sim.Result) error {
	pnl := make(map[int]decimal.Decimal, len(r.PnL))
	for team, v := range r.PnL {
		pnl[int(team)] = v
	}
	data, err := json.Marshal(ResultRecord{
		RunID:      r.RunID,
		Ticks:      r.Ticks,
		Underlying: r.Underlying,
		PnL:        pnl,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := j.db.Set(keyResult, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// Trades loads the trades of one tick in execution order
func (j *Journal) Trades(tick int) ([]TradeRecord, error) {
	var out []TradeRecord
	err := j.scan(tradeTickPrefix(tick), func(v []byte) error {
		var t TradeRecord
		if err := json.Unmarshal(v, &t); err != nil {
			return fmt.Errorf("failed to unmarshal trade: %w", err)
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// AllTrades loads every journaled trade in tick, then execution, order
func (j *Journal) AllTrades() ([]TradeRecord, error) {
	var out []TradeRecord
	err := j.scan(prefixTrade, func(v []byte) error {
		var t TradeRecord
		if err := json.Unmarshal(v, &t); err != nil {
			return fmt.Errorf("failed to unmarshal trade: %w", err)
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// Marks loads a team's mark history in tick order
func (j *Journal) Marks(team int) ([]MarkRecord, error) {
	var out []MarkRecord
	err := j.scan(markTeamPrefix(team), func(v []byte) error {
		var m MarkRecord
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("failed to unmarshal mark: %w", err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// Result loads the final settlement, ErrNotFound before the run settles
func (j *Journal) Result() (ResultRecord, error) {
	data, closer, err := j.db.Get(keyResult)
	if err == pebble.ErrNotFound {
		return ResultRecord{}, ErrNotFound
	}
	if err != nil {
		return ResultRecord{}, fmt.Errorf("failed to get result: %w", err)
	}
	defer closer.Close()

	var r ResultRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return ResultRecord{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return r, nil
}

func (j *Journal) scan(prefix []byte, fn func(v []byte) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

var _ sim.Recorder = (*Journal)(nil)
