package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AutoTrade/internal/domain/models"
	pkgch "AutoTrade/pkg/clickhouse"
	applogger "AutoTrade/pkg/logger"
	"AutoTrade/pkg/util"
)

// Schema statements run once at startup (see di.ProvideClickHouse).
// daily_pnl uses ReplacingMergeTree keyed by date so the upsert is just an
// insert; the latest updated_at wins on merge.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS signals (
        id String,
        raw String,
        ticker String,
        action String,
        quantity String,
        price Float64,
        status String,
        reason String,
        received_at DateTime64(3)
    ) ENGINE = MergeTree ORDER BY received_at`,
	`CREATE TABLE IF NOT EXISTS orders (
        id String,
        signal_id String,
        broker_order_id Int64,
        ticker String,
        action String,
        quantity Float64,
        order_type String,
        limit_price Float64,
        status String,
        fill_price Float64,
        created_at DateTime64(3),
        filled_at DateTime64(3)
    ) ENGINE = MergeTree ORDER BY created_at`,
	`CREATE TABLE IF NOT EXISTS trades (
        ticker String,
        entry_price Float64,
        exit_price Float64,
        quantity Float64,
        pnl Float64,
        opened_at DateTime64(3),
        closed_at DateTime64(3)
    ) ENGINE = MergeTree ORDER BY closed_at`,
	`CREATE TABLE IF NOT EXISTS daily_pnl (
        date Date,
        realized_pnl Float64,
        unrealized_pnl Float64,
        total_trades UInt32,
        updated_at DateTime64(3)
    ) ENGINE = ReplacingMergeTree(updated_at) ORDER BY date`,
}

// CHStore implements repository.Store backed by ClickHouse.
type CHStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{db: ch.DB(), l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHStore) InsertSignal(ctx context.Context, rec *models.SignalRecord) error {
	const q = `INSERT INTO signals (id, raw, ticker, action, quantity, price, status, reason, received_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		string(rec.Signal.Raw),
		rec.Signal.Ticker,
		rec.Signal.Action,
		rec.Signal.Quantity,
		rec.Signal.Price,
		rec.Status,
		rec.Reason,
		rec.ReceivedAt,
	)
	if err != nil {
		s.l.Error("clickhouse insert_signal error",
			applogger.String("id", rec.ID),
			applogger.Error(err),
		)
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// UpdateSignalStatus rewrites a signal's status through a mutation. Write
// volume here is one row per webhook, well within mutation tolerance.
func (s *CHStore) UpdateSignalStatus(ctx context.Context, id, status, reason string) error {
	const q = `ALTER TABLE signals UPDATE status = ?, reason = ? WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, status, reason, id); err != nil {
		s.l.Error("clickhouse update_signal_status error",
			applogger.String("id", id),
			applogger.String("status", status),
			applogger.Error(err),
		)
		return fmt.Errorf("update signal status: %w", err)
	}
	return nil
}

func (s *CHStore) InsertOrder(ctx context.Context, o *models.Order) error {
	const q = `INSERT INTO orders (id, signal_id, broker_order_id, ticker, action, quantity,
               order_type, limit_price, status, fill_price, created_at, filled_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		o.ID,
		o.SignalID,
		o.BrokerOrderID,
		o.Ticker,
		o.Action,
		o.Quantity,
		o.OrderType,
		o.LimitPrice,
		o.Status,
		o.FillPrice,
		o.CreatedAt,
		o.FilledAt,
	)
	if err != nil {
		s.l.Error("clickhouse insert_order error",
			applogger.String("id", o.ID),
			applogger.Error(err),
		)
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *CHStore) UpdateOrderByBrokerID(ctx context.Context, brokerOrderID int64, status string, fillPrice float64, filledAt time.Time) error {
	const q = `ALTER TABLE orders UPDATE status = ?, fill_price = ?, filled_at = ? WHERE broker_order_id = ?`
	if _, err := s.db.ExecContext(ctx, q, status, fillPrice, filledAt, brokerOrderID); err != nil {
		s.l.Error("clickhouse update_order error",
			applogger.Int64("broker_order_id", brokerOrderID),
			applogger.String("status", status),
			applogger.Error(err),
		)
		return fmt.Errorf("update order: %w", err)
	}
	return nil
}

func (s *CHStore) InsertTrade(ctx context.Context, t *models.Trade) error {
	const q = `INSERT INTO trades (ticker, entry_price, exit_price, quantity, pnl, opened_at, closed_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		t.Ticker, t.EntryPrice, t.ExitPrice, t.Quantity, t.Pnl, t.OpenedAt, t.ClosedAt,
	)
	if err != nil {
		s.l.Error("clickhouse insert_trade error",
			applogger.String("ticker", t.Ticker),
			applogger.Error(err),
		)
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// TodayRealizedPnL recomputes the realized figure for the local day that
// contains now, straight from the trades table.
func (s *CHStore) TodayRealizedPnL(ctx context.Context, now time.Time) (float64, uint32, error) {
	from, to := util.DayBounds(now)
	const q = `SELECT sum(pnl), count() FROM trades WHERE closed_at >= ? AND closed_at < ?`
	var pnl float64
	var trades uint64
	if err := s.db.QueryRowContext(ctx, q, from, to).Scan(&pnl, &trades); err != nil {
		s.l.Error("clickhouse today_realized query error", applogger.Error(err))
		return 0, 0, fmt.Errorf("today realized pnl: %w", err)
	}
	return pnl, uint32(trades), nil
}

func (s *CHStore) UpsertDailyPnL(ctx context.Context, p *models.DailyPnL) error {
	const q = `INSERT INTO daily_pnl (date, realized_pnl, unrealized_pnl, total_trades, updated_at)
               VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		p.Date, p.RealizedPnl, p.UnrealizedPnl, p.TotalTrades, p.UpdatedAt,
	)
	if err != nil {
		s.l.Error("clickhouse upsert_daily_pnl error",
			applogger.String("date", p.Date),
			applogger.Error(err),
		)
		return fmt.Errorf("upsert daily pnl: %w", err)
	}
	return nil
}

func (s *CHStore) DailyPnL(ctx context.Context, days int) ([]models.DailyPnL, error) {
	const q = `SELECT toString(date), realized_pnl, unrealized_pnl, total_trades, updated_at
               FROM daily_pnl FINAL
               ORDER BY date DESC
               LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, days)
	if err != nil {
		s.l.Error("clickhouse daily_pnl query error", applogger.Error(err))
		return nil, fmt.Errorf("daily pnl: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyPnL, 0, days)
	for rows.Next() {
		var p models.DailyPnL
		if err := rows.Scan(&p.Date, &p.RealizedPnl, &p.UnrealizedPnl, &p.TotalTrades, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan daily pnl: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStore) Trades(ctx context.Context, from, to time.Time, limit int) ([]models.Trade, error) {
	const q = `SELECT ticker, entry_price, exit_price, quantity, pnl, opened_at, closed_at
               FROM trades
               WHERE closed_at >= ? AND closed_at <= ?
               ORDER BY closed_at DESC
               LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, from, to, limit)
	if err != nil {
		s.l.Error("clickhouse trades query error", applogger.Error(err))
		return nil, fmt.Errorf("trades: %w", err)
	}
	defer rows.Close()

	out := make([]models.Trade, 0, limit)
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.Ticker, &t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.Pnl, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
