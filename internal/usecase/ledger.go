package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	applogger "AutoTrade/pkg/logger"
	"AutoTrade/pkg/util"
)

// Ledger reconciles broker push events with storage and keeps the per-day
// P&L aggregate current. Daily figures are always recomputed from the trades
// table, never incremented, so replays and restarts converge to the same row.
type Ledger struct {
	store   repository.Store
	broker  repository.Broker
	metrics repository.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewLedger(store repository.Store, broker repository.Broker, metrics repository.Metrics, l *applogger.Logger) *Ledger {
	return &Ledger{
		store:   store,
		broker:  broker,
		metrics: metrics,
		l:       l,
		now:     time.Now,
	}
}

// SetClock overrides the ledger's clock. Used by tests.
func (lg *Ledger) SetClock(now func() time.Time) { lg.now = now }

// brokerStatuses maps gateway status names onto the stored vocabulary.
var brokerStatuses = map[string]string{
	"presubmitted":    models.OrderStatusSubmitted,
	"pendingsubmit":   models.OrderStatusSubmitted,
	"submitted":       models.OrderStatusSubmitted,
	"filled":          models.OrderStatusFilled,
	"partiallyfilled": models.OrderStatusPartiallyFilled,
	"cancelled":       models.OrderStatusCancelled,
	"apicancelled":    models.OrderStatusCancelled,
	"inactive":        models.OrderStatusRejected,
	"rejected":        models.OrderStatusRejected,
}

// HandleOrderStatus applies a broker order-status event to the orders table.
func (lg *Ledger) HandleOrderStatus(ctx context.Context, ev *models.OrderStatusEvent) error {
	status := strings.ToLower(ev.Status)
	if mapped, ok := brokerStatuses[status]; ok {
		status = mapped
	}
	if err := lg.store.UpdateOrderByBrokerID(ctx, ev.BrokerOrderID, status, ev.AvgFillPrice, ev.Timestamp); err != nil {
		return fmt.Errorf("apply order status: %w", err)
	}
	if ev.AvgFillPrice > 0 {
		lg.metrics.RecordLastPrice(ev.Ticker, ev.AvgFillPrice)
	}
	lg.l.Debug("order status applied",
		applogger.Int64("broker_order_id", ev.BrokerOrderID),
		applogger.String("status", status),
	)
	return nil
}

// HandleFill processes an execution report. A fill that realized P&L closed
// (part of) a position and materializes a Trade row immediately; a plain
// opening fill only updates metrics.
func (lg *Ledger) HandleFill(ctx context.Context, ev *models.FillEvent) error {
	lg.metrics.RecordFill(ev.Ticker)
	if ev.Price > 0 {
		lg.metrics.RecordLastPrice(ev.Ticker, ev.Price)
	}

	if ev.RealizedPnl == 0 {
		return nil
	}

	closedAt := ev.Timestamp
	if closedAt.IsZero() {
		closedAt = lg.now().UTC()
	}
	trade := &models.Trade{
		Ticker:     ev.Ticker,
		EntryPrice: lg.entryPrice(ctx, ev),
		ExitPrice:  ev.Price,
		Quantity:   ev.Quantity,
		Pnl:        ev.RealizedPnl,
		// The broker does not report when the lot was opened; the fill time
		// is the closest available stamp for both ends.
		OpenedAt: closedAt,
		ClosedAt: closedAt,
	}

	if err := lg.store.InsertTrade(ctx, trade); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}
	lg.l.Info("trade recorded",
		applogger.String("ticker", ev.Ticker),
		applogger.Float64("pnl", ev.RealizedPnl),
	)

	if err := lg.UpdateDaily(ctx); err != nil {
		// The periodic refresh will catch it up.
		lg.l.Warn("daily pnl refresh after fill failed", applogger.Error(err))
	}
	return nil
}

// entryPrice makes a best-effort guess at the closed position's entry. The
// broker does not echo it on the fill, so the held position's average cost is
// the closest available figure; zero when the position is already gone.
func (lg *Ledger) entryPrice(ctx context.Context, ev *models.FillEvent) float64 {
	positions, err := lg.broker.OpenPositions(ctx)
	if err != nil {
		lg.l.Debug("entry price lookup failed", applogger.Error(err))
		return 0
	}
	for _, p := range positions {
		if p.Ticker == ev.Ticker {
			return p.AvgCost
		}
	}
	return 0
}

// UpdateDaily recomputes today's aggregate from the trades table and the
// broker account snapshot, then upserts the daily row. Safe to call from the
// fill path and the periodic refresher concurrently.
func (lg *Ledger) UpdateDaily(ctx context.Context) error {
	now := lg.now()
	realized, trades, err := lg.store.TodayRealizedPnL(ctx, now)
	if err != nil {
		return fmt.Errorf("recompute realized: %w", err)
	}

	var unrealized float64
	if acct, err := lg.broker.AccountSummary(ctx); err != nil {
		lg.l.Warn("account snapshot unavailable, unrealized kept at zero", applogger.Error(err))
	} else {
		unrealized = acct.UnrealizedPnl
	}

	row := &models.DailyPnL{
		Date:          util.DateKey(now),
		RealizedPnl:   realized,
		UnrealizedPnl: unrealized,
		TotalTrades:   trades,
		UpdatedAt:     now.UTC(),
	}
	if err := lg.store.UpsertDailyPnL(ctx, row); err != nil {
		return fmt.Errorf("upsert daily pnl: %w", err)
	}

	lg.metrics.RecordRealizedPnl(realized)
	return nil
}

// Report renders a plain-text snapshot of today's P&L.
func (lg *Ledger) Report(ctx context.Context) (string, error) {
	now := lg.now()
	realized, trades, err := lg.store.TodayRealizedPnL(ctx, now)
	if err != nil {
		return "", fmt.Errorf("report realized: %w", err)
	}

	var unrealized float64
	if acct, err := lg.broker.AccountSummary(ctx); err == nil {
		unrealized = acct.UnrealizedPnl
	}

	var b strings.Builder
	fmt.Fprintf(&b, "P&L %s\n", util.DateKey(now))
	fmt.Fprintf(&b, "  realized:   %+.2f\n", realized)
	fmt.Fprintf(&b, "  unrealized: %+.2f\n", unrealized)
	fmt.Fprintf(&b, "  total:      %+.2f\n", realized+unrealized)
	fmt.Fprintf(&b, "  trades:     %d\n", trades)
	return b.String(), nil
}
