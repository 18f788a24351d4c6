package repository

import (
	"context"
	"time"

	"AutoTrade/internal/domain/models"
)

// Broker is the gateway to the brokerage. Implementations must be safe for
// concurrent use; every call honors the passed context's deadline.
type Broker interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	AccountSummary(ctx context.Context) (*models.AccountSummary, error)
	OpenPositions(ctx context.Context) ([]models.Position, error)
	MarketPrice(ctx context.Context, ticker string) (float64, error)
	QualifyInstrument(ctx context.Context, ticker string) (*models.Instrument, error)
	SubmitOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderAck, error)
	CancelOrder(ctx context.Context, brokerOrderID int64) error
	OpenOrders(ctx context.Context) ([]models.OpenOrder, error)
	Close() error
}

// Store persists signals, orders, trades and daily aggregates.
type Store interface {
	InsertSignal(ctx context.Context, rec *models.SignalRecord) error
	UpdateSignalStatus(ctx context.Context, id, status, reason string) error
	InsertOrder(ctx context.Context, o *models.Order) error
	UpdateOrderByBrokerID(ctx context.Context, brokerOrderID int64, status string, fillPrice float64, filledAt time.Time) error
	InsertTrade(ctx context.Context, t *models.Trade) error
	TodayRealizedPnL(ctx context.Context, now time.Time) (float64, uint32, error)
	UpsertDailyPnL(ctx context.Context, p *models.DailyPnL) error
	DailyPnL(ctx context.Context, days int) ([]models.DailyPnL, error)
	Trades(ctx context.Context, from, to time.Time, limit int) ([]models.Trade, error)
	Health(ctx context.Context) error
}

// StateStore is a last-write-wins key/value store for operational toggles.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Metrics records pipeline observability counters and gauges.
type Metrics interface {
	RecordSignal(outcome string)
	RecordOrderSubmitted(ticker, action string)
	RecordFill(ticker string)
	RecordRealizedPnl(v float64)
	RecordLastPrice(ticker string, price float64)
	RecordLatency(op string, seconds float64)
}
