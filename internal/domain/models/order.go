package models

import "time"

// Order statuses as reported by the broker gateway.
const (
	OrderStatusSubmitted       = "submitted"
	OrderStatusFilled          = "filled"
	OrderStatusPartiallyFilled = "partially_filled"
	OrderStatusCancelled       = "cancelled"
	OrderStatusRejected        = "rejected"
)

// Order is a broker order tied back to the signal that produced it.
type Order struct {
	ID            string    `json:"id"`
	SignalID      string    `json:"signal_id"`
	BrokerOrderID int64     `json:"broker_order_id"`
	Ticker        string    `json:"ticker"`
	Action        string    `json:"action"`
	Quantity      float64   `json:"quantity"`
	OrderType     string    `json:"order_type"`
	LimitPrice    float64   `json:"limit_price,omitempty"`
	Status        string    `json:"status"`
	FillPrice     float64   `json:"fill_price,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	FilledAt      time.Time `json:"filled_at,omitempty"`
}

// Trade is a closed round trip materialized from a fill that realized P&L.
type Trade struct {
	Ticker     string    `json:"ticker"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	Pnl        float64   `json:"pnl"`
	OpenedAt   time.Time `json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
}

// DailyPnL is the per-local-day aggregate row, recomputed from source on
// every update.
type DailyPnL struct {
	Date          string    `json:"date"`
	RealizedPnl   float64   `json:"realized_pnl"`
	UnrealizedPnl float64   `json:"unrealized_pnl"`
	TotalTrades   uint32    `json:"total_trades"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SystemState is a last-write-wins key/value pair for operational toggles
// such as trading_status.
type SystemState struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known system state keys and values.
const (
	StateKeyTradingStatus = "trading_status"

	TradingStatusActive = "active"
	TradingStatusPaused = "paused"
)
