package models

import "time"

// AccountSummary is a point-in-time broker account snapshot.
type AccountSummary struct {
	NetLiquidation float64 `json:"net_liquidation"`
	BuyingPower    float64 `json:"buying_power"`
	UnrealizedPnl  float64 `json:"unrealized_pnl"`
	RealizedPnl    float64 `json:"realized_pnl"`
	DailyPnl       float64 `json:"daily_pnl"`
}

// Position is an open broker position. Quantity is negative for shorts.
type Position struct {
	Ticker   string  `json:"ticker"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// Instrument is a broker-qualified tradable contract.
type Instrument struct {
	ID       int64  `json:"id"`
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// OrderRequest is the broker-facing order submission payload.
type OrderRequest struct {
	Instrument Instrument `json:"instrument"`
	Action     string     `json:"action"`
	Quantity   float64    `json:"quantity"`
	OrderType  string     `json:"order_type"`
	LimitPrice float64    `json:"limit_price,omitempty"`
}

// OrderAck is the broker's acknowledgement of a submitted order.
type OrderAck struct {
	BrokerOrderID int64  `json:"broker_order_id"`
	Status        string `json:"status"`
}

// OpenOrder is a live order as reported by the broker.
type OpenOrder struct {
	BrokerOrderID int64   `json:"broker_order_id"`
	Ticker        string  `json:"ticker"`
	Action        string  `json:"action"`
	Quantity      float64 `json:"quantity"`
	Remaining     float64 `json:"remaining"`
	OrderType     string  `json:"order_type"`
	LimitPrice    float64 `json:"limit_price,omitempty"`
	Status        string  `json:"status"`
}

// MarketStatus reports whether the configured trading window is open.
type MarketStatus struct {
	Open      bool      `json:"open"`
	OpensAt   time.Time `json:"opens_at"`
	ClosesAt  time.Time `json:"closes_at"`
	Source    string    `json:"source"`
	CheckedAt time.Time `json:"checked_at"`
}
