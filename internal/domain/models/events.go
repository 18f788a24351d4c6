package models

import "time"

// OrderStatusEvent is a broker push notification about an order's lifecycle,
// republished onto the order-status topic.
type OrderStatusEvent struct {
	BrokerOrderID int64     `json:"broker_order_id"`
	Ticker        string    `json:"ticker"`
	Status        string    `json:"status"`
	Filled        float64   `json:"filled"`
	Remaining     float64   `json:"remaining"`
	AvgFillPrice  float64   `json:"avg_fill_price"`
	Timestamp     time.Time `json:"timestamp"`
}

// FillEvent is an execution report republished onto the fills topic.
// RealizedPnl is non-zero only when the fill closed (part of) a position.
type FillEvent struct {
	BrokerOrderID int64     `json:"broker_order_id"`
	ExecutionID   string    `json:"execution_id"`
	Ticker        string    `json:"ticker"`
	Action        string    `json:"action"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	RealizedPnl   float64   `json:"realized_pnl"`
	Commission    float64   `json:"commission"`
	Timestamp     time.Time `json:"timestamp"`
}
