package models

import (
	"strconv"
	"strings"
	"time"
)

// Signal statuses, in lifecycle order. Transitions are monotonic:
// received -> rejected, or received -> executing -> placed|error.
const (
	SignalStatusReceived  = "received"
	SignalStatusRejected  = "rejected"
	SignalStatusExecuting = "executing"
	SignalStatusPlaced    = "placed"
	SignalStatusError     = "error"
)

// Trade actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Order types.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Signal is a normalized trade instruction. Quantity keeps the caller's
// sizing expression verbatim ("50", "50%" or empty when trade_power is used);
// resolution into shares happens downstream.
type Signal struct {
	Ticker          string    `json:"ticker"`
	Action          string    `json:"action"`
	Quantity        string    `json:"quantity,omitempty"`
	TradePower      float64   `json:"trade_power,omitempty"`
	OrderType       string    `json:"order_type"`
	Price           float64   `json:"price,omitempty"`
	Note            string    `json:"note,omitempty"`
	LimitDowngraded bool      `json:"-"`
	Raw             []byte    `json:"-"`
	ReceivedAt      time.Time `json:"received_at"`
}

// QuantityShares returns the quantity as an absolute share count when the
// signal carries a plain numeric quantity.
func (s *Signal) QuantityShares() (float64, bool) {
	q := strings.TrimSpace(s.Quantity)
	if q == "" || strings.HasSuffix(q, "%") {
		return 0, false
	}
	v, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// QuantityPercent returns the percentage value when the signal carries a
// percentage quantity such as "50%".
func (s *Signal) QuantityPercent() (float64, bool) {
	q := strings.TrimSpace(s.Quantity)
	if !strings.HasSuffix(q, "%") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(q, "%"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SignalRecord is the persisted view of a signal run through the pipeline.
type SignalRecord struct {
	ID         string    `json:"id"`
	Signal     *Signal   `json:"signal"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
