package usecase

import (
	"context"
	"encoding/json"
	"time"

	"AutoTrade/internal/domain/models"
	pkgkafka "AutoTrade/pkg/kafka"
)

// OrderStatusHandler consumes broker order-status events and applies them to
// the ledger.
type OrderStatusHandler struct {
	topic  string
	ledger *Ledger
}

func NewOrderStatusHandler(topic string, ledger *Ledger) *OrderStatusHandler {
	return &OrderStatusHandler{topic: topic, ledger: ledger}
}

func (h *OrderStatusHandler) Topic() string { return h.topic }

func (h *OrderStatusHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.OrderStatusEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return h.ledger.HandleOrderStatus(ctx, &ev)
}

var _ pkgkafka.MessageHandler = (*OrderStatusHandler)(nil)

// FillHandler consumes execution reports and applies them to the ledger.
type FillHandler struct {
	topic  string
	ledger *Ledger
}

func NewFillHandler(topic string, ledger *Ledger) *FillHandler {
	return &FillHandler{topic: topic, ledger: ledger}
}

func (h *FillHandler) Topic() string { return h.topic }

func (h *FillHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.FillEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return h.ledger.HandleFill(ctx, &ev)
}

var _ pkgkafka.MessageHandler = (*FillHandler)(nil)
