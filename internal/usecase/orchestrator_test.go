package usecase

import (
	"context"
	"errors"
	"testing"

	"AutoTrade/internal/domain/models"
	"AutoTrade/pkg/config"
	applogger "AutoTrade/pkg/logger"
)

func testBrokerConfig() config.BrokerConfig {
	return config.BrokerConfig{Exchange: "SMART", Currency: "USD"}
}

func testRecord(sig *models.Signal) *models.SignalRecord {
	return &models.SignalRecord{ID: "sig-1", Signal: sig, Status: models.SignalStatusExecuting}
}

func TestExecuteSubmitsOnce(t *testing.T) {
	b := newFakeBroker()
	store := newFakeStore()
	e := NewExecutor(b, store, newFakeMetrics(), testBrokerConfig(), applogger.Nop())

	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, OrderType: models.OrderTypeMarket}
	order, err := e.Execute(context.Background(), testRecord(sig), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.submitCalls != 1 {
		t.Fatalf("expected exactly one submit, got %d", b.submitCalls)
	}
	if order.BrokerOrderID == 0 {
		t.Fatalf("expected broker order id")
	}
	if len(store.orders) != 1 || store.orders[0].Status != models.OrderStatusSubmitted {
		t.Fatalf("order not persisted: %+v", store.orders)
	}
	if order.Quantity != 10 {
		t.Fatalf("quantity mismatch: %v", order.Quantity)
	}
}

func TestExecuteInstrumentNotFound(t *testing.T) {
	b := newFakeBroker()
	e := NewExecutor(b, newFakeStore(), newFakeMetrics(), testBrokerConfig(), applogger.Nop())

	sig := &models.Signal{Ticker: "UNKNOWN", Action: models.ActionBuy, OrderType: models.OrderTypeMarket}
	_, err := e.Execute(context.Background(), testRecord(sig), 10)
	if !errors.Is(err, ErrInstrumentNotFound) {
		t.Fatalf("expected ErrInstrumentNotFound, got %v", err)
	}
	if b.submitCalls != 0 {
		t.Fatalf("qualification failure must not submit")
	}
}

func TestExecuteAmbiguousTimeout(t *testing.T) {
	b := newFakeBroker()
	b.submitErr = context.DeadlineExceeded
	e := NewExecutor(b, newFakeStore(), newFakeMetrics(), testBrokerConfig(), applogger.Nop())

	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, OrderType: models.OrderTypeMarket}
	_, err := e.Execute(context.Background(), testRecord(sig), 10)
	if !errors.Is(err, ErrSubmitAmbiguous) {
		t.Fatalf("expected ErrSubmitAmbiguous, got %v", err)
	}
	if b.submitCalls != 1 {
		t.Fatalf("ambiguous submit must not be retried, got %d submits", b.submitCalls)
	}
}

func TestExecuteReconnectsOnce(t *testing.T) {
	b := newFakeBroker()
	b.connected = false
	e := NewExecutor(b, newFakeStore(), newFakeMetrics(), testBrokerConfig(), applogger.Nop())

	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, OrderType: models.OrderTypeMarket}
	if _, err := e.Execute(context.Background(), testRecord(sig), 10); err != nil {
		t.Fatalf("reconnect should have recovered: %v", err)
	}
	if b.connectCalls != 1 {
		t.Fatalf("expected one reconnect, got %d", b.connectCalls)
	}
}

func TestExecuteBrokerUnavailable(t *testing.T) {
	b := newFakeBroker()
	b.connected = false
	b.connectErr = errors.New("gateway down")
	e := NewExecutor(b, newFakeStore(), newFakeMetrics(), testBrokerConfig(), applogger.Nop())

	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, OrderType: models.OrderTypeMarket}
	_, err := e.Execute(context.Background(), testRecord(sig), 10)
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
	if b.submitCalls != 0 {
		t.Fatalf("must not submit while disconnected")
	}
}

func TestExecuteLimitCarriesPrice(t *testing.T) {
	b := newFakeBroker()
	store := newFakeStore()
	e := NewExecutor(b, store, newFakeMetrics(), testBrokerConfig(), applogger.Nop())

	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, OrderType: models.OrderTypeLimit, Price: 187.5}
	order, err := e.Execute(context.Background(), testRecord(sig), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.LimitPrice != 187.5 {
		t.Fatalf("limit price lost: %v", order.LimitPrice)
	}
}
