package usecase

import (
	"context"
	"errors"
	"testing"

	"AutoTrade/internal/domain/models"
	applogger "AutoTrade/pkg/logger"
)

func TestResolveNumericQuantity(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, Quantity: "50"}
	acct := &models.AccountSummary{NetLiquidation: 100000}

	qty, err := r.Resolve(context.Background(), sig, acct, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 50 {
		t.Fatalf("expected 50, got %v", qty)
	}
}

func TestResolveTradePower(t *testing.T) {
	b := newFakeBroker()
	b.prices["AAPL"] = 187.5
	r := NewQuantityResolver(b, applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, TradePower: 5000}
	acct := &models.AccountSummary{NetLiquidation: 100000}

	qty, err := r.Resolve(context.Background(), sig, acct, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// floor(5000 / 187.5) = 26
	if qty != 26 {
		t.Fatalf("expected 26, got %v", qty)
	}
}

func TestResolveTradePowerPrefersSignalPrice(t *testing.T) {
	b := newFakeBroker() // no quotes available
	r := NewQuantityResolver(b, applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, TradePower: 5000, Price: 100}
	acct := &models.AccountSummary{NetLiquidation: 100000}

	qty, err := r.Resolve(context.Background(), sig, acct, nil)
	if err != nil {
		t.Fatalf("signal price should avoid the live fetch: %v", err)
	}
	if qty != 50 {
		t.Fatalf("expected 50, got %v", qty)
	}
}

func TestResolvePercentBuy(t *testing.T) {
	b := newFakeBroker()
	b.prices["AAPL"] = 100
	r := NewQuantityResolver(b, applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, Quantity: "50%"}
	acct := &models.AccountSummary{NetLiquidation: 10000}

	qty, err := r.Resolve(context.Background(), sig, acct, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 50% of 10000 equity at price 100 = 50 shares
	if qty != 50 {
		t.Fatalf("expected 50, got %v", qty)
	}
}

func TestResolvePercentSell(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "50%"}
	acct := &models.AccountSummary{NetLiquidation: 10000}
	pos := []models.Position{{Ticker: "AAPL", Quantity: 100}}

	qty, err := r.Resolve(context.Background(), sig, acct, pos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 50 {
		t.Fatalf("expected 50, got %v", qty)
	}
}

func TestResolveSellWithoutPosition(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "50%"}
	acct := &models.AccountSummary{NetLiquidation: 10000}

	if _, err := r.Resolve(context.Background(), sig, acct, nil); !errors.Is(err, ErrNoPositionToSell) {
		t.Fatalf("expected ErrNoPositionToSell, got %v", err)
	}

	// a short position is not sellable either
	short := []models.Position{{Ticker: "AAPL", Quantity: -100}}
	if _, err := r.Resolve(context.Background(), sig, acct, short); !errors.Is(err, ErrNoPositionToSell) {
		t.Fatalf("short position: expected ErrNoPositionToSell, got %v", err)
	}
}

func TestResolveFloorsToZero(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "10%"}
	acct := &models.AccountSummary{NetLiquidation: 10000}
	pos := []models.Position{{Ticker: "AAPL", Quantity: 5}} // 10% of 5 floors to 0

	if _, err := r.Resolve(context.Background(), sig, acct, pos); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestResolveUnparsableQuantity(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, Quantity: "lots"}
	acct := &models.AccountSummary{NetLiquidation: 10000}

	if _, err := r.Resolve(context.Background(), sig, acct, nil); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestResolvePriceUnavailable(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, TradePower: 5000}
	acct := &models.AccountSummary{NetLiquidation: 10000}

	if _, err := r.Resolve(context.Background(), sig, acct, nil); !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestResolveSellClampedToPosition(t *testing.T) {
	r := NewQuantityResolver(newFakeBroker(), applogger.Nop())
	sig := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "200"}
	acct := &models.AccountSummary{NetLiquidation: 10000}
	pos := []models.Position{{Ticker: "AAPL", Quantity: 80}}

	qty, err := r.Resolve(context.Background(), sig, acct, pos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if qty != 80 {
		t.Fatalf("sell must clamp to held 80, got %v", qty)
	}
}
