package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/pkg/config"
	applogger "AutoTrade/pkg/logger"
)

func testTradingConfig() config.TradingConfig {
	return config.TradingConfig{
		Mode:             config.ModeLive,
		MaxOpenPositions: 2,
		Cooldown:         300 * time.Second,
		MarketOpenHour:   13,
		MarketCloseHour:  20,
	}
}

// fixed clock inside the trading window
var tradingHour = time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)

func newTestGate(state *fakeState) *RiskGate {
	g := NewRiskGate(testTradingConfig(), state, applogger.Nop())
	g.SetClock(func() time.Time { return tradingHour })
	return g
}

func buySignal(ticker string) *models.Signal {
	return &models.Signal{Ticker: ticker, Action: models.ActionBuy, Quantity: "10", Price: 100}
}

func TestGateApprovesAndRecordsCooldown(t *testing.T) {
	g := newTestGate(newFakeState())
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}

	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); err != nil {
		t.Fatalf("expected approval, got %v", err)
	}

	// identical signal immediately after must hit the cooldown
	err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil)
	if !IsRejection(err) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}
}

func TestGateCooldownSlidingWindow(t *testing.T) {
	state := newFakeState()
	g := NewRiskGate(testTradingConfig(), state, applogger.Nop())
	now := tradingHour
	g.SetClock(func() time.Time { return now })
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}

	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); err != nil {
		t.Fatalf("expected approval, got %v", err)
	}

	now = tradingHour.Add(299 * time.Second)
	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); !IsRejection(err) {
		t.Fatalf("299s in: expected rejection, got %v", err)
	}

	now = tradingHour.Add(301 * time.Second)
	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); err != nil {
		t.Fatalf("301s in: expected approval, got %v", err)
	}
}

func TestGateCooldownKeyedByTickerAndAction(t *testing.T) {
	g := newTestGate(newFakeState())
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}
	pos := []models.Position{{Ticker: "AAPL", Quantity: 10}}

	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, pos); err != nil {
		t.Fatalf("buy: %v", err)
	}
	sell := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "5"}
	if err := g.Evaluate(context.Background(), sell, acct, pos); err != nil {
		t.Fatalf("sell of same ticker must not share the buy cooldown: %v", err)
	}
	if err := g.Evaluate(context.Background(), buySignal("MSFT"), acct, pos); err != nil {
		t.Fatalf("different ticker must not share the cooldown: %v", err)
	}
}

func TestGateRejectionDoesNotRecordApproval(t *testing.T) {
	state := newFakeState()
	g := NewRiskGate(testTradingConfig(), state, applogger.Nop())
	now := tradingHour
	g.SetClock(func() time.Time { return now })
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}

	// fill the position cap so the buy is rejected
	pos := []models.Position{{Ticker: "A", Quantity: 1}, {Ticker: "B", Quantity: 1}}
	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, pos); !IsRejection(err) {
		t.Fatalf("expected cap rejection, got %v", err)
	}

	// cap lifted right away: no cooldown may remain from the rejection
	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); err != nil {
		t.Fatalf("rejection must not start a cooldown: %v", err)
	}
}

func TestGatePositionCapBuysOnly(t *testing.T) {
	g := newTestGate(newFakeState())
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}
	pos := []models.Position{{Ticker: "A", Quantity: 1}, {Ticker: "B", Quantity: 1}, {Ticker: "AAPL", Quantity: 5}}

	if err := g.Evaluate(context.Background(), buySignal("NEW"), acct, pos); !IsRejection(err) {
		t.Fatalf("buy at cap: expected rejection, got %v", err)
	}
	sell := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "5"}
	if err := g.Evaluate(context.Background(), sell, acct, pos); err != nil {
		t.Fatalf("sell at cap must pass: %v", err)
	}
}

func TestGateBuyingPower(t *testing.T) {
	g := newTestGate(newFakeState())
	acct := &models.AccountSummary{NetLiquidation: 200000, BuyingPower: 50000}

	over := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, TradePower: 100000}
	err := g.Evaluate(context.Background(), over, acct, nil)
	if !IsRejection(err) {
		t.Fatalf("expected buying power rejection, got %v", err)
	}

	within := &models.Signal{Ticker: "AAPL", Action: models.ActionBuy, Quantity: "10", Price: 150}
	if err := g.Evaluate(context.Background(), within, acct, nil); err != nil {
		t.Fatalf("1500 notional within 50000: %v", err)
	}

	// percentage sizes against equity, not buying power
	pct := &models.Signal{Ticker: "MSFT", Action: models.ActionBuy, Quantity: "50%"}
	err = g.Evaluate(context.Background(), pct, acct, nil)
	if !IsRejection(err) {
		t.Fatalf("50%% of 200000 equity exceeds 50000 buying power: got %v", err)
	}
}

func TestGateBuyingPowerAppliesToSells(t *testing.T) {
	g := newTestGate(newFakeState())
	acct := &models.AccountSummary{NetLiquidation: 200000, BuyingPower: 50000}

	// A sell skips the position cap but not the cost estimate.
	sell := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, TradePower: 100000}
	err := g.Evaluate(context.Background(), sell, acct, nil)
	if !IsRejection(err) {
		t.Fatalf("sell trade_power 100000 against 50000 buying power: expected rejection, got %v", err)
	}

	// An unpriced share-count sell estimates to zero and passes; the gate
	// never fetches a live quote for the estimate.
	plain := &models.Signal{Ticker: "AAPL", Action: models.ActionSell, Quantity: "1000"}
	if err := g.Evaluate(context.Background(), plain, acct, nil); err != nil {
		t.Fatalf("unpriced sell must pass the estimate: %v", err)
	}
}

func TestGatePaused(t *testing.T) {
	state := newFakeState()
	state.values[models.StateKeyTradingStatus] = models.TradingStatusPaused
	g := newTestGate(state)
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}

	err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil)
	if !errors.Is(err, ErrTradingPaused) {
		t.Fatalf("expected ErrTradingPaused, got %v", err)
	}
}

func TestGateKillSwitch(t *testing.T) {
	g := newTestGate(newFakeState())
	g.SetKillSwitch(true)
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}

	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); !errors.Is(err, ErrTradingPaused) {
		t.Fatalf("expected kill switch rejection, got %v", err)
	}

	g.SetKillSwitch(false)
	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); err != nil {
		t.Fatalf("cleared kill switch: %v", err)
	}
}

func TestGateTradingHours(t *testing.T) {
	state := newFakeState()
	g := NewRiskGate(testTradingConfig(), state, applogger.Nop())
	g.SetClock(func() time.Time { return time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC) })
	acct := &models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000}

	if err := g.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); !IsRejection(err) {
		t.Fatalf("live mode outside hours: expected rejection, got %v", err)
	}

	// simulation mode treats the window as advisory
	cfg := testTradingConfig()
	cfg.Mode = config.ModeSimulation
	sim := NewRiskGate(cfg, state, applogger.Nop())
	sim.SetClock(func() time.Time { return time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC) })
	if err := sim.Evaluate(context.Background(), buySignal("AAPL"), acct, nil); err != nil {
		t.Fatalf("simulation outside hours must pass: %v", err)
	}
}
