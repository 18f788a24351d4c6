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

type pipelineEnv struct {
	pipeline *Pipeline
	broker   *fakeBroker
	store    *fakeStore
	state    *fakeState
	metrics  *fakeMetrics
	gate     *RiskGate
}

func newPipelineEnv() *pipelineEnv {
	broker := newFakeBroker()
	store := newFakeStore()
	state := newFakeState()
	metrics := newFakeMetrics()
	l := applogger.Nop()

	gate := NewRiskGate(testTradingConfig(), state, l)
	gate.SetClock(func() time.Time { return tradingHour })

	resolver := NewQuantityResolver(broker, l)
	executor := NewExecutor(broker, store, metrics, config.BrokerConfig{Exchange: "SMART", Currency: "USD"}, l)
	normalizer := NewNormalizer(l)

	return &pipelineEnv{
		pipeline: NewPipeline(normalizer, gate, resolver, executor, broker, store, state, metrics, l),
		broker:   broker,
		store:    store,
		state:    state,
		metrics:  metrics,
		gate:     gate,
	}
}

func (e *pipelineEnv) statuses(id string) []string { return e.store.statuses[id] }

func TestSubmitPlacesOrder(t *testing.T) {
	env := newPipelineEnv()

	rec, err := env.pipeline.Submit(context.Background(), []byte(`{"ticker":"AAPL","action":"buy","quantity":10,"price":100}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != models.SignalStatusPlaced {
		t.Fatalf("expected placed, got %s", rec.Status)
	}
	got := env.statuses(rec.ID)
	want := []string{models.SignalStatusReceived, models.SignalStatusExecuting, models.SignalStatusPlaced}
	if len(got) != len(want) {
		t.Fatalf("status history %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status history %v, want %v", got, want)
		}
	}
	if env.broker.submitCalls != 1 {
		t.Fatalf("expected one submit, got %d", env.broker.submitCalls)
	}
}

func TestSubmitMalformedNoRecord(t *testing.T) {
	env := newPipelineEnv()

	rec, err := env.pipeline.Submit(context.Background(), []byte(`{broken`))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if rec != nil {
		t.Fatalf("malformed payload must not create a record")
	}
	if len(env.store.signals) != 0 {
		t.Fatalf("nothing should be persisted")
	}
}

func TestSubmitRejectedPersisted(t *testing.T) {
	env := newPipelineEnv()
	env.state.values[models.StateKeyTradingStatus] = models.TradingStatusPaused

	rec, err := env.pipeline.Submit(context.Background(), []byte(`{"ticker":"AAPL","action":"buy","quantity":10,"price":100}`))
	if !errors.Is(err, ErrTradingPaused) {
		t.Fatalf("expected ErrTradingPaused, got %v", err)
	}
	if rec.Status != models.SignalStatusRejected {
		t.Fatalf("expected rejected, got %s", rec.Status)
	}
	if rec.Reason == "" {
		t.Fatalf("rejection must carry a reason")
	}
	if env.broker.submitCalls != 0 {
		t.Fatalf("rejected signal must not reach the broker")
	}
	if env.store.signals[rec.ID].Status != models.SignalStatusRejected {
		t.Fatalf("terminal status not persisted")
	}
}

func TestSubmitSellWithoutPositionRejected(t *testing.T) {
	env := newPipelineEnv()

	rec, err := env.pipeline.Submit(context.Background(), []byte(`{"ticker":"AAPL","action":"sell","quantity":"50%"}`))
	if !errors.Is(err, ErrNoPositionToSell) {
		t.Fatalf("expected ErrNoPositionToSell, got %v", err)
	}
	if rec.Status != models.SignalStatusRejected {
		t.Fatalf("sizing refusal should record rejected, got %s", rec.Status)
	}
}

func TestSubmitAmbiguousStaysExecuting(t *testing.T) {
	env := newPipelineEnv()
	env.broker.submitErr = context.DeadlineExceeded

	rec, err := env.pipeline.Submit(context.Background(), []byte(`{"ticker":"AAPL","action":"buy","quantity":10,"price":100}`))
	if !errors.Is(err, ErrSubmitAmbiguous) {
		t.Fatalf("expected ErrSubmitAmbiguous, got %v", err)
	}
	if rec.Status != models.SignalStatusExecuting {
		t.Fatalf("ambiguous submit must stay executing, got %s", rec.Status)
	}
	if env.broker.submitCalls != 1 {
		t.Fatalf("ambiguous submit must never be retried")
	}
	// persisted status is still executing, not error
	if env.store.signals[rec.ID].Status != models.SignalStatusExecuting {
		t.Fatalf("persisted status %s", env.store.signals[rec.ID].Status)
	}
}

func TestSubmitBrokerErrorTerminal(t *testing.T) {
	env := newPipelineEnv()
	env.broker.submitErr = errors.New("connection reset")

	rec, err := env.pipeline.Submit(context.Background(), []byte(`{"ticker":"AAPL","action":"buy","quantity":10,"price":100}`))
	if !errors.Is(err, ErrBrokerUnavailable) {
		t.Fatalf("expected ErrBrokerUnavailable, got %v", err)
	}
	if rec.Status != models.SignalStatusError {
		t.Fatalf("expected error status, got %s", rec.Status)
	}
}

func TestPauseResume(t *testing.T) {
	env := newPipelineEnv()
	ctx := context.Background()

	if err := env.pipeline.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	status, err := env.pipeline.TradingStatus(ctx)
	if err != nil || status != models.TradingStatusPaused {
		t.Fatalf("status after pause: %s %v", status, err)
	}

	if err := env.pipeline.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	status, _ = env.pipeline.TradingStatus(ctx)
	if status != models.TradingStatusActive {
		t.Fatalf("status after resume: %s", status)
	}

	// a fresh system reads as active
	fresh := newPipelineEnv()
	status, _ = fresh.pipeline.TradingStatus(ctx)
	if status != models.TradingStatusActive {
		t.Fatalf("default status: %s", status)
	}
}

func TestClosePosition(t *testing.T) {
	env := newPipelineEnv()
	env.broker.positions = []models.Position{{Ticker: "AAPL", Quantity: 80, AvgCost: 150}}

	rec, err := env.pipeline.ClosePosition(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != models.SignalStatusPlaced {
		t.Fatalf("expected placed, got %s", rec.Status)
	}
	if rec.Signal.Action != models.ActionSell {
		t.Fatalf("long position should close with a sell, got %s", rec.Signal.Action)
	}
	if env.broker.submitCalls != 1 {
		t.Fatalf("expected one submit")
	}
}

func TestClosePositionShortBuysBack(t *testing.T) {
	env := newPipelineEnv()
	env.broker.positions = []models.Position{{Ticker: "AAPL", Quantity: -40}}

	rec, err := env.pipeline.ClosePosition(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Signal.Action != models.ActionBuy {
		t.Fatalf("short position should close with a buy, got %s", rec.Signal.Action)
	}
}

func TestClosePositionMissing(t *testing.T) {
	env := newPipelineEnv()
	if _, err := env.pipeline.ClosePosition(context.Background(), "AAPL"); !errors.Is(err, ErrNoPositionToSell) {
		t.Fatalf("expected ErrNoPositionToSell, got %v", err)
	}
}

func TestCloseAllPositions(t *testing.T) {
	env := newPipelineEnv()
	env.broker.positions = []models.Position{
		{Ticker: "AAPL", Quantity: 80},
		{Ticker: "MSFT", Quantity: -20},
		{Ticker: "FLAT", Quantity: 0},
	}

	recs, err := env.pipeline.CloseAllPositions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected two close orders, got %d", len(recs))
	}
	if env.broker.submitCalls != 2 {
		t.Fatalf("expected two submits, got %d", env.broker.submitCalls)
	}
}
