package usecase

import (
	"context"
	"fmt"
	"time"

	"AutoTrade/internal/domain/models"
)

// fakeBroker is an in-memory Broker with per-call error injection.
type fakeBroker struct {
	connected bool
	acct      models.AccountSummary
	positions []models.Position
	prices    map[string]float64

	submitErr    error
	submitCalls  int
	nextOrderID  int64
	connectErr   error
	connectCalls int

	cancelled []int64
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		connected:   true,
		acct:        models.AccountSummary{NetLiquidation: 100000, BuyingPower: 50000},
		prices:      map[string]float64{},
		nextOrderID: 100,
	}
}

func (b *fakeBroker) Connect(ctx context.Context) error {
	b.connectCalls++
	if b.connectErr != nil {
		return b.connectErr
	}
	b.connected = true
	return nil
}

func (b *fakeBroker) IsConnected() bool { return b.connected }

func (b *fakeBroker) AccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	acct := b.acct
	return &acct, nil
}

func (b *fakeBroker) OpenPositions(ctx context.Context) ([]models.Position, error) {
	return append([]models.Position(nil), b.positions...), nil
}

func (b *fakeBroker) MarketPrice(ctx context.Context, ticker string) (float64, error) {
	p, ok := b.prices[ticker]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", ticker)
	}
	return p, nil
}

func (b *fakeBroker) QualifyInstrument(ctx context.Context, ticker string) (*models.Instrument, error) {
	if ticker == "UNKNOWN" {
		return nil, fmt.Errorf("unknown symbol %s", ticker)
	}
	return &models.Instrument{ID: 1, Ticker: ticker}, nil
}

func (b *fakeBroker) SubmitOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderAck, error) {
	b.submitCalls++
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	b.nextOrderID++
	return &models.OrderAck{BrokerOrderID: b.nextOrderID, Status: models.OrderStatusSubmitted}, nil
}

func (b *fakeBroker) CancelOrder(ctx context.Context, brokerOrderID int64) error {
	b.cancelled = append(b.cancelled, brokerOrderID)
	return nil
}

func (b *fakeBroker) OpenOrders(ctx context.Context) ([]models.OpenOrder, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

// fakeStore records writes in memory.
type fakeStore struct {
	signals      map[string]*models.SignalRecord
	statuses     map[string][]string
	orders       []*models.Order
	orderUpdates []string
	trades       []*models.Trade
	daily        map[string]*models.DailyPnL
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		signals:  map[string]*models.SignalRecord{},
		statuses: map[string][]string{},
		daily:    map[string]*models.DailyPnL{},
	}
}

func (s *fakeStore) InsertSignal(ctx context.Context, rec *models.SignalRecord) error {
	cp := *rec
	s.signals[rec.ID] = &cp
	s.statuses[rec.ID] = append(s.statuses[rec.ID], rec.Status)
	return nil
}

func (s *fakeStore) UpdateSignalStatus(ctx context.Context, id, status, reason string) error {
	if rec, ok := s.signals[id]; ok {
		rec.Status = status
		rec.Reason = reason
	}
	s.statuses[id] = append(s.statuses[id], status)
	return nil
}

func (s *fakeStore) InsertOrder(ctx context.Context, o *models.Order) error {
	cp := *o
	s.orders = append(s.orders, &cp)
	return nil
}

func (s *fakeStore) UpdateOrderByBrokerID(ctx context.Context, brokerOrderID int64, status string, fillPrice float64, filledAt time.Time) error {
	s.orderUpdates = append(s.orderUpdates, fmt.Sprintf("%d:%s", brokerOrderID, status))
	return nil
}

func (s *fakeStore) InsertTrade(ctx context.Context, t *models.Trade) error {
	cp := *t
	s.trades = append(s.trades, &cp)
	return nil
}

func (s *fakeStore) TodayRealizedPnL(ctx context.Context, now time.Time) (float64, uint32, error) {
	var sum float64
	var n uint32
	for _, t := range s.trades {
		if t.ClosedAt.Year() == now.Year() && t.ClosedAt.YearDay() == now.YearDay() {
			sum += t.Pnl
			n++
		}
	}
	return sum, n, nil
}

func (s *fakeStore) UpsertDailyPnL(ctx context.Context, p *models.DailyPnL) error {
	cp := *p
	s.daily[p.Date] = &cp
	return nil
}

func (s *fakeStore) DailyPnL(ctx context.Context, days int) ([]models.DailyPnL, error) {
	out := make([]models.DailyPnL, 0, len(s.daily))
	for _, p := range s.daily {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) Trades(ctx context.Context, from, to time.Time, limit int) ([]models.Trade, error) {
	out := make([]models.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeStore) Health(ctx context.Context) error { return nil }

// fakeState is an in-memory StateStore.
type fakeState struct {
	values map[string]string
}

func newFakeState() *fakeState { return &fakeState{values: map[string]string{}} }

func (s *fakeState) Get(ctx context.Context, key string) (string, error) {
	return s.values[key], nil
}

func (s *fakeState) Set(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

// fakeMetrics counts recorder calls.
type fakeMetrics struct {
	signals map[string]int
	fills   int
	orders  int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{signals: map[string]int{}} }

func (m *fakeMetrics) RecordSignal(outcome string)                  { m.signals[outcome]++ }
func (m *fakeMetrics) RecordOrderSubmitted(ticker, action string)   { m.orders++ }
func (m *fakeMetrics) RecordFill(ticker string)                     { m.fills++ }
func (m *fakeMetrics) RecordRealizedPnl(v float64)                  {}
func (m *fakeMetrics) RecordLastPrice(ticker string, price float64) {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)     {}
