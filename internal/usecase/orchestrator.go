package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/config"
	applogger "AutoTrade/pkg/logger"
)

// Executor carries an approved, sized signal to the broker. Submission
// happens at most once: a submit that times out is ambiguous (the broker may
// or may not hold the order) and is surfaced as such, never retried.
type Executor struct {
	broker  repository.Broker
	store   repository.Store
	metrics repository.Metrics
	cfg     config.BrokerConfig
	l       *applogger.Logger
}

func NewExecutor(broker repository.Broker, store repository.Store, metrics repository.Metrics, cfg config.BrokerConfig, l *applogger.Logger) *Executor {
	return &Executor{broker: broker, store: store, metrics: metrics, cfg: cfg, l: l}
}

// Execute qualifies the instrument, builds the order and submits it once.
// The returned Order has been persisted; its broker id may still be the
// placeholder zero if the gateway acks asynchronously.
func (e *Executor) Execute(ctx context.Context, rec *models.SignalRecord, qty float64) (*models.Order, error) {
	if err := e.ensureConnected(ctx); err != nil {
		return nil, err
	}

	sig := rec.Signal
	inst, err := e.broker.QualifyInstrument(ctx, sig.Ticker)
	if err != nil {
		e.l.Error("instrument qualification failed",
			applogger.String("ticker", sig.Ticker),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrInstrumentNotFound, sig.Ticker)
	}
	inst.Exchange = e.cfg.Exchange
	inst.Currency = e.cfg.Currency

	req := &models.OrderRequest{
		Instrument: *inst,
		Action:     sig.Action,
		Quantity:   qty,
		OrderType:  sig.OrderType,
	}
	if sig.OrderType == models.OrderTypeLimit {
		req.LimitPrice = sig.Price
	}

	submitCtx := ctx
	if e.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, e.cfg.SubmitTimeout)
		defer cancel()
	}

	ack, err := e.broker.SubmitOrder(submitCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The broker may hold the order; leave the record executing and
			// never resubmit.
			e.l.Error("order submit ambiguous",
				applogger.String("signal_id", rec.ID),
				applogger.String("ticker", sig.Ticker),
			)
			return nil, fmt.Errorf("%w: %s %s", ErrSubmitAmbiguous, sig.Action, sig.Ticker)
		}
		return nil, fmt.Errorf("%w: submit: %v", ErrBrokerUnavailable, err)
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		SignalID:      rec.ID,
		BrokerOrderID: ack.BrokerOrderID,
		Ticker:        sig.Ticker,
		Action:        sig.Action,
		Quantity:      qty,
		OrderType:     sig.OrderType,
		LimitPrice:    req.LimitPrice,
		Status:        models.OrderStatusSubmitted,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.store.InsertOrder(ctx, order); err != nil {
		// The order is live at the broker; persistence failure must not look
		// like a failed placement.
		e.l.Error("order persisted late",
			applogger.Int64("broker_order_id", order.BrokerOrderID),
			applogger.Error(err),
		)
	}

	e.metrics.RecordOrderSubmitted(sig.Ticker, sig.Action)
	e.l.Info("order submitted",
		applogger.String("ticker", sig.Ticker),
		applogger.String("action", sig.Action),
		applogger.Float64("quantity", qty),
		applogger.Int64("broker_order_id", ack.BrokerOrderID),
	)
	return order, nil
}

// ensureConnected gives a dropped gateway connection exactly one chance to
// come back before the signal fails.
func (e *Executor) ensureConnected(ctx context.Context) error {
	if e.broker.IsConnected() {
		return nil
	}
	e.l.Warn("broker disconnected, attempting reconnect")
	if err := e.broker.Connect(ctx); err != nil {
		return fmt.Errorf("%w: reconnect: %v", ErrBrokerUnavailable, err)
	}
	return nil
}
