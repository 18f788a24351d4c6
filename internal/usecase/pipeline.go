package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	applogger "AutoTrade/pkg/logger"
)

// Pipeline runs signals end to end: normalize, persist, gate, size, execute.
// Submissions are serialized by a mutex so risk checks always see the effect
// of the previous order; reconciliation runs independently on the consumer
// side.
type Pipeline struct {
	normalizer *Normalizer
	gate       *RiskGate
	resolver   *QuantityResolver
	executor   *Executor
	broker     repository.Broker
	store      repository.Store
	state      repository.StateStore
	metrics    repository.Metrics
	l          *applogger.Logger

	mu sync.Mutex
}

func NewPipeline(
	normalizer *Normalizer,
	gate *RiskGate,
	resolver *QuantityResolver,
	executor *Executor,
	broker repository.Broker,
	store repository.Store,
	state repository.StateStore,
	metrics repository.Metrics,
	l *applogger.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		gate:       gate,
		resolver:   resolver,
		executor:   executor,
		broker:     broker,
		store:      store,
		state:      state,
		metrics:    metrics,
		l:          l,
	}
}

// Submit runs one signal through the pipeline synchronously. The returned
// record carries the terminal status; a nil record means the payload never
// became a signal (malformed or schema-invalid). Terminal outcomes are
// persisted before returning and are never retried.
func (p *Pipeline) Submit(ctx context.Context, raw []byte) (*models.SignalRecord, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordLatency("submit", time.Since(start).Seconds())
	}()

	sig, err := p.normalizer.ParseSignal(raw)
	if err != nil {
		p.metrics.RecordSignal("invalid")
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	rec := &models.SignalRecord{
		ID:         uuid.NewString(),
		Signal:     sig,
		Status:     models.SignalStatusReceived,
		ReceivedAt: sig.ReceivedAt,
	}
	if err := p.store.InsertSignal(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist signal: %w", err)
	}
	p.metrics.RecordSignal("received")

	acct, positions, err := p.snapshot(ctx)
	if err != nil {
		p.finalize(ctx, rec, models.SignalStatusError, err.Error())
		return rec, err
	}

	if err := p.gate.Evaluate(ctx, sig, acct, positions); err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			p.finalize(ctx, rec, models.SignalStatusRejected, rej.Reason)
			p.l.Info("signal rejected",
				applogger.String("id", rec.ID),
				applogger.String("ticker", sig.Ticker),
				applogger.String("rule", rej.Rule),
				applogger.String("reason", rej.Reason),
			)
			return rec, err
		}
		p.finalize(ctx, rec, models.SignalStatusError, err.Error())
		return rec, err
	}

	qty, err := p.resolver.Resolve(ctx, sig, acct, positions)
	if err != nil {
		p.finalize(ctx, rec, statusForError(err), err.Error())
		return rec, err
	}

	if err := p.store.UpdateSignalStatus(ctx, rec.ID, models.SignalStatusExecuting, ""); err != nil {
		p.l.Error("status update failed", applogger.String("id", rec.ID), applogger.Error(err))
	}
	rec.Status = models.SignalStatusExecuting

	if _, err := p.executor.Execute(ctx, rec, qty); err != nil {
		if errors.Is(err, ErrSubmitAmbiguous) {
			// The order may be live; keep the record executing so nothing
			// resubmits, and let reconciliation settle it.
			rec.Reason = err.Error()
			return rec, err
		}
		p.finalize(ctx, rec, models.SignalStatusError, err.Error())
		return rec, err
	}

	p.finalize(ctx, rec, models.SignalStatusPlaced, "")
	return rec, nil
}

// ClosePosition flattens one held position with an inverse market order.
// De-risking bypasses the gate on purpose; the order still runs through the
// executor so it is persisted and reconciled like any other.
func (p *Pipeline) ClosePosition(ctx context.Context, ticker string) (*models.SignalRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	positions, err := p.broker.OpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: positions: %v", ErrBrokerUnavailable, err)
	}
	for _, pos := range positions {
		if pos.Ticker == ticker && pos.Quantity != 0 {
			return p.closeOne(ctx, pos)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPositionToSell, ticker)
}

// CloseAllPositions flattens every held position. Failures are collected so
// one stuck ticker does not leave the rest open.
func (p *Pipeline) CloseAllPositions(ctx context.Context) ([]*models.SignalRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	positions, err := p.broker.OpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: positions: %v", ErrBrokerUnavailable, err)
	}

	var recs []*models.SignalRecord
	var firstErr error
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		rec, err := p.closeOne(ctx, pos)
		if rec != nil {
			recs = append(recs, rec)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return recs, firstErr
}

func (p *Pipeline) closeOne(ctx context.Context, pos models.Position) (*models.SignalRecord, error) {
	action := models.ActionSell
	qty := pos.Quantity
	if qty < 0 {
		action = models.ActionBuy
		qty = -qty
	}

	sig := &models.Signal{
		Ticker:     pos.Ticker,
		Action:     action,
		Quantity:   fmt.Sprintf("%v", qty),
		OrderType:  models.OrderTypeMarket,
		Note:       "close position",
		ReceivedAt: time.Now().UTC(),
	}
	rec := &models.SignalRecord{
		ID:         uuid.NewString(),
		Signal:     sig,
		Status:     models.SignalStatusReceived,
		ReceivedAt: sig.ReceivedAt,
	}
	if err := p.store.InsertSignal(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist signal: %w", err)
	}
	p.metrics.RecordSignal("received")

	if err := p.store.UpdateSignalStatus(ctx, rec.ID, models.SignalStatusExecuting, ""); err != nil {
		p.l.Error("status update failed", applogger.String("id", rec.ID), applogger.Error(err))
	}
	rec.Status = models.SignalStatusExecuting

	if _, err := p.executor.Execute(ctx, rec, qty); err != nil {
		if errors.Is(err, ErrSubmitAmbiguous) {
			rec.Reason = err.Error()
			return rec, err
		}
		p.finalize(ctx, rec, models.SignalStatusError, err.Error())
		return rec, err
	}
	p.finalize(ctx, rec, models.SignalStatusPlaced, "")
	return rec, nil
}

// Pause stops the gate from approving signals until Resume.
func (p *Pipeline) Pause(ctx context.Context) error {
	if err := p.state.Set(ctx, models.StateKeyTradingStatus, models.TradingStatusPaused); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	p.l.Warn("trading paused")
	return nil
}

// Resume re-enables signal approval.
func (p *Pipeline) Resume(ctx context.Context) error {
	if err := p.state.Set(ctx, models.StateKeyTradingStatus, models.TradingStatusActive); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	p.l.Info("trading resumed")
	return nil
}

// TradingStatus returns the current pause state, defaulting to active.
func (p *Pipeline) TradingStatus(ctx context.Context) (string, error) {
	status, err := p.state.Get(ctx, models.StateKeyTradingStatus)
	if err != nil {
		return "", err
	}
	if status == "" {
		status = models.TradingStatusActive
	}
	return status, nil
}

func (p *Pipeline) snapshot(ctx context.Context) (*models.AccountSummary, []models.Position, error) {
	acct, err := p.broker.AccountSummary(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: account summary: %v", ErrBrokerUnavailable, err)
	}
	positions, err := p.broker.OpenPositions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: positions: %v", ErrBrokerUnavailable, err)
	}
	return acct, positions, nil
}

// finalize durably records the terminal status; the in-memory record is
// updated regardless so the caller sees the outcome even when the write
// fails.
func (p *Pipeline) finalize(ctx context.Context, rec *models.SignalRecord, status, reason string) {
	rec.Status = status
	rec.Reason = reason
	if err := p.store.UpdateSignalStatus(ctx, rec.ID, status, reason); err != nil {
		p.l.Error("terminal status write failed",
			applogger.String("id", rec.ID),
			applogger.String("status", status),
			applogger.Error(err),
		)
	}
	p.metrics.RecordSignal(status)
}

// statusForError maps resolution and execution failures onto the record's
// terminal status. Sizing refusals are rejections; environment failures are
// errors.
func statusForError(err error) string {
	switch {
	case errors.Is(err, ErrNoPositionToSell), errors.Is(err, ErrInvalidQuantity):
		return models.SignalStatusRejected
	default:
		return models.SignalStatusError
	}
}
