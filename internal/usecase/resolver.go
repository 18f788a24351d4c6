package usecase

import (
	"context"
	"fmt"
	"math"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	applogger "AutoTrade/pkg/logger"
)

// QuantityResolver turns a signal's sizing expression into a whole share
// count. Precedence: trade_power, then a numeric quantity, then a percentage.
// All results are floored; anything that floors to zero or below is invalid.
type QuantityResolver struct {
	broker repository.Broker
	l      *applogger.Logger
}

func NewQuantityResolver(broker repository.Broker, l *applogger.Logger) *QuantityResolver {
	return &QuantityResolver{broker: broker, l: l}
}

// Resolve computes the share count for sig against the account snapshot and
// current positions.
func (r *QuantityResolver) Resolve(ctx context.Context, sig *models.Signal, acct *models.AccountSummary, positions []models.Position) (float64, error) {
	var pos *models.Position
	for i := range positions {
		if positions[i].Ticker == sig.Ticker {
			pos = &positions[i]
			break
		}
	}

	// Sells are checked against the held position before any sizing math, so
	// the caller gets "no position" rather than a confusing quantity error.
	if sig.Action == models.ActionSell && (pos == nil || pos.Quantity <= 0) {
		return 0, fmt.Errorf("%w: %s", ErrNoPositionToSell, sig.Ticker)
	}

	qty, err := r.rawQuantity(ctx, sig, acct, pos)
	if err != nil {
		return 0, err
	}

	qty = math.Floor(qty)
	if qty <= 0 {
		return 0, fmt.Errorf("%w: resolved to %v shares", ErrInvalidQuantity, qty)
	}

	// Never sell more than is held.
	if sig.Action == models.ActionSell && qty > pos.Quantity {
		qty = math.Floor(pos.Quantity)
	}

	return qty, nil
}

func (r *QuantityResolver) rawQuantity(ctx context.Context, sig *models.Signal, acct *models.AccountSummary, pos *models.Position) (float64, error) {
	if sig.TradePower > 0 {
		price, err := r.resolvePrice(ctx, sig)
		if err != nil {
			return 0, err
		}
		return sig.TradePower / price, nil
	}

	if qty, ok := sig.QuantityShares(); ok {
		return qty, nil
	}

	if pct, ok := sig.QuantityPercent(); ok {
		if pct <= 0 || pct > 100 {
			return 0, fmt.Errorf("%w: percentage %v out of range", ErrInvalidQuantity, pct)
		}
		if sig.Action == models.ActionSell {
			// Percentage of the long position held.
			return pct / 100 * pos.Quantity, nil
		}
		price, err := r.resolvePrice(ctx, sig)
		if err != nil {
			return 0, err
		}
		return pct / 100 * acct.NetLiquidation / price, nil
	}

	return 0, fmt.Errorf("%w: unparsable quantity %q", ErrInvalidQuantity, sig.Quantity)
}

// signalPrice is the single price-preference rule shared by sizing and the
// risk gate's cost estimate: a positive price carried on the signal wins.
func signalPrice(sig *models.Signal) (float64, bool) {
	return sig.Price, sig.Price > 0
}

// resolvePrice prefers the price carried on the signal; only when the signal
// has none does it ask the broker for a live quote.
func (r *QuantityResolver) resolvePrice(ctx context.Context, sig *models.Signal) (float64, error) {
	if price, ok := signalPrice(sig); ok {
		return price, nil
	}
	price, err := r.broker.MarketPrice(ctx, sig.Ticker)
	if err != nil {
		r.l.Warn("market price fetch failed",
			applogger.String("ticker", sig.Ticker),
			applogger.Error(err),
		)
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, sig.Ticker)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: %s quoted %v", ErrPriceUnavailable, sig.Ticker, price)
	}
	return price, nil
}
