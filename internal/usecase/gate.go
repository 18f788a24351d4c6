package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AutoTrade/internal/domain/models"
	"AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/config"
	applogger "AutoTrade/pkg/logger"
)

type approvalKey struct {
	ticker string
	action string
}

// RiskGate screens approved-for-execution signals. Rules short-circuit in a
// fixed order: pause flag, trading hours, cooldown, position cap, buying
// power. The approval timestamp that feeds the cooldown is recorded only when
// every rule passes.
type RiskGate struct {
	cfg   config.TradingConfig
	state repository.StateStore
	l     *applogger.Logger

	mu           sync.Mutex
	lastApproval map[approvalKey]time.Time
	killSwitch   bool

	now func() time.Time
}

func NewRiskGate(cfg config.TradingConfig, state repository.StateStore, l *applogger.Logger) *RiskGate {
	return &RiskGate{
		cfg:          cfg,
		state:        state,
		l:            l,
		lastApproval: make(map[approvalKey]time.Time),
		now:          time.Now,
	}
}

// SetClock overrides the gate's clock. Used by tests.
func (g *RiskGate) SetClock(now func() time.Time) { g.now = now }

// SetKillSwitch makes the gate reject everything until cleared. The daily
// loss computation that drives it is owned by an external supervisor.
func (g *RiskGate) SetKillSwitch(on bool) {
	g.mu.Lock()
	g.killSwitch = on
	g.mu.Unlock()
	g.l.Warn("risk gate kill switch", applogger.Bool("on", on))
}

// Evaluate returns nil when the signal may proceed, or a *Rejection naming
// the refusing rule.
func (g *RiskGate) Evaluate(ctx context.Context, sig *models.Signal, acct *models.AccountSummary, positions []models.Position) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.killSwitch {
		return NewRejectionErr("kill_switch", "kill switch engaged", ErrTradingPaused)
	}

	status, err := g.state.Get(ctx, models.StateKeyTradingStatus)
	if err != nil {
		return fmt.Errorf("read trading status: %w", err)
	}
	if status == models.TradingStatusPaused {
		return NewRejectionErr("paused", "trading is paused", ErrTradingPaused)
	}

	now := g.now().UTC()
	if !g.withinTradingHours(now) {
		reason := fmt.Sprintf("outside trading hours (%02d:00-%02d:00 UTC)",
			g.cfg.MarketOpenHour, g.cfg.MarketCloseHour)
		if g.cfg.Mode == config.ModeSimulation {
			// Advisory only when simulating: log and let it through.
			g.l.Warn("signal outside trading hours, allowed in simulation",
				applogger.String("ticker", sig.Ticker),
			)
		} else {
			return NewRejection("trading_hours", reason)
		}
	}

	key := approvalKey{ticker: sig.Ticker, action: sig.Action}
	if last, ok := g.lastApproval[key]; ok {
		elapsed := now.Sub(last)
		if elapsed < g.cfg.Cooldown {
			return NewRejection("cooldown", fmt.Sprintf(
				"%s %s in cooldown, %s remaining",
				sig.Ticker, sig.Action, (g.cfg.Cooldown - elapsed).Round(time.Second),
			))
		}
	}

	// Only buys open exposure, so the position cap never blocks de-risking.
	if sig.Action == models.ActionBuy {
		open := 0
		for _, p := range positions {
			if p.Quantity != 0 {
				open++
			}
		}
		if open >= g.cfg.MaxOpenPositions {
			return NewRejection("position_cap", fmt.Sprintf(
				"open positions %d at limit %d", open, g.cfg.MaxOpenPositions,
			))
		}
	}

	if notional := estimateNotional(sig, acct); notional > acct.BuyingPower {
		return NewRejection("buying_power", fmt.Sprintf(
			"estimated cost %.2f exceeds buying power %.2f",
			notional, acct.BuyingPower,
		))
	}

	g.lastApproval[key] = now
	return nil
}

func (g *RiskGate) withinTradingHours(now time.Time) bool {
	h := now.Hour()
	return h >= g.cfg.MarketOpenHour && h < g.cfg.MarketCloseHour
}

// estimateNotional is the order-of-magnitude cost estimate used by the
// buying-power rule. It never fetches a live price: trade_power is the cost
// itself, a percentage sizes against account equity, and a share count is
// priced off the signal's own price (zero when the signal carries none,
// which lets the order through to the broker's own checks).
func estimateNotional(sig *models.Signal, acct *models.AccountSummary) float64 {
	if sig.TradePower > 0 {
		return sig.TradePower
	}
	if pct, ok := sig.QuantityPercent(); ok {
		return pct / 100 * acct.NetLiquidation
	}
	if qty, ok := sig.QuantityShares(); ok {
		if price, priced := signalPrice(sig); priced {
			return qty * price
		}
	}
	return 0
}
