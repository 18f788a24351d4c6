package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"AutoTrade/internal/domain/models"
	applogger "AutoTrade/pkg/logger"
)

// Normalizer turns raw webhook bytes into a validated, normalized Signal.
// It is stateless and never touches broker or storage.
type Normalizer struct {
	validate *validator.Validate
	l        *applogger.Logger
	now      func() time.Time
}

func NewNormalizer(l *applogger.Logger) *Normalizer {
	return &Normalizer{
		validate: validator.New(),
		l:        l,
		now:      time.Now,
	}
}

// ParseSignal decodes and normalizes a signal payload.
// Undecodable JSON maps to ErrMalformedPayload; a decodable payload that
// fails validation maps to ErrSchemaViolation. Quantity is kept verbatim
// (numeric or percentage string); parse failures surface at resolution.
func (n *Normalizer) ParseSignal(raw []byte) (*models.Signal, error) {
	var payload models.SignalPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if err := n.validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	// action and signal are interchangeable; action wins when both are set.
	action := strings.ToLower(strings.TrimSpace(payload.Action))
	if action == "" {
		action = strings.ToLower(strings.TrimSpace(payload.Signal))
	}
	if action != models.ActionBuy && action != models.ActionSell {
		return nil, fmt.Errorf("%w: action must be buy or sell", ErrSchemaViolation)
	}

	tradePower, err := tradePowerValue(payload.TradePower)
	if err != nil {
		return nil, err
	}

	quantity := quantityString(payload.Quantity)
	if quantity == "" && tradePower == 0 {
		return nil, fmt.Errorf("%w: one of quantity or trade_power required", ErrSchemaViolation)
	}

	orderType := strings.ToLower(strings.TrimSpace(payload.OrderType))
	if orderType == "" {
		orderType = models.OrderTypeMarket
	}

	sig := &models.Signal{
		Ticker:     strings.ToUpper(strings.TrimSpace(payload.Ticker)),
		Action:     action,
		Quantity:   quantity,
		TradePower: tradePower,
		OrderType:  orderType,
		Price:      payload.Price,
		Note:       payload.Note,
		Raw:        raw,
		ReceivedAt: n.now().UTC(),
	}

	// A limit order without a price cannot be priced; fall back to market
	// rather than rejecting the signal.
	if sig.OrderType == models.OrderTypeLimit && sig.Price == 0 {
		sig.OrderType = models.OrderTypeMarket
		sig.LimitDowngraded = true
		n.l.Warn("limit order without price downgraded to market",
			applogger.String("ticker", sig.Ticker),
			applogger.String("action", sig.Action),
		)
	}

	return sig, nil
}

// tradePowerValue coerces the wire trade_power, which senders supply as
// either a number or a numeric string.
func tradePowerValue(v interface{}) (float64, error) {
	var raw string
	switch tp := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		raw = tp.String()
	case string:
		raw = strings.TrimSpace(tp)
		if raw == "" {
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("%w: trade_power must be a number, got %T", ErrSchemaViolation, v)
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: trade_power %q is not numeric", ErrSchemaViolation, raw)
	}
	if val < 0 {
		return 0, fmt.Errorf("%w: trade_power must not be negative", ErrSchemaViolation)
	}
	return val, nil
}

// quantityString renders the wire quantity (number or string) verbatim.
func quantityString(v interface{}) string {
	switch q := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(q)
	case json.Number:
		return q.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", q))
	}
}
