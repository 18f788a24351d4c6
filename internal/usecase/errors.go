package usecase

import (
	"errors"
	"fmt"
)

// Sentinel errors for terminal pipeline outcomes. Callers distinguish
// rejections (invalid or disallowed signals) from execution errors
// (environment failures) by errors.Is / errors.As.
var (
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrSchemaViolation    = errors.New("schema violation")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrInstrumentNotFound = errors.New("instrument not found")
	ErrNoPositionToSell   = errors.New("no position to sell")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrBrokerUnavailable  = errors.New("broker unavailable")
	ErrSubmitAmbiguous    = errors.New("order submit ambiguous")
	ErrTradingPaused      = errors.New("trading paused")
)

// Rejection is a risk-gate refusal. It wraps a sentinel where one applies and
// always carries a human-readable reason for the signal record.
type Rejection struct {
	Rule   string
	Reason string
	err    error
}

func NewRejection(rule, reason string) *Rejection {
	return &Rejection{Rule: rule, Reason: reason}
}

func NewRejectionErr(rule, reason string, err error) *Rejection {
	return &Rejection{Rule: rule, Reason: reason, err: err}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("rejected by %s: %s", r.Rule, r.Reason)
}

func (r *Rejection) Unwrap() error { return r.err }

// IsRejection reports whether err is a gate rejection rather than an
// execution failure.
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}
