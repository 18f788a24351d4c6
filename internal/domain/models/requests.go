package models

// Requests for HTTP endpoints. Defined in domain for consistency and reuse.

// SignalPayload is the raw webhook body. Quantity is kept as a json.Number or
// string upstream; the normalizer owns decoding, so the intake endpoint only
// forwards raw bytes and this struct backs validator checks after decode.
type SignalPayload struct {
	Ticker     string      `json:"ticker" validate:"required"`
	Action     string      `json:"action" validate:"omitempty,oneofci=buy sell"`
	Signal     string      `json:"signal" validate:"omitempty,oneofci=buy sell"`
	Quantity   interface{} `json:"quantity"`
	TradePower interface{} `json:"trade_power"`
	OrderType  string      `json:"order_type" validate:"omitempty,oneofci=market limit"`
	Price      float64     `json:"price" validate:"gte=0"`
	Note       string      `json:"note"`
}

type TradesRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type DailyPnlRequest struct {
	Days int `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

type CancelOrderRequest struct {
	ID int64 `param:"id" json:"id" validate:"required,gt=0"`
}

type ClosePositionRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
}
