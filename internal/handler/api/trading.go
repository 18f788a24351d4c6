package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	"AutoTrade/internal/usecase"
	"AutoTrade/pkg/config"
	xhttp "AutoTrade/pkg/http"
	xlogger "AutoTrade/pkg/logger"
	"AutoTrade/pkg/util"
)

// TradingHandler exposes the pipeline over HTTP.
type TradingHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	ledger   *usecase.Ledger
	broker   domrepo.Broker
	store    domrepo.Store
	trading  config.TradingConfig
}

func NewTradingHandler(
	logger *xlogger.Logger,
	pipeline *usecase.Pipeline,
	ledger *usecase.Ledger,
	broker domrepo.Broker,
	store domrepo.Store,
	trading config.TradingConfig,
) *TradingHandler {
	return &TradingHandler{
		logger:   logger,
		pipeline: pipeline,
		ledger:   ledger,
		broker:   broker,
		store:    store,
		trading:  trading,
	}
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/signals", h.SubmitSignal)
	g.GET("/trades", h.Trades)
	g.GET("/pnl/daily", h.DailyPnl)
	g.GET("/pnl/report", h.PnlReport)
	g.POST("/trading/pause", h.Pause)
	g.POST("/trading/resume", h.Resume)
	g.GET("/trading/status", h.TradingStatus)
	g.GET("/positions", h.Positions)
	g.POST("/positions/close", h.CloseAllPositions)
	g.POST("/positions/:symbol/close", h.ClosePosition)
	g.GET("/account", h.Account)
	g.GET("/orders/open", h.OpenOrders)
	g.DELETE("/orders/:id", h.CancelOrder)
	g.GET("/market/status", h.MarketStatus)
}

// SubmitSignal runs one webhook payload through the pipeline. Rejections are
// normal outcomes and answer 200 with the record; environment failures map
// to gateway errors.
func (h *TradingHandler) SubmitSignal(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("unreadable body").WithError(err))
	}

	rec, err := h.pipeline.Submit(c.Request().Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrMalformedPayload),
			errors.Is(err, usecase.ErrSchemaViolation):
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
		case rec != nil && rec.Status == models.SignalStatusRejected:
			return xhttp.SuccessResponse(c, rec)
		default:
			h.logger.Error("signal execution failed",
				xlogger.String("id", recID(rec)),
				xlogger.Error(err),
			)
			return xhttp.AppErrorResponse(c,
				xhttp.NewAppError("ERR_EXECUTION", "", err.Error(), http.StatusBadGateway).WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *TradingHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now()
	from := xhttp.ParseTimeDefault(req.From, now.AddDate(0, 0, -7))
	to := xhttp.ParseTimeDefault(req.To, now)

	trades, err := h.store.Trades(c.Request().Context(), from, to, req.Limit)
	if err != nil {
		h.logger.Error("trades query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

func (h *TradingHandler) DailyPnl(c echo.Context) error {
	req := &models.DailyPnlRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.store.DailyPnL(c.Request().Context(), req.Days)
	if err != nil {
		h.logger.Error("daily pnl query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *TradingHandler) PnlReport(c echo.Context) error {
	report, err := h.ledger.Report(c.Request().Context())
	if err != nil {
		h.logger.Error("pnl report failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"report": report})
}

func (h *TradingHandler) Pause(c echo.Context) error {
	if err := h.pipeline.Pause(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"trading_status": models.TradingStatusPaused})
}

func (h *TradingHandler) Resume(c echo.Context) error {
	if err := h.pipeline.Resume(c.Request().Context()); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"trading_status": models.TradingStatusActive})
}

func (h *TradingHandler) TradingStatus(c echo.Context) error {
	status, err := h.pipeline.TradingStatus(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"trading_status": status})
}

func (h *TradingHandler) Positions(c echo.Context) error {
	positions, err := h.broker.OpenPositions(c.Request().Context())
	if err != nil {
		h.logger.Error("positions fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, brokerError(err))
	}
	return xhttp.ListResponse(c, positions, int64(len(positions)))
}

func (h *TradingHandler) ClosePosition(c echo.Context) error {
	req := &models.ClosePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.pipeline.ClosePosition(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, usecase.ErrNoPositionToSell) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no open position for %s", req.Symbol))
		}
		h.logger.Error("close position failed",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, brokerError(err))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *TradingHandler) CloseAllPositions(c echo.Context) error {
	recs, err := h.pipeline.CloseAllPositions(c.Request().Context())
	if err != nil {
		h.logger.Error("close all positions failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, brokerError(err))
	}
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *TradingHandler) Account(c echo.Context) error {
	acct, err := h.broker.AccountSummary(c.Request().Context())
	if err != nil {
		h.logger.Error("account fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, brokerError(err))
	}
	return xhttp.SuccessResponse(c, acct)
}

func (h *TradingHandler) OpenOrders(c echo.Context) error {
	orders, err := h.broker.OpenOrders(c.Request().Context())
	if err != nil {
		h.logger.Error("open orders fetch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, brokerError(err))
	}
	return xhttp.ListResponse(c, orders, int64(len(orders)))
}

func (h *TradingHandler) CancelOrder(c echo.Context) error {
	req := &models.CancelOrderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.broker.CancelOrder(c.Request().Context(), req.ID); err != nil {
		h.logger.Error("cancel order failed",
			xlogger.Int64("broker_order_id", req.ID),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, brokerError(err))
	}
	return xhttp.SuccessResponse(c, map[string]int64{"cancelled": req.ID})
}

// MarketStatus reports the configured trading window. The window is local
// policy, not an exchange calendar.
func (h *TradingHandler) MarketStatus(c echo.Context) error {
	now := time.Now().UTC()
	day := now.Truncate(24 * time.Hour)
	opens := day.Add(time.Duration(h.trading.MarketOpenHour) * time.Hour)
	closes := day.Add(time.Duration(h.trading.MarketCloseHour) * time.Hour)
	status := &models.MarketStatus{
		Open:      now.Hour() >= h.trading.MarketOpenHour && now.Hour() < h.trading.MarketCloseHour,
		OpensAt:   opens,
		ClosesAt:  closes,
		Source:    "local",
		CheckedAt: now,
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *TradingHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	out := map[string]string{
		"status":    "ok",
		"broker":    "connected",
		"storage":   "ok",
		"timestamp": util.DateKey(time.Now()),
	}
	if !h.broker.IsConnected() {
		out["broker"] = "disconnected"
	}
	if err := h.store.Health(ctx); err != nil {
		out["status"] = "degraded"
		out["storage"] = err.Error()
	}
	return xhttp.SuccessResponse(c, out)
}

func recID(rec *models.SignalRecord) string {
	if rec == nil {
		return ""
	}
	return rec.ID
}

func brokerError(err error) error {
	return xhttp.NewAppError("ERR_BROKER", "", err.Error(), http.StatusBadGateway).WithError(err)
}
