package ibgw

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/config"
	applogger "AutoTrade/pkg/logger"
)

var _ domrepo.Broker = (*Client)(nil)

// gateway wire frames. Requests carry an id echoed by the matching response;
// frames without an id are unsolicited push events.
type request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type frame struct {
	ID     int64           `json:"id,omitempty"`
	Event  string          `json:"event,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// PushEvent is an unsolicited gateway notification (order status, execution).
type PushEvent struct {
	Event string
	Data  json.RawMessage
}

// Client talks to the brokerage gateway over a WebSocket. Calls are
// request/response matched by id; push events are surfaced on Events() for
// the pump to republish. Safe for concurrent use.
type Client struct {
	cfg config.BrokerConfig
	l   *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool
	nextID    atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *frame

	events    chan PushEvent
	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(cfg config.BrokerConfig, l *applogger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		l:       l,
		pending: make(map[int64]chan *frame),
		events:  make(chan PushEvent, 256),
		done:    make(chan struct{}),
	}
}

// Events returns the push-event stream. Events are dropped, not blocked on,
// when the pump falls behind.
func (c *Client) Events() <-chan PushEvent { return c.events }

// Connect dials the gateway and starts the read and ping loops. Calling it
// on a live client replaces the connection.
func (c *Client) Connect(ctx context.Context) error {
	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.GatewayURL, nil)
	if err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)

	go c.readLoop(conn)
	go c.pingLoop(conn)

	c.l.Info("gateway connected", applogger.String("url", c.cfg.GatewayURL))
	return nil
}

// IsConnected reports whether the last known connection state is up.
func (c *Client) IsConnected() bool { return c.connected.Load() }

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			c.connected.Store(false)
			c.failPending(fmt.Errorf("gateway read: %w", err))
			select {
			case <-c.done:
			default:
				c.l.Warn("gateway connection lost", applogger.Error(err))
			}
			return
		}

		var f frame
		if err := json.Unmarshal(b, &f); err != nil {
			c.l.Debug("gateway frame unparsable", applogger.Error(err))
			continue
		}

		if f.ID != 0 {
			c.pendingMu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.pendingMu.Unlock()
			if ok {
				ch <- &f
			}
			continue
		}

		if f.Event != "" {
			select {
			case c.events <- PushEvent{Event: f.Event, Data: f.Data}:
			default:
				c.l.Warn("push event dropped", applogger.String("event", f.Event))
			}
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			current := c.conn
			c.mu.Unlock()
			if current != conn {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- &frame{ID: id, Error: err.Error()}
		delete(c.pending, id)
	}
}

// call sends one request and waits for its response or the context.
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if !c.connected.Load() {
		return fmt.Errorf("gateway not connected")
	}

	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		raw = b
	}

	id := c.nextID.Add(1)
	req := request{ID: id, Method: method, Params: raw}

	ch := make(chan *frame, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	var err error
	if conn == nil {
		err = fmt.Errorf("gateway not connected")
	} else {
		err = conn.WriteJSON(&req)
	}
	c.mu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return fmt.Errorf("gateway write %s: %w", method, err)
	}

	callCtx := ctx
	if c.cfg.CallTimeout > 0 {
		if _, has := ctx.Deadline(); !has {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
			defer cancel()
		}
	}

	select {
	case <-callCtx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return callCtx.Err()
	case f := <-ch:
		if f.Error != "" {
			return fmt.Errorf("gateway %s: %s", method, f.Error)
		}
		if out != nil && len(f.Result) > 0 {
			if err := json.Unmarshal(f.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// AccountSummary fetches the account snapshot.
func (c *Client) AccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	var out models.AccountSummary
	if err := c.call(ctx, "account_summary", map[string]string{"account": c.cfg.Account}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpenPositions fetches held positions.
func (c *Client) OpenPositions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	if err := c.call(ctx, "positions", map[string]string{"account": c.cfg.Account}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarketPrice fetches a snapshot quote.
func (c *Client) MarketPrice(ctx context.Context, ticker string) (float64, error) {
	var out struct {
		Price float64 `json:"price"`
	}
	if err := c.call(ctx, "market_price", map[string]string{"ticker": ticker}, &out); err != nil {
		return 0, err
	}
	return out.Price, nil
}

// QualifyInstrument resolves a ticker to a tradable contract.
func (c *Client) QualifyInstrument(ctx context.Context, ticker string) (*models.Instrument, error) {
	var out models.Instrument
	params := map[string]string{
		"ticker":   ticker,
		"exchange": c.cfg.Exchange,
		"currency": c.cfg.Currency,
	}
	if err := c.call(ctx, "qualify", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitOrder places an order.
func (c *Client) SubmitOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderAck, error) {
	var out models.OrderAck
	if err := c.call(ctx, "submit_order", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder cancels a live order by broker id.
func (c *Client) CancelOrder(ctx context.Context, brokerOrderID int64) error {
	return c.call(ctx, "cancel_order", map[string]int64{"broker_order_id": brokerOrderID}, nil)
}

// OpenOrders lists live orders.
func (c *Client) OpenOrders(ctx context.Context) ([]models.OpenOrder, error) {
	var out []models.OpenOrder
	if err := c.call(ctx, "open_orders", map[string]string{"account": c.cfg.Account}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close shuts the connection down and stops the loops.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.connected.Store(false)
		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.mu.Unlock()
	})
	return err
}
