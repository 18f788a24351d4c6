package ibgw

import (
	"context"
	"encoding/json"
	"strconv"

	"AutoTrade/internal/domain/models"
	pkgkafka "AutoTrade/pkg/kafka"
	applogger "AutoTrade/pkg/logger"
)

// Gateway push event names.
const (
	EventOrderStatus = "order_status"
	EventExecution   = "execution"
)

// EventPump drains gateway push events and republishes them onto the
// order-status and fill topics, keyed by broker order id so one order's
// events stay in sequence on a single partition.
type EventPump struct {
	client           *Client
	producer         *pkgkafka.Producer
	orderStatusTopic string
	fillTopic        string
	l                *applogger.Logger
}

func NewEventPump(client *Client, producer *pkgkafka.Producer, orderStatusTopic, fillTopic string, l *applogger.Logger) *EventPump {
	return &EventPump{
		client:           client,
		producer:         producer,
		orderStatusTopic: orderStatusTopic,
		fillTopic:        fillTopic,
		l:                l,
	}
}

// Run pumps until ctx is cancelled or the client closes its event stream.
func (p *EventPump) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.client.Events():
			if !ok {
				return
			}
			p.dispatch(ctx, ev)
		}
	}
}

func (p *EventPump) dispatch(ctx context.Context, ev PushEvent) {
	switch ev.Event {
	case EventOrderStatus:
		var e models.OrderStatusEvent
		if err := json.Unmarshal(ev.Data, &e); err != nil {
			p.l.Warn("order status event unparsable", applogger.Error(err))
			return
		}
		p.publish(ctx, p.orderStatusTopic, e.BrokerOrderID, &e)
	case EventExecution:
		var e models.FillEvent
		if err := json.Unmarshal(ev.Data, &e); err != nil {
			p.l.Warn("execution event unparsable", applogger.Error(err))
			return
		}
		p.publish(ctx, p.fillTopic, e.BrokerOrderID, &e)
	default:
		p.l.Debug("unhandled gateway event", applogger.String("event", ev.Event))
	}
}

func (p *EventPump) publish(ctx context.Context, topic string, brokerOrderID int64, v interface{}) {
	key := []byte(strconv.FormatInt(brokerOrderID, 10))
	if err := p.producer.Publish(ctx, topic, key, v); err != nil {
		p.l.Error("event publish failed",
			applogger.String("topic", topic),
			applogger.Int64("broker_order_id", brokerOrderID),
			applogger.Error(err),
		)
	}
}
