package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"conti/internal/bot"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
)

var _ ledger.Notifier = (*Client)(nil)

var errDeliveriesClosed = errors.New("delivery channel closed")

// Queues names the queues bound to the exchange. An empty name is not declared.
type Queues struct {
	Events  string
	Replies string
	Ledger  string
}

func (q Queues) names() []string {
	var names []string
	for _, n := range []string{q.Events, q.Replies, q.Ledger} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Client talks to RabbitMQ through one connection and one channel, both
// replaced on reconnect.
type Client struct {
	url          string
	exchangeName string
	queues       Queues

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	failMu       sync.Mutex
	lastFailure  time.Time
}

func NewClient(url, exchangeName string, queues Queues) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queues:       queues,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queues.names()); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange string, queues []string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		// routing key is the queue name
		if err := ch.QueueBind(q, q, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

func (c *Client) reconnect(ctx context.Context) error {
	c.closeConn()
	if err := c.connect(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Reconnected to AMQP",
		log.FieldComponent, log.ComponentAMQP,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, p amqp091.Publishing) error {
	return c.publishTo(ctx, c.exchangeName, routingKey, p)
}

func (c *Client) publishTo(ctx context.Context, exchange, routingKey string, p amqp091.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: circuit breaker is open", routingKey)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	ch := c.channel
	var err error
	if ch == nil {
		err = amqp091.ErrClosed
	} else {
		err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, p)
	}
	c.mu.Unlock()

	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish to %s: %w", routingKey, err)
	}
	c.recordSuccess()
	return nil
}

func jsonPublishing(id, correlationID string, body []byte) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     id,
		CorrelationId: correlationID,
		Timestamp:     time.Now(),
		Body:          body,
	}
}

// PublishChatEvent enqueues ev for the dispatcher.
func (c *Client) PublishChatEvent(ctx context.Context, ev bot.Event) (string, error) {
	msg := NewChatEventMessage(ev)
	body, err := ToJSON(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.queues.Events, jsonPublishing(msg.ID, "", body)); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PublishReply sends resp for event to the replyTo queue, or to the replies
// queue when replyTo is empty.
func (c *Client) PublishReply(ctx context.Context, replyTo string, event *ChatEventMessage, resp bot.Response) error {
	msg := NewReplyMessage(event, resp)
	body, err := ToJSON(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	exchange, key := c.replyRoute(replyTo)
	return c.publishTo(ctx, exchange, key, jsonPublishing(msg.ID, msg.CorrelationID, body))
}

// replyRoute picks where a reply goes. A reply-to queue is not bound to our
// exchange, so it is addressed by name through the default exchange.
func (c *Client) replyRoute(replyTo string) (exchange, routingKey string) {
	if replyTo == "" {
		return c.exchangeName, c.queues.Replies
	}
	return "", replyTo
}

// PublishRecordEvent announces a committed ledger mutation.
func (c *Client) PublishRecordEvent(ctx context.Context, op ledger.Op, r core.Record) error {
	msg := NewRecordEventMessage(op, r)
	body, err := ToJSON(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.queues.Ledger, jsonPublishing(msg.ID, "", body)); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Published record event",
		log.FieldComponent, log.ComponentAMQP,
		log.FieldMessageID, msg.ID,
		log.FieldOperation, string(op),
		log.FieldRecordID, r.ID)
	return nil
}

// NotifyRecord implements ledger.Notifier.
func (c *Client) NotifyRecord(ctx context.Context, op ledger.Op, r core.Record) error {
	return c.PublishRecordEvent(ctx, op, r)
}

// ChatHandler answers one chat event.
type ChatHandler func(ctx context.Context, ev bot.Event) bot.Response

// ConsumeChatEvents runs handler over the events queue until ctx is done.
// Deliveries are spread over concurrency lanes keyed by user, so events of
// the same user are handled in arrival order.
func (c *Client) ConsumeChatEvents(ctx context.Context, concurrency int, handler ChatHandler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	return c.consumeLoop(ctx, c.queues.Events, concurrency*2, func(deliveries <-chan amqp091.Delivery) error {
		return c.dispatchChatEvents(ctx, deliveries, concurrency, handler)
	})
}

func (c *Client) dispatchChatEvents(ctx context.Context, deliveries <-chan amqp091.Delivery, concurrency int, handler ChatHandler) error {
	g, gctx := errgroup.WithContext(ctx)

	lanes := make([]chan chatDelivery, concurrency)
	for i := range lanes {
		lanes[i] = make(chan chatDelivery)
		lane := lanes[i]
		g.Go(func() error {
			for cd := range lane {
				c.handleChatEvent(gctx, cd, handler)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case d, ok := <-deliveries:
				if !ok {
					return errDeliveriesClosed
				}
				msg, err := ChatEventMessageFromJSON(d.Body)
				if err != nil {
					slog.ErrorContext(gctx, "Failed to decode chat event",
						log.FieldComponent, log.ComponentAMQP,
						log.FieldMessageID, d.MessageId,
						log.FieldError, err)
					d.Nack(false, false)
					continue
				}
				lane := lanes[laneFor(msg.Event.UserID, len(lanes))]
				select {
				case lane <- chatDelivery{d: d, msg: msg}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
	})

	return g.Wait()
}

// laneFor maps userID onto [0, n). Negative ids are folded through uint64 so
// math.MinInt64 cannot produce a negative index.
func laneFor(userID int64, n int) int {
	return int(uint64(userID) % uint64(n))
}

type chatDelivery struct {
	d   amqp091.Delivery
	msg *ChatEventMessage
}

func (c *Client) handleChatEvent(ctx context.Context, cd chatDelivery, handler ChatHandler) {
	d, msg := cd.d, cd.msg
	resp := handler(ctx, msg.Event)

	// The ledger write, if any, is committed: never requeue from here.
	if err := c.PublishReply(ctx, d.ReplyTo, msg, resp); err != nil {
		slog.ErrorContext(ctx, "Failed to publish reply",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldMessageID, msg.ID,
			log.FieldUserID, msg.Event.UserID,
			log.FieldError, err)
	}
	if err := d.Ack(false); err != nil {
		slog.WarnContext(ctx, "Failed to ack chat event",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldMessageID, msg.ID,
			log.FieldError, err)
	}
}

// ConsumeRecordEvents runs handler over the ledger queue one message at a
// time. A handler error requeues the message.
func (c *Client) ConsumeRecordEvents(ctx context.Context, handler func(context.Context, *RecordEventMessage) error) error {
	return c.consumeLoop(ctx, c.queues.Ledger, 1, func(deliveries <-chan amqp091.Delivery) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case d, ok := <-deliveries:
				if !ok {
					return errDeliveriesClosed
				}

				msg, err := RecordEventMessageFromJSON(d.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Failed to unmarshal message",
						log.FieldComponent, log.ComponentAMQP,
						log.FieldError, err)
					d.Nack(false, false) // reject and don't requeue
					continue
				}

				if err := handler(ctx, msg); err != nil {
					slog.ErrorContext(ctx, "Failed to handle record event",
						log.FieldComponent, log.ComponentAMQP,
						log.FieldMessageID, msg.ID,
						log.FieldRecordID, msg.RecordID,
						log.FieldError, err)
					d.Nack(false, true) // reject and requeue
					continue
				}

				d.Ack(false)
			}
		}
	})
}

// consumeLoop starts a consumer on queue and hands its deliveries to run.
// Lost connections are re-established with exponential backoff.
func (c *Client) consumeLoop(ctx context.Context, queue string, prefetch int, run func(<-chan amqp091.Delivery) error) error {
	attempt := 0
	for {
		deliveries, err := c.startConsume(queue, prefetch)
		if err == nil {
			slog.InfoContext(ctx, "Started consuming",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldQueue, queue)
			attempt = 0
			err = run(deliveries)
		}
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldQueue, queue)
			return ctx.Err()
		}
		if !isConnectionError(err) && !errors.Is(err, errDeliveriesClosed) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer interrupted, reconnecting",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldQueue, queue,
			log.FieldAttempt, attempt,
			"backoff", wait.String(),
			log.FieldError, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := c.reconnect(ctx); err != nil {
			slog.ErrorContext(ctx, "Reconnect failed",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldError, err)
		}
	}
}

func (c *Client) startConsume(queue string, prefetch int) (<-chan amqp091.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.channel.IsClosed() {
		return nil, amqp091.ErrClosed
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming %s: %w", queue, err)
	}
	return deliveries, nil
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConn()
	return nil
}
