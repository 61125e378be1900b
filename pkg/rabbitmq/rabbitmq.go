package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"sweetshop/internal/models"

	amqp "github.com/streadway/amqp"
)

// Item events are published to a fanout exchange. The durable ItemEventsQueue bound to it keeps
// every event for downstream services; each in-process consumer gets its own private queue.
const (
	ItemEventsExchange = "sweetshop.items"
	ItemEventsQueue    = "item_events"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the item events queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	slog.Info("rabbitmq client connected", slog.String("queue", ItemEventsQueue))

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareQueue(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ItemEventsExchange, // name
		"fanout",           // kind
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ItemEventsExchange, err)
	}

	_, err = ch.QueueDeclare(
		ItemEventsQueue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", ItemEventsQueue, err)
	}
	if err := ch.QueueBind(ItemEventsQueue, "", ItemEventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", ItemEventsQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishItemEvent publishes event to the item events exchange as a persistent JSON message.
func (c *Client) PublishItemEvent(event models.ItemEvent) error {
	if c == nil || c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal item event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		ItemEventsExchange, // exchange
		"",                 // routing key: ignored by fanout
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	slog.Debug("item event sent", slog.String("type", event.Type), slog.String("item_id", event.ItemID))
	return nil
}

// ItemEventHandler processes one decoded event. A returned error requeues the message.
type ItemEventHandler func(event models.ItemEvent) error

// ConsumeItemEvents binds a private, server-named queue to the item events exchange and starts
// a goroutine that delivers its events to handler with manual acknowledgement. Messages in
// ItemEventsQueue are left for other services. Undecodable messages are dropped rather than
// requeued.
func (c *Client) ConsumeItemEvents(handler ItemEventHandler) error {
	if c == nil || c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	c.mu.Lock()
	msgs, err := c.subscribe()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			handleDelivery(msg, handler)
		}
		slog.Info("rabbitmq consumer stopped", slog.String("exchange", ItemEventsExchange))
	}()

	return nil
}

func (c *Client) subscribe() (<-chan amqp.Delivery, error) {
	queue, err := c.channel.QueueDeclare(
		"",    // name: server generated
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare consumer queue: %w", err)
	}
	if err := c.channel.QueueBind(queue.Name, "", ItemEventsExchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind consumer queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	return msgs, nil
}

// acknowledger is the subset of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type delivery struct {
	acknowledger
	tag  uint64
	body []byte
}

func handleDelivery(msg amqp.Delivery, handler ItemEventHandler) {
	settle(delivery{acknowledger: msg, tag: msg.DeliveryTag, body: msg.Body}, handler)
}

func settle(d delivery, handler ItemEventHandler) {
	var event models.ItemEvent
	if err := json.Unmarshal(d.body, &event); err != nil {
		slog.Warn("dropping malformed item event", slog.Uint64("tag", d.tag), slog.Any("error", err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			slog.Error("failed to nack message", slog.Uint64("tag", d.tag), slog.Any("error", nackErr))
		}
		return
	}

	if err := handler(event); err != nil {
		slog.Warn("item event handler failed", slog.Uint64("tag", d.tag), slog.Any("error", err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			slog.Error("failed to nack message", slog.Uint64("tag", d.tag), slog.Any("error", nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		slog.Error("failed to ack message", slog.Uint64("tag", d.tag), slog.Any("error", ackErr))
	}
}

// LogSoldOut is an ItemEventHandler that reports purchases which emptied an item.
func LogSoldOut(event models.ItemEvent) error {
	if event.Type == models.EventItemPurchased && event.Quantity == 0 {
		slog.Info("sold out event consumed", slog.String("item_id", event.ItemID), slog.String("name", event.Name))
	}
	return nil
}
