package queue

import (
    "context"
    "fmt"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher publishes events to a durable queue named after the event
// type, through the default exchange.  The connection is opened lazily and
// re-opened after the broker drops it.
type RabbitPublisher struct {
    url string

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewRabbitPublisher(url string) *RabbitPublisher {
    return &RabbitPublisher{url: url}
}

// Publish sends one persistent message.  key becomes the message id so
// consumers can de-duplicate redeliveries.
func (p *RabbitPublisher) Publish(ctx context.Context, eventType, key string, body []byte) error {
    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        return err
    }

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(eventType, true, false, false, false, nil); err != nil {
        p.reset()
        return fmt.Errorf("rabbitmq: queue declare %s: %w", eventType, err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    key,
        Type:         eventType,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", eventType, false, false, pub); err != nil {
        p.reset()
        return fmt.Errorf("rabbitmq: publish %s: %w", eventType, err)
    }
    return nil
}

func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("rabbitmq: dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
    }
    slog.Info("rabbitmq publisher connected")
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *RabbitPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *RabbitPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
