package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/travel-booking/internal/metrics"
)

// LogFileName is the file, inside the log directory, that receives one line
// per booking event.
const LogFileName = "booking.log"

// StartBookingConsumer connects to RabbitMQ, declares the booking event
// queues (durable) and appends each message to <dir>/booking.log.  It
// reconnects with exponential backoff whenever the broker goes away and
// only returns once ctx is cancelled.  A message that cannot be handled is
// rejected without requeue so it cannot stall the queue.
func StartBookingConsumer(ctx context.Context, url, dir string) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            slog.Warn("booking-consumer: failed to dial broker", "err", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, dir)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        slog.Warn("booking-consumer: consume loop ended; reconnecting", "err", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        slog.Warn("booking-consumer: set QoS failed", "err", err)
    }

    deliveries := make(chan amqp.Delivery)
    done := make(chan struct{})
    defer close(done)
    for _, name := range EventTypes {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        go func(msgs <-chan amqp.Delivery) {
            for d := range msgs {
                select {
                case deliveries <- d:
                case <-done:
                    return
                }
            }
        }(msgs)
    }

    closed := conn.NotifyClose(make(chan *amqp.Error, 1))
    slog.Info("booking-consumer: consuming", "queues", EventTypes, "dir", dir)
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("connection closed")
        case d := <-deliveries:
            if err := handleMessage(dir, d.Body); err != nil {
                slog.Error("booking-consumer: handle message failed", "err", err, "message_id", d.MessageId)
                metrics.ConsumerProcessed.WithLabelValues("rejected").Inc()
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            metrics.ConsumerProcessed.WithLabelValues("logged").Inc()
            _ = d.Ack(false)
        }
    }
}

func handleMessage(dir string, body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Reference == "" || ev.Type == "" {
        return errors.New("event without type or reference")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev BookingEvent) string {
    verb := "Booking confirmed"
    if ev.Type == EventBookingCancelled {
        verb = "Booking cancelled"
    }
    return fmt.Sprintf("[%s] %s | booking_id=%d | reference=%s | user_id=%d | resource=%s (%s) | assignment=%s | price=%d cents\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.BookingID, ev.Reference, ev.UserID,
        ev.ResourceCode, strings.ToLower(ev.Kind), ev.Assignment, ev.PriceCents)
}
