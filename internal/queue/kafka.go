package queue

import (
    "context"
    "fmt"
    "time"

    "github.com/segmentio/kafka-go"
)

// KafkaPublisher writes every event to one topic.  Messages are keyed by
// booking reference, so the hash balancer keeps the events of one booking
// on one partition and in order.
type KafkaPublisher struct {
    writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
    w := &kafka.Writer{
        Addr:                   kafka.TCP(brokers...),
        Topic:                  topic,
        Balancer:               &kafka.Hash{},
        MaxAttempts:            5,
        ReadTimeout:            10 * time.Second,
        WriteTimeout:           10 * time.Second,
        RequiredAcks:           kafka.RequireAll,
        AllowAutoTopicCreation: true,
    }
    return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, body []byte) error {
    err := p.writer.WriteMessages(ctx, kafka.Message{
        Key:     []byte(key),
        Value:   body,
        Headers: []kafka.Header{{Key: "event_type", Value: []byte(eventType)}},
        Time:    time.Now().UTC(),
    })
    if err != nil {
        return fmt.Errorf("kafka: write %s: %w", eventType, err)
    }
    return nil
}

// Topic returns the topic events are written to.
func (p *KafkaPublisher) Topic() string { return p.writer.Topic }

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
