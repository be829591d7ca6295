// Package ingest pulls correspondence records off Kafka and feeds them
// through classification and linking into the entity store.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"
)

// ConsumerMessage is one raw message from the intake topic.
type ConsumerMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

// Consumer abstracts the message source so the processor can be driven by an
// in-process channel in tests.
type Consumer interface {
	Start(ctx context.Context) error
	Messages() <-chan ConsumerMessage
	Close() error
}

// KafkaConsumer implements Consumer using segmentio/kafka-go.
type KafkaConsumer struct {
	brokers       string
	consumerGroup string
	topic         string
	reader        *kafka.Reader
	messages      chan ConsumerMessage
	mu            sync.Mutex
}

// NewKafkaConsumer creates a Kafka consumer for the correspondence topic.
func NewKafkaConsumer(brokers, consumerGroup, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		brokers:       brokers,
		consumerGroup: consumerGroup,
		topic:         topic,
		messages:      make(chan ConsumerMessage, 100),
	}
}

// Start begins consuming from the configured topic.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(c.brokers, ","),
		Topic:    c.topic,
		GroupID:  c.consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	reader := c.reader
	c.mu.Unlock()

	go func() {
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("ingest: kafka read error", "topic", c.topic, "error", err)
				continue
			}
			c.messages <- ConsumerMessage{Topic: c.topic, Key: msg.Key, Value: msg.Value}
		}
	}()
	return nil
}

// Messages returns the channel of consumed messages.
func (c *KafkaConsumer) Messages() <-chan ConsumerMessage {
	return c.messages
}

// Close stops the reader.
func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

// ChannelConsumer is an in-process Consumer implementation backed by a Go
// channel, used in tests.
type ChannelConsumer struct {
	ch chan ConsumerMessage
}

// NewChannelConsumer creates an in-process consumer.
func NewChannelConsumer() *ChannelConsumer {
	return &ChannelConsumer{ch: make(chan ConsumerMessage, 100)}
}

func (c *ChannelConsumer) Start(ctx context.Context) error { return nil }

func (c *ChannelConsumer) Messages() <-chan ConsumerMessage { return c.ch }

func (c *ChannelConsumer) Close() error {
	close(c.ch)
	return nil
}

// Inject pushes a message into the in-process consumer.
func (c *ChannelConsumer) Inject(msg ConsumerMessage) {
	c.ch <- msg
}
