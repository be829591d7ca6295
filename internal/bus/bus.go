// Package bus provides the async intake bus between correspondence sources
// (Kafka, HTTP) and the classification processor.
package bus

import (
	"context"

	"github.com/OpsPulse/opspulse/internal/classify"
)

// InboundRecord wraps one correspondence record with its source channel.
type InboundRecord struct {
	Source string          `json:"source"` // "kafka", "http", "manual"
	Record classify.Record `json:"record"`
}

// IntakeBus decouples correspondence sources from the processor.
type IntakeBus struct {
	inbound chan *InboundRecord
}

// NewIntakeBus creates a new intake bus.
func NewIntakeBus() *IntakeBus {
	return &IntakeBus{
		inbound: make(chan *InboundRecord, 100),
	}
}

// Publish sends a record from a source to the processor.
func (b *IntakeBus) Publish(rec *InboundRecord) {
	b.inbound <- rec
}

// Consume blocks until a record is available or the context is cancelled.
func (b *IntakeBus) Consume(ctx context.Context) (*InboundRecord, error) {
	select {
	case rec := <-b.inbound:
		return rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of pending records.
func (b *IntakeBus) Size() int {
	return len(b.inbound)
}
