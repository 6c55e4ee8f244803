package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"tuition-pricing-service/internal/entity"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher emits snapshot events to Kafka.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// PublishSnapshotCreated announces a persisted snapshot. The message key is
// "snapshot.created.<snapshotId>" so consumers can split it on ".".
func (p *Publisher) PublishSnapshotCreated(ctx context.Context, snap *entity.PricingSnapshot, result *entity.PricingResult) error {
	event := entity.SnapshotEvent{
		EventID:     uuid.NewString(),
		Type:        entity.SnapshotCreated,
		SnapshotID:  snap.SnapshotID,
		StudentID:   snap.StudentID,
		ClassID:     snap.ClassID,
		FinalAmount: result.PricingBreakdown.FinalAmount,
		Currency:    result.PricingBreakdown.Currency,
		OccurredAt:  result.CalculatedAt,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s.%s", entity.SnapshotCreated, snap.SnapshotID)),
		Value: eventJSON,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publishing snapshot %s", snap.SnapshotID)
	}
	return nil
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSnapshotCreated(ctx context.Context, snap *entity.PricingSnapshot, result *entity.PricingResult) error {
	return nil
}
