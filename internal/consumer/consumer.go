package consumer

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const taxConfigurationEntity = "tax_configuration"

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// TaxInvalidator drops cached tax configurations.
type TaxInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Consumer struct {
	reader   MessageReader
	taxCache TaxInvalidator
	backoff  time.Duration
}

func NewConsumer(reader MessageReader, taxCache TaxInvalidator) *Consumer {
	return &Consumer{reader: reader, taxCache: taxCache, backoff: time.Second}
}

// StartKafkaConsumer reads tax configuration change events until ctx is cancelled.
func (c *Consumer) StartKafkaConsumer(ctx context.Context) {
	defer c.reader.Close()

	for {
		// Read message from tax topic
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Tax consumer stopped")
				return
			}
			log.Error().Msgf("Error reading message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		// Process message
		c.processMessage(ctx, msg)
	}
}

// processMessage processes the message received from the Kafka topic
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) bool {
	// key -> "tax_configuration.updated.<id>" or "tax_configuration.deleted.<id>"
	key := string(msg.Key)
	listKey := strings.SplitN(key, ".", 3)
	if len(listKey) < 2 || listKey[0] != taxConfigurationEntity {
		log.Warn().Msgf("Ignoring message with key %q", key)
		return false
	}
	eventType := listKey[1]

	switch eventType {
	case "created", "updated", "deleted", "activated", "deactivated":
		if err := c.taxCache.Invalidate(ctx); err != nil {
			log.Error().Msgf("Error invalidating tax configuration cache: %v", err)
			return false
		}
		log.Info().Msgf("Tax configuration cache invalidated by %s", key)
		return true
	default:
		log.Error().Msgf("Unknown tax configuration event: %s", eventType)
		return false
	}
}
