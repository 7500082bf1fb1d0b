package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-catalog/internal/config"
	"ms-catalog/internal/models"
)

// Producer streams catalog mutations to the change feed. In mock mode it only
// logs the payload, so the service can run without a broker.
type Producer struct {
	Writer   *kafka.Writer
	Topics   config.TopicConfig
	MockMode bool
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	var writer *kafka.Writer
	if !cfg.MockMode {
		writer = &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Balancer: &kafka.LeastBytes{},
		}
	}
	return &Producer{
		Writer:   writer,
		Topics:   cfg.Topics,
		MockMode: cfg.MockMode,
	}
}

type changeMessage struct {
	Action string      `json:"action"`
	Record interface{} `json:"record"`
}

// PublishVenueChange streams a venue create/update/delete to the feed.
func (p *Producer) PublishVenueChange(action string, venue models.Venue) error {
	return p.publish(p.Topics.VenuesChanged, strconv.FormatInt(venue.ID, 10), changeMessage{
		Action: action,
		Record: venue,
	})
}

// PublishEventChange streams an event create/update/delete to the feed.
func (p *Producer) PublishEventChange(action string, event models.Event) error {
	return p.publish(p.Topics.EventsChanged, strconv.FormatInt(event.ID, 10), changeMessage{
		Action: action,
		Record: event,
	})
}

func (p *Producer) publish(topic, key string, msg changeMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if p.MockMode {
		fmt.Printf("Mock publish to Kafka [%s]: %s\n", topic, string(value))
		return nil
	}

	return p.Writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	if p.Writer != nil {
		return p.Writer.Close()
	}
	return nil
}
