package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/mr1hm/go-radar-alerts/internal/config"
	"github.com/mr1hm/go-radar-alerts/internal/models"
)

// Event is the wire form of an accepted transition.
type Event struct {
	Region     string    `json:"region"`
	HazardType string    `json:"hazard_type"`
	Severity   string    `json:"severity"`
	Source     string    `json:"source"`
	Comment    string    `json:"comment,omitempty"`
	At         time.Time `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces transitions to a Kafka topic.
// It implements notify.Publisher.
type Writer struct {
	writer messageWriter
}

func NewWriter(cfg config.KafkaConfig) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w}
}

func (w *Writer) Publish(ctx context.Context, t models.Transition) error {
	msg, err := serializeToMessage(t)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write transition %s: %w", t.Key(), err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage keys by region|hazard so every change of one key lands
// on the same partition.
func serializeToMessage(t models.Transition) (kafkago.Message, error) {
	data, err := json.Marshal(Event{
		Region:     string(t.Region),
		HazardType: string(t.HazardType),
		Severity:   string(t.Severity),
		Source:     t.Source,
		Comment:    t.Comment,
		At:         t.At.UTC(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize transition: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(t.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(t.Severity)},
			{Key: "source", Value: []byte(t.Source)},
		},
	}, nil
}
