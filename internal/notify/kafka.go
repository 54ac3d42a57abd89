package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"roomguard/internal/config"
	"roomguard/internal/model"
)

// Kafka publishes alerts to a topic for downstream consumers (SIEM ingest,
// archival pipelines). Same best-effort contract as the webhook sink.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(cfg config.KafkaConfig) Sink {
	if !cfg.Enabled {
		return nil
	}
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Send(ctx context.Context, alert model.Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.ID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write alert to kafka: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
