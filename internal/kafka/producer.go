package kafka

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"logsight-backend/config"
	"logsight-backend/internal/model"
	"logsight-backend/internal/parser"
)

// RecordProducer publishes merged records for downstream consumers
// (indexing, alerting). Publishing is best-effort: a failed publish never
// fails the pipeline run that produced the records.
type RecordProducer interface {
	Publish(ctx context.Context, records []*model.Record) error
	Close() error
}

type kafkaRecordProducer struct {
	writer *kafka.Writer
	topic  string
}

// NewRecordProducer returns nil when no brokers are configured; the pipeline
// treats a nil producer as publishing disabled.
func NewRecordProducer(lc fx.Lifecycle, cfg *config.Config) RecordProducer {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.RecordTopic == "" {
		log.Info().Msg("Kafka brokers not configured, record publishing disabled")
		return nil
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.RecordTopic,
		Balancer: &kafka.LeastBytes{},
		Async:    true,
	})
	p := &kafkaRecordProducer{
		writer: writer,
		topic:  cfg.Kafka.RecordTopic,
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.RecordTopic).Msg("Kafka producer initialized")
	return p
}

func (p *kafkaRecordProducer) Publish(ctx context.Context, records []*model.Record) error {
	if len(records) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(records))

	for _, record := range records {
		value, err := json.Marshal(record)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal record for Kafka")
			continue
		}
		var key []byte
		if ip, ok := record.Get(parser.FieldSrcIP); ok {
			key = []byte(ip)
		}
		messages = append(messages, kafka.Message{
			Key:   key,
			Value: value,
		})
	}
	if len(messages) == 0 {
		log.Warn().Msg("No valid messages to produce.")
		return nil
	}

	err := p.writer.WriteMessages(ctx, messages...)
	if err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")

	return nil
}

func (p *kafkaRecordProducer) Close() error {
	return p.writer.Close()
}
