package forward

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/tracing"
)

// Sink delivers one stored message to an external system.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg store.Message) error
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink produces each message to a topic, keyed by message id.
type KafkaSink struct {
	writer kafkaWriter
	topic  string
}

func NewKafkaSink(writer kafkaWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

func (s *KafkaSink) Name() string {
	return constants.SinkKafka
}

func (s *KafkaSink) Send(ctx context.Context, msg store.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	id := strconv.FormatInt(msg.ID, 10)
	out := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(id),
		Value:   body,
		Headers: []kafka.Header{{Key: "message_id", Value: []byte(id)}},
	}
	tracing.InjectMessage(ctx, &out)

	if err := s.writer.WriteMessages(ctx, out); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSink publishes each message on a pub/sub channel.
type RedisSink struct {
	client  redisPublisher
	channel string
}

func NewRedisSink(client redisPublisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string {
	return constants.SinkRedis
}

func (s *RedisSink) Send(ctx context.Context, msg store.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", s.channel, err)
	}
	return nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
