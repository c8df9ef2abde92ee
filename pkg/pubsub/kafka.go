package pubsub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/wes-io-relay/pkg/log"
)

const (
	defaultPartitions = 4
	flushTimeoutMs    = 5000
)

type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"` // comma separated
	Partitions int    `mapstructure:"partitions"`
}

// topicFor maps a relay channel onto a Kafka topic plus partition key.
//
//	"relay:room:abc123:to_archive" -> "relay-to-archive", "abc123"
func topicFor(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "room" || parts[2] == "" || !strings.HasPrefix(parts[3], "to_") {
		return "", "", fmt.Errorf("channel %q is not <prefix>:room:<id>:to_<target>", channel)
	}
	return parts[0] + "-" + strings.ReplaceAll(parts[3], "_", "-"), parts[2], nil
}

// KafkaPublisher produces events keyed by stream ID, so one broadcaster's
// events stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	done     chan struct{}
}

// NewKafkaPublisher connects a producer and makes sure the archive topic exists.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{producer: producer, done: make(chan struct{})}
	go kp.drainReports()

	topic, _, _ := topicFor(RelayToArchiveChannel("_"))
	if err := kp.createTopic(topic, cfg.Partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", topic).Msg("kafka topic not created")
	}

	return kp, nil
}

func (k *KafkaPublisher) createTopic(topic string, partitions int) error {
	if partitions <= 0 {
		partitions = defaultPartitions
	}

	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return r.Error
		}
	}
	return nil
}

// drainReports consumes delivery reports until the producer closes.
func (k *KafkaPublisher) drainReports() {
	defer close(k.done)
	for e := range k.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok || m.TopicPartition.Error == nil {
			continue
		}
		l := pkglog.L()
		l.Error().Err(m.TopicPartition.Error).
			Str("topic", *m.TopicPartition.Topic).
			Str(pkglog.FieldClientID, string(m.Key)).
			Msg("kafka delivery failed")
	}
}

// Publish enqueues event. Delivery is reported asynchronously.
func (k *KafkaPublisher) Publish(ctx context.Context, channel string, event *Event) error {
	topic, key, err := topicFor(channel)
	if err != nil {
		return err
	}

	data, err := event.encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
		Headers:        []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("produce %s: %w", topic, err)
	}
	return nil
}

// Close flushes outstanding messages and waits for the report loop to exit.
func (k *KafkaPublisher) Close() error {
	if n := k.producer.Flush(flushTimeoutMs); n > 0 {
		l := pkglog.L()
		l.Warn().Int("pending", n).Msg("kafka flush timed out")
	}
	k.producer.Close()
	<-k.done
	return nil
}
