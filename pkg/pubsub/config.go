package pubsub

import "fmt"

const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// Config selects and configures the event bus. With DriverNone (or no
// driver) events are dropped.
type Config struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// NewPublisher connects the configured driver.
func NewPublisher(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case DriverNone, "":
		return NopPublisher{}, nil
	case DriverRedis:
		return NewRedisPublisher(cfg.Redis)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka)
	}
	return nil, fmt.Errorf("unknown pubsub driver %q", cfg.Driver)
}
