package config

import (
	"time"

	pkgconfig "github.com/weiawesome/wes-io-relay/pkg/config"
	"github.com/weiawesome/wes-io-relay/pkg/pubsub"
	"github.com/weiawesome/wes-io-relay/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Recording RecordingConfig
	Storage   storage.Config
	Registry  RegistryConfig
	PubSub    pubsub.Config
	Chat      ChatConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
}

// RecordingConfig controls how recordings are named, finalized and listed.
type RecordingConfig struct {
	Extension         string        `mapstructure:"extension"`
	ContentType       string        `mapstructure:"content_type"`
	Folder            string        `mapstructure:"folder"`
	CatalogLimit      int           `mapstructure:"catalog_limit"`
	URLExpiry         time.Duration `mapstructure:"url_expiry"`
	FinalizeWorkers   int           `mapstructure:"finalize_workers"`
	FinalizeQueueSize int           `mapstructure:"finalize_queue_size"`
	FinalizeTimeout   time.Duration `mapstructure:"finalize_timeout"`
}

type RegistryConfig struct {
	Type              string `mapstructure:"type"` // "memory", "redis"
	Redis             RedisConfig
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type ChatConfig struct {
	Prefix string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 50<<20)
	v.SetDefault("websocket.send_buffer_size", 256)
	v.SetDefault("recording.extension", "webm")
	v.SetDefault("recording.content_type", "video/webm")
	v.SetDefault("recording.folder", "live_recordings")
	v.SetDefault("recording.catalog_limit", 50)
	v.SetDefault("recording.url_expiry", "1h")
	v.SetDefault("recording.finalize_workers", 4)
	v.SetDefault("recording.finalize_queue_size", 64)
	v.SetDefault("recording.finalize_timeout", "2m")
	v.SetDefault("storage.type", storage.TypeLocal)
	v.SetDefault("storage.local.base_path", "uploads")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("registry.type", "memory")
	v.SetDefault("registry.redis.address", "localhost:6379")
	v.SetDefault("registry.redis.prefix", "relay:live:")
	v.SetDefault("registry.key_ttl", "30s")
	v.SetDefault("registry.heartbeat_interval", "10s")
	v.SetDefault("pubsub.driver", pubsub.DriverNone)
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("chat.prefix", "AI: ")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.local.base_path", "OUTPUT_DIR")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("registry.type", "REGISTRY_TYPE")
	v.BindEnv("registry.redis.address", "REDIS_ADDRESS")
	v.BindEnv("registry.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 30*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Recording.URLExpiry = pkgconfig.Duration(v, "recording.url_expiry", time.Hour)
	cfg.Recording.FinalizeTimeout = pkgconfig.Duration(v, "recording.finalize_timeout", 2*time.Minute)
	cfg.Registry.KeyTTL = pkgconfig.Duration(v, "registry.key_ttl", 30*time.Second)
	cfg.Registry.HeartbeatInterval = pkgconfig.Duration(v, "registry.heartbeat_interval", 10*time.Second)
	cfg.PubSub.Redis.ReadTimeout = pkgconfig.Duration(v, "pubsub.redis.read_timeout", 3*time.Second)
	cfg.PubSub.Redis.WriteTimeout = pkgconfig.Duration(v, "pubsub.redis.write_timeout", 3*time.Second)

	return &cfg, nil
}
