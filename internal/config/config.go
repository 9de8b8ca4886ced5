package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// MaxTTLHours bounds link lifetimes so hours*time.Hour stays far below
// the int64 range of time.Duration.
const (
	MaxTTLHours = 876_000
	MaxTTL      = MaxTTLHours * time.Hour
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Shortener ShortenerConfig
	Reclaim   ReclaimConfig
	Events    EventsConfig
	Kafka     KafkaConfig
	MongoDB   MongoDBConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name      string
	Version   string
	Env       string
	LogLevel  string
	LogOutput string
}

type ServerConfig struct {
	Port string
	Host string
}

// ShortenerConfig carries the values handed to the link registry at construction.
type ShortenerConfig struct {
	BaseURL           string
	CodeLength        int
	DefaultClickLimit int
	DefaultTTL        time.Duration
}

type ReclaimConfig struct {
	InitialDelay time.Duration
	Interval     time.Duration
}

type EventsConfig struct {
	QueueSize     int
	FlushInterval time.Duration
	MaxBatch      int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type MongoDBConfig struct {
	Enabled  bool
	URI      string
	Database string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not read .env file: %v\n", err)
	}

	port := GetEnv("APP_PORT", "8080")

	ttlHours := GetEnvInt("DEFAULT_TTL_HOURS", 24)
	if ttlHours > MaxTTLHours {
		return nil, fmt.Errorf("DEFAULT_TTL_HOURS must be at most %d (got %d)", MaxTTLHours, ttlHours)
	}

	cfg := &Config{
		App: AppConfig{
			Name:      GetEnv("APP_NAME", "linkquota"),
			Version:   GetEnv("APP_VERSION", "0.1.0"),
			Env:       GetEnv("APP_ENV", "development"),
			LogLevel:  GetEnv("LOG_LEVEL", "info"),
			LogOutput: GetEnv("LOG_OUTPUT", "stdout"),
		},
		Server: ServerConfig{
			Port: port,
			Host: GetEnv("APP_HOST", "localhost"),
		},
		Shortener: ShortenerConfig{
			BaseURL:           GetEnv("SHORTENER_BASE_URL", "http://localhost:"+port),
			CodeLength:        GetEnvInt("CODE_LENGTH", 6),
			DefaultClickLimit: GetEnvInt("DEFAULT_CLICK_LIMIT", 100),
			DefaultTTL:        time.Duration(ttlHours) * time.Hour,
		},
		Reclaim: ReclaimConfig{
			InitialDelay: GetEnvDuration("RECLAIM_INITIAL_DELAY", time.Minute),
			Interval:     GetEnvDuration("RECLAIM_INTERVAL", time.Hour),
		},
		Events: EventsConfig{
			QueueSize:     GetEnvInt("EVENTS_QUEUE_SIZE", 10000),
			FlushInterval: GetEnvDuration("EVENTS_FLUSH_INTERVAL", 500*time.Millisecond),
			MaxBatch:      GetEnvInt("EVENTS_MAX_BATCH", 500),
		},
		Kafka: KafkaConfig{
			Enabled: GetEnvBool("KAFKA_ENABLED", false),
			Brokers: SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   GetEnv("KAFKA_LINK_TOPIC", "links.lifecycle"),
		},
		MongoDB: MongoDBConfig{
			Enabled:  GetEnvBool("MONGODB_ENABLED", false),
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "linkquota"),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the ranges Load enforces. It is exported so callers that
// override fields after loading (command-line flags) can re-check them.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("APP_PORT must not be empty")
	}
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 32 {
		return fmt.Errorf("CODE_LENGTH must be between 4 and 32 (got %d)", c.Shortener.CodeLength)
	}
	if c.Shortener.DefaultClickLimit <= 0 {
		return fmt.Errorf("DEFAULT_CLICK_LIMIT must be positive (got %d)", c.Shortener.DefaultClickLimit)
	}
	if c.Shortener.DefaultTTL <= 0 || c.Shortener.DefaultTTL > MaxTTL {
		return fmt.Errorf("DEFAULT_TTL_HOURS must be between 1 and %d (got %s)", MaxTTLHours, c.Shortener.DefaultTTL)
	}
	if c.Reclaim.InitialDelay < 0 {
		return fmt.Errorf("RECLAIM_INITIAL_DELAY must not be negative (got %s)", c.Reclaim.InitialDelay)
	}
	if c.Reclaim.Interval <= 0 {
		return fmt.Errorf("RECLAIM_INTERVAL must be positive (got %s)", c.Reclaim.Interval)
	}
	if c.Events.QueueSize <= 0 || c.Events.MaxBatch <= 0 {
		return fmt.Errorf("EVENTS_QUEUE_SIZE and EVENTS_MAX_BATCH must be positive (got %d, %d)", c.Events.QueueSize, c.Events.MaxBatch)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS must list at least one broker when KAFKA_ENABLED is set")
	}
	return nil
}

// ListenAddr is the address the redirect listener binds to.
func (c *Config) ListenAddr() string {
	return ":" + c.Server.Port
}
