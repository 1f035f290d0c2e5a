package app

import (
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"

	CatalogBackendSQL = "sql"
	CatalogBackendORM = "orm"
)

// Config: полная конфигурация сервиса: переменные окружения с префиксом
// COMPTOIRS_ и необязательный config.yaml.
type Config struct {
	GRPCAddr    string `default:":50051" usage:"gRPC listen address"`
	HTTPAddr    string `default:":8080" usage:"REST API listen address"`
	MetricsAddr string `default:":9090" usage:"metrics and health listen address"`

	Log         LogConfig
	Storage     StorageConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Idempotency IdempotencyConfig
}

type LogConfig struct {
	Level  string `default:"info" usage:"logrus level"`
	Format string `default:"text" usage:"text or json"`
}

type StorageConfig struct {
	Driver  string `default:"memory" usage:"memory or postgres"`
	Catalog string `default:"sql" usage:"catalog query backend: sql or orm"`
	// Dataset: YAML-файл набора данных для memory; пусто означает встроенный набор.
	Dataset string `usage:"dataset file loaded into the memory store"`
}

type PostgresConfig struct {
	DSN             string        `usage:"PostgreSQL DSN"`
	AutoMigrate     bool          `default:"true" usage:"apply migrations at start-up"`
	MaxOpenConns    int           `default:"25"`
	MaxIdleConns    int           `default:"25"`
	ConnMaxLifetime time.Duration `default:"30m"`
	ConnMaxIdleTime time.Duration `default:"5m"`
}

// RedisConfig включает кэш каталога, если задан Addr.
type RedisConfig struct {
	Addr     string        `usage:"Redis address for the catalog cache"`
	Password string        `usage:"Redis password"`
	DB       int           `default:"0"`
	TTL      time.Duration `default:"5m" usage:"catalog cache TTL"`
}

// KafkaConfig включает публикацию outbox в Kafka, если заданы брокеры.
type KafkaConfig struct {
	Brokers  []string `usage:"comma separated Kafka brokers"`
	ClientID string   `default:"comptoirs-order-service"`
	Topic    string   `default:"comptoirs.order.events"`
	DLQTopic string   `default:"comptoirs.order.dlq"`
}

type OutboxConfig struct {
	PollInterval time.Duration `default:"1s"`
	BatchSize    int           `default:"100"`
	MaxAttempts  int           `default:"5"`
	RetryDelay   time.Duration `default:"1s"`
}

type IdempotencyConfig struct {
	CleanupInterval  time.Duration `default:"1m"`
	CleanupBatchSize int           `default:"500"`
}

// LoadConfig читает конфигурацию из окружения и YAML-файлов. Отсутствующие
// файлы пропускаются.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{"config.yaml", "/etc/comptoirs/config.yaml"}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "COMPTOIRS",
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Storage.Catalog = strings.ToLower(strings.TrimSpace(c.Storage.Catalog))

	switch c.Storage.Driver {
	case StorageDriverMemory:
		if c.Storage.Catalog == CatalogBackendORM {
			return errors.New("catalog backend orm requires postgres storage")
		}
	case StorageDriverPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres DSN is required: set COMPTOIRS_POSTGRES_DSN")
		}
	default:
		return errors.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	switch c.Storage.Catalog {
	case CatalogBackendSQL, CatalogBackendORM:
	default:
		return errors.Errorf("unsupported catalog backend %q", c.Storage.Catalog)
	}

	if c.Outbox.BatchSize <= 0 || c.Outbox.MaxAttempts <= 0 || c.Outbox.PollInterval <= 0 {
		return errors.New("outbox settings must be positive")
	}
	if c.Idempotency.CleanupBatchSize <= 0 || c.Idempotency.CleanupInterval <= 0 {
		return errors.New("idempotency cleanup settings must be positive")
	}
	return nil
}
