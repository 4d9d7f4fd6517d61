package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the service configuration.
type Config struct {
	DatabaseURL      string        `yaml:"database_url"`
	HTTPAddr         string        `yaml:"http_addr"`
	Store            string        `yaml:"store"`
	ReconcileTimeout time.Duration `yaml:"reconcile_timeout"`
	LogLevel         string        `yaml:"log_level"`
	Kafka            KafkaConfig   `yaml:"kafka"`
	SeedAccounts     []SeedAccount `yaml:"seed_accounts"`
}

// SeedAccount is an account loaded into the memory store at startup.
type SeedAccount struct {
	ID               string `yaml:"id"`
	AccountKey       string `yaml:"account_key"`
	ManagerID        string `yaml:"manager_id"`
	CurrentBalance   string `yaml:"current_balance"`
	AvailableBalance string `yaml:"available_balance"`
}

// KafkaConfig configures completion event publishing. Empty brokers disables Kafka.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads configuration. Values come from, in increasing precedence:
// defaults, the YAML file named by RECONCILE_CONFIG, and the environment
// (optionally seeded from a .env file).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr:         ":8080",
		Store:            StorePostgres,
		ReconcileTimeout: 2 * time.Minute,
		LogLevel:         "info",
		Kafka:            KafkaConfig{Topic: "balance_reconciliation_completed"},
	}

	if path := os.Getenv("RECONCILE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.Store = strings.ToLower(getenvDefault("STORE", cfg.Store))
	cfg.ReconcileTimeout = getenvDuration("RECONCILE_TIMEOUT", cfg.ReconcileTimeout)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	if brokers := splitCSV(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	cfg.Kafka.Topic = getenvDefault("KAFKA_TOPIC", cfg.Kafka.Topic)

	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL or PG_DSN is required")
		}
	case StoreMemory:
		for _, seed := range c.SeedAccounts {
			if seed.ID == "" || seed.AccountKey == "" {
				return errors.New("config: seed account needs id and account_key")
			}
		}
	default:
		return errors.New("config: STORE must be postgres or memory")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("config: KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		if secs, convErr := strconv.Atoi(value); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
