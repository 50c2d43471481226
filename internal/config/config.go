package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMongo    = "mongo"

	DefaultCartKey = "cartRecipes"
)

type Config struct {
	Env                string        `yaml:"env"`
	HTTPPort           string        `yaml:"http_port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	Store              Store         `yaml:"store"`
	Upstream           Upstream      `yaml:"upstream"`
	Kafka              Kafka         `yaml:"kafka"`
	Breaker            Breaker       `yaml:"breaker"`
}

type Store struct {
	Backend    string   `yaml:"backend"`
	CartKey    string   `yaml:"cart_key"`
	SQLitePath string   `yaml:"sqlite_path"`
	Postgres   Postgres `yaml:"postgres"`
	RedisAddr  string   `yaml:"redis_addr"`
	RedisPass  string   `yaml:"redis_password"`
	MongoURI   string   `yaml:"mongo_uri"`
	MongoDB    string   `yaml:"mongo_db"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Upstream struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	APIToken string        `yaml:"api_token"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

func defaults() *Config {
	return &Config{
		Env:                "development",
		HTTPPort:           "8080",
		RequestTimeout:     30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
		Store: Store{
			Backend:    StoreMemory,
			CartKey:    DefaultCartKey,
			SQLitePath: "smartcart.db",
			Postgres: Postgres{
				Host:   "localhost",
				Port:   5432,
				User:   "smartcart",
				DBName: "smartcart",
			},
			RedisAddr: "localhost:6379",
			MongoURI:  "mongodb://localhost:27017",
			MongoDB:   "smartcart",
		},
		Upstream: Upstream{
			BaseURL: "http://localhost:3000",
			Timeout: 15 * time.Second,
		},
		Kafka: Kafka{Topic: "smartcart-orders"},
		Breaker: Breaker{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// SMARTCART_CONFIG and the environment, in increasing precedence. A .env file in
// the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("SMARTCART_CONFIG"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	c.Env = getEnv("ENV", c.Env)
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	if c.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.MaxRequestBodySize, err = getEnvInt64("MAX_REQUEST_BODY_SIZE", c.MaxRequestBodySize); err != nil {
		return err
	}

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.CartKey = getEnv("CART_KEY", c.Store.CartKey)
	c.Store.SQLitePath = getEnv("SQLITE_PATH", c.Store.SQLitePath)
	c.Store.Postgres.Host = getEnv("DB_HOST", c.Store.Postgres.Host)
	port, err := getEnvInt64("DB_PORT", int64(c.Store.Postgres.Port))
	if err != nil {
		return err
	}
	c.Store.Postgres.Port = int(port)
	c.Store.Postgres.User = getEnv("DB_USER", c.Store.Postgres.User)
	c.Store.Postgres.Password = getEnv("DB_PASSWORD", c.Store.Postgres.Password)
	c.Store.Postgres.DBName = getEnv("DB_NAME", c.Store.Postgres.DBName)
	c.Store.RedisAddr = getEnv("REDIS_ADDR", c.Store.RedisAddr)
	c.Store.RedisPass = getEnv("REDIS_PASSWORD", c.Store.RedisPass)
	c.Store.MongoURI = getEnv("MONGO_URI", c.Store.MongoURI)
	c.Store.MongoDB = getEnv("MONGO_DB_NAME", c.Store.MongoDB)

	c.Upstream.BaseURL = getEnv("API_BASE_URL", c.Upstream.BaseURL)
	if c.Upstream.Timeout, err = getEnvDuration("API_TIMEOUT", c.Upstream.Timeout); err != nil {
		return err
	}
	c.Upstream.APIToken = getEnv("API_TOKEN", c.Upstream.APIToken)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	c.Kafka.Topic = getEnv("KAFKA_TOPIC", c.Kafka.Topic)

	if c.Breaker.Timeout, err = getEnvDuration("BREAKER_TIMEOUT", c.Breaker.Timeout); err != nil {
		return err
	}
	threshold, err := getEnvInt64("BREAKER_FAILURE_THRESHOLD", int64(c.Breaker.FailureThreshold))
	if err != nil {
		return err
	}
	c.Breaker.FailureThreshold = uint32(threshold)
	return nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreSQLite, StorePostgres, StoreRedis, StoreMongo:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if strings.TrimSpace(c.Store.CartKey) == "" {
		return errors.New("cart key must not be empty")
	}
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base url is required")
	}
	if c.RequestTimeout <= 0 || c.Upstream.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.MaxRequestBodySize <= 0 {
		return errors.New("max request body size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
