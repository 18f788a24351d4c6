package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Broker  BrokerConfig  `yaml:"broker"`
	Trading TradingConfig `yaml:"trading"`
	Kafka struct {
		Brokers          []string `yaml:"brokers"`
		OrderStatusTopic string   `yaml:"order_status_topic"`
		FillTopic        string   `yaml:"fill_topic"`
		RequiredAcks     int      `yaml:"required_acks"`
		Compression      string   `yaml:"compression"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Trading modes.
const (
	ModeLive       = "live"
	ModeSimulation = "simulation"
)

// BrokerConfig holds broker-gateway connection settings.
type BrokerConfig struct {
	GatewayURL     string        `yaml:"gateway_url"`
	Account        string        `yaml:"account"`
	Exchange       string        `yaml:"exchange"`
	Currency       string        `yaml:"currency"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	SubmitTimeout  time.Duration `yaml:"submit_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

// TradingConfig holds risk and sizing policy.
type TradingConfig struct {
	Mode               string        `yaml:"mode"` // "live" or "simulation"
	MaxOpenPositions   int           `yaml:"max_open_positions"`
	Cooldown           time.Duration `yaml:"cooldown"`
	MarketOpenHour     int           `yaml:"market_open_hour"`  // UTC
	MarketCloseHour    int           `yaml:"market_close_hour"` // UTC
	PnlRefreshInterval time.Duration `yaml:"pnl_refresh_interval"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("BROKER_GATEWAY_URL"); v != "" {
		c.Broker.GatewayURL = v
	}
	if v := os.Getenv("BROKER_ACCOUNT"); v != "" {
		c.Broker.Account = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		c.Trading.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Broker.Exchange == "" {
		c.Broker.Exchange = "SMART"
	}
	if c.Broker.Currency == "" {
		c.Broker.Currency = "USD"
	}
	if c.Broker.ConnectTimeout <= 0 {
		c.Broker.ConnectTimeout = 10 * time.Second
	}
	if c.Broker.CallTimeout <= 0 {
		c.Broker.CallTimeout = 5 * time.Second
	}
	if c.Broker.SubmitTimeout <= 0 {
		c.Broker.SubmitTimeout = 10 * time.Second
	}
	if c.Broker.PingInterval <= 0 {
		c.Broker.PingInterval = 30 * time.Second
	}
	if c.Trading.Mode == "" {
		c.Trading.Mode = "simulation"
	}
	if c.Trading.MaxOpenPositions <= 0 {
		c.Trading.MaxOpenPositions = 20
	}
	if c.Trading.Cooldown <= 0 {
		c.Trading.Cooldown = 300 * time.Second
	}
	if c.Trading.MarketCloseHour == 0 {
		c.Trading.MarketOpenHour = 13
		c.Trading.MarketCloseHour = 20
	}
	if c.Trading.PnlRefreshInterval <= 0 {
		c.Trading.PnlRefreshInterval = time.Minute
	}
	if c.Kafka.OrderStatusTopic == "" {
		c.Kafka.OrderStatusTopic = "broker.order_status"
	}
	if c.Kafka.FillTopic == "" {
		c.Kafka.FillTopic = "broker.fills"
	}
	if c.Kafka.RequiredAcks == 0 {
		c.Kafka.RequiredAcks = -1
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "gzip"
	}
	if c.Kafka.Producer.MaxAttempts <= 0 {
		c.Kafka.Producer.MaxAttempts = 3
	}
	if c.Kafka.Producer.WriteTimeout <= 0 {
		c.Kafka.Producer.WriteTimeout = 10 * time.Second
	}
	if c.Kafka.Producer.ReadTimeout <= 0 {
		c.Kafka.Producer.ReadTimeout = 10 * time.Second
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "autotrade-ledger"
	}
	if c.Kafka.Consumer.Workers <= 0 {
		c.Kafka.Consumer.Workers = 2
	}
	if c.Kafka.Consumer.BufferSize <= 0 {
		c.Kafka.Consumer.BufferSize = 100
	}
	if c.Kafka.Consumer.RetryMax <= 0 {
		c.Kafka.Consumer.RetryMax = 3
	}
	if c.Kafka.Consumer.BackoffMin <= 0 {
		c.Kafka.Consumer.BackoffMin = 50 * time.Millisecond
	}
	if c.Kafka.Consumer.BackoffMax <= 0 {
		c.Kafka.Consumer.BackoffMax = 2 * time.Second
	}
	if c.Kafka.Consumer.MinBytes <= 0 {
		c.Kafka.Consumer.MinBytes = 1
	}
	if c.Kafka.Consumer.MaxBytes <= 0 {
		c.Kafka.Consumer.MaxBytes = 10485760
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "autotrade"
	}
	if c.ClickHouse.User == "" {
		c.ClickHouse.User = "default"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Trading.Mode != "live" && c.Trading.Mode != "simulation" {
		return fmt.Errorf("trading.mode must be 'live' or 'simulation', got '%s'", c.Trading.Mode)
	}
	if c.Broker.GatewayURL == "" {
		return fmt.Errorf("broker.gateway_url is required")
	}
	if c.Trading.MarketOpenHour < 0 || c.Trading.MarketOpenHour > 23 ||
		c.Trading.MarketCloseHour < 0 || c.Trading.MarketCloseHour > 24 {
		return fmt.Errorf("trading market hours out of range")
	}
	if c.Trading.MarketOpenHour >= c.Trading.MarketCloseHour {
		return fmt.Errorf("trading.market_open_hour must be before market_close_hour")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	return nil
}
