package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Symbol maps a display name to its market-data ticker.
type Symbol struct {
	Name   string `yaml:"name"`
	Ticker string `yaml:"ticker"`
}

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
	Symbols  []Symbol `yaml:"symbols"`
	Forecast struct {
		WindowSize   int     `yaml:"window_size"`
		Epochs       int     `yaml:"epochs"`
		BatchSize    int     `yaml:"batch_size"`
		Neurons      int     `yaml:"neurons"`
		Dropout      float64 `yaml:"dropout"`
		LearningRate float64 `yaml:"learning_rate"`
		ModelDir     string  `yaml:"model_dir"`
		ScalerDir    string  `yaml:"scaler_dir"`
	} `yaml:"forecast"`
	MarketData struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"market_data"`
	Cache struct {
		Backend    string        `yaml:"backend"` // memory or redis
		HistoryTTL time.Duration `yaml:"history_ttl"`
		LiveTTL    time.Duration `yaml:"live_ttl"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Ticker struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"ticker"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		Table        string        `yaml:"table"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		Compression  string        `yaml:"compression"`
		RequiredAcks int           `yaml:"required_acks"`
		MaxAttempts  int           `yaml:"max_attempts"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
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

	// Validate required fields
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
	if v := os.Getenv("MARKET_DATA_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = c.Symbols[:0]
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			c.Symbols = append(c.Symbols, Symbol{Name: t, Ticker: t})
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Ticker.WebSocketURL == "" {
		c.Ticker.WebSocketURL = "wss://stream.binance.com:9443/ws"
	}
	if c.Ticker.ReconnectDelay == 0 {
		c.Ticker.ReconnectDelay = 5 * time.Second
	}
	if c.Ticker.PingInterval == 0 {
		c.Ticker.PingInterval = 30 * time.Second
	}
	if c.ClickHouse.Port == 0 {
		c.ClickHouse.Port = 9000
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "coincast"
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "forecast_log"
	}
	if c.ClickHouse.DialTimeout == 0 {
		c.ClickHouse.DialTimeout = 5 * time.Second
	}
	if c.ClickHouse.ReadTimeout == 0 {
		c.ClickHouse.ReadTimeout = 10 * time.Second
	}
	if c.ClickHouse.WriteTimeout == 0 {
		c.ClickHouse.WriteTimeout = 10 * time.Second
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "coincast.events"
	}
	if c.Kafka.Compression == "" {
		c.Kafka.Compression = "gzip"
	}
	if c.Kafka.RequiredAcks == 0 {
		c.Kafka.RequiredAcks = -1
	}
	if c.Kafka.MaxAttempts == 0 {
		c.Kafka.MaxAttempts = 3
	}
	if c.Kafka.WriteTimeout == 0 {
		c.Kafka.WriteTimeout = 10 * time.Second
	}
	if c.Forecast.WindowSize == 0 {
		c.Forecast.WindowSize = 60
	}
	if c.Forecast.Epochs == 0 {
		c.Forecast.Epochs = 8
	}
	if c.Forecast.BatchSize == 0 {
		c.Forecast.BatchSize = 32
	}
	if c.Forecast.Neurons == 0 {
		c.Forecast.Neurons = 50
	}
	if c.Forecast.Dropout == 0 {
		c.Forecast.Dropout = 0.2
	}
	if c.Forecast.LearningRate == 0 {
		c.Forecast.LearningRate = 0.001
	}
	if c.Forecast.ModelDir == "" {
		c.Forecast.ModelDir = "models"
	}
	if c.Forecast.ScalerDir == "" {
		c.Forecast.ScalerDir = "scalers"
	}
	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.MarketData.Timeout == 0 {
		c.MarketData.Timeout = 15 * time.Second
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = time.Hour
	}
	if c.Cache.LiveTTL == 0 {
		c.Cache.LiveTTL = 5 * time.Minute
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
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols cannot be empty")
	}
	if c.Forecast.WindowSize < 2 {
		return fmt.Errorf("forecast.window_size must be at least 2, got %d", c.Forecast.WindowSize)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required for redis backend")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers are required when kafka is enabled")
	}
	return nil
}

// Tickers returns the catalog tickers in declaration order.
func (c *Config) Tickers() []string {
	out := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		out = append(out, s.Ticker)
	}
	return out
}
