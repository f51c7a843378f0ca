package config

import (
	"fmt"
	"os"
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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Audit struct {
		Backend    string `yaml:"backend"` // clickhouse | kafka | none
		BufferSize int    `yaml:"buffer_size"`
	} `yaml:"audit"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		Backend string `yaml:"backend"` // memory | redis
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		TTL struct {
			Chart time.Duration `yaml:"chart"`
			News  time.Duration `yaml:"news"`
			Flows time.Duration `yaml:"flows"`
			Quote time.Duration `yaml:"quote"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
	Vendors struct {
		Timeout time.Duration `yaml:"timeout"` // per-vendor attempt budget
		Polygon struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"polygon"`
		Finnhub struct {
			APIKey         string        `yaml:"api_key"`
			BaseURL        string        `yaml:"base_url"`
			WebSocketURL   string        `yaml:"websocket_url"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"finnhub"`
		Yahoo struct {
			BaseURL string `yaml:"base_url"`
		} `yaml:"yahoo"`
		Marketaux struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"marketaux"`
		FMP struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"fmp"`
	} `yaml:"vendors"`
	LLM struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Stream struct {
		Enabled bool     `yaml:"enabled"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"stream"`
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

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// Secrets are expected to arrive through the environment in production.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		c.Vendors.Polygon.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Vendors.Finnhub.APIKey = v
	}
	if v := os.Getenv("MARKETAUX_API_KEY"); v != "" {
		c.Vendors.Marketaux.APIKey = v
	}
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		c.Vendors.FMP.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("AUDIT_BACKEND"); v != "" {
		c.Audit.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.Stream.Symbols = strings.Split(v, ",")
	}

	// Validate after overrides so env-provided secrets count.
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Audit.Backend {
	case "clickhouse", "kafka", "none":
	case "":
		return fmt.Errorf("audit.backend is required")
	default:
		return fmt.Errorf("audit.backend must be 'clickhouse', 'kafka' or 'none', got '%s'", c.Audit.Backend)
	}
	if c.Audit.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka audit backend")
	}
	switch c.Cache.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Vendors.Timeout <= 0 {
		c.Vendors.Timeout = 5 * time.Second
	}
	return nil
}
