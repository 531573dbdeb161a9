package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Venue struct {
		APIToken       string        `yaml:"api_token"`
		AppID          string        `yaml:"app_id"`
		WebSocketURL   string        `yaml:"websocket_url" validate:"required"`
		Symbol         string        `yaml:"symbol" validate:"required"`
		PipDigits      int           `yaml:"pip_digits" default:"2" validate:"gte=0,lte=5"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		MaxBuysPerMin  int           `yaml:"max_buys_per_min" default:"10"`
	} `yaml:"venue"`
	Engine struct {
		TradingEnabled    bool    `yaml:"trading_enabled"`
		BufferCapacity    int     `yaml:"buffer_capacity" default:"500" validate:"gte=60"`
		BaseStake         float64 `yaml:"base_stake" default:"1.0" validate:"gt=0"`
		Martingale        float64 `yaml:"martingale_multiplier" default:"2.0" validate:"gte=1"`
		ContractTicks     int     `yaml:"contract_duration_ticks" default:"5" validate:"gte=1"`
		BaseThreshold     float64 `yaml:"base_confidence_threshold" default:"0.58" validate:"gte=0.5,lte=0.9"`
		BaseLearningRate  float64 `yaml:"base_learning_rate" default:"0.3" validate:"gt=0,lte=1"`
		LearningRateDecay float64 `yaml:"learning_rate_decay" default:"0.995" validate:"gt=0,lte=1"`
		Discount          float64 `yaml:"discount_factor" default:"0.9" validate:"gte=0,lte=1"`
		Epsilon           float64 `yaml:"exploration_epsilon" default:"0.05" validate:"gte=0,lte=0.5"`
		CooldownTicks     int     `yaml:"cooldown_ticks" default:"5" validate:"gte=0"`
		PatternCapacity   int     `yaml:"pattern_capacity" default:"100" validate:"gte=10"`
		ContextCapacity   int     `yaml:"context_capacity" default:"50" validate:"gte=10"`
		RecordCapacity    int     `yaml:"record_capacity" default:"200" validate:"gte=20"`
		TuneEvery         int     `yaml:"tune_every" default:"25" validate:"gte=1"`
	} `yaml:"engine"`
	Persistence struct {
		Addr       string        `yaml:"addr" default:"localhost:6379"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		KeyPrefix  string        `yaml:"key_prefix" default:"digitpulse"`
		FlushEvery time.Duration `yaml:"flush_every" default:"30s"`
	} `yaml:"persistence"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic" default:"digitpulse.events"`
		ReplayTopic  string   `yaml:"replay_topic" default:"digitpulse.ticks"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"500ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
		Replay struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"digitpulse-replay"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"replay"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"digitpulse"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		AsyncInsert  bool          `yaml:"async_insert" default:"true"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Notify struct {
		Enabled    bool          `yaml:"enabled"`
		WebhookURL string        `yaml:"webhook_url"`
		Workers    int           `yaml:"workers" default:"1"`
		QueueSize  int           `yaml:"queue_size" default:"100"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"notify"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields and knob ranges
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
	if v := os.Getenv("VENUE_API_TOKEN"); v != "" {
		c.Venue.APIToken = v
	}
	if v := os.Getenv("VENUE_SYMBOL"); v != "" {
		c.Venue.Symbol = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Persistence.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRADING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Engine.TradingEnabled = b
		}
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Engine.TradingEnabled && c.Venue.APIToken == "" {
		return fmt.Errorf("venue.api_token is required when trading is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify.webhook_url is required when notifications are enabled")
	}
	return nil
}
