package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"180s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:","`

	// Per-client request limit on the API; 0 disables it.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Session tokens are HS256 JWTs issued by the identity provider.
	JWTSecret   string `env:"AUTH_JWT_SECRET,required"`
	JWTAudience string `env:"AUTH_JWT_AUDIENCE" envDefault:"authenticated"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	DefaultLocale string `env:"DEFAULT_LOCALE" envDefault:"pt-BR"`

	AIGatewayURL string        `env:"AI_GATEWAY_URL" envDefault:"https://ai.gateway.lovable.dev/v1/chat/completions"`
	AIAPIKey     string        `env:"AI_API_KEY"`
	AIModels     []string      `env:"AI_MODELS" envSeparator:"," envDefault:"google/gemini-3-flash-preview,google/gemini-2.5-flash"`
	AITimeout    time.Duration `env:"AI_TIMEOUT" envDefault:"120s"`
	OEmbedURL    string        `env:"OEMBED_URL" envDefault:"https://www.youtube.com/oembed"`

	WorkerMode      string        `env:"WORKER_MODE" envDefault:"local"` // "local" or "remote"
	WorkerURL       string        `env:"WORKER_URL"`
	WorkerTimeout   time.Duration `env:"WORKER_TIMEOUT" envDefault:"150s"`
	Workers         int           `env:"WORKERS" envDefault:"2"`
	WorkerQueueSize int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`

	CacheSize int           `env:"CACHE_SIZE" envDefault:"1024"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"5s"`

	MQTTBrokerURL   string `env:"MQTT_BROKER_URL"`
	MQTTClientID    string `env:"MQTT_CLIENT_ID" envDefault:"tube-link-scribe"`
	MQTTTopicPrefix string `env:"MQTT_TOPIC_PREFIX" envDefault:"tubelink"`
	MQTTUsername    string `env:"MQTT_USERNAME"`
	MQTTPassword    string `env:"MQTT_PASSWORD"`

	ArchiveDir string `env:"ARCHIVE_DIR"`
	// Archive writes are queued in the background; 0 writes inline.
	ArchiveQueueSize int `env:"ARCHIVE_QUEUE_SIZE" envDefault:"256"`
	S3         S3Config

	MetricsToken string `env:"METRICS_TOKEN"`
}

// S3Config holds the optional object-store settings for the transcript archive.
type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	Prefix    string `env:"S3_PREFIX" envDefault:"transcripts"`
}

// Enabled reports whether an S3 bucket has been configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	WorkerMode  string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.WorkerMode != "" {
		cfg.WorkerMode = overrides.WorkerMode
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.WorkerMode = strings.ToLower(strings.TrimSpace(c.WorkerMode))
	switch c.WorkerMode {
	case "local":
		if c.Workers < 1 {
			return fmt.Errorf("WORKERS must be >= 1, got %d", c.Workers)
		}
		if c.WorkerQueueSize < 1 {
			return fmt.Errorf("WORKER_QUEUE_SIZE must be >= 1, got %d", c.WorkerQueueSize)
		}
	case "remote":
		if c.WorkerURL == "" {
			return fmt.Errorf("WORKER_URL is required when WORKER_MODE=remote")
		}
	default:
		return fmt.Errorf("invalid WORKER_MODE %q: must be local or remote", c.WorkerMode)
	}
	if len(c.AIModels) == 0 {
		return fmt.Errorf("AI_MODELS must list at least one model")
	}
	return nil
}
